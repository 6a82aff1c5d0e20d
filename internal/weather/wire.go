package weather

// Response shapes of GET /forecast.json. Only the fields we read are
// declared.

type forecastResponse struct {
	Location struct {
		Name      string  `json:"name"`
		Region    string  `json:"region"`
		Country   string  `json:"country"`
		Lat       float64 `json:"lat"`
		Lon       float64 `json:"lon"`
		TzID      string  `json:"tz_id"`
		LocalTime string  `json:"localtime"`
	} `json:"location"`
	Current struct {
		LastUpdated string    `json:"last_updated"`
		TempC       float64   `json:"temp_c"`
		FeelsLikeC  float64   `json:"feelslike_c"`
		IsDay       int       `json:"is_day"`
		Condition   condition `json:"condition"`
		WindKPH     float64   `json:"wind_kph"`
		WindDir     string    `json:"wind_dir"`
		PressureMB  float64   `json:"pressure_mb"`
		Humidity    int       `json:"humidity"`
		VisKM       float64   `json:"vis_km"`
		UV          float64   `json:"uv"`
	} `json:"current"`
	Forecast struct {
		ForecastDay []forecastDay `json:"forecastday"`
	} `json:"forecast"`
}

type condition struct {
	Text string `json:"text"`
}

type forecastDay struct {
	Date string `json:"date"`
	Day  struct {
		MaxTempC          float64   `json:"maxtemp_c"`
		MinTempC          float64   `json:"mintemp_c"`
		AvgTempC          float64   `json:"avgtemp_c"`
		MaxWindKPH        float64   `json:"maxwind_kph"`
		AvgHumidity       float64   `json:"avghumidity"`
		DailyChanceOfRain int       `json:"daily_chance_of_rain"`
		DailyChanceOfSnow int       `json:"daily_chance_of_snow"`
		Condition         condition `json:"condition"`
		UV                float64   `json:"uv"`
	} `json:"day"`
	Hour []struct {
		Time         string    `json:"time"`
		TempC        float64   `json:"temp_c"`
		IsDay        int       `json:"is_day"`
		Condition    condition `json:"condition"`
		WindKPH      float64   `json:"wind_kph"`
		Humidity     int       `json:"humidity"`
		ChanceOfRain int       `json:"chance_of_rain"`
	} `json:"hour"`
}
