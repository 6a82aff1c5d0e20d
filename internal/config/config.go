// Package config handles whatnext configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/whatnext/config.yaml, /etc/whatnext/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "whatnext", "config.yaml"))
	}

	paths = append(paths, "/etc/whatnext/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns ErrNoConfig when nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("%w (searched: %v)", ErrNoConfig, DefaultSearchPaths())
}

// ErrNoConfig is returned by FindConfig when no search path holds a file.
var ErrNoConfig = errors.New("no config file found")

// Config holds all whatnext configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm"`
	Agent      AgentConfig      `yaml:"agent"`
	Tools      ToolsConfig      `yaml:"tools"`
	Weather    WeatherConfig    `yaml:"weather"`
	Foursquare FoursquareConfig `yaml:"foursquare"`
	Usage      UsageConfig      `yaml:"usage"`
	Listen     ListenConfig     `yaml:"listen"`
	LogLevel   string           `yaml:"log_level"`
	LogFormat  string           `yaml:"log_format"` // text (default) or json
}

// LLMConfig selects the language model provider and the model used at
// each stage of a turn. Stage models fall back to Model when empty.
type LLMConfig struct {
	Provider      string          `yaml:"provider"` // openai, anthropic, ollama
	Model         string          `yaml:"model"`
	IntentModel   string          `yaml:"intent_model"`
	DecisionModel string          `yaml:"decision_model"`
	ResponseModel string          `yaml:"response_model"`
	OllamaURL     string          `yaml:"ollama_url"`
	OpenAI        OpenAIConfig    `yaml:"openai"`
	Anthropic     AnthropicConfig `yaml:"anthropic"`
}

// ModelFor returns the configured model for a stage, or the default model.
func (c LLMConfig) ModelFor(stage string) string {
	var m string
	switch stage {
	case "intent":
		m = c.IntentModel
	case "decision":
		m = c.DecisionModel
	case "response":
		m = c.ResponseModel
	}
	if m == "" {
		return c.Model
	}
	return m
}

// OpenAIConfig defines OpenAI-compatible API settings. BaseURL may point
// at any server speaking the chat completions protocol.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// AgentConfig tunes the decision loop.
type AgentConfig struct {
	// MaxLoops is the hard cap on decide/act iterations per turn.
	MaxLoops int `yaml:"max_loops"`
	// Synthesizer picks the final response writer: "llm" or "template".
	Synthesizer string `yaml:"synthesizer"`
	// TimeoutSec bounds a whole turn. Zero means no limit.
	TimeoutSec int `yaml:"timeout_sec"`
}

// ToolsConfig describes how to launch the tool provider subprocess.
type ToolsConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
}

// WeatherConfig defines weatherapi.com settings.
type WeatherConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// FoursquareConfig defines Foursquare Places settings. With no API key
// the activity tool serves the built-in catalog.
type FoursquareConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	APIVersion string `yaml:"api_version"`
}

// UsageConfig controls the token usage ledger.
type UsageConfig struct {
	Enabled bool                    `yaml:"enabled"`
	DBPath  string                  `yaml:"db_path"`
	Pricing map[string]PricingEntry `yaml:"pricing"`
}

// PricingEntry is the USD cost per million tokens for one model.
type PricingEntry struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

// ListenConfig defines the browser chat server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// Addr returns the host:port the server binds to.
func (l ListenConfig) Addr() string {
	return fmt.Sprintf("%s:%d", l.Address, l.Port)
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process
// environment. Variables already set are left alone and a missing file
// is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from a YAML file on top of Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.applyDefaults()

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	cfg := &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			OllamaURL: "http://localhost:11434",
			OpenAI:    OpenAIConfig{APIKey: os.Getenv("OPENAI_API_KEY")},
			Anthropic: AnthropicConfig{APIKey: os.Getenv("ANTHROPIC_API_KEY")},
		},
		Agent: AgentConfig{
			MaxLoops:    5,
			Synthesizer: "llm",
		},
		Tools: ToolsConfig{Command: "whatnext-tools"},
		Weather: WeatherConfig{
			APIKey:  os.Getenv("WEATHER_API_KEY"),
			BaseURL: "https://api.weatherapi.com/v1",
		},
		Foursquare: FoursquareConfig{
			APIKey:     os.Getenv("FOURSQUARE_API_KEY"),
			BaseURL:    "https://places-api.foursquare.com",
			APIVersion: "2025-06-17",
		},
		Usage:  UsageConfig{DBPath: "whatnext-usage.db"},
		Listen: ListenConfig{Port: 8080},
	}
	return cfg
}

// applyDefaults fills zero values a config file may have cleared.
func (c *Config) applyDefaults() {
	if c.Agent.MaxLoops == 0 {
		c.Agent.MaxLoops = 5
	}
	if c.Agent.Synthesizer == "" {
		c.Agent.Synthesizer = "llm"
	}
	if c.Tools.Command == "" {
		c.Tools.Command = "whatnext-tools"
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = 8080
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (valid: text, json)", c.LogFormat)
	}
	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q (valid: openai, anthropic, ollama)", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Agent.MaxLoops < 1 {
		return fmt.Errorf("agent.max_loops must be at least 1, got %d", c.Agent.MaxLoops)
	}
	switch c.Agent.Synthesizer {
	case "llm", "template":
	default:
		return fmt.Errorf("unknown agent.synthesizer %q (valid: llm, template)", c.Agent.Synthesizer)
	}
	if c.Agent.TimeoutSec < 0 {
		return fmt.Errorf("agent.timeout_sec must not be negative")
	}
	return nil
}
