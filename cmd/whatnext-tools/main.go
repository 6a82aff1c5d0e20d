// Whatnext-tools is the tool provider launched by whatnext. It serves
// the weather_api and activity_api tools as newline-delimited JSON-RPC
// on stdin and stdout. Logs go to stderr, which the parent relays.
//
// Usage:
//
//	whatnext-tools [-config path]
//
// API keys come from the config file or from WEATHER_API_KEY and
// FOURSQUARE_API_KEY. Without a Foursquare key the activity tool serves
// a built-in catalog.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nugget/whatnext/internal/buildinfo"
	"github.com/nugget/whatnext/internal/config"
	"github.com/nugget/whatnext/internal/places"
	"github.com/nugget/whatnext/internal/toolserver"
	"github.com/nugget/whatnext/internal/weather"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		stop()
		os.Exit(1)
	}
}

// run serves tools until stdin closes or ctx is cancelled. stdout is
// the protocol channel, so nothing else may be written to it.
func run(ctx context.Context, stderr io.Writer, args []string) error {
	var configPath string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	})).With("process", toolserver.Name)

	server := toolserver.New(
		weather.NewClient(cfg.Weather.APIKey, cfg.Weather.BaseURL, logger),
		newFinder(cfg, logger),
		logger,
	)

	logger.Info("tool provider starting", "version", buildinfo.Version)
	return toolserver.Serve(ctx, server)
}

// newFinder returns the activity finder, backed by Foursquare when a key
// is configured and by the catalog alone otherwise.
func newFinder(cfg *config.Config, logger *slog.Logger) *places.Finder {
	if cfg.Foursquare.APIKey == "" {
		logger.Info("no Foursquare API key, serving catalog activities")
		return places.NewFinder(nil, logger)
	}
	fsq := places.NewFoursquareClient(cfg.Foursquare.APIKey, cfg.Foursquare.BaseURL, cfg.Foursquare.APIVersion, logger)
	return places.NewFinder(fsq, logger)
}

// loadConfig reads the shared config file when one exists; otherwise
// defaults drawn from the environment apply.
func loadConfig(explicit string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	path, err := config.FindConfig(explicit)
	if errors.Is(err, config.ErrNoConfig) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
