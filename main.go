package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/ideafeed/ideafeed-cli/internal/api"
	"github.com/ideafeed/ideafeed-cli/internal/config"
	"github.com/ideafeed/ideafeed-cli/internal/lifecycle"
	"github.com/ideafeed/ideafeed-cli/internal/observe"
	"github.com/ideafeed/ideafeed-cli/internal/state"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configureLogging()

	logBuildInfo()

	if err := run(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func run(args []string) error {
	ctx, cancel := lifecycle.SignalContext(context.Background())
	defer cancel()

	// optional local overrides, mostly for development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("no .env loaded")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	cleanup := &lifecycle.Cleanup{}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		cleanup.Run(cleanupCtx)
	}()

	// configure telemetry, including wrapping the API HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	cleanup.AddContext("telemetry", shutdownTelemetry)

	httpClient := &http.Client{
		Transport: observe.HTTPTransport(configureHTTPTransport(cfg.API), cfg.Observe),
		Timeout:   time.Duration(cfg.API.RequestTimeoutSeconds) * time.Second,
	}

	stateDir := cfg.State.Dir
	if stateDir == "" {
		stateDir = state.DefaultDir()
	}
	store, err := state.New(stateDir)
	if err != nil {
		return fmt.Errorf("state initialization failed: %w", err)
	}

	client := api.New(cfg.API.BaseURL, store,
		api.WithHTTPClient(httpClient),
		api.WithPollConfig(cfg.Poll),
	)
	unsubscribe := client.Subscribe(func() {
		log.Debug().Bool("authenticated", client.IsAuthenticated()).
			Msg("session credentials changed")
	})
	defer unsubscribe()

	return dispatch(ctx, client, args)
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging
	// to be configured separately. However, it means that any logger that
	// sets its level will log as this effectively disables the global
	// level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Debug()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.APIConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}
