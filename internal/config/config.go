package config

import (
	"context"
	"fmt"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	API     APIConfig
	Poll    PollConfig
	State   StateConfig
	Observe ObserveConfig
}

type APIConfig struct {
	// BaseURL is the Ideafeed API endpoint. A named profile (see
	// profiles.go) takes precedence when IDEAFEED_PROFILE is set.
	BaseURL string `env:"IDEAFEED_API_URL, default=http://localhost:5001"`

	// Profile selects a named endpoint from the profiles file.
	Profile string `env:"IDEAFEED_PROFILE"`

	// ProfilesFile overrides the default profiles file location.
	ProfilesFile string `env:"IDEAFEED_PROFILES_FILE"`

	RequestTimeoutSeconds int `env:"IDEAFEED_REQUEST_TIMEOUT_SECS, default=30"`

	OutgoingHTTPMaxIdleConns    int `env:"IDEAFEED_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"IDEAFEED_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

// PollConfig carries overrides for the generation watchers. Zero values
// fall back to the per-resource defaults in the api package.
type PollConfig struct {
	FeedIntervalMillis    int `env:"IDEAFEED_POLL_FEED_INTERVAL_MS"`
	ArticleIntervalMillis int `env:"IDEAFEED_POLL_ARTICLE_INTERVAL_MS"`
	MemeIntervalMillis    int `env:"IDEAFEED_POLL_MEME_INTERVAL_MS"`
	SlopIntervalMillis    int `env:"IDEAFEED_POLL_SLOP_INTERVAL_MS"`
}

type StateConfig struct {
	// Dir is where tokens and the guest identifier are persisted.
	// Defaults to ~/.config/ideafeed when empty.
	Dir string `env:"IDEAFEED_STATE_DIR"`
}

type ObserveConfig struct {
	SDKLogLevel               string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                   bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled            bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                      string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName               string `env:"OBSERVE_SERVICE_NAME, default=ideafeed-cli"`
	TraceBatchTimeoutSeconds  int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled      bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTrace       bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.API.resolveProfile()
	if err != nil {
		return cfg, fmt.Errorf("invalid API configuration: %w", err)
	}

	return cfg, nil
}
