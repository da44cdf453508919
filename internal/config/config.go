package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config represents the application configuration structure.
// It contains settings for the environment, HTTP server, scan gateway,
// session pacing, polling, history persistence, and graceful shutdown.
type Config struct {
	// Environment specifies the current running environment (development, production, etc.)
	Environment string `env:"ENVIRONMENT" env-default:"development" yaml:"environment"`

	// HTTP contains all HTTP server related configurations
	HTTP struct {
		// Addr is the address and port the HTTP server will listen on
		Addr string `env:"HTTP_ADDR" env-default:":8080" yaml:"addr"`
		// ReadTimeout is the maximum duration for reading the entire request, including the body
		ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" env-default:"2m" yaml:"readTimeout"`
		// ReadHeaderTimeout is the amount of time allowed to read request headers
		ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" env-default:"10s" yaml:"readHeaderTimeout"`
		// WriteTimeout is the maximum duration before timing out writes of the response
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" env-default:"5m" yaml:"writeTimeout"`
		// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled
		IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" env-default:"2m" yaml:"idleTimeout"`
		// RequestTimeout is the maximum time allowed for processing a single request.
		// Streaming endpoints (event feed) are exempt.
		RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" env-default:"2m" yaml:"requestTimeout"`
		// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
		MaxHeaderBytes int `env:"HTTP_MAX_HEADER_BYTES" env-default:"0" yaml:"maxHeaderBytes"`
		// MetricsPath defines the URL path where metrics are exposed
		MetricsPath string `env:"HTTP_METRICS_PATH" env-default:"/metrics" yaml:"metricsPath"`
	} `yaml:"http"`

	// Gateway contains settings for the remote scan gateway client
	Gateway struct {
		// BaseURL is the root address of the scan gateway
		BaseURL string `env:"GATEWAY_BASE_URL" env-default:"http://localhost:5000" yaml:"baseUrl"`
		// UploadTimeout bounds a single upload request end to end
		UploadTimeout time.Duration `env:"GATEWAY_UPLOAD_TIMEOUT" env-default:"1m" yaml:"uploadTimeout"`
	} `yaml:"gateway"`

	// Session contains pacing settings for the scan session lifecycle
	Session struct {
		// BusyCooldown is the pause imposed after the gateway reports another
		// scan is already in flight
		BusyCooldown time.Duration `env:"SESSION_BUSY_COOLDOWN" env-default:"3m" yaml:"busyCooldown"`
		// QuotaCooldown is the pause imposed after the gateway reports the
		// submission quota is exhausted
		QuotaCooldown time.Duration `env:"SESSION_QUOTA_COOLDOWN" env-default:"1m" yaml:"quotaCooldown"`
		// CountdownTick is the cadence at which a pending cooldown is decremented
		CountdownTick time.Duration `env:"SESSION_COUNTDOWN_TICK" env-default:"1s" yaml:"countdownTick"`
		// UploadProgressTick is the cadence of cosmetic upload progress updates
		UploadProgressTick time.Duration `env:"SESSION_UPLOAD_PROGRESS_TICK" env-default:"200ms" yaml:"uploadProgressTick"`
		// ScanProgressTick is the cadence of cosmetic scan progress updates
		ScanProgressTick time.Duration `env:"SESSION_SCAN_PROGRESS_TICK" env-default:"1s" yaml:"scanProgressTick"`
	} `yaml:"session"`

	// Poll contains settings for report polling against the gateway
	Poll struct {
		// Interval is the fixed pause between consecutive report fetches
		Interval time.Duration `env:"POLL_INTERVAL" env-default:"2s" yaml:"interval"`
		// MaxAttempts bounds how many report fetches a single scan may consume
		MaxAttempts int `env:"POLL_MAX_ATTEMPTS" env-default:"60" yaml:"maxAttempts"`
	} `yaml:"poll"`

	// History contains settings for the durable scan history
	History struct {
		// Enabled toggles history persistence; when off, finished scans are not recorded
		Enabled bool `env:"HISTORY_ENABLED" env-default:"true" yaml:"enabled"`
		// DBPath is the SQLite database file location
		DBPath string `env:"HISTORY_DB_PATH" env-default:"filescan.db" yaml:"dbPath"`
		// Cap is the maximum number of records retained
		Cap int `env:"HISTORY_CAP" env-default:"100" yaml:"cap"`
		// WatchInterval is the cadence at which the database file is polled for
		// changes made by other processes
		WatchInterval time.Duration `env:"HISTORY_WATCH_INTERVAL" env-default:"1s" yaml:"watchInterval"`
	} `yaml:"history"`

	// GracefulShutdownTimeout is the maximum duration to wait for ongoing requests to complete during shutdown
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_TIMEOUT" env-default:"10s" yaml:"gracefulShutdownTimeout"` //nolint: lll
}

// Load receives the path for yaml config file and returns a filled Config struct.
func Load(configPath string) (*Config, error) {
	var cfg Config
	err := cleanenv.ReadConfig(configPath, &cfg)
	if err != nil {
		return nil, fmt.Errorf("could not read config: %w", err)
	}

	return &cfg, nil
}
