// Package api configures and exposes the HTTP server, routes, metrics and
// related middleware for the scan orchestration service.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"filescan/internal/api/handler/v1handler"
	"filescan/internal/config"
	"filescan/pkg/controller"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the timeout applied via http.TimeoutHandler to every
	// route except the event stream, which stays open for the client's lifetime.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

// Deps carries the service dependencies of the HTTP layer.
type Deps struct {
	v1handler.Deps
}

// NewMeterProvider builds the OpenTelemetry meter provider that exports
// through the default Prometheus registry, so instruments surface on the
// metrics endpoint alongside the runtime collectors.
func NewMeterProvider() (metric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(prometheus.DefaultRegisterer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - health endpoint reporting gateway reachability
// - v1 API routes (session, history, event stream)
// - pprof endpoints for profiling
// It also wraps the mux with CORS and logging middlewares and applies a request
// timeout to everything except the event stream.
func NewServer(deps Deps, opts Options) *http.Server {
	mux := http.NewServeMux()

	// prometheus metrics server
	mux.Handle(opts.MetricsPath, promhttp.Handler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		gateway := "up"
		if err := deps.Gateway.Ping(r.Context()); err != nil {
			gateway = "down"
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status":  "ok",
			"gateway": gateway,
		})
	})

	// v1 api
	h := v1handler.New(deps.Deps)
	h.Register(mux)

	// pprof
	mux.Handle("/debug/pprof/", controller.PprofMux())

	handler := http.Handler(http.TimeoutHandler(mux, opts.RequestTimeout, `{"error":"request timed out"}`))

	// the event stream must not run under the request timeout
	outer := http.NewServeMux()
	outer.HandleFunc("GET /v1/events", h.Events)
	outer.Handle("/", handler)

	// cors
	wrapped := controller.WithCORS(outer)

	// logger
	wrapped = controller.WithLogger(wrapped)

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           wrapped,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}
}
