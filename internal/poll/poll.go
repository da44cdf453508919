// Package poll drives a submitted analysis to a terminal report by fetching
// its status from the gateway at a fixed cadence with a bounded attempt
// budget.
package poll

import (
	"context"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/logger"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"

	"go.uber.org/zap"
)

const (
	// DefaultInterval is the pause between consecutive report fetches.
	DefaultInterval = 2 * time.Second
	// DefaultMaxAttempts bounds how many fetches a single run may consume.
	// With the default interval this is a two minute ceiling per scan.
	DefaultMaxAttempts = 60
)

// Engine polls analysis reports. Safe for concurrent use; each Run is an
// independent loop.
type Engine struct {
	client      scanservice.Client
	interval    time.Duration
	maxAttempts int
}

// New constructs an Engine. Non-positive interval or maxAttempts fall back to
// the package defaults.
func New(client scanservice.Client, interval time.Duration, maxAttempts int) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Engine{
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// Run fetches the report for analysisID once per interval until it reports a
// terminal status, the attempt budget is exhausted, or ctx is cancelled.
// Budget exhaustion returns ErrTimeout; a fetch failure (transport, unknown
// analysis) aborts the run with that error. The two are distinct so callers
// can tell "the scan is slow" from "the gateway is broken".
func (e *Engine) Run(ctx context.Context, analysisID string) (*domain.Report, error) {
	ctx = logger.WithFields(ctx, zap.String("analysisID", analysisID))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err() //nolint: wrapcheck
		case <-ticker.C:
		}

		report, err := e.client.Report(ctx, analysisID)
		if err != nil {
			logger.Error(ctx, "could not fetch report", zap.Int("attempt", attempt), zap.Error(err))

			return nil, err
		}

		if report.Terminal() {
			logger.Info(ctx, "analysis completed", zap.Int("attempts", attempt))

			return report, nil
		}

		logger.Debug(ctx, "analysis still in progress",
			zap.Int("attempt", attempt),
			zap.String("status", string(report.Status)))
	}

	return nil, serrors.With(serrors.ErrTimeout,
		"analysis did not complete after %d attempts", e.maxAttempts)
}
