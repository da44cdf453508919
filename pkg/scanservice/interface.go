// Package scanservice defines the abstraction over the remote malware
// scanning gateway: submitting files, fetching job reports, and querying the
// server-enforced submission throttle.
package scanservice

import (
	"context"
	"io"

	"filescan/pkg/domain"
)

// SubmitRes represents the response of a successful file submission.
type SubmitRes struct {
	// AnalysisID is the opaque job identifier assigned by the remote service.
	AnalysisID string
}

// Client is the abstraction for the remote scanning gateway. Implementations
// submit files for analysis and later fetch their reports. All methods are
// safe for concurrent use.
type Client interface {
	// Submit uploads the file content for scanning and returns the remote job
	// identifier. Semantic kinds on failure: ErrConflict (remote busy),
	// ErrRateLimited (quota), ErrBadRequest (payload rejected), ErrUnavailable
	// (transport).
	Submit(ctx context.Context, file domain.FileInfo, content io.Reader) (SubmitRes, error)
	// Report retrieves the current report for a previously submitted job.
	// Returns ErrNotFound when the job is unknown or failed upstream and
	// ErrUnavailable on transport failure. Missing optional fields decode as
	// zero values.
	Report(ctx context.Context, analysisID string) (*domain.Report, error)
	// RateLimit queries the gateway's submission throttle state.
	RateLimit(ctx context.Context) (domain.RateLimitStatus, error)
	// Ping probes gateway liveness.
	Ping(ctx context.Context) error
}
