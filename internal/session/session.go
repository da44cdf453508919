// Package session implements the scan session state machine. Exactly one
// scan is in flight at a time: a submission moves the session through
// uploading and scanning to a terminal completed or error state, or parks it
// in rate_limited with a countdown when the gateway refuses the upload.
//
// Every submission and reset advances a generation counter, and every
// asynchronous continuation (poll loop, countdown tick) is tagged with the
// generation it belongs to. A continuation whose generation no longer matches
// the current one is a no-op, so a reset followed by a new submission can
// never let a stale poll finish the new session or append a duplicate
// history record.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"filescan/internal/config"
	"filescan/internal/history"
	"filescan/internal/poll"
	"filescan/internal/progress"
	"filescan/internal/ratelimit"
	"filescan/pkg/domain"
	"filescan/pkg/logger"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Options configure the session pacing knobs.
type Options struct {
	// BusyCooldown is imposed after the gateway answers 409: another scan is
	// already running remotely and a long pause is required.
	BusyCooldown time.Duration
	// QuotaCooldown is imposed after the gateway answers 429: the submission
	// quota is exhausted and a shorter pause applies.
	QuotaCooldown time.Duration
	// UploadProgressTick and ScanProgressTick drive the cosmetic estimator.
	UploadProgressTick time.Duration
	ScanProgressTick   time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		BusyCooldown:       cfg.Session.BusyCooldown,
		QuotaCooldown:      cfg.Session.QuotaCooldown,
		UploadProgressTick: cfg.Session.UploadProgressTick,
		ScanProgressTick:   cfg.Session.ScanProgressTick,
	}
}

const (
	// DefaultBusyCooldown matches the remote scanner's single-slot occupancy.
	DefaultBusyCooldown = 3 * time.Minute
	// DefaultQuotaCooldown matches the gateway's submission spacing.
	DefaultQuotaCooldown = time.Minute

	defaultUploadTick = 200 * time.Millisecond
	defaultScanTick   = time.Second
)

// Snapshot is a point-in-time view of the session for APIs and CLIs.
type Snapshot struct {
	Status     domain.SessionStatus `json:"status"`
	File       *domain.FileInfo     `json:"file,omitempty"`
	AnalysisID string               `json:"analysisId,omitempty"`
	Progress   progress.Snapshot    `json:"progress"`
	Report     *domain.Report       `json:"report,omitempty"`
	Result     *domain.HistoryItem  `json:"result,omitempty"`
	// Countdown is the remaining cooldown while rate_limited;
	// CountdownSeconds is its wire representation.
	Countdown        time.Duration `json:"-"`
	CountdownSeconds int           `json:"countdownSeconds,omitempty"`
	Error            string        `json:"error,omitempty"`
}

// Controller is the session state machine. Safe for concurrent use.
type Controller struct {
	client   scanservice.Client
	poller   *poll.Engine
	limiter  *ratelimit.Coordinator
	history  *history.Service
	progress *progress.Estimator
	options  Options

	scansTotal metric.Int64Counter

	mu            sync.Mutex
	generation    uint64
	status        domain.SessionStatus
	file          *domain.FileInfo
	analysisID    string
	report        *domain.Report
	result        *domain.HistoryItem
	errMsg        string
	countdown     time.Duration
	scanStartedAt time.Time
	runCtx        context.Context //nolint: containedctx
	cancel        context.CancelFunc
}

// New constructs a Controller. Zero-valued pacing options fall back to the
// package defaults.
func New(client scanservice.Client,
	poller *poll.Engine,
	limiter *ratelimit.Coordinator,
	hist *history.Service,
	estimator *progress.Estimator,
	meter metric.Meter,
	options Options) (*Controller, error) {
	if options.BusyCooldown <= 0 {
		options.BusyCooldown = DefaultBusyCooldown
	}
	if options.QuotaCooldown <= 0 {
		options.QuotaCooldown = DefaultQuotaCooldown
	}
	if options.UploadProgressTick <= 0 {
		options.UploadProgressTick = defaultUploadTick
	}
	if options.ScanProgressTick <= 0 {
		options.ScanProgressTick = defaultScanTick
	}

	scansTotal, err := meter.Int64Counter("scan_sessions_total",
		metric.WithDescription("Scan sessions by terminal outcome."))
	if err != nil {
		return nil, fmt.Errorf("could not create sessions counter: %w", err)
	}

	return &Controller{
		client:     client,
		poller:     poller,
		limiter:    limiter,
		history:    hist,
		progress:   estimator,
		options:    options,
		scansTotal: scansTotal,
		status:     domain.SessionIdle,
	}, nil
}

// Submit starts a new scan for the given file. It performs the upload
// synchronously and hands the accepted analysis to the background poll loop.
// Rejected unless the session is idle; a rejected submission has no side
// effects on the running one.
func (c *Controller) Submit(ctx context.Context, file domain.FileInfo, content io.Reader) error {
	c.mu.Lock()
	if c.status != domain.SessionIdle {
		c.mu.Unlock()

		return serrors.With(serrors.ErrConflict, "a scan session is already active")
	}
	gen := c.nextGenerationLocked()
	c.status = domain.SessionUploading
	c.file = &file
	c.analysisID = ""
	c.report = nil
	c.result = nil
	c.errMsg = ""
	c.countdown = 0
	c.progress.StartUpload(c.options.UploadProgressTick)
	c.mu.Unlock()

	ctx = logger.WithFields(ctx, zap.String("fileName", file.Name))

	// advisory pre-check so an obviously closed window skips the upload
	if rl := c.limiter.Check(ctx); !rl.CanSubmit {
		c.enterRateLimited(ctx, gen, rl.Wait, "submission window is not open yet")

		return serrors.With(serrors.ErrRateLimited,
			"gateway asks to wait %s before the next upload", rl.Wait)
	}

	res, err := c.client.Submit(ctx, file, content)
	if err != nil {
		switch {
		case errors.Is(err, serrors.ErrConflict):
			c.enterRateLimited(ctx, gen, c.options.BusyCooldown, "remote scanner is busy with another file")
		case errors.Is(err, serrors.ErrRateLimited):
			c.enterRateLimited(ctx, gen, c.options.QuotaCooldown, "submission quota exhausted")
		default:
			c.fail(ctx, gen, err)
		}

		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()

		return serrors.With(serrors.ErrConflict, "session was reset during upload")
	}
	c.status = domain.SessionScanning
	c.analysisID = res.AnalysisID
	c.scanStartedAt = time.Now()
	c.progress.StartScan(c.options.ScanProgressTick)
	runCtx := c.runCtx
	c.mu.Unlock()

	logger.Info(ctx, "file submitted for analysis", zap.String("analysisID", res.AnalysisID))

	go c.awaitReport(runCtx, gen, res.AnalysisID, file)

	return nil
}

// Reset cancels any in-flight poll loop or countdown and returns the session
// to idle. Continuations of the cancelled generation become no-ops.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.status = domain.SessionIdle
	c.file = nil
	c.analysisID = ""
	c.report = nil
	c.result = nil
	c.errMsg = ""
	c.countdown = 0
	c.progress.Stop()
}

// Snapshot returns the current session view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Status:           c.status,
		File:             c.file,
		AnalysisID:       c.analysisID,
		Progress:         c.progress.Snapshot(),
		Report:           c.report,
		Result:           c.result,
		Countdown:        c.countdown,
		CountdownSeconds: int(c.countdown / time.Second),
		Error:            c.errMsg,
	}

	return s
}

// nextGenerationLocked supersedes the previous run and allocates the context
// the new run's continuations live on. Callers must hold c.mu.
func (c *Controller) nextGenerationLocked() uint64 {
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	c.runCtx, c.cancel = context.WithCancel(context.Background())

	return c.generation
}

// awaitReport drives the poll loop for one accepted analysis and applies its
// terminal outcome, unless the generation was superseded meanwhile.
func (c *Controller) awaitReport(ctx context.Context, gen uint64, analysisID string, file domain.FileInfo) {
	report, err := c.poller.Run(ctx, analysisID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.fail(ctx, gen, err)

		return
	}

	c.complete(ctx, gen, report, file)
}

// complete applies a terminal report: derives the scan duration, records the
// outcome in history (exactly once per completion) and parks the session in
// completed. Holding the lock across the history append keeps a racing Reset
// from producing a stale record.
func (c *Controller) complete(ctx context.Context, gen uint64, report *domain.Report, file domain.FileInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}

	duration := int(time.Since(c.scanStartedAt).Round(time.Second) / time.Second)
	recorded := c.history.Record(ctx, domain.HistoryItem{
		FileName:            file.Name,
		FileType:            file.MimeType,
		FileSizeBytes:       file.Size,
		ThreatsFound:        report.ThreatsFound,
		Malicious:           report.Malicious,
		Suspicious:          report.Suspicious,
		Clean:               report.Clean,
		EnginesCount:        report.EnginesCount,
		ScanDurationSeconds: duration,
	})

	c.status = domain.SessionCompleted
	c.report = report
	c.result = &recorded
	c.progress.Stop()

	c.scansTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", "completed"),
		attribute.String("verdict", string(recorded.Status))))

	logger.Info(ctx, "scan session completed",
		zap.String("verdict", string(recorded.Status)),
		zap.Int("threatsFound", recorded.ThreatsFound))
}

// fail parks the session in error with a user-facing message.
func (c *Controller) fail(ctx context.Context, gen uint64, err error) {
	msg := "scan failed: " + err.Error()
	outcome := "error"
	if errors.Is(err, serrors.ErrTimeout) {
		msg = "scan did not finish in time, try again later"
		outcome = "timeout"
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()

		return
	}
	c.status = domain.SessionError
	c.errMsg = msg
	c.progress.Stop()
	c.mu.Unlock()

	c.scansTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	logger.Error(ctx, "scan session failed", zap.Error(err))
}

// enterRateLimited parks the session in rate_limited and starts the cooldown
// countdown for it.
func (c *Controller) enterRateLimited(ctx context.Context, gen uint64, wait time.Duration, msg string) {
	if wait <= 0 {
		wait = c.options.QuotaCooldown
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()

		return
	}
	c.status = domain.SessionRateLimited
	c.countdown = wait
	c.errMsg = msg
	c.progress.Stop()
	runCtx := c.runCtx
	c.mu.Unlock()

	c.scansTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rate_limited")))

	logger.Warn(ctx, "session rate limited", zap.Duration("wait", wait), zap.String("reason", msg))

	go c.runCountdown(runCtx, gen, wait)
}

// runCountdown decrements the cooldown and, at zero, re-checks the gateway.
// A permissive answer returns the session to idle; a denying one re-arms the
// countdown with the fresh wait. Reaching zero never resubmits anything.
func (c *Controller) runCountdown(ctx context.Context, gen uint64, wait time.Duration) {
	for {
		err := c.limiter.Countdown(ctx, wait, func(remaining time.Duration) {
			c.mu.Lock()
			if gen == c.generation {
				c.countdown = remaining
			}
			c.mu.Unlock()
		})
		if err != nil {
			// superseded by reset or shutdown
			return
		}

		rl := c.limiter.Check(ctx)

		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()

			return
		}
		if rl.CanSubmit {
			c.status = domain.SessionIdle
			c.file = nil
			c.errMsg = ""
			c.countdown = 0
			c.mu.Unlock()

			logger.Info(ctx, "cooldown finished, session idle again")

			return
		}
		wait = rl.Wait
		if wait <= 0 {
			wait = c.options.QuotaCooldown
		}
		c.countdown = wait
		c.mu.Unlock()

		logger.Info(ctx, "gateway still refusing submissions", zap.Duration("wait", wait))
	}
}
