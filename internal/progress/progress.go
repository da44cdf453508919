// Package progress produces cosmetic progress estimates for uploads and
// scans. The numbers are synthesized locally from elapsed time so interactive
// views have something to animate; they never drive completion, which comes
// only from the gateway's report.
package progress

import (
	"context"
	"sync"
	"time"
)

// Catalog is the fixed list of engine names rotated through while a scan is
// in progress. Purely a display artifact; the real engine set is whatever the
// gateway ran.
var Catalog = []string{
	"Windows Defender",
	"Kaspersky",
	"Norton",
	"McAfee",
	"Bitdefender",
	"Avast",
	"AVG",
	"Trend Micro",
	"Symantec",
	"ESET",
}

// TotalEngines is the synthetic engine count shown during a scan.
const TotalEngines = 20

const (
	uploadStep = 10
	scanStep   = 1
	maxPercent = 100
)

// SyntheticEngines maps a progress percentage onto a number of "completed"
// engines out of TotalEngines.
func SyntheticEngines(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > maxPercent {
		percent = maxPercent
	}

	return percent * TotalEngines / maxPercent
}

// Snapshot is a point-in-time view of the estimator.
type Snapshot struct {
	// Percent is the current estimate in [0,100]. Monotone within a phase.
	Percent int `json:"percent"`
	// EnginesCompleted and CurrentEngine are only meaningful during a scan
	// phase; both are synthetic.
	EnginesCompleted int    `json:"enginesCompleted"`
	TotalEngines     int    `json:"totalEngines"`
	CurrentEngine    string `json:"currentEngine,omitempty"`
}

// Estimator animates a progress percentage for the current phase. Starting a
// phase resets the estimate and supersedes any phase still ticking. Safe for
// concurrent use.
type Estimator struct {
	mu       sync.Mutex
	percent  int
	ticks    int
	scanning bool
	cancel   context.CancelFunc
}

// New constructs an idle Estimator.
func New() *Estimator {
	return &Estimator{}
}

// StartUpload begins the upload phase: +10 percent per tick, capped at 100.
func (e *Estimator) StartUpload(tick time.Duration) {
	e.start(tick, uploadStep, false)
}

// StartScan begins the scan phase: +1 percent per tick, capped at 100, with
// synthetic engine bookkeeping.
func (e *Estimator) StartScan(tick time.Duration) {
	e.start(tick, scanStep, true)
}

// Stop ends the current phase and zeroes the estimate.
func (e *Estimator) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.percent = 0
	e.ticks = 0
	e.scanning = false
}

// Snapshot returns the current view.
func (e *Estimator) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Percent:      e.percent,
		TotalEngines: TotalEngines,
	}
	if e.scanning {
		s.EnginesCompleted = SyntheticEngines(e.percent)
		s.CurrentEngine = Catalog[e.ticks%len(Catalog)]
	}

	return s
}

func (e *Estimator) start(tick time.Duration, step int, scanning bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked()
	e.percent = 0
	e.ticks = 0
	e.scanning = scanning

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	go e.run(ctx, tick, step)
}

func (e *Estimator) run(ctx context.Context, tick time.Duration, step int) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.mu.Lock()
			select {
			case <-ctx.Done():
				// superseded between the tick firing and taking the lock
				e.mu.Unlock()

				return
			default:
			}
			e.ticks++
			e.percent += step
			if e.percent > maxPercent {
				e.percent = maxPercent
			}
			e.mu.Unlock()
		}
	}
}

func (e *Estimator) stopLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}
