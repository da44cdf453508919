// Package history is the durable record of finished scans. It assigns record
// identity, persists through the storage layer, aggregates stats, and
// broadcasts change events to subscribers (in-process listeners and, via the
// file watcher, changes made by other processes sharing the database).
//
// History is best-effort by contract: when persistence is unavailable every
// operation degrades to a no-op or an empty result with a logged warning, and
// the scan workflow above it keeps going.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/logger"
	"filescan/pkg/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWatchInterval is the cadence at which Watch polls the database file
// for changes made by other processes.
const DefaultWatchInterval = time.Second

// Service coordinates history persistence and change notification. A nil
// store disables persistence entirely; the service still accepts calls and
// degrades them to no-ops. Safe for concurrent use.
type Service struct {
	store storage.HistoryStorage
	hub   *hub

	// mu serializes mutations with the watcher's fingerprint polls. lastFP is
	// the newest fingerprint this process is aware of; local mutations advance
	// it under mu so the watcher only fires for foreign writes.
	mu     sync.Mutex
	lastFP string
}

// New constructs a Service on top of store. Pass nil to disable persistence.
func New(store storage.HistoryStorage) *Service {
	return &Service{
		store: store,
		hub:   newHub(),
	}
}

// Record persists a finished scan. Identity fields (id, scan date when unset,
// derived status) are assigned here; the returned item carries them. On
// persistence failure the record is dropped with a warning and no event is
// broadcast.
func (s *Service) Record(ctx context.Context, item domain.HistoryItem) domain.HistoryItem {
	id, err := uuid.NewV7()
	if err != nil {
		logger.Warn(ctx, "could not generate history id, dropping record", zap.Error(err))

		return item
	}
	item.ID = domain.HistoryID(id)
	if item.ScanDate.IsZero() {
		item.ScanDate = time.Now().UTC()
	}
	item.Status = domain.Classify(item.Malicious, item.Suspicious)

	if s.store == nil {
		return item
	}

	s.mu.Lock()
	err = s.store.Insert(ctx, item)
	if err == nil {
		s.refreshFingerprintLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, "could not persist history record, dropping it", zap.Error(err))

		return item
	}

	s.hub.broadcast(domain.HistoryEvent{Action: domain.HistoryAdded, Item: &item})

	return item
}

// List returns the retained records, most recent first. Empty on failure.
func (s *Service) List(ctx context.Context) []domain.HistoryItem {
	if s.store == nil {
		return nil
	}

	items, err := s.store.List(ctx)
	if err != nil {
		logger.Warn(ctx, "could not read history", zap.Error(err))

		return nil
	}

	return items
}

// Remove deletes a single record and reports whether one was removed.
func (s *Service) Remove(ctx context.Context, id domain.HistoryID) bool {
	if s.store == nil {
		return false
	}

	s.mu.Lock()
	removed, err := s.store.Remove(ctx, id)
	if removed {
		s.refreshFingerprintLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, "could not remove history record", zap.Error(err))

		return false
	}
	if removed {
		s.hub.broadcast(domain.HistoryEvent{Action: domain.HistoryRemoved, Item: &domain.HistoryItem{ID: id}})
	}

	return removed
}

// Clear deletes every record and reports whether the operation succeeded.
func (s *Service) Clear(ctx context.Context) bool {
	if s.store == nil {
		return false
	}

	s.mu.Lock()
	_, err := s.store.Clear(ctx)
	if err == nil {
		s.refreshFingerprintLocked(ctx)
	}
	s.mu.Unlock()
	if err != nil {
		logger.Warn(ctx, "could not clear history", zap.Error(err))

		return false
	}

	s.hub.broadcast(domain.HistoryEvent{Action: domain.HistoryCleared})

	return true
}

// refreshFingerprintLocked records the post-mutation fingerprint so the
// watcher does not re-announce this process's own write as a foreign change.
// Callers must hold s.mu.
func (s *Service) refreshFingerprintLocked(ctx context.Context) {
	fp, err := s.store.Fingerprint(ctx)
	if err != nil {
		return
	}

	s.lastFP = fp
}

// Stats aggregates the retained history. Zero-valued on failure.
func (s *Service) Stats(ctx context.Context) domain.HistoryStats {
	items := s.List(ctx)

	var stats domain.HistoryStats
	stats.TotalScans = len(items)
	if len(items) == 0 {
		return stats
	}

	var totalDuration int
	for i := range items {
		switch items[i].Status {
		case domain.HistorySafe:
			stats.SafeFiles++
		case domain.HistoryMalware:
			stats.ThreatsDetected++
		case domain.HistorySuspicious:
		}
		totalDuration += items[i].ScanDurationSeconds
	}
	stats.AvgScanSeconds = (totalDuration + len(items)/2) / len(items)

	return stats
}

// ExportJSON serializes the full retained history as indented JSON, suitable
// for download or archival. An unavailable store exports an empty list.
func (s *Service) ExportJSON(ctx context.Context) ([]byte, error) {
	items := s.List(ctx)
	if items == nil {
		items = []domain.HistoryItem{}
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("could not marshal history: %w", err)
	}

	return b, nil
}

// Subscribe registers a change listener. The returned cancel func must be
// called to release it. Slow listeners lose events rather than blocking
// writers.
func (s *Service) Subscribe() (<-chan domain.HistoryEvent, func()) {
	return s.hub.subscribe()
}

// Watch polls the database file fingerprint at the given interval and
// broadcasts a generic change event whenever another process modified the
// persisted history. Events caused by this process's own writes are already
// broadcast directly, so the watcher suppresses fingerprints it has seen
// moving through local operations. Blocks until ctx is cancelled.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	if s.store == nil {
		<-ctx.Done()

		return
	}
	if interval <= 0 {
		interval = DefaultWatchInterval
	}

	s.mu.Lock()
	s.refreshFingerprintLocked(ctx)
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			current, err := s.store.Fingerprint(ctx)
			changed := err == nil && current != s.lastFP
			if changed {
				s.lastFP = current
			}
			s.mu.Unlock()

			if err != nil {
				logger.Warn(ctx, "could not fingerprint history", zap.Error(err))

				continue
			}
			if changed {
				s.hub.broadcast(domain.HistoryEvent{Action: domain.HistoryChanged})
			}
		}
	}
}
