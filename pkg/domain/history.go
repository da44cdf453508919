package domain

import (
	"time"

	"github.com/google/uuid"
)

// HistoryID uniquely identifies a history record. It is generated locally
// and is unrelated to the remote analysis id.
type HistoryID uuid.UUID

// String returns the canonical textual form of the id.
func (id HistoryID) String() string { return uuid.UUID(id).String() }

// ParseHistoryID parses the textual form produced by String.
func ParseHistoryID(s string) (HistoryID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return HistoryID{}, err //nolint: wrapcheck
	}

	return HistoryID(u), nil
}

// HistoryStatus is the derived classification of a finished scan.
type HistoryStatus string

const (
	// HistorySafe means no engine flagged the file.
	HistorySafe HistoryStatus = "safe"
	// HistorySuspicious means at least one engine flagged the file as suspicious
	// and none flagged it as malicious.
	HistorySuspicious HistoryStatus = "suspicious"
	// HistoryMalware means at least one engine flagged the file as malicious.
	HistoryMalware HistoryStatus = "malware"
)

// Classify derives the history status from engine counts. The classification
// is a pure function of the counts and is never stored independently, so a
// record can never claim "safe" while carrying a positive malicious count.
func Classify(malicious, suspicious int) HistoryStatus {
	switch {
	case malicious > 0:
		return HistoryMalware
	case suspicious > 0:
		return HistorySuspicious
	default:
		return HistorySafe
	}
}

// HistoryItem is one durable record of a finished scan. Items are immutable
// after creation; they are only ever removed, individually or in bulk.
type HistoryItem struct {
	// ID is the locally generated identifier of the record.
	ID HistoryID `json:"id"`

	FileName      string `json:"fileName"`
	FileType      string `json:"fileType"`
	FileSizeBytes int64  `json:"fileSize"`

	// ScanDate is when the scan completed.
	ScanDate time.Time `json:"scanDate"`
	// Status is derived via Classify from Malicious and Suspicious.
	Status HistoryStatus `json:"status"`

	ThreatsFound int `json:"threatsFound"`
	Malicious    int `json:"malicious"`
	Suspicious   int `json:"suspicious"`
	Clean        int `json:"clean"`
	EnginesCount int `json:"enginesCount"`

	ScanDurationSeconds int `json:"scanDuration"`
}

// HistoryStats aggregates the retained history for dashboard-style views.
type HistoryStats struct {
	TotalScans      int `json:"totalScans"`
	SafeFiles       int `json:"safeFiles"`
	ThreatsDetected int `json:"threatsDetected"`
	AvgScanSeconds  int `json:"avgScanTime"`
}

// HistoryAction describes what a change notification is about.
type HistoryAction string

const (
	// HistoryAdded is emitted after a new record is appended.
	HistoryAdded HistoryAction = "added"
	// HistoryRemoved is emitted after a single record is removed.
	HistoryRemoved HistoryAction = "removed"
	// HistoryCleared is emitted after the whole list is cleared.
	HistoryCleared HistoryAction = "cleared"
	// HistoryChanged is emitted when another process modified the persisted
	// list; consumers should re-read instead of trusting cached copies.
	HistoryChanged HistoryAction = "changed"
)

// HistoryEvent is the payload broadcast to history change listeners.
type HistoryEvent struct {
	Action HistoryAction `json:"action"`
	// Item carries the affected record for added/removed events when known.
	Item *HistoryItem `json:"data,omitempty"`
}
