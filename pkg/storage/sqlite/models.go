package sqlite

import (
	"fmt"
	"time"

	"filescan/pkg/domain"
)

// HistoryRow is the database representation of a history record. Timestamps
// are stored as RFC 3339 text so rows sort and read naturally in the file.
type HistoryRow struct {
	ID string `db:"id"`

	FileName      string `db:"file_name"`
	FileType      string `db:"file_type"`
	FileSizeBytes int64  `db:"file_size_bytes"`

	ScanDate string `db:"scan_date"`
	Status   string `db:"status"`

	ThreatsFound int `db:"threats_found"`
	Malicious    int `db:"malicious"`
	Suspicious   int `db:"suspicious"`
	Clean        int `db:"clean"`
	EnginesCount int `db:"engines_count"`

	ScanDurationSeconds int `db:"scan_duration_seconds"`
}

// ToDomain converts the row into a domain record. The status column is
// ignored in favor of re-deriving the classification from the stored counts,
// so a hand-edited row can never claim "safe" while carrying detections.
func (r *HistoryRow) ToDomain() (*domain.HistoryItem, error) {
	id, err := domain.ParseHistoryID(r.ID)
	if err != nil {
		return nil, fmt.Errorf("could not parse history id %q: %w", r.ID, err)
	}

	scanDate, err := time.Parse(time.RFC3339, r.ScanDate)
	if err != nil {
		return nil, fmt.Errorf("could not parse scan date %q: %w", r.ScanDate, err)
	}

	return &domain.HistoryItem{
		ID:                  id,
		FileName:            r.FileName,
		FileType:            r.FileType,
		FileSizeBytes:       r.FileSizeBytes,
		ScanDate:            scanDate,
		Status:              domain.Classify(r.Malicious, r.Suspicious),
		ThreatsFound:        r.ThreatsFound,
		Malicious:           r.Malicious,
		Suspicious:          r.Suspicious,
		Clean:               r.Clean,
		EnginesCount:        r.EnginesCount,
		ScanDurationSeconds: r.ScanDurationSeconds,
	}, nil
}

// FromDomain populates the row from a domain record.
func (r *HistoryRow) FromDomain(item domain.HistoryItem) {
	*r = HistoryRow{
		ID:                  item.ID.String(),
		FileName:            item.FileName,
		FileType:            item.FileType,
		FileSizeBytes:       item.FileSizeBytes,
		ScanDate:            item.ScanDate.UTC().Format(time.RFC3339),
		Status:              string(domain.Classify(item.Malicious, item.Suspicious)),
		ThreatsFound:        item.ThreatsFound,
		Malicious:           item.Malicious,
		Suspicious:          item.Suspicious,
		Clean:               item.Clean,
		EnginesCount:        item.EnginesCount,
		ScanDurationSeconds: item.ScanDurationSeconds,
	}
}
