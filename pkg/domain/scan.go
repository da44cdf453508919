package domain

import "time"

// SessionStatus represents the lifecycle state of a scan session.
type SessionStatus string

const (
	// SessionIdle indicates no submission is in progress; the intake surface accepts files.
	SessionIdle SessionStatus = "idle"
	// SessionUploading indicates the file is being submitted to the remote gateway.
	SessionUploading SessionStatus = "uploading"
	// SessionScanning indicates the remote job was accepted and is being polled.
	SessionScanning SessionStatus = "scanning"
	// SessionCompleted indicates the remote job reached a terminal result.
	SessionCompleted SessionStatus = "completed"
	// SessionError indicates the session failed; an explicit reset is required.
	SessionError SessionStatus = "error"
	// SessionRateLimited indicates the gateway refused the submission; a
	// countdown runs before the session returns to idle.
	SessionRateLimited SessionStatus = "rate_limited"
)

// FileInfo describes the file a session submits. ContentFingerprint is
// advisory and display-only; it is never used for deduplication.
type FileInfo struct {
	Name               string    `json:"name"`
	Size               int64     `json:"size"`
	MimeType           string    `json:"type"`
	LastModified       time.Time `json:"lastModified"`
	ContentFingerprint string    `json:"hash,omitempty"`
}

// ReportStatus is the remote job state as reported by the gateway.
type ReportStatus string

const (
	// ReportQueued means the job is waiting for an analysis slot upstream.
	ReportQueued ReportStatus = "queued"
	// ReportRunning means the analysis is in progress.
	ReportRunning ReportStatus = "running"
	// ReportCompleted is the only terminal report status.
	ReportCompleted ReportStatus = "completed"
)

// Report is the decoded result of a remote analysis job. Optional fields that
// the gateway omits decode as zero values.
type Report struct {
	Status       ReportStatus `json:"status"`
	IsSafe       bool         `json:"is_safe"`
	EnginesCount int          `json:"engines_count"`
	ThreatsFound int          `json:"threats_found"`
	Malicious    int          `json:"malicious"`
	Suspicious   int          `json:"suspicious"`
	Clean        int          `json:"clean"`
}

// Terminal reports whether the report represents a finished analysis.
func (r *Report) Terminal() bool {
	return r != nil && r.Status == ReportCompleted
}

// RateLimitStatus is the gateway's view of the submission throttle,
// re-derived on every relevant check and never persisted.
type RateLimitStatus struct {
	// CanSubmit is true when the gateway will accept an upload now.
	CanSubmit bool
	// Wait is how long to wait before the next upload is allowed.
	Wait time.Duration
	// SinceLast is the time elapsed since the previous upload.
	SinceLast time.Duration
	// MinInterval is the server-enforced minimum spacing between uploads.
	MinInterval time.Duration
}
