// Package domain contains all core types used across the application.
// Keeping domain types in one place makes the classification rules easy to reason about.
package domain

import "time"

// ─── Networks ────────────────────────────────────────────────────────────────

// Network is the issuer network derived from a card number's leading digits.
type Network string

// Supported issuer networks.
const (
	NetworkVisa       Network = "visa"
	NetworkMastercard Network = "mastercard"
	NetworkAmex       Network = "amex"
	NetworkDiscover   Network = "discover"
	NetworkDiners     Network = "diners"
	NetworkJCB        Network = "jcb"
	NetworkUnknown    Network = "unknown"
)

// ─── Status vocabulary ──────────────────────────────────────────────────────

// Status is the final label attached to a classified record.
type Status string

// Classification statuses.
const (
	StatusLive    Status = "LIVE"
	StatusDead    Status = "DEAD"
	StatusUnknown Status = "UNKNOWN"
)

// Code maps a status to the numeric result code used by result consumers
// (0 = dead, 1 = live, 2 = unknown).
func (s Status) Code() int {
	switch s {
	case StatusLive:
		return 1
	case StatusUnknown:
		return 2
	default:
		return 0
	}
}

// ─── Records ────────────────────────────────────────────────────────────────

// CardRecord is one parsed `number|month|year|cvv` line.
// Year is always normalized to four digits.
type CardRecord struct {
	Number string `json:"number"`
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	CVV    string `json:"cvv"`
}

// Last4 returns the final four digits of the number, or the whole number when shorter.
func (r CardRecord) Last4() string {
	if len(r.Number) <= 4 {
		return r.Number
	}
	return r.Number[len(r.Number)-4:]
}

// BinRangeRule is one row of the static BIN reference table.
// Start and End are inclusive 6-digit bounds.
type BinRangeRule struct {
	Network    Network `json:"network"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence int     `json:"confidence"` // 0-100
}

// ClassificationResult is the immutable outcome of classifying one record.
type ClassificationResult struct {
	Status Status `json:"status"`
	// Confidence is Score clamped to [0, 100] for presentation.
	Confidence int `json:"confidence"`
	// Score is the raw accumulated score. It may exceed 100 for known test
	// numbers with a BIN match.
	Score int `json:"score"`
	// Rejected is set when a checksum, format or expiry check decided the
	// result before any scoring happened.
	Rejected   bool     `json:"rejected"`
	Reasons    []string `json:"reasons"`
	Network    Network  `json:"network"`
	BinMatched bool     `json:"bin_matched"`
	Last4      string   `json:"last4"`
	Message    string   `json:"message"`
}

// ─── Batches ────────────────────────────────────────────────────────────────

// BatchStatus is the lifecycle position of a batch run.
type BatchStatus string

// Batch lifecycle states.
const (
	BatchIdle      BatchStatus = "idle"
	BatchRunning   BatchStatus = "running"
	BatchCompleted BatchStatus = "completed"
	BatchAborted   BatchStatus = "aborted"
)

// BatchState is the counter snapshot owned by the batch runner.
// Callbacks receive copies; they never mutate the runner's value.
type BatchState struct {
	ID             string      `json:"id"`
	Status         BatchStatus `json:"status"`
	TotalCount     int         `json:"total"`
	ProcessedCount int         `json:"processed"`
	LiveCount      int         `json:"live"`
	DeadCount      int         `json:"dead"`
	UnknownCount   int         `json:"unknown"`
	IsRunning      bool        `json:"is_running"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
}

// RecordResult is the per-line event delivered to result consumers.
type RecordResult struct {
	Index   int     `json:"index"` // position among non-blank lines, 0-based
	Line    string  `json:"line"`
	Status  Status  `json:"status"`
	Code    int     `json:"code"`
	Network Network `json:"network"`
	Last4   string  `json:"last4"`
	Message string  `json:"message"`
	// Confidence is only meaningful for locally classified records.
	Confidence int `json:"confidence"`
	// Verified reports whether the external verifier produced the status.
	Verified bool `json:"verified"`
}

// ─── Webhooks ─────────────────────────────────────────────────────────────────

// BatchSummaryPayload is the body sent to configured webhook URLs when a
// batch finishes. It carries counts only, never record contents.
type BatchSummaryPayload struct {
	Event       string     `json:"event"` // "batch_completed" or "batch_aborted"
	TriggeredAt time.Time  `json:"triggered_at"`
	Batch       BatchState `json:"batch"`
}
