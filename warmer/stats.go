package warmer

import (
	"slices"
	"time"
)

// Run statuses.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusError     = "error"
)

// Per-wallet outcome statuses and skip reasons.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"

	ReasonFreshCache     = "fresh_cache"
	ReasonAlreadyRunning = "already_running"
)

// WalletOutcome is the result of warming a single wallet.
type WalletOutcome struct {
	Address          string `json:"address"`
	Status           string `json:"status"`
	Reason           string `json:"reason,omitempty"`
	TransactionCount int    `json:"transaction_count,omitempty"`
	Error            string `json:"error,omitempty"`
}

// JobResult summarizes one warming run.
type JobResult struct {
	RunID      string          `json:"run_id"`
	Status     string          `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	Error      string          `json:"error,omitempty"`
	Successes  int             `json:"successes"`
	Skipped    int             `json:"skipped"`
	Errors     int             `json:"errors"`
	Outcomes   []WalletOutcome `json:"outcomes,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	DurationMs int64           `json:"duration_ms"`
}

// Stats accumulates warming activity across runs. The last-run fields are
// replaced wholesale on every completed run; the totals only grow.
type Stats struct {
	TotalRuns      int64 `json:"total_runs"`
	TotalSuccesses int64 `json:"total_successes"`
	TotalSkipped   int64 `json:"total_skipped"`
	TotalErrors    int64 `json:"total_errors"`

	LastRunID       string          `json:"last_run_id,omitempty"`
	LastRunAt       time.Time       `json:"last_run_at"`
	LastRunDuration time.Duration   `json:"last_run_duration"`
	LastRunStatus   string          `json:"last_run_status,omitempty"`
	LastOutcomes    []WalletOutcome `json:"last_outcomes,omitempty"`
}

// record folds one run result into the stats.
func (s *Stats) record(result *JobResult) {
	s.TotalRuns++
	s.TotalSuccesses += int64(result.Successes)
	s.TotalSkipped += int64(result.Skipped)
	s.TotalErrors += int64(result.Errors)

	s.LastRunID = result.RunID
	s.LastRunAt = result.StartedAt
	s.LastRunDuration = time.Duration(result.DurationMs) * time.Millisecond
	s.LastRunStatus = result.Status
	s.LastOutcomes = slices.Clone(result.Outcomes)
}

// clone returns a deep copy safe to hand to callers.
func (s *Stats) clone() Stats {
	out := *s
	out.LastOutcomes = slices.Clone(s.LastOutcomes)
	return out
}
