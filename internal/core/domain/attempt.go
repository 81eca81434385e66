package domain

import "time"

// Outcome classifies a single attempt against a provider.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoResult      Outcome = "no_result"
	OutcomeTransient     Outcome = "transient"
	OutcomePermanent     Outcome = "permanent"
	OutcomeRejected      Outcome = "rejected"
	OutcomePersistFailed Outcome = "persist_failed"
	OutcomeCanceled      Outcome = "canceled"
)

// AttemptRecord is one diagnostic entry for one provider attempt.
type AttemptRecord struct {
	Provider string        `json:"provider"`
	Attempt  int           `json:"attempt"`
	OK       bool          `json:"ok"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
	Latency  time.Duration `json:"latency_ns"`
}

// Diagnostics is the ordered attempt history of one pipeline invocation.
type Diagnostics []AttemptRecord

// Providers returns provider names in first-attempt order, without duplicates.
func (d Diagnostics) Providers() []string {
	seen := make(map[string]struct{}, len(d))
	out := make([]string, 0, len(d))
	for _, r := range d {
		if _, ok := seen[r.Provider]; ok {
			continue
		}
		seen[r.Provider] = struct{}{}
		out = append(out, r.Provider)
	}
	return out
}

// For returns the records that belong to one provider.
func (d Diagnostics) For(provider string) []AttemptRecord {
	var out []AttemptRecord
	for _, r := range d {
		if r.Provider == provider {
			out = append(out, r)
		}
	}
	return out
}
