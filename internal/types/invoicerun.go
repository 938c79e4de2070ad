package types

import (
	"fmt"
	"strings"
	"time"
)

// RunStatus is the state of an invoice run. QUEUED and RUNNING are
// transient; SUCCEEDED and FAILED are terminal.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "QUEUED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusSucceeded RunStatus = "SUCCEEDED"
	RunStatusFailed    RunStatus = "FAILED"
)

func (s RunStatus) Terminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// SourceKey identifies the cost-data slice an invoice run consumed. It is
// the run's idempotency key and one of the two bit-exact wire contracts the
// engine owns (the other being the invoice number format):
//
//	batch:<batchID>
//	time:<isoStart>:<isoEnd>
type SourceKey string

// BatchSourceKey builds a source key scoped to a single ingestion batch.
func BatchSourceKey(batchID string) SourceKey {
	return SourceKey("batch:" + batchID)
}

// TimeRangeSourceKey builds a source key scoped to a usage time range.
func TimeRangeSourceKey(from, to time.Time) SourceKey {
	return SourceKey(fmt.Sprintf("time:%s:%s",
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)))
}

// BatchID returns the batch id for a batch-scoped key, or "" otherwise.
func (k SourceKey) BatchID() string {
	if rest, ok := strings.CutPrefix(string(k), "batch:"); ok {
		return rest
	}
	return ""
}

// TimeRange returns the window for a time-scoped key.
func (k SourceKey) TimeRange() (from, to time.Time, ok bool) {
	rest, found := strings.CutPrefix(string(k), "time:")
	if !found {
		return from, to, false
	}
	// RFC3339 timestamps contain colons, so split at every candidate and
	// keep the first position where both halves parse.
	for i := 0; i < len(rest); i++ {
		if rest[i] != ':' {
			continue
		}
		f, err := time.Parse(time.RFC3339, rest[:i])
		if err != nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, rest[i+1:])
		if err != nil {
			continue
		}
		return f, t, true
	}
	return from, to, false
}
