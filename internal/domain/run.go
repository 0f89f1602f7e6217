package domain

import "time"

// FetchSummary is the per-source outcome of the fetch scheduler. Err is set
// only when the source run failed as a whole (no page fetched at all).
type FetchSummary struct {
	SourceID        string
	SourceName      string
	PagesFetched    int
	PostingsYielded int
	PagesFailed     int
	Err             error
}

// SourceBatch is everything one source yielded in a run, handed to the
// pipeline as soon as that source's pagination is exhausted.
type SourceBatch struct {
	SourceID   string
	SourceName string
	Postings   []RawPosting
	Summary    FetchSummary
}

// ReconcileDecision is the outcome of merging a candidate into the record set.
type ReconcileDecision string

const (
	DecisionInsert ReconcileDecision = "insert"
	DecisionUpdate ReconcileDecision = "update"
	DecisionTouch  ReconcileDecision = "touch"
)

// ReconcileResult carries the decision and the committed record state.
type ReconcileResult struct {
	Decision ReconcileDecision
	Record   *JobRecord
}

// SourceStats accumulates pipeline counters for one source within a run.
type SourceStats struct {
	Extracted     int
	LowConfidence int
	Inserted      int
	Updated       int
	Touched       int
	Failed        int
	Deactivated   int64
	AlertsEmitted int
}

// SourceReport combines fetch and pipeline outcomes for one source.
type SourceReport struct {
	Fetch FetchSummary
	Stats SourceStats
}

// RunReport is the structured summary of a full scrape run. Partial failures
// are reported here rather than raised to the caller.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Sources   []SourceReport
}

// RunState is the persisted per-source bookkeeping row, updated after every
// run of that source.
type RunState struct {
	ID            int64     `db:"id"`
	SourceID      string    `db:"source_id"`
	LastRunAt     time.Time `db:"last_run_at"`
	TotalInserted int64     `db:"total_inserted"`
	TotalUpdated  int64     `db:"total_updated"`
}
