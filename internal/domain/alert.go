package domain

// AlertCriteria is a stored alert subscription. Owned and mutated externally;
// the pipeline only reads it.
type AlertCriteria struct {
	ID               string   `db:"id"`
	OwnerRef         string   `db:"owner_ref"`
	Keywords         []string `db:"-"`
	LocationFilter   string   `db:"location_filter"`
	DepartmentFilter string   `db:"department_filter"`
}

// MatchEvent is emitted once per (JobRecord, AlertCriteria) pair satisfied in
// a reconciliation batch. Matches are not deduplicated across runs: the same
// pair may be reported again whenever the record is updated, so the consumer
// must be idempotent.
type MatchEvent struct {
	JobRecordID     string   `json:"job_record_id"`
	AlertCriteriaID string   `json:"alert_criteria_id"`
	MatchedFields   []string `json:"matched_fields"`
	SourceID        string   `json:"source_id"`
	Title           string   `json:"title"`
}
