package domain

import "time"

// Field names used as keys in ExtractedFields.Confidence and as per-field
// identifiers in reconciliation.
const (
	FieldTitle       = "title"
	FieldDepartment  = "department"
	FieldLocation    = "location"
	FieldSkills      = "skills"
	FieldEligibility = "eligibility"
	FieldDeadline    = "deadline"
	FieldSalary      = "salary"
	FieldGrade       = "grade"
	FieldVacancies   = "vacancies"
)

// RawPosting is a single listing as fetched from a portal, before any
// extraction. Immutable once created; discarded after extraction succeeds.
type RawPosting struct {
	SourceID    string            `json:"source_id"`
	SourceName  string            `json:"source_name"`
	FetchedAt   time.Time         `json:"fetched_at"`
	URL         string            `json:"url"`
	RawTitle    string            `json:"raw_title"`
	RawBody     string            `json:"raw_body"`
	RawMetadata map[string]string `json:"raw_metadata,omitempty"`
}

// ExtractedFields is the structured form of a posting. Every field always has
// a value (possibly empty) and a confidence score in [0,1]; callers branch on
// confidence, never on errors.
type ExtractedFields struct {
	Title       string             `json:"title"`
	Department  string             `json:"department"`
	Location    string             `json:"location"`
	Skills      []string           `json:"skills,omitempty"`
	Eligibility []string           `json:"eligibility,omitempty"`
	Deadline    *time.Time         `json:"deadline,omitempty"`
	SalaryRange string             `json:"salary_range,omitempty"`
	Grade       string             `json:"grade,omitempty"`
	Vacancies   int                `json:"vacancies,omitempty"`
	Confidence  map[string]float64 `json:"confidence"`
}

// FieldConfidence returns the confidence score for a field, 0 when unset.
func (f ExtractedFields) FieldConfidence(field string) float64 {
	if f.Confidence == nil {
		return 0
	}
	return f.Confidence[field]
}

// Candidate pairs a raw posting with its extracted fields. Score is the
// minimum confidence across the required fields (title, department); Accepted
// reports whether it cleared the acceptance threshold. Rejected candidates go
// to the low-confidence sink, not to reconciliation.
type Candidate struct {
	Posting  RawPosting
	Fields   ExtractedFields
	Score    float64
	Accepted bool
}

// JobRecord is a committed, deduplicated job circular. Fingerprint is unique
// among active records: two postings with the same fingerprint refer to the
// same real-world job and merge rather than duplicate.
type JobRecord struct {
	ID          string          `db:"id"`
	Fingerprint string          `db:"fingerprint"`
	SourceID    string          `db:"source_id"`
	Fields      ExtractedFields `db:"-"`
	FirstSeen   time.Time       `db:"first_seen"`
	LastSeen    time.Time       `db:"last_seen"`
	IsActive    bool            `db:"is_active"`
	MissedRuns  int             `db:"missed_runs"`
	Version     int             `db:"version"`
}
