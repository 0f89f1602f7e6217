package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"circular_fetcher/internal/domain"
)

const uniqueViolation = "23505"

// JobRecordStore persists committed job records keyed by fingerprint.
type JobRecordStore struct {
	db *sqlx.DB
}

func NewJobRecordStore(db *sqlx.DB) *JobRecordStore {
	return &JobRecordStore{db: db}
}

type jobRecordRow struct {
	ID          string         `db:"id"`
	Fingerprint string         `db:"fingerprint"`
	SourceID    string         `db:"source_id"`
	Title       string         `db:"title"`
	Department  string         `db:"department"`
	Location    string         `db:"location"`
	Skills      []byte         `db:"skills"`
	Eligibility []byte         `db:"eligibility"`
	Deadline    sql.NullTime   `db:"deadline"`
	SalaryRange sql.NullString `db:"salary_range"`
	Grade       sql.NullString `db:"grade"`
	Vacancies   int            `db:"vacancies"`
	Confidence  []byte         `db:"confidence"`
	FirstSeen   time.Time      `db:"first_seen"`
	LastSeen    time.Time      `db:"last_seen"`
	IsActive    bool           `db:"is_active"`
	MissedRuns  int            `db:"missed_runs"`
	Version     int            `db:"version"`
}

func (s *JobRecordStore) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.JobRecord, error) {
	query := `
		SELECT id, fingerprint, source_id, title, department, location,
		       skills, eligibility, deadline, salary_range, grade, vacancies,
		       confidence, first_seen, last_seen, is_active, missed_runs, version
		FROM job_records
		WHERE fingerprint = $1`

	var row jobRecordRow
	err := sqlx.GetContext(ctx, getExecutor(ctx, s.db), &row, query, fingerprint)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rowToRecord(row)
}

func (s *JobRecordStore) Insert(ctx context.Context, rec *domain.JobRecord) error {
	row, err := recordToRow(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO job_records (
			id, fingerprint, source_id, title, department, location,
			skills, eligibility, deadline, salary_range, grade, vacancies,
			confidence, first_seen, last_seen, is_active, missed_runs, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)`

	_, err = getExecutor(ctx, s.db).ExecContext(ctx, query,
		row.ID, row.Fingerprint, row.SourceID, row.Title, row.Department, row.Location,
		row.Skills, row.Eligibility, row.Deadline, row.SalaryRange, row.Grade, row.Vacancies,
		row.Confidence, row.FirstSeen, row.LastSeen, row.IsActive, row.MissedRuns, row.Version,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateFingerprint, rec.Fingerprint)
	}
	return err
}

func (s *JobRecordStore) Update(ctx context.Context, rec *domain.JobRecord) error {
	row, err := recordToRow(rec)
	if err != nil {
		return err
	}

	query := `
		UPDATE job_records SET
			title = $2, department = $3, location = $4, skills = $5,
			eligibility = $6, deadline = $7, salary_range = $8, grade = $9,
			vacancies = $10, confidence = $11, last_seen = $12,
			is_active = $13, missed_runs = $14, version = $15
		WHERE fingerprint = $1`

	res, err := getExecutor(ctx, s.db).ExecContext(ctx, query,
		row.Fingerprint, row.Title, row.Department, row.Location, row.Skills,
		row.Eligibility, row.Deadline, row.SalaryRange, row.Grade,
		row.Vacancies, row.Confidence, row.LastSeen,
		row.IsActive, row.MissedRuns, row.Version,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no record with fingerprint %s", rec.Fingerprint)
	}
	return nil
}

// AgeOut bumps the missed-sightings counter for every active record of the
// source not touched since runStart and deactivates those reaching the
// threshold. Returns the number deactivated.
func (s *JobRecordStore) AgeOut(ctx context.Context, sourceID string, runStart time.Time, threshold int) (int64, error) {
	query := `
		UPDATE job_records
		SET missed_runs = missed_runs + 1,
		    is_active   = (missed_runs + 1) < $3
		WHERE source_id = $1 AND is_active = TRUE AND last_seen < $2
		RETURNING is_active`

	rows, err := getExecutor(ctx, s.db).QueryxContext(ctx, query, sourceID, runStart, threshold)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var deactivated int64
	for rows.Next() {
		var active bool
		if err := rows.Scan(&active); err != nil {
			return deactivated, err
		}
		if !active {
			deactivated++
		}
	}
	return deactivated, rows.Err()
}

// ListActiveBySource returns the active records of one source, newest first.
// This is the query surface behind the cached listing path.
func (s *JobRecordStore) ListActiveBySource(ctx context.Context, sourceID string) ([]domain.JobRecord, error) {
	query := `
		SELECT id, fingerprint, source_id, title, department, location,
		       skills, eligibility, deadline, salary_range, grade, vacancies,
		       confidence, first_seen, last_seen, is_active, missed_runs, version
		FROM job_records
		WHERE source_id = $1 AND is_active = TRUE
		ORDER BY last_seen DESC`

	var rows []jobRecordRow
	if err := sqlx.SelectContext(ctx, getExecutor(ctx, s.db), &rows, query, sourceID); err != nil {
		return nil, err
	}

	records := make([]domain.JobRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := rowToRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func recordToRow(rec *domain.JobRecord) (jobRecordRow, error) {
	skills, err := json.Marshal(rec.Fields.Skills)
	if err != nil {
		return jobRecordRow{}, fmt.Errorf("marshal skills: %w", err)
	}
	eligibility, err := json.Marshal(rec.Fields.Eligibility)
	if err != nil {
		return jobRecordRow{}, fmt.Errorf("marshal eligibility: %w", err)
	}
	confidence, err := json.Marshal(rec.Fields.Confidence)
	if err != nil {
		return jobRecordRow{}, fmt.Errorf("marshal confidence: %w", err)
	}

	row := jobRecordRow{
		ID:          rec.ID,
		Fingerprint: rec.Fingerprint,
		SourceID:    rec.SourceID,
		Title:       rec.Fields.Title,
		Department:  rec.Fields.Department,
		Location:    rec.Fields.Location,
		Skills:      skills,
		Eligibility: eligibility,
		Vacancies:   rec.Fields.Vacancies,
		Confidence:  confidence,
		FirstSeen:   rec.FirstSeen,
		LastSeen:    rec.LastSeen,
		IsActive:    rec.IsActive,
		MissedRuns:  rec.MissedRuns,
		Version:     rec.Version,
	}
	if rec.Fields.Deadline != nil {
		row.Deadline = sql.NullTime{Time: *rec.Fields.Deadline, Valid: true}
	}
	if rec.Fields.SalaryRange != "" {
		row.SalaryRange = sql.NullString{String: rec.Fields.SalaryRange, Valid: true}
	}
	if rec.Fields.Grade != "" {
		row.Grade = sql.NullString{String: rec.Fields.Grade, Valid: true}
	}
	return row, nil
}

func rowToRecord(row jobRecordRow) (*domain.JobRecord, error) {
	fields := domain.ExtractedFields{
		Title:      row.Title,
		Department: row.Department,
		Location:   row.Location,
		Vacancies:  row.Vacancies,
	}
	if err := json.Unmarshal(row.Skills, &fields.Skills); err != nil {
		return nil, fmt.Errorf("unmarshal skills: %w", err)
	}
	if err := json.Unmarshal(row.Eligibility, &fields.Eligibility); err != nil {
		return nil, fmt.Errorf("unmarshal eligibility: %w", err)
	}
	if err := json.Unmarshal(row.Confidence, &fields.Confidence); err != nil {
		return nil, fmt.Errorf("unmarshal confidence: %w", err)
	}
	if row.Deadline.Valid {
		deadline := row.Deadline.Time
		fields.Deadline = &deadline
	}
	if row.SalaryRange.Valid {
		fields.SalaryRange = row.SalaryRange.String
	}
	if row.Grade.Valid {
		fields.Grade = row.Grade.String
	}

	return &domain.JobRecord{
		ID:          row.ID,
		Fingerprint: row.Fingerprint,
		SourceID:    row.SourceID,
		Fields:      fields,
		FirstSeen:   row.FirstSeen,
		LastSeen:    row.LastSeen,
		IsActive:    row.IsActive,
		MissedRuns:  row.MissedRuns,
		Version:     row.Version,
	}, nil
}
