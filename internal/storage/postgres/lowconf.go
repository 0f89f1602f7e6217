package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"circular_fetcher/internal/domain"
)

// LowConfidenceStore persists rejected extraction candidates for manual
// review. Rows here never flow back into the pipeline automatically.
type LowConfidenceStore struct {
	db *sqlx.DB
}

func NewLowConfidenceStore(db *sqlx.DB) *LowConfidenceStore {
	return &LowConfidenceStore{db: db}
}

func (s *LowConfidenceStore) Add(ctx context.Context, cand domain.Candidate) error {
	fields, err := json.Marshal(cand.Fields)
	if err != nil {
		return fmt.Errorf("marshal fields: %w", err)
	}

	query := `
		INSERT INTO low_confidence_postings (source_id, url, raw_title, fields, score, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = getExecutor(ctx, s.db).ExecContext(ctx, query,
		cand.Posting.SourceID,
		cand.Posting.URL,
		cand.Posting.RawTitle,
		fields,
		cand.Score,
		cand.Posting.FetchedAt,
	)
	return err
}
