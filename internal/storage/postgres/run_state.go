package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"circular_fetcher/internal/domain"
)

// RunStateStore keeps per-source bookkeeping across runs.
type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

func (s *RunStateStore) Get(ctx context.Context, sourceID string) (*domain.RunState, error) {
	var state domain.RunState
	query := `
		SELECT id, source_id, last_run_at, total_inserted, total_updated
		FROM run_state
		WHERE source_id = $1`

	err := sqlx.GetContext(ctx, getExecutor(ctx, s.db), &state, query, sourceID)
	if errors.Is(err, sql.ErrNoRows) {
		// empty state for sources never run before
		return &domain.RunState{SourceID: sourceID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *RunStateStore) Update(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO run_state (source_id, last_run_at, total_inserted, total_updated)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			total_inserted = EXCLUDED.total_inserted,
			total_updated = EXCLUDED.total_updated`

	_, err := getExecutor(ctx, s.db).ExecContext(ctx, query,
		state.SourceID,
		state.LastRunAt,
		state.TotalInserted,
		state.TotalUpdated,
	)
	return err
}
