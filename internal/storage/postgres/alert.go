package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"circular_fetcher/internal/domain"
)

// AlertStore reads stored alert criteria. Criteria are owned and mutated by
// an external service; the pipeline only lists the active ones per run.
type AlertStore struct {
	db *sqlx.DB
}

func NewAlertStore(db *sqlx.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) ListActive(ctx context.Context) ([]domain.AlertCriteria, error) {
	query := `
		SELECT id, owner_ref, keywords, location_filter, department_filter
		FROM alert_criteria
		WHERE is_active = TRUE`

	rows, err := getExecutor(ctx, s.db).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var criteria []domain.AlertCriteria
	for rows.Next() {
		var c domain.AlertCriteria
		var keywords pq.StringArray
		if err := rows.Scan(&c.ID, &c.OwnerRef, &keywords, &c.LocationFilter, &c.DepartmentFilter); err != nil {
			return nil, err
		}
		c.Keywords = []string(keywords)
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}
