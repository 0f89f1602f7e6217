package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"circular_fetcher/internal/domain"
	"circular_fetcher/internal/fetch"
)

type Fetcher interface {
	Run(ctx context.Context, handle fetch.BatchFunc) []domain.FetchSummary
}

type Extractor interface {
	Extract(p domain.RawPosting) domain.Candidate
}

type Reconciler interface {
	Reconcile(ctx context.Context, cand domain.Candidate) (domain.ReconcileResult, error)
	AgeOut(ctx context.Context, sourceID string, runStart time.Time) (int64, error)
}

type AlertStore interface {
	ListActive(ctx context.Context) ([]domain.AlertCriteria, error)
}

type Matcher interface {
	Match(rec domain.JobRecord, criteria []domain.AlertCriteria) []domain.MatchEvent
}

type Notifier interface {
	Publish(ctx context.Context, ev domain.MatchEvent) error
	Close() error
}

type Cache interface {
	InvalidateSource(ctx context.Context, sourceID string)
}

type Sink interface {
	Add(ctx context.Context, cand domain.Candidate) error
}

type RunStateStore interface {
	Get(ctx context.Context, sourceID string) (*domain.RunState, error)
	Update(ctx context.Context, state *domain.RunState) error
}
