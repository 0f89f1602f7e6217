package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"circular_fetcher/internal/domain"
)

// Pipeline runs one full scrape cycle: fetch every enabled source, extract
// and reconcile each posting as its source finishes, evaluate alerts on
// inserts and updates, then age out unsighted records for every source whose
// fetch completed without losing a page. Failures of
// individual postings or sources are counted in the report, not raised;
// Run returns an error only when the run cannot proceed at all.
type Pipeline struct {
	fetcher    Fetcher
	extractor  Extractor
	reconciler Reconciler
	alerts     AlertStore
	matcher    Matcher
	notifier   Notifier
	cache      Cache
	sink       Sink
	runState   RunStateStore
	logger     *slog.Logger
	now        func() time.Time
}

func NewPipeline(
	fetcher Fetcher,
	extractor Extractor,
	reconciler Reconciler,
	alerts AlertStore,
	matcher Matcher,
	notifier Notifier,
	cache Cache,
	sink Sink,
	runState RunStateStore,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:    fetcher,
		extractor:  extractor,
		reconciler: reconciler,
		alerts:     alerts,
		matcher:    matcher,
		notifier:   notifier,
		cache:      cache,
		sink:       sink,
		runState:   runState,
		logger:     logger,
		now:        time.Now,
	}
}

func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	runID := uuid.NewString()
	startedAt := p.now().UTC()
	logger := p.logger.With("run_id", runID)

	logger.Info("starting scrape run")

	// Criteria are loaded once per run so every source in the run is
	// evaluated against the same snapshot.
	criteria, err := p.alerts.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list alert criteria: %w", err)
	}
	logger.Debug("loaded alert criteria", "count", len(criteria))

	var mu sync.Mutex
	var reports []domain.SourceReport

	p.fetcher.Run(ctx, func(ctx context.Context, batch domain.SourceBatch) {
		stats := p.processBatch(ctx, logger, batch, criteria, startedAt)
		mu.Lock()
		reports = append(reports, domain.SourceReport{Fetch: batch.Summary, Stats: stats})
		mu.Unlock()
	})

	report := &domain.RunReport{
		RunID:     runID,
		StartedAt: startedAt,
		Duration:  p.now().UTC().Sub(startedAt),
		Sources:   reports,
	}

	var totals domain.SourceStats
	for _, r := range reports {
		totals.Extracted += r.Stats.Extracted
		totals.LowConfidence += r.Stats.LowConfidence
		totals.Inserted += r.Stats.Inserted
		totals.Updated += r.Stats.Updated
		totals.Touched += r.Stats.Touched
		totals.Failed += r.Stats.Failed
		totals.Deactivated += r.Stats.Deactivated
		totals.AlertsEmitted += r.Stats.AlertsEmitted
	}
	logger.Info("scrape run completed",
		"duration", report.Duration,
		"sources", len(reports),
		"inserted", totals.Inserted,
		"updated", totals.Updated,
		"touched", totals.Touched,
		"low_confidence", totals.LowConfidence,
		"failed", totals.Failed,
		"deactivated", totals.Deactivated,
		"alerts_emitted", totals.AlertsEmitted,
	)

	return report, nil
}

func (p *Pipeline) processBatch(
	ctx context.Context,
	logger *slog.Logger,
	batch domain.SourceBatch,
	criteria []domain.AlertCriteria,
	runStart time.Time,
) domain.SourceStats {
	var stats domain.SourceStats
	logger = logger.With("source", batch.SourceID)

	for _, posting := range batch.Postings {
		if ctx.Err() != nil {
			break
		}

		cand := p.extractor.Extract(posting)
		stats.Extracted++

		if !cand.Accepted {
			stats.LowConfidence++
			if err := p.sink.Add(ctx, cand); err != nil {
				logger.Warn("low-confidence sink write failed",
					"url", posting.URL,
					"error", err,
				)
			}
			continue
		}

		res, err := p.reconciler.Reconcile(ctx, cand)
		if err != nil {
			stats.Failed++
			logger.Error("reconciliation failed", "url", posting.URL, "error", err)
			continue
		}

		switch res.Decision {
		case domain.DecisionInsert:
			stats.Inserted++
		case domain.DecisionUpdate:
			stats.Updated++
		case domain.DecisionTouch:
			stats.Touched++
			continue
		}

		p.cache.InvalidateSource(ctx, batch.SourceID)
		stats.AlertsEmitted += p.emitAlerts(ctx, logger, *res.Record, criteria)
	}

	// Age-out and run-state bookkeeping need a complete sighting picture: a
	// record sitting on a failed page was never observed, so a partial run
	// must neither count a missed sighting against it nor record a finished
	// pass over the source.
	complete := batch.Summary.Err == nil &&
		batch.Summary.PagesFailed == 0 &&
		batch.Summary.PagesFetched > 0
	if !complete {
		logger.Warn("skipping age-out and run state, fetch incomplete",
			"pages_fetched", batch.Summary.PagesFetched,
			"pages_failed", batch.Summary.PagesFailed,
			"error", batch.Summary.Err,
		)
		return stats
	}

	deactivated, err := p.reconciler.AgeOut(ctx, batch.SourceID, runStart)
	if err != nil {
		logger.Error("age-out failed", "error", err)
	} else {
		stats.Deactivated = deactivated
		if deactivated > 0 {
			p.cache.InvalidateSource(ctx, batch.SourceID)
		}
	}

	if err := p.updateRunState(ctx, batch.SourceID, stats); err != nil {
		logger.Error("run state update failed", "error", err)
	}

	return stats
}

func (p *Pipeline) emitAlerts(ctx context.Context, logger *slog.Logger, rec domain.JobRecord, criteria []domain.AlertCriteria) int {
	emitted := 0
	for _, ev := range p.matcher.Match(rec, criteria) {
		if err := p.notifier.Publish(ctx, ev); err != nil {
			if errors.Is(err, context.Canceled) {
				return emitted
			}
			logger.Warn("alert publish failed",
				"job_record_id", ev.JobRecordID,
				"alert_criteria_id", ev.AlertCriteriaID,
				"error", err,
			)
			continue
		}
		emitted++
	}
	return emitted
}

func (p *Pipeline) updateRunState(ctx context.Context, sourceID string, stats domain.SourceStats) error {
	state, err := p.runState.Get(ctx, sourceID)
	if err != nil {
		return err
	}

	state.LastRunAt = p.now().UTC()
	state.TotalInserted += int64(stats.Inserted)
	state.TotalUpdated += int64(stats.Updated)

	return p.runState.Update(ctx, state)
}
