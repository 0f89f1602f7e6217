// Package fetch drives registered source drivers to pagination exhaustion
// with bounded global concurrency, per-source pacing, and retry with backoff.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/go-pkgz/repeater"
	"github.com/go-pkgz/repeater/strategy"
	"github.com/go-pkgz/syncs"
	"golang.org/x/time/rate"

	"circular_fetcher/internal/config"
	"circular_fetcher/internal/domain"
	"circular_fetcher/internal/source"
)

// BatchFunc receives a completed source batch. It is invoked from the source
// worker goroutine as soon as that source finishes, while other sources may
// still be fetching.
type BatchFunc func(ctx context.Context, batch domain.SourceBatch)

// Scheduler runs all registered drivers for one scrape run. Within a source,
// pagination is sequential; across sources, a sized group bounds concurrency
// so a slow portal never blocks the others beyond the ceiling.
type Scheduler struct {
	drivers []source.Driver
	cfg     config.FetchConfig
	logger  *slog.Logger
}

func NewScheduler(drivers []source.Driver, cfg config.FetchConfig, logger *slog.Logger) *Scheduler {
	return &Scheduler{drivers: drivers, cfg: cfg, logger: logger}
}

// Run fetches every source to exhaustion and hands each finished batch to
// handle. Returns the per-source summaries in driver registration order.
func (s *Scheduler) Run(ctx context.Context, handle BatchFunc) []domain.FetchSummary {
	summaries := make([]domain.FetchSummary, len(s.drivers))

	gr := syncs.NewSizedGroup(s.cfg.Concurrency, syncs.Context(ctx))
	for i, d := range s.drivers {
		i, d := i, d
		gr.Go(func(ctx context.Context) {
			batch := s.runSource(ctx, d)
			summaries[i] = batch.Summary
			if handle != nil {
				handle(ctx, batch)
			}
		})
	}
	gr.Wait()

	return summaries
}

// runSource follows pagination for one driver. Every page fetch is rate
// limited, bounded by the per-call timeout, and retried with exponential
// backoff and jitter; permanent errors stop the retry loop immediately.
// A page that exhausts its retries is recorded as failed and skipped: with
// numeric page tokens the run continues at the next page, with opaque cursors
// it ends there. The source run as a whole succeeds if at least one page was
// fetched.
func (s *Scheduler) runSource(ctx context.Context, d source.Driver) domain.SourceBatch {
	batch := domain.SourceBatch{SourceID: d.ID(), SourceName: d.Name()}
	sum := domain.FetchSummary{SourceID: d.ID(), SourceName: d.Name()}

	limiter := rate.NewLimiter(rate.Every(s.cfg.PerSourceDelay), 1)
	rptr := repeater.New(&strategy.Backoff{
		Repeats:  s.cfg.RetryAttempts,
		Duration: s.cfg.InitialBackoff,
		Factor:   2,
		Jitter:   true,
	})

	token := ""
	for pages := 0; pages < s.cfg.MaxPages; pages++ {
		var page source.Page
		err := rptr.Do(ctx, func() error {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
			p, ferr := d.FetchPage(callCtx, token)
			if ferr != nil {
				return ferr
			}
			page = p
			return nil
		}, domain.ErrPermanentFetch)

		if err != nil {
			if ctx.Err() != nil {
				sum.Err = ctx.Err()
				break
			}
			sum.PagesFailed++
			s.logger.Warn("page fetch failed, skipping",
				"source", d.ID(),
				"page_token", token,
				"error", err,
			)
			next, ok := advanceToken(token)
			if !ok {
				break
			}
			token = next
			continue
		}

		sum.PagesFetched++
		sum.PostingsYielded += len(page.Postings)
		batch.Postings = append(batch.Postings, page.Postings...)

		if page.NextToken == "" {
			break
		}
		token = page.NextToken
	}

	if sum.Err == nil && sum.PagesFetched == 0 && sum.PagesFailed > 0 {
		sum.Err = fmt.Errorf("source %s: no pages fetched", d.ID())
	}

	s.logger.Info("source run finished",
		"source", d.ID(),
		"pages_fetched", sum.PagesFetched,
		"pages_failed", sum.PagesFailed,
		"postings", sum.PostingsYielded,
	)

	batch.Summary = sum
	return batch
}

// advanceToken moves past a failed page when the token scheme allows it.
// Numeric 1-based tokens (empty meaning page 1) can be stepped; opaque
// cursors cannot, since the next cursor only arrives with a successful page.
func advanceToken(token string) (string, bool) {
	if token == "" {
		return "2", true
	}
	n, err := strconv.Atoi(token)
	if err != nil {
		return "", false
	}
	return strconv.Itoa(n + 1), true
}
