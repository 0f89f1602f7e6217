// Package reconcile merges extracted candidates into the durable record set:
// insert for unknown fingerprints, update when better-confidence fields
// differ, touch otherwise. Reconciliation is serialized per fingerprint so
// concurrent source runs can never double-insert the same job.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"circular_fetcher/internal/domain"
)

// Store is the persistence surface the reconciler needs. GetByFingerprint
// returns (nil, nil) when no record exists; Insert returns
// domain.ErrDuplicateFingerprint on a fingerprint collision.
type Store interface {
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.JobRecord, error)
	Insert(ctx context.Context, rec *domain.JobRecord) error
	Update(ctx context.Context, rec *domain.JobRecord) error
	AgeOut(ctx context.Context, sourceID string, runStart time.Time, threshold int) (int64, error)
}

// TxManager runs fn inside a transaction. Optional: a nil manager applies
// store calls directly, which is what the in-memory test store uses.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Reconciler struct {
	store           Store
	txm             TxManager
	missedThreshold int
	locks           lockTable
	logger          *slog.Logger
	now             func() time.Time
}

func New(store Store, txm TxManager, missedThreshold int, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:           store,
		txm:             txm,
		missedThreshold: missedThreshold,
		logger:          logger,
		now:             time.Now,
	}
}

// Reconcile merges one candidate. A fingerprint conflict should not occur
// under the per-fingerprint locking; if the store reports one anyway (e.g. a
// competing writer outside this process), the decision is retried once and
// then surfaced as fatal for this record only.
func (r *Reconciler) Reconcile(ctx context.Context, cand domain.Candidate) (domain.ReconcileResult, error) {
	fingerprint := CandidateFingerprint(cand)

	mu := r.locks.lockFor(fingerprint)
	mu.Lock()
	defer mu.Unlock()

	res, err := r.apply(ctx, fingerprint, cand)
	if errors.Is(err, domain.ErrDuplicateFingerprint) {
		r.logger.Warn("reconciliation conflict, retrying once", "fingerprint", fingerprint)
		res, err = r.apply(ctx, fingerprint, cand)
	}
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("reconcile fingerprint %s: %w", fingerprint, err)
	}
	return res, nil
}

func (r *Reconciler) apply(ctx context.Context, fingerprint string, cand domain.Candidate) (domain.ReconcileResult, error) {
	var res domain.ReconcileResult

	decide := func(ctx context.Context) error {
		existing, err := r.store.GetByFingerprint(ctx, fingerprint)
		if err != nil {
			return fmt.Errorf("get by fingerprint: %w", err)
		}

		now := r.now().UTC()

		if existing == nil {
			rec := &domain.JobRecord{
				ID:          uuid.NewString(),
				Fingerprint: fingerprint,
				SourceID:    cand.Posting.SourceID,
				Fields:      cand.Fields,
				FirstSeen:   now,
				LastSeen:    now,
				IsActive:    true,
				Version:     1,
			}
			if err := r.store.Insert(ctx, rec); err != nil {
				return err
			}
			res = domain.ReconcileResult{Decision: domain.DecisionInsert, Record: rec}
			return nil
		}

		changed := mergeFields(&existing.Fields, cand.Fields)
		existing.LastSeen = now
		existing.MissedRuns = 0
		existing.IsActive = true
		if changed {
			existing.Version++
		}
		if err := r.store.Update(ctx, existing); err != nil {
			return fmt.Errorf("update record: %w", err)
		}

		decision := domain.DecisionTouch
		if changed {
			decision = domain.DecisionUpdate
		}
		res = domain.ReconcileResult{Decision: decision, Record: existing}
		return nil
	}

	var err error
	if r.txm != nil {
		err = r.txm.WithTransaction(ctx, decide)
	} else {
		err = decide(ctx)
	}
	return res, err
}

// AgeOut applies staleness eviction for one source after its run completed:
// every active record not sighted in this run gains a missed sighting, and
// records reaching the threshold go inactive. Returns the number
// deactivated.
func (r *Reconciler) AgeOut(ctx context.Context, sourceID string, runStart time.Time) (int64, error) {
	n, err := r.store.AgeOut(ctx, sourceID, runStart, r.missedThreshold)
	if err != nil {
		return 0, fmt.Errorf("age out %s: %w", sourceID, err)
	}
	return n, nil
}

// mergeFields replaces fields that differ when the incoming confidence is at
// least the stored one. Reports whether anything changed.
func mergeFields(stored *domain.ExtractedFields, incoming domain.ExtractedFields) bool {
	if stored.Confidence == nil {
		stored.Confidence = map[string]float64{}
	}

	changed := false

	type stringField struct {
		name   string
		stored *string
		in     string
	}
	for _, f := range []stringField{
		{domain.FieldTitle, &stored.Title, incoming.Title},
		{domain.FieldDepartment, &stored.Department, incoming.Department},
		{domain.FieldLocation, &stored.Location, incoming.Location},
		{domain.FieldSalary, &stored.SalaryRange, incoming.SalaryRange},
		{domain.FieldGrade, &stored.Grade, incoming.Grade},
	} {
		if f.in == *f.stored {
			continue
		}
		if incoming.FieldConfidence(f.name) >= stored.FieldConfidence(f.name) {
			*f.stored = f.in
			stored.Confidence[f.name] = incoming.FieldConfidence(f.name)
			changed = true
		}
	}

	if incoming.Vacancies != stored.Vacancies &&
		incoming.FieldConfidence(domain.FieldVacancies) >= stored.FieldConfidence(domain.FieldVacancies) {
		stored.Vacancies = incoming.Vacancies
		stored.Confidence[domain.FieldVacancies] = incoming.FieldConfidence(domain.FieldVacancies)
		changed = true
	}

	if !equalTimePtr(incoming.Deadline, stored.Deadline) &&
		incoming.FieldConfidence(domain.FieldDeadline) >= stored.FieldConfidence(domain.FieldDeadline) {
		stored.Deadline = incoming.Deadline
		stored.Confidence[domain.FieldDeadline] = incoming.FieldConfidence(domain.FieldDeadline)
		changed = true
	}

	if !equalStrings(incoming.Skills, stored.Skills) &&
		incoming.FieldConfidence(domain.FieldSkills) >= stored.FieldConfidence(domain.FieldSkills) {
		stored.Skills = incoming.Skills
		stored.Confidence[domain.FieldSkills] = incoming.FieldConfidence(domain.FieldSkills)
		changed = true
	}

	if !equalStrings(incoming.Eligibility, stored.Eligibility) &&
		incoming.FieldConfidence(domain.FieldEligibility) >= stored.FieldConfidence(domain.FieldEligibility) {
		stored.Eligibility = incoming.Eligibility
		stored.Confidence[domain.FieldEligibility] = incoming.FieldConfidence(domain.FieldEligibility)
		changed = true
	}

	return changed
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
