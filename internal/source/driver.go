// Package source defines the driver contract every portal implements and a
// registry mapping source IDs to driver instances.
package source

import (
	"context"
	"fmt"
	"net/http"

	"circular_fetcher/internal/domain"
)

// Page is one listing page worth of postings. NextToken is empty when
// pagination is exhausted.
type Page struct {
	Postings  []domain.RawPosting
	NextToken string
}

// Driver fetches raw listing pages from one portal. Implementations must not
// retry internally; retries belong to the fetch scheduler. Failures are
// reported as domain.FetchError so the scheduler can tell transient from
// permanent.
type Driver interface {
	ID() string
	Name() string
	FetchPage(ctx context.Context, pageToken string) (Page, error)
}

// Registry holds registered drivers in registration order.
type Registry struct {
	drivers map[string]Driver
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{drivers: make(map[string]Driver)}
}

func (r *Registry) Register(d Driver) error {
	if _, ok := r.drivers[d.ID()]; ok {
		return fmt.Errorf("driver %q already registered", d.ID())
	}
	r.drivers[d.ID()] = d
	r.order = append(r.order, d.ID())
	return nil
}

func (r *Registry) Get(id string) (Driver, bool) {
	d, ok := r.drivers[id]
	return d, ok
}

func (r *Registry) Drivers() []Driver {
	out := make([]Driver, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.drivers[id])
	}
	return out
}

// ClassifyStatus maps an unexpected HTTP status to a fetch error: 5xx and 429
// are transient, any other non-2xx is permanent.
func ClassifyStatus(op string, status int) error {
	err := fmt.Errorf("unexpected status: %d", status)
	if status >= 500 || status == http.StatusTooManyRequests {
		return domain.TransientFetchError(op, err)
	}
	return domain.PermanentFetchError(op, err)
}
