package cache

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data     map[string][]byte
	ttls     map[string]time.Duration
	patterns []string

	getErr    error
	setErr    error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.data[key], nil
}

func (f *fakeStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.data[key] = value
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) DeleteByPattern(_ context.Context, pattern string) error {
	f.patterns = append(f.patterns, pattern)
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for key := range f.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(f.data, key)
		}
	}
	return nil
}

func testCache(store Store, ttls map[string]time.Duration) *ResultCache {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(store, 15*time.Minute, ttls, logger)
}

func TestKey_CanonicalAcrossParamOrder(t *testing.T) {
	a := Key("search", "govbd", map[string]string{"q": "engineer", "location": "dhaka"})
	b := Key("search", "govbd", map[string]string{"location": "dhaka", "q": "engineer"})
	assert.Equal(t, a, b)
}

func TestKey_EmbedsShapeAndSource(t *testing.T) {
	key := Key("search", "govbd", map[string]string{"q": "engineer"})
	assert.Contains(t, key, "jobs:search:src=govbd:")

	allKey := Key("search", "", map[string]string{"q": "engineer"})
	assert.Contains(t, allKey, "src=all")
	assert.NotEqual(t, key, allKey)
}

func TestKey_DifferentParamsDifferentKeys(t *testing.T) {
	a := Key("search", "govbd", map[string]string{"q": "engineer"})
	b := Key("search", "govbd", map[string]string{"q": "teacher"})
	assert.NotEqual(t, a, b)
}

func TestGetOrCompute_MissThenHit(t *testing.T) {
	store := newFakeStore()
	c := testCache(store, nil)
	ctx := context.Background()

	computes := 0
	compute := func(context.Context) ([]byte, error) {
		computes++
		return []byte(`["job1"]`), nil
	}

	got, err := c.GetOrCompute(ctx, "list_active", "govbd", nil, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte(`["job1"]`), got)
	assert.Equal(t, 1, computes)

	got, err = c.GetOrCompute(ctx, "list_active", "govbd", nil, compute)
	require.NoError(t, err)
	assert.Equal(t, []byte(`["job1"]`), got)
	assert.Equal(t, 1, computes)
}

func TestGetOrCompute_ShapeTTL(t *testing.T) {
	store := newFakeStore()
	c := testCache(store, map[string]time.Duration{"search": 5 * time.Minute})
	ctx := context.Background()

	_, err := c.GetOrCompute(ctx, "search", "govbd", nil, func(context.Context) ([]byte, error) {
		return []byte("x"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, store.ttls[Key("search", "govbd", nil)])

	_, err = c.GetOrCompute(ctx, "other", "govbd", nil, func(context.Context) ([]byte, error) {
		return []byte("y"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, store.ttls[Key("other", "govbd", nil)])
}

func TestGetOrCompute_DegradesOnStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")
	c := testCache(store, nil)

	computes := 0
	got, err := c.GetOrCompute(context.Background(), "search", "govbd", nil, func(context.Context) ([]byte, error) {
		computes++
		return []byte("fresh"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("fresh"), got)
	assert.Equal(t, 1, computes)
}

func TestGetOrCompute_ComputeErrorPropagates(t *testing.T) {
	c := testCache(newFakeStore(), nil)

	_, err := c.GetOrCompute(context.Background(), "search", "govbd", nil, func(context.Context) ([]byte, error) {
		return nil, errors.New("query failed")
	})
	assert.Error(t, err)
}

func TestInvalidateSource_DropsSourceAndCrossSourceEntries(t *testing.T) {
	store := newFakeStore()
	c := testCache(store, nil)
	ctx := context.Background()

	seed := func(shape, sourceID string) {
		_, err := c.GetOrCompute(ctx, shape, sourceID, nil, func(context.Context) ([]byte, error) {
			return []byte("v"), nil
		})
		require.NoError(t, err)
	}
	seed("search", "govbd")
	seed("list_active", "govbd")
	seed("search", "bdjobs")
	seed("search", "")

	c.InvalidateSource(ctx, "govbd")

	assert.NotContains(t, store.data, Key("search", "govbd", nil))
	assert.NotContains(t, store.data, Key("list_active", "govbd", nil))
	assert.NotContains(t, store.data, Key("search", "", nil))
	assert.Contains(t, store.data, Key("search", "bdjobs", nil))
}

func TestInvalidateSource_ToleratesStoreErrors(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("connection refused")
	c := testCache(store, nil)

	// must not panic or block the pipeline
	c.InvalidateSource(context.Background(), "govbd")
	assert.Len(t, store.patterns, 2)
}

func TestNoop_AlwaysMisses(t *testing.T) {
	n := Noop{}
	got, err := n.Get(context.Background(), "k")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, n.Set(context.Background(), "k", []byte("v"), time.Minute))
	assert.NoError(t, n.DeleteByPattern(context.Background(), "*"))
}
