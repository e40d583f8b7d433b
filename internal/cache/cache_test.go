package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", payload{Name: "akm", Count: 3}, time.Minute))

	var got payload
	ok, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload{Name: "akm", Count: 3}, got)

	require.NoError(t, store.Delete(ctx, "k"))
	ok, err = store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", payload{Name: "x"}, 5*time.Minute))

	var got payload
	ok, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)

	now = now.Add(6 * time.Minute)
	ok, err = store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must read as absent")
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	store.SetClock(func() time.Time { return now })

	require.NoError(t, store.Set(ctx, "k", payload{Name: "x"}, 0))
	now = now.Add(1000 * time.Hour)

	var got payload
	ok, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetOrSetComputesOnceAndCaches(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	calls := 0
	compute := func(context.Context) (*payload, error) {
		calls++
		return &payload{Name: "computed", Count: calls}, nil
	}

	first, err := GetOrSet(ctx, store, "k", time.Minute, compute)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, first.Count)

	second, err := GetOrSet(ctx, store, "k", time.Minute, compute)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 1, second.Count, "second call must come from cache")
	assert.Equal(t, 1, calls)
}

func TestGetOrSetPropagatesComputeError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("upstream down")

	_, err := GetOrSet(ctx, store, "k", time.Minute, func(context.Context) (*payload, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestGetOrSetNilResultNotCached(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	calls := 0
	compute := func(context.Context) (*payload, error) {
		calls++
		return nil, nil
	}

	got, err := GetOrSet(ctx, store, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = GetOrSet(ctx, store, "k", time.Minute, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "nil result must be recomputed next call")
}

// failingStore reports an error from every Get/Set so GetOrSet's
// cache-must-not-break-callers contract can be checked.
type failingStore struct{}

func (failingStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("get failed")
}
func (failingStore) Set(context.Context, string, any, time.Duration) error {
	return errors.New("set failed")
}
func (failingStore) Delete(context.Context, string) error { return nil }
func (failingStore) Close() error                         { return nil }

func TestGetOrSetSwallowsStoreErrors(t *testing.T) {
	got, err := GetOrSet(context.Background(), failingStore{}, "k", time.Minute,
		func(context.Context) (*payload, error) {
			return &payload{Name: "fresh"}, nil
		})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "fresh", got.Name)
}
