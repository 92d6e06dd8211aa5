package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenCache struct{ err error }

func (b brokenCache) Get(context.Context, string, interface{}) error { return b.err }
func (b brokenCache) Set(context.Context, string, interface{}, time.Duration) error {
	return b.err
}
func (b brokenCache) Delete(context.Context, ...string) error { return b.err }

func TestCacheServiceRoundTrip(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewCacheService(newMemCache(), metrics, 0, nil, true)
	require.True(t, svc.Enabled())
	ctx := context.Background()

	var dest cachedBusy
	assert.False(t, svc.Get(ctx, "busy:t1", &dest))

	svc.Set(ctx, "busy:t1", cachedBusy{Connected: true}, 0)
	require.True(t, svc.Get(ctx, "busy:t1", &dest))
	assert.True(t, dest.Connected)

	svc.Invalidate(ctx, "busy:t1")
	assert.False(t, svc.Get(ctx, "busy:t1", &dest))

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.cacheLookups.WithLabelValues("miss")))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMemCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	assert.False(t, svc.Enabled())

	svc.Set(context.Background(), "k", cachedBusy{}, 0)
	assert.Empty(t, repo.items)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
	assert.False(t, nilSvc.Get(context.Background(), "k", &cachedBusy{}))
}

func TestCacheServiceBackendFailureIsAMiss(t *testing.T) {
	svc := NewCacheService(brokenCache{err: errors.New("redis down")}, nil, time.Minute, nil, true)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		svc.Set(ctx, "k", cachedBusy{}, 0)
		svc.Invalidate(ctx, "k")
	})
	assert.False(t, svc.Get(ctx, "k", &cachedBusy{}))
}
