package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BubbleSentinel/internal/cache"
	"BubbleSentinel/internal/metrics"
	"BubbleSentinel/internal/model"
)

func TestRESTFetcher_FetchSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bars/daily", r.URL.Path)
		assert.Equal(t, "SPX", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2y", r.URL.Query().Get("range"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"timestamp":1704153600,"close":11.5},{"timestamp":1704067200,"close":10},{"timestamp":1704240000,"close":null}]`))
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "secret", "", nil)
	s, err := f.FetchSeries(context.Background(), "SPX", model.Period2Y)
	require.NoError(t, err)
	assert.Equal(t, []model.PricePoint{
		{Date: "2024-01-01", Price: 10},
		{Date: "2024-01-02", Price: 11.5},
	}, s.Points)
}

func TestRESTFetcher_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewRESTFetcher(srv.URL, "", "", nil).FetchSeries(context.Background(), "SPX", model.Period1Y)
	assert.True(t, errors.Is(err, model.ErrProvider))
}

func TestGuard_OpensAfterFailures(t *testing.T) {
	reg := metrics.New()
	g := NewGuard("test", GuardConfig{RatePerSecond: 1000, Burst: 10, MaxFailures: 2, OpenTimeout: time.Minute}, reg)
	boom := errors.New("boom")
	calls := 0
	fail := func() error { calls++; return boom }

	assert.ErrorIs(t, g.Do(context.Background(), fail), boom)
	assert.ErrorIs(t, g.Do(context.Background(), fail), boom)
	assert.Equal(t, "open", g.State())

	err := g.Do(context.Background(), fail)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.ProviderFetches.WithLabelValues("test", "error")))
}

func TestGuard_NilRunsDirectly(t *testing.T) {
	var g *Guard
	ran := false
	require.NoError(t, g.Do(context.Background(), func() error { ran = true; return nil }))
	assert.True(t, ran)
	assert.Equal(t, "disabled", g.State())
}

func TestGuard_CallerCancellationDoesNotTrip(t *testing.T) {
	reg := metrics.New()
	g := NewGuard("test", GuardConfig{RatePerSecond: 1000, Burst: 10, MaxFailures: 2, OpenTimeout: time.Minute}, reg)

	for i := 0; i < 5; i++ {
		err := g.Do(context.Background(), func() error { return context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, "closed", g.State())

	// a failure surfacing after the caller's context ended is not the provider's fault
	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		err := g.Do(ctx, func() error {
			cancel()
			return errors.New("read: connection reset")
		})
		assert.Error(t, err)
	}
	assert.Equal(t, "closed", g.State())
	assert.NoError(t, g.Do(context.Background(), func() error { return nil }))
	assert.Equal(t, 10.0, testutil.ToFloat64(reg.ProviderFetches.WithLabelValues("test", "cancelled")))
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.ProviderFetches.WithLabelValues("test", "error")))
}

func TestGuard_UpstreamTimeoutStillTrips(t *testing.T) {
	g := NewGuard("test", GuardConfig{RatePerSecond: 1000, Burst: 10, MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	for i := 0; i < 2; i++ {
		_ = g.Do(context.Background(), func() error { return context.DeadlineExceeded })
	}
	assert.Equal(t, "open", g.State())
}

func TestGuard_RateWaitPastDeadline(t *testing.T) {
	g := NewGuard("test", GuardConfig{RatePerSecond: 0.001, Burst: 1, MaxFailures: 2, OpenTimeout: time.Minute}, nil)
	require.NoError(t, g.Do(context.Background(), func() error { return nil }))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := g.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "closed", g.State())
}

// brokenCache fails every read.
type brokenCache struct{ cache.Cache }

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func TestCachedFetcher_CountsEachLookupOnce(t *testing.T) {
	ctx := context.Background()

	t.Run("cache error", func(t *testing.T) {
		reg := metrics.New()
		f := NewCachedFetcher(&MockFetcher{Price: 100, Days: 10}, brokenCache{cache.NewMemory()}, 0, reg)
		_, err := f.FetchSeries(ctx, "SPX", model.Period1Y)
		require.NoError(t, err)
		assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("error")))
		assert.Equal(t, 0.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
	})

	t.Run("undecodable entry", func(t *testing.T) {
		reg := metrics.New()
		mem := cache.NewMemory()
		require.NoError(t, mem.Set(ctx, "series:mock:SPX:1y", []byte("{not json"), time.Minute))
		mock := &MockFetcher{Price: 100, Days: 10}
		f := NewCachedFetcher(mock, mem, 0, reg)
		_, err := f.FetchSeries(ctx, "SPX", model.Period1Y)
		require.NoError(t, err)
		assert.Equal(t, 1, mock.Calls("SPX"))
		assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("corrupt")))
		assert.Equal(t, 0.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))
	})
}

func TestCachedFetcher_ServesFromCache(t *testing.T) {
	reg := metrics.New()
	mock := &MockFetcher{Price: 100, Days: 10}
	f := NewCachedFetcher(mock, cache.NewMemory(), 0, reg)
	ctx := context.Background()

	first, err := f.FetchSeries(ctx, "SPX", model.Period1Y)
	require.NoError(t, err)
	second, err := f.FetchSeries(ctx, "SPX", model.Period1Y)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.Calls("SPX"))
	assert.Equal(t, first.Points, second.Points)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.CacheLookups.WithLabelValues("miss")))

	// a different period is a different entry
	_, err = f.FetchSeries(ctx, "SPX", model.Period2Y)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls("SPX"))
}

func TestCachedFetcher_DoesNotCacheErrors(t *testing.T) {
	mock := &MockFetcher{Errs: map[string]error{"SPX": errors.New("down")}}
	f := NewCachedFetcher(mock, cache.NewMemory(), time.Minute, nil)
	for i := 0; i < 2; i++ {
		_, err := f.FetchSeries(context.Background(), "SPX", model.Period1Y)
		assert.True(t, errors.Is(err, model.ErrProvider))
	}
	assert.Equal(t, 2, mock.Calls("SPX"))
}

func TestCollector_FetchPair(t *testing.T) {
	mock := &MockFetcher{Series: map[string][]model.PricePoint{
		"A": {{Date: "2024-01-01", Price: 1}},
		"B": {{Date: "2024-01-01", Price: 2}},
	}}
	a, b, err := NewCollector(mock).FetchPair(context.Background(), "A", "B", model.Period1Y)
	require.NoError(t, err)
	assert.Equal(t, "A", a.Symbol)
	assert.Equal(t, 2.0, b.Points[0].Price)
}

func TestCollector_FetchPairFailsWhole(t *testing.T) {
	mock := &MockFetcher{Price: 10, Errs: map[string]error{"B": errors.New("timeout")}}
	a, b, err := NewCollector(mock).FetchPair(context.Background(), "A", "B", model.Period1Y)
	require.Error(t, err)
	assert.Nil(t, a)
	assert.Nil(t, b)
	assert.True(t, errors.Is(err, model.ErrProvider))
	assert.Contains(t, err.Error(), "fetch B")
}

func TestMockFetcher_GeneratesSortedSeries(t *testing.T) {
	s, err := (&MockFetcher{Price: 50, Days: 40}).FetchSeries(context.Background(), "X", model.Period1Y)
	require.NoError(t, err)
	require.Len(t, s.Points, 40)
	for i := 1; i < len(s.Points); i++ {
		assert.Less(t, s.Points[i-1].Date, s.Points[i].Date)
		assert.Greater(t, s.Points[i].Price, 0.0)
	}
}
