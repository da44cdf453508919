package ratelimit_test

import (
	"context"
	"io"
	"testing"
	"time"

	"filescan/internal/ratelimit"
	"filescan/pkg/domain"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// fakeClient implements scanservice.Client with a pluggable RateLimit func.
type fakeClient struct {
	rateLimit func(ctx context.Context) (domain.RateLimitStatus, error)
}

func (f *fakeClient) Submit(_ context.Context, _ domain.FileInfo, _ io.Reader) (scanservice.SubmitRes, error) {
	return scanservice.SubmitRes{}, nil
}

func (f *fakeClient) Report(_ context.Context, _ string) (*domain.Report, error) {
	return nil, nil //nolint: nilnil
}

func (f *fakeClient) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	return f.rateLimit(ctx)
}

func (f *fakeClient) Ping(_ context.Context) error { return nil }

func TestCoordinator_CheckCachesStatus(t *testing.T) {
	want := domain.RateLimitStatus{
		CanSubmit:   false,
		Wait:        45 * time.Second,
		SinceLast:   15 * time.Second,
		MinInterval: time.Minute,
	}
	c := ratelimit.New(&fakeClient{
		rateLimit: func(context.Context) (domain.RateLimitStatus, error) {
			return want, nil
		},
	}, time.Second)

	_, ok := c.Last()
	require.False(t, ok)

	got := c.Check(context.Background())
	require.Equal(t, want, got)

	cached, ok := c.Last()
	require.True(t, ok)
	require.Equal(t, want, cached)
}

func TestCoordinator_CheckFailsOpen(t *testing.T) {
	c := ratelimit.New(&fakeClient{
		rateLimit: func(context.Context) (domain.RateLimitStatus, error) {
			return domain.RateLimitStatus{}, serrors.With(serrors.ErrUnavailable, "gateway down")
		},
	}, time.Second)

	got := c.Check(context.Background())
	require.True(t, got.CanSubmit)

	// a failed check must not poison the cache
	_, ok := c.Last()
	require.False(t, ok)
}

func TestCoordinator_CountdownReachesZero(t *testing.T) {
	c := ratelimit.New(&fakeClient{}, time.Millisecond)

	var ticks []time.Duration
	err := c.Countdown(context.Background(), 3*time.Millisecond, func(remaining time.Duration) {
		ticks = append(ticks, remaining)
	})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{2 * time.Millisecond, time.Millisecond, 0}, ticks)
}

func TestCoordinator_CountdownZeroWait(t *testing.T) {
	c := ratelimit.New(&fakeClient{}, time.Millisecond)

	var got []time.Duration
	err := c.Countdown(context.Background(), 0, func(remaining time.Duration) {
		got = append(got, remaining)
	})
	require.NoError(t, err)
	require.Equal(t, []time.Duration{0}, got)
}

func TestCoordinator_CountdownCancelled(t *testing.T) {
	c := ratelimit.New(&fakeClient{}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Countdown(ctx, time.Minute, nil)
	require.ErrorIs(t, err, context.Canceled)
}
