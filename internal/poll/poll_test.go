package poll_test

import (
	"context"
	"io"
	"testing"
	"time"

	"filescan/internal/poll"
	"filescan/pkg/domain"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// fakeClient implements scanservice.Client with a pluggable Report func.
type fakeClient struct {
	report func(ctx context.Context, analysisID string) (*domain.Report, error)
}

func (f *fakeClient) Submit(_ context.Context, _ domain.FileInfo, _ io.Reader) (scanservice.SubmitRes, error) {
	return scanservice.SubmitRes{}, nil
}

func (f *fakeClient) Report(ctx context.Context, analysisID string) (*domain.Report, error) {
	return f.report(ctx, analysisID)
}

func (f *fakeClient) RateLimit(_ context.Context) (domain.RateLimitStatus, error) {
	return domain.RateLimitStatus{}, nil
}

func (f *fakeClient) Ping(_ context.Context) error { return nil }

func TestEngine_RunCompletesOnTerminalReport(t *testing.T) {
	calls := 0
	e := poll.New(&fakeClient{
		report: func(_ context.Context, analysisID string) (*domain.Report, error) {
			require.Equal(t, "abc-123", analysisID)
			calls++
			if calls < 3 {
				return &domain.Report{Status: domain.ReportRunning}, nil
			}

			return &domain.Report{Status: domain.ReportCompleted, Malicious: 2}, nil
		},
	}, time.Millisecond, 60)

	report, err := e.Run(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, domain.ReportCompleted, report.Status)
	require.Equal(t, 2, report.Malicious)
}

func TestEngine_RunTimesOutAfterBudget(t *testing.T) {
	calls := 0
	e := poll.New(&fakeClient{
		report: func(context.Context, string) (*domain.Report, error) {
			calls++

			return &domain.Report{Status: domain.ReportRunning}, nil
		},
	}, time.Millisecond, 7)

	report, err := e.Run(context.Background(), "abc-123")
	require.Nil(t, report)
	require.ErrorIs(t, err, serrors.ErrTimeout)
	require.Equal(t, 7, calls, "the budget bounds the number of fetches exactly")
}

func TestEngine_RunAbortsOnFetchError(t *testing.T) {
	calls := 0
	e := poll.New(&fakeClient{
		report: func(context.Context, string) (*domain.Report, error) {
			calls++
			if calls == 2 {
				return nil, serrors.With(serrors.ErrUnavailable, "gateway down")
			}

			return &domain.Report{Status: domain.ReportRunning}, nil
		},
	}, time.Millisecond, 60)

	_, err := e.Run(context.Background(), "abc-123")
	require.ErrorIs(t, err, serrors.ErrUnavailable)
	require.NotErrorIs(t, err, serrors.ErrTimeout)
	require.Equal(t, 2, calls)
}

func TestEngine_RunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := poll.New(&fakeClient{
		report: func(context.Context, string) (*domain.Report, error) {
			cancel()

			return &domain.Report{Status: domain.ReportRunning}, nil
		},
	}, time.Millisecond, 60)

	_, err := e.Run(ctx, "abc-123")
	require.ErrorIs(t, err, context.Canceled)
}
