package vtgateway_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/scanservice/vtgateway"
	"filescan/pkg/serrors"

	"github.com/stretchr/testify/require"
)

// rtFunc allows using a function as an http.RoundTripper.
type rtFunc func(*http.Request) (*http.Response, error)

func (f rtFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newTestClient(fn rtFunc) *vtgateway.Client {
	return vtgateway.New(&http.Client{Transport: fn}, "http://gateway.local/")
}

func textResponse(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func testFile(size int64) domain.FileInfo {
	return domain.FileInfo{
		Name:         "sample.pdf",
		Size:         size,
		MimeType:     "application/pdf",
		LastModified: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestClient_Submit_success(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "gateway.local", r.URL.Host)
		require.Equal(t, "/upload", r.URL.Path)
		require.Contains(t, r.Header.Get("Content-Type"), "multipart/form-data")

		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer func() { _ = f.Close() }()
		require.Equal(t, "sample.pdf", hdr.Filename)
		content, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, "hello", string(content))

		return textResponse(http.StatusOK, `{"analysis_id":"abc-123"}`), nil
	})

	res, err := c.Submit(context.Background(), testFile(5), strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "abc-123", res.AnalysisID)
}

func TestClient_Submit_busy409(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusConflict, "one scan at a time"), nil
	})

	_, err := c.Submit(context.Background(), testFile(5), strings.NewReader("hello"))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrConflict)
}

func TestClient_Submit_rateLimited429(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusTooManyRequests, "slow down"), nil
	})

	_, err := c.Submit(context.Background(), testFile(5), strings.NewReader("hello"))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrRateLimited)
}

func TestClient_Submit_oversizeRejectedLocally(t *testing.T) {
	called := false
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		called = true

		return textResponse(http.StatusOK, `{"analysis_id":"x"}`), nil
	})

	_, err := c.Submit(context.Background(), testFile(vtgateway.MaxFileSize+1), strings.NewReader(""))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
	require.False(t, called, "oversize file must be rejected before any upload")
}

func TestClient_Submit_payloadTooLarge413(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusRequestEntityTooLarge, "File size exceeds 32 MB"), nil
	})

	// Size unknown (0): the gateway is the one to reject.
	_, err := c.Submit(context.Background(), testFile(0), strings.NewReader("hello"))
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrBadRequest)
}

func TestClient_Submit_missingAnalysisID(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{"analysis_id":""}`), nil
	})

	_, err := c.Submit(context.Background(), testFile(5), strings.NewReader("hello"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "no analysis id")
}

func TestClient_Report_success(t *testing.T) {
	//nolint: lll
	body := `{"status":"completed","is_safe":false,"engines_count":64,"threats_found":3,"malicious":2,"suspicious":1,"clean":61}`
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/report/abc-123", r.URL.Path)

		return textResponse(http.StatusOK, body), nil
	})

	rep, err := c.Report(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Equal(t, &domain.Report{
		Status:       domain.ReportCompleted,
		IsSafe:       false,
		EnginesCount: 64,
		ThreatsFound: 3,
		Malicious:    2,
		Suspicious:   1,
		Clean:        61,
	}, rep)
}

func TestClient_Report_pendingOmitsOptionalFields(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusOK, `{"status":"queued"}`), nil
	})

	rep, err := c.Report(context.Background(), "abc-123")
	require.NoError(t, err)
	require.Equal(t, domain.ReportQueued, rep.Status)
	require.False(t, rep.Terminal())
	require.Zero(t, rep.Malicious)
	require.Zero(t, rep.EnginesCount)
}

func TestClient_Report_404(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return textResponse(http.StatusNotFound, `{"error":"Analysis not found"}`), nil
	})

	rep, err := c.Report(context.Background(), "gone")
	require.Error(t, err)
	require.Nil(t, rep)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestClient_Report_transportError(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})

	_, err := c.Report(context.Background(), "abc")
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrUnavailable)
}

func TestClient_RateLimit(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/status", r.URL.Path)

		return textResponse(http.StatusOK,
			`{"can_upload":false,"wait_time_seconds":45,"last_request_ago":15,"min_interval":60}`), nil
	})

	rl, err := c.RateLimit(context.Background())
	require.NoError(t, err)
	require.False(t, rl.CanSubmit)
	require.Equal(t, 45*time.Second, rl.Wait)
	require.Equal(t, 15*time.Second, rl.SinceLast)
	require.Equal(t, time.Minute, rl.MinInterval)
}

func TestClient_Ping(t *testing.T) {
	c := newTestClient(func(r *http.Request) (*http.Response, error) {
		require.Equal(t, "/", r.URL.Path)

		return textResponse(http.StatusOK, "ok"), nil
	})
	require.NoError(t, c.Ping(context.Background()))

	down := newTestClient(func(r *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	})
	require.ErrorIs(t, down.Ping(context.Background()), serrors.ErrUnavailable)
}
