// Package vtgateway provides a scanservice.Client implementation backed by
// the HTTP scan gateway (a thin proxy in front of the VirusTotal file API).
package vtgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"filescan/pkg/domain"
	"filescan/pkg/scanservice"
	"filescan/pkg/serrors"
)

// MaxFileSize is the largest payload the gateway accepts. Larger files are
// rejected locally before any upload is attempted.
const MaxFileSize = 32 << 20

// Client talks to the scan gateway's REST API and fulfills the
// scanservice.Client interface. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client // httpClient performs HTTP requests to the gateway
	baseURL    string       // baseURL is the gateway root, e.g. "http://localhost:5000"
}

// Submit uploads the provided file content to the gateway as a multipart
// body and returns the analysis identifier assigned by the remote service.
// Gateway status codes map onto semantic kinds: 409 busy, 429 quota, 413
// oversize. Oversize files are rejected locally when the size is known.
func (c *Client) Submit(ctx context.Context,
	file domain.FileInfo,
	content io.Reader) (scanservice.SubmitRes, error) {
	if file.Size > MaxFileSize {
		return scanservice.SubmitRes{},
			serrors.With(serrors.ErrBadRequest, "file too large: %d bytes, max is %d", file.Size, MaxFileSize)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", file.Name)
	if err != nil {
		return scanservice.SubmitRes{}, fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := io.Copy(fw, content); err != nil {
		return scanservice.SubmitRes{}, fmt.Errorf("could not copy file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return scanservice.SubmitRes{}, fmt.Errorf("could not finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return scanservice.SubmitRes{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scanservice.SubmitRes{}, serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return scanservice.SubmitRes{}, serrors.Wrap(serrors.ErrUnavailable, err, "could not read response body")
	}

	switch resp.StatusCode {
	case http.StatusConflict:
		return scanservice.SubmitRes{},
			serrors.With(serrors.ErrConflict, "remote scanner busy: %s", strings.TrimSpace(string(b)))
	case http.StatusTooManyRequests:
		return scanservice.SubmitRes{},
			serrors.With(serrors.ErrRateLimited, "rate limited: %s", strings.TrimSpace(string(b)))
	case http.StatusRequestEntityTooLarge:
		return scanservice.SubmitRes{},
			serrors.With(serrors.ErrBadRequest, "payload too large: %s", strings.TrimSpace(string(b)))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return scanservice.SubmitRes{}, fmt.Errorf("submit failed: %s", strings.TrimSpace(string(b)))
	}

	// successful
	var submitResp struct {
		AnalysisID string `json:"analysis_id"`
	}
	if err := json.Unmarshal(b, &submitResp); err != nil {
		return scanservice.SubmitRes{}, fmt.Errorf("could not decode response: %w", err)
	}
	if submitResp.AnalysisID == "" {
		return scanservice.SubmitRes{}, fmt.Errorf("no analysis id in response: %s", strings.TrimSpace(string(b)))
	}

	return scanservice.SubmitRes{AnalysisID: submitResp.AnalysisID}, nil
}

// Report fetches and decodes the report for the given analysisID. Optional
// fields the gateway has not produced yet decode as zero values, so a queued
// job yields a report carrying only its status.
func (c *Client) Report(ctx context.Context, analysisID string) (*domain.Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/report/"+analysisID, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrUnavailable, err, "could not read response body")
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, serrors.With(serrors.ErrNotFound, "analysis not found")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("get report failed: %s", strings.TrimSpace(string(b)))
	}

	// successful
	var rs struct {
		Status       string `json:"status"`
		IsSafe       *bool  `json:"is_safe"`
		EnginesCount *int   `json:"engines_count"`
		ThreatsFound *int   `json:"threats_found"`
		Malicious    *int   `json:"malicious"`
		Suspicious   *int   `json:"suspicious"`
		Clean        *int   `json:"clean"`
	}
	if err := json.Unmarshal(b, &rs); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}

	out := &domain.Report{Status: domain.ReportStatus(rs.Status)}
	if rs.IsSafe != nil {
		out.IsSafe = *rs.IsSafe
	}
	if rs.EnginesCount != nil {
		out.EnginesCount = *rs.EnginesCount
	}
	if rs.ThreatsFound != nil {
		out.ThreatsFound = *rs.ThreatsFound
	}
	if rs.Malicious != nil {
		out.Malicious = *rs.Malicious
	}
	if rs.Suspicious != nil {
		out.Suspicious = *rs.Suspicious
	}
	if rs.Clean != nil {
		out.Clean = *rs.Clean
	}

	return out, nil
}

// RateLimit queries the gateway's submission throttle status. The wire format
// uses whole seconds; they are converted to durations here.
func (c *Client) RateLimit(ctx context.Context) (domain.RateLimitStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status", nil)
	if err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.RateLimitStatus{}, serrors.Wrap(serrors.ErrUnavailable, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.RateLimitStatus{}, serrors.Wrap(serrors.ErrUnavailable, err, "could not read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.RateLimitStatus{}, fmt.Errorf("get status failed: %s", strings.TrimSpace(string(b)))
	}

	var rl struct {
		CanUpload       bool `json:"can_upload"`
		WaitTimeSeconds int  `json:"wait_time_seconds"`
		LastRequestAgo  int  `json:"last_request_ago"`
		MinInterval     int  `json:"min_interval"`
	}
	if err := json.Unmarshal(b, &rl); err != nil {
		return domain.RateLimitStatus{}, fmt.Errorf("could not decode response: %w", err)
	}

	return domain.RateLimitStatus{
		CanSubmit:   rl.CanUpload,
		Wait:        time.Duration(rl.WaitTimeSeconds) * time.Second,
		SinceLast:   time.Duration(rl.LastRequestAgo) * time.Second,
		MinInterval: time.Duration(rl.MinInterval) * time.Second,
	}, nil
}

// Ping probes the gateway root endpoint. The body carries no contract; any
// 2xx means alive.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return serrors.Wrap(serrors.ErrUnavailable, err, "could not reach gateway")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return serrors.With(serrors.ErrUnavailable, "gateway returned %d", resp.StatusCode)
	}

	return nil
}

// Ensure Client conforms to the scanservice.Client interface at compile time.
var _ scanservice.Client = (*Client)(nil)

// New constructs a Client that uses the provided http.Client to interact with
// the gateway at baseURL. A trailing slash on baseURL is trimmed.
func New(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}
