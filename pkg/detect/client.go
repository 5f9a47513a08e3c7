// Package detect provides clients for the three independent detection
// subsystems: full plot vectorization, encroachment detection, and land-usage
// analysis. Each call uploads image files and returns the raw JSON payload;
// normalization into canonical plot records happens downstream.
package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client defines the detection-subsystem operations. All three calls are
// independent and safe to issue concurrently.
type Client interface {
	// ExtractPlots runs full plot vectorization on the plot-map image.
	ExtractPlots(ctx context.Context, plotMapPath string) (json.RawMessage, error)
	// DetectEncroachment returns the keys of plots flagged as encroached.
	DetectEncroachment(ctx context.Context, plotMapPath string) (json.RawMessage, error)
	// AnalyzeUsage compares satellite imagery against the plot layout and
	// returns per-plot usage statistics.
	AnalyzeUsage(ctx context.Context, satellitePath, plotMapPath string) (json.RawMessage, error)
}

// Config holds the explicit endpoints and call bounds for the detection
// cluster. Endpoints are injected; the client never reads the environment.
type Config struct {
	VectorizationURL string
	EncroachmentURL  string
	UsageURL         string
	Timeout          time.Duration
	RequestsPerSec   float64
}

// Option configures the detection client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *httpClient) {
		c.limiter = l
	}
}

type httpClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a detection client from an explicit config.
func NewClient(cfg Config, opts ...Option) Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 2
	}
	c := &httpClient{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), 3),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// filePart names one multipart file field and its local source.
type filePart struct {
	field string
	path  string
}

// retryableStatusCode returns true if the HTTP status code should trigger a retry.
func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// postFiles uploads the given files as a multipart form and returns the
// response body. Transient failures (429, 5xx) are retried with exponential
// backoff; every attempt re-reads the source files so the body is fresh.
func (c *httpClient) postFiles(ctx context.Context, url string, parts []filePart) (json.RawMessage, error) {
	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "detect: rate limit wait")
		}

		body, contentType, err := buildMultipart(parts)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			return nil, eris.Wrap(err, "detect: create request")
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "detect: POST %s", url)
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, eris.Wrap(readErr, "detect: read response body")
			}
			if resp.StatusCode == http.StatusOK {
				return json.RawMessage(respBody), nil
			}
			lastErr = eris.Errorf("detect: %s returned status %d: %s", url, resp.StatusCode, string(respBody))
			if !retryableStatusCode(resp.StatusCode) {
				return nil, lastErr
			}
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return nil, lastErr
}

// buildMultipart assembles a multipart body from local files.
func buildMultipart(parts []filePart) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, p := range parts {
		f, err := os.Open(p.path)
		if err != nil {
			return nil, "", eris.Wrapf(err, "detect: open %s", p.path)
		}
		fw, err := w.CreateFormFile(p.field, filepath.Base(p.path))
		if err != nil {
			f.Close()
			return nil, "", eris.Wrap(err, "detect: create form file")
		}
		if _, err := io.Copy(fw, f); err != nil {
			f.Close()
			return nil, "", eris.Wrapf(err, "detect: copy %s", p.path)
		}
		f.Close()
	}
	if err := w.Close(); err != nil {
		return nil, "", eris.Wrap(err, "detect: close multipart writer")
	}
	return buf, w.FormDataContentType(), nil
}

func (c *httpClient) ExtractPlots(ctx context.Context, plotMapPath string) (json.RawMessage, error) {
	return c.postFiles(ctx, c.cfg.VectorizationURL, []filePart{
		{field: "file", path: plotMapPath},
	})
}

func (c *httpClient) DetectEncroachment(ctx context.Context, plotMapPath string) (json.RawMessage, error) {
	return c.postFiles(ctx, c.cfg.EncroachmentURL, []filePart{
		{field: "file", path: plotMapPath},
	})
}

func (c *httpClient) AnalyzeUsage(ctx context.Context, satellitePath, plotMapPath string) (json.RawMessage, error) {
	return c.postFiles(ctx, c.cfg.UsageURL, []filePart{
		{field: "satellite_file", path: satellitePath},
		{field: "layout_file", path: plotMapPath},
	})
}
