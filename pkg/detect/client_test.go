package detect

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func tempImage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func fastClient(cfg Config) Client {
	// Unthrottled limiter keeps tests quick.
	return NewClient(cfg, WithLimiter(rate.NewLimiter(rate.Inf, 1)))
}

func TestExtractPlots(t *testing.T) {
	var gotField string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		if _, header, err := r.FormFile("file"); err == nil {
			gotField = header.Filename
		}
		w.Write([]byte(`[{"id": "P1", "coords": [[0,0]], "area_pixel": 1}]`))
	}))
	defer srv.Close()

	c := fastClient(Config{VectorizationURL: srv.URL})
	raw, err := c.ExtractPlots(context.Background(), tempImage(t, "layout.png", "img"))
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id": "P1", "coords": [[0,0]], "area_pixel": 1}]`, string(raw))
	assert.Equal(t, "layout.png", gotField)
}

func TestAnalyzeUsageSendsBothFiles(t *testing.T) {
	var fields []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		for _, name := range []string{"satellite_file", "layout_file"} {
			if _, _, err := r.FormFile(name); err == nil {
				fields = append(fields, name)
			}
		}
		w.Write([]byte(`{"report": []}`))
	}))
	defer srv.Close()

	c := fastClient(Config{UsageURL: srv.URL})
	_, err := c.AnalyzeUsage(context.Background(),
		tempImage(t, "sat.png", "sat"), tempImage(t, "layout.png", "map"))
	require.NoError(t, err)
	assert.Equal(t, []string{"satellite_file", "layout_file"}, fields)
}

func TestDetectEncroachmentRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`["P1"]`))
	}))
	defer srv.Close()

	c := fastClient(Config{EncroachmentURL: srv.URL})
	raw, err := c.DetectEncroachment(context.Background(), tempImage(t, "layout.png", "img"))
	require.NoError(t, err)
	assert.JSONEq(t, `["P1"]`, string(raw))
	assert.Equal(t, int32(3), calls.Load())
}

func TestDetectNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "unsupported image format"}`))
	}))
	defer srv.Close()

	c := fastClient(Config{VectorizationURL: srv.URL})
	_, err := c.ExtractPlots(context.Background(), tempImage(t, "layout.png", "img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load())
}

func TestDetectExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := fastClient(Config{VectorizationURL: srv.URL})
	_, err := c.ExtractPlots(context.Background(), tempImage(t, "layout.png", "img"))
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDetectMissingFile(t *testing.T) {
	c := fastClient(Config{VectorizationURL: "http://127.0.0.1:0"})
	_, err := c.ExtractPlots(context.Background(), filepath.Join(t.TempDir(), "absent.png"))
	require.Error(t, err)
}

func TestDetectContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := fastClient(Config{VectorizationURL: srv.URL})
	_, err := c.ExtractPlots(ctx, tempImage(t, "layout.png", "img"))
	require.Error(t, err)
}
