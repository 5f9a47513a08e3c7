// Package objstore wraps the binary object-store collaborator. Uploads return
// an opaque id plus a public URL; blobs themselves are never read back here.
package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Object identifies a stored blob.
type Object struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Client defines the object-store operations.
type Client interface {
	// Upload stores a local file under the given folder label.
	Upload(ctx context.Context, localPath, folder string) (*Object, error)
	// Delete removes a stored object. Best-effort: failures are logged and
	// swallowed so cleanup never fails a caller.
	Delete(ctx context.Context, id string)
}

// Option configures the object-store client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates an object-store client.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Upload(ctx context.Context, localPath, folder string) (*Object, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, eris.Wrapf(err, "objstore: open %s", localPath)
	}
	defer f.Close()

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	if err := w.WriteField("folder", folder); err != nil {
		return nil, eris.Wrap(err, "objstore: write folder field")
	}
	fw, err := w.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, eris.Wrap(err, "objstore: create form file")
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, eris.Wrapf(err, "objstore: copy %s", localPath)
	}
	if err := w.Close(); err != nil {
		return nil, eris.Wrap(err, "objstore: close multipart writer")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/objects", buf)
	if err != nil {
		return nil, eris.Wrap(err, "objstore: create request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "objstore: upload request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "objstore: read response body")
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, eris.Errorf("objstore: upload status %d: %s", resp.StatusCode, string(body))
	}

	var obj Object
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, eris.Wrap(err, "objstore: decode upload response")
	}
	if obj.ID == "" || obj.URL == "" {
		return nil, eris.New("objstore: upload response missing id or url")
	}
	return &obj, nil
}

func (c *httpClient) Delete(ctx context.Context, id string) {
	if id == "" {
		return
	}

	reqURL := fmt.Sprintf("%s/objects/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, nil)
	if err != nil {
		zap.L().Warn("objstore: create delete request", zap.String("id", id), zap.Error(err))
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		zap.L().Warn("objstore: delete failed", zap.String("id", id), zap.Error(err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		zap.L().Warn("objstore: delete status", zap.String("id", id), zap.Int("status", resp.StatusCode))
	}
}
