// Package dispatch wraps the report-dispatch collaborator, which renders an
// audit dossier and transmits it to the recipient. Rendering and transport are
// opaque to this service; only success or failure comes back.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Report is the payload handed to the dispatch service.
type Report struct {
	PlotID            string  `json:"plot_id"`
	OwnerName         string  `json:"owner_name"`
	AreaName          string  `json:"area_name"`
	Status            string  `json:"status"`
	DeviationPercent  float64 `json:"deviation_percent"`
	SatelliteImageURL string  `json:"satellite_image_url"`
}

// Client defines the dispatch operation.
type Client interface {
	// Send renders and transmits the report to the recipient address.
	Send(ctx context.Context, report Report, recipient string) error
}

// Option configures the dispatch client.
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

// NewClient creates a dispatch client.
func NewClient(baseURL, apiKey string, opts ...Option) Client {
	c := &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Send(ctx context.Context, report Report, recipient string) error {
	if recipient == "" {
		return eris.New("dispatch: recipient is required")
	}

	payload := struct {
		Report    Report `json:"report"`
		Recipient string `json:"recipient"`
	}{Report: report, Recipient: recipient}

	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "dispatch: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/reports", bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "dispatch: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "dispatch: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return eris.Errorf("dispatch: status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
