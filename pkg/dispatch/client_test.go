package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() Report {
	return Report{
		PlotID:            "AREA_1_P1",
		OwnerName:         "Acme Forgings",
		AreaName:          "Siltara Phase I",
		Status:            "WARNING_SENT",
		DeviationPercent:  18.5,
		SatelliteImageURL: "https://objects.example.com/sat-1.png",
	}
}

func TestSend(t *testing.T) {
	var gotAuth string
	var gotPayload struct {
		Report    Report `json:"report"`
		Recipient string `json:"recipient"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/reports", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	err := c.Send(context.Background(), sampleReport(), "ops@acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "ops@acme.example.com", gotPayload.Recipient)
	assert.Equal(t, "AREA_1_P1", gotPayload.Report.PlotID)
	assert.Equal(t, 18.5, gotPayload.Report.DeviationPercent)
}

func TestSendRequiresRecipient(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "test-key")
	err := c.Send(context.Background(), sampleReport(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recipient is required")
}

func TestSendErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("relay refused"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key")
	err := c.Send(context.Background(), sampleReport(), "ops@acme.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "relay refused")
}

func TestSendConnectionFailure(t *testing.T) {
	c := NewClient("http://127.0.0.1:0", "test-key")
	err := c.Send(context.Background(), sampleReport(), "ops@acme.example.com")
	require.Error(t, err)
}
