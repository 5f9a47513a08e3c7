package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/landgrid/geoaudit/internal/model"
)

func plotWithStatus(s model.Status) model.Plot {
	return model.Plot{Compliance: model.ComplianceRecord{Status: s}}
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	plots := []model.Plot{
		plotWithStatus(model.StatusCompliant),
		plotWithStatus(model.StatusCompliant),
		plotWithStatus(model.StatusEncroached),
		plotWithStatus(model.StatusUnused),
	}

	s := Summarize(plots, now)
	assert.Equal(t, 4, s.TotalPlots)
	assert.Equal(t, 2, s.CompliantPlots)
	assert.Equal(t, 1, s.EncroachedPlots)
	assert.Equal(t, 1, s.UnusedPlots)
	assert.InDelta(t, 50.0, s.OverallComplianceScore, 0.001)
	assert.Equal(t, now, s.LastProcessedAt)
}

func TestSummarizeTransitionalStatuses(t *testing.T) {
	// PARTIAL, WARNING_SENT and LEGAL_REVIEW count toward the total but sit
	// in no bucket.
	plots := []model.Plot{
		plotWithStatus(model.StatusPartial),
		plotWithStatus(model.StatusWarningSent),
		plotWithStatus(model.StatusLegalReview),
		plotWithStatus(model.StatusCompliant),
	}

	s := Summarize(plots, time.Now())
	assert.Equal(t, 4, s.TotalPlots)
	assert.Equal(t, 1, s.CompliantPlots)
	assert.Equal(t, 0, s.EncroachedPlots)
	assert.Equal(t, 0, s.UnusedPlots)
	assert.InDelta(t, 25.0, s.OverallComplianceScore, 0.001)
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, time.Now())
	assert.Zero(t, s.TotalPlots)
	assert.Zero(t, s.OverallComplianceScore)
}
