package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landgrid/geoaudit/internal/model"
)

func TestClassifyWithUsage(t *testing.T) {
	rules := DefaultRules()
	plot := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
		Usage:      &model.UsageStats{ConstructedPercent: 70, GreeneryPercent: 30},
	}
	rules.Classify(plot)

	assert.Equal(t, 30.0, plot.Compliance.DeviationPercent)
	assert.True(t, plot.Compliance.RequiresManualReview, "30%% deviation crosses the review threshold")
	assert.False(t, plot.Encroached)
}

func TestClassifyEncroachedWithoutUsage(t *testing.T) {
	rules := DefaultRules()
	plot := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusEncroached},
	}
	rules.Classify(plot)

	assert.Equal(t, rules.EncroachedDefaultDeviation, plot.Compliance.DeviationPercent)
	assert.False(t, plot.Compliance.RequiresManualReview)
	assert.True(t, plot.Encroached)
}

func TestClassifyCompliantWithoutUsage(t *testing.T) {
	plot := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
	}
	DefaultRules().Classify(plot)

	assert.Zero(t, plot.Compliance.DeviationPercent)
	assert.False(t, plot.Compliance.RequiresManualReview)
}

func TestClassifyClampsPercents(t *testing.T) {
	plot := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
		Usage:      &model.UsageStats{ConstructedPercent: -5, GreeneryPercent: 130},
	}
	DefaultRules().Classify(plot)

	assert.Equal(t, 0.0, plot.Usage.ConstructedPercent)
	assert.Equal(t, 100.0, plot.Usage.GreeneryPercent)
	assert.Equal(t, 100.0, plot.Compliance.DeviationPercent)
	assert.True(t, plot.Compliance.RequiresManualReview)
}

func TestClassifyReviewThresholdBoundary(t *testing.T) {
	rules := DefaultRules()

	at := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
		Usage:      &model.UsageStats{GreeneryPercent: rules.ManualReviewDeviation},
	}
	rules.Classify(at)
	assert.True(t, at.Compliance.RequiresManualReview, "threshold is inclusive")

	below := &model.Plot{
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
		Usage:      &model.UsageStats{GreeneryPercent: rules.ManualReviewDeviation - 0.01},
	}
	rules.Classify(below)
	assert.False(t, below.Compliance.RequiresManualReview)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
classifier:
  encroached_default_deviation: 12.5
  manual_review_deviation: 20
`), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, 12.5, rules.EncroachedDefaultDeviation)
	assert.Equal(t, 20.0, rules.ManualReviewDeviation)
}

func TestLoadRulesMissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadRulesInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("classifier: [not a map"), 0o644))

	_, err := LoadRules(path)
	require.Error(t, err)
}
