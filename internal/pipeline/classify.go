package pipeline

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/landgrid/geoaudit/internal/model"
)

// Rules parameterizes the compliance classifier. Loaded from a YAML file so
// the monitoring cell can tune thresholds without a release.
type Rules struct {
	// EncroachedDefaultDeviation is assigned to encroached plots when the
	// usage subsystem reported nothing for their key.
	EncroachedDefaultDeviation float64 `yaml:"encroached_default_deviation"`
	// ManualReviewDeviation is the deviation percentage at or above which a
	// plot is queued for manual review.
	ManualReviewDeviation float64 `yaml:"manual_review_deviation"`
}

// DefaultRules returns the thresholds used when no ruleset file is configured.
func DefaultRules() Rules {
	return Rules{
		EncroachedDefaultDeviation: 10.0,
		ManualReviewDeviation:      15.0,
	}
}

// LoadRules reads a classifier ruleset from a YAML file.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var wrapper struct {
		Classifier Rules `yaml:"classifier"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrapf(err, "classify: parse rules %s", path)
	}
	return wrapper.Classifier, nil
}

// Classify derives the compliance metrics on a freshly merged plot: clamped
// usage percentages, deviation percentage, and the manual-review flag. The
// status itself is whatever the merge assigned; Classify only keeps the
// encroached flag consistent with it.
func (r Rules) Classify(plot *model.Plot) {
	if plot.Usage != nil {
		plot.Usage.ConstructedPercent = clampPercent(plot.Usage.ConstructedPercent)
		plot.Usage.GreeneryPercent = clampPercent(plot.Usage.GreeneryPercent)
	}

	switch {
	case plot.Usage != nil:
		plot.Compliance.DeviationPercent = plot.Usage.GreeneryPercent
	case plot.Compliance.Status == model.StatusEncroached:
		plot.Compliance.DeviationPercent = r.EncroachedDefaultDeviation
	default:
		plot.Compliance.DeviationPercent = 0
	}

	plot.Compliance.RequiresManualReview = plot.Compliance.DeviationPercent >= r.ManualReviewDeviation
	plot.Encroached = plot.Compliance.Status == model.StatusEncroached
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
