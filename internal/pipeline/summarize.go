package pipeline

import (
	"time"

	"github.com/landgrid/geoaudit/internal/model"
)

// Summarize rolls a plot set into the area summary. It is recomputed from
// scratch on every call; nothing is patched incrementally.
//
// PARTIAL, WARNING_SENT and LEGAL_REVIEW plots count only toward TotalPlots:
// they sit in no compliance bucket. That asymmetry is long-standing observed
// behavior and is kept as-is.
func Summarize(plots []model.Plot, now time.Time) model.Summary {
	s := model.Summary{
		TotalPlots:      len(plots),
		LastProcessedAt: now,
	}
	for i := range plots {
		switch plots[i].Compliance.Status {
		case model.StatusCompliant:
			s.CompliantPlots++
		case model.StatusEncroached:
			s.EncroachedPlots++
		case model.StatusUnused:
			s.UnusedPlots++
		}
	}
	if s.TotalPlots > 0 {
		s.OverallComplianceScore = float64(s.CompliantPlots) / float64(s.TotalPlots) * 100
	}
	return s
}
