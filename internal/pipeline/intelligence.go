package pipeline

import (
	"math"

	"github.com/landgrid/geoaudit/internal/geometry"
	"github.com/landgrid/geoaudit/internal/model"
)

// Revenue-at-risk estimate: a flat fine per plot whose deviation exceeds the
// threshold. Placeholder figures until the finance office supplies a schedule.
const (
	revenueAtRiskFine      = 5000.0
	revenueAtRiskDeviation = 10.0
)

// AreaIntelligence is the dashboard read model for one area: headline metrics
// plus a trimmed per-plot view carrying all four polygon layers for overlay
// rendering. Field names follow the dashboard wire contract.
type AreaIntelligence struct {
	AreaName string              `json:"areaName"`
	Metrics  IntelligenceMetrics `json:"metrics"`
	Plots    []PlotIntelligence  `json:"plots"`
}

// IntelligenceMetrics are the area-level headline numbers.
type IntelligenceMetrics struct {
	ComplianceHealth    float64 `json:"complianceHealth"`
	TotalEncroachedArea float64 `json:"totalEncroachedArea"`
	TotalUnusedArea     float64 `json:"totalUnusedArea"`
	RevenueAtRisk       float64 `json:"revenueAtRisk"`
}

// PlotIntelligence is one plot's dashboard row plus its overlay geometry.
type PlotIntelligence struct {
	PlotID                 string       `json:"plotId"`
	Owner                  string       `json:"owner"`
	Status                 model.Status `json:"status"`
	Deviation              float64      `json:"deviation"`
	RequiresManualReview   bool         `json:"requiresManualReview"`
	BackgroundSatelliteURL string       `json:"backgroundSatelliteUrl"`
	Geometry               PlotGeometry `json:"geometry"`
}

// PlotGeometry holds the four layer rings for frontend shading.
type PlotGeometry struct {
	Planned    []model.Point `json:"planned"`
	Existing   []model.Point `json:"existing"`
	Encroached []model.Point `json:"encroached"`
	Unused     []model.Point `json:"unused"`
}

// Intelligence projects an area into its dashboard read model. Layer areas
// fall back to the planar polygon area when the upstream measurement is
// missing, so encroached/unused totals stay meaningful for hand-digitized
// layers.
func Intelligence(area *model.Area) *AreaIntelligence {
	out := &AreaIntelligence{
		AreaName: area.AreaName,
		Plots:    make([]PlotIntelligence, 0, len(area.Plots)),
	}

	for i := range area.Plots {
		p := &area.Plots[i]

		out.Metrics.TotalEncroachedArea += geometry.LayerArea(p.Layer(model.LayerEncroached))
		out.Metrics.TotalUnusedArea += geometry.LayerArea(p.Layer(model.LayerUnused))
		if p.Compliance.DeviationPercent > revenueAtRiskDeviation {
			out.Metrics.RevenueAtRisk += revenueAtRiskFine
		}

		out.Plots = append(out.Plots, PlotIntelligence{
			PlotID:                 p.PlotID,
			Owner:                  p.OwnerName,
			Status:                 p.Compliance.Status,
			Deviation:              p.Compliance.DeviationPercent,
			RequiresManualReview:   p.Compliance.RequiresManualReview,
			BackgroundSatelliteURL: area.SatelliteImage.URL,
			Geometry: PlotGeometry{
				Planned:    p.Layer(model.LayerPlanned).Points,
				Existing:   p.Layer(model.LayerExisting).Points,
				Encroached: p.Layer(model.LayerEncroached).Points,
				Unused:     p.Layer(model.LayerUnused).Points,
			},
		})
	}

	if area.Summary.TotalPlots > 0 {
		health := float64(area.Summary.CompliantPlots) / float64(area.Summary.TotalPlots) * 100
		out.Metrics.ComplianceHealth = math.Round(health*100) / 100
	}
	return out
}
