package pipeline

import (
	"fmt"

	"github.com/landgrid/geoaudit/internal/model"
)

// Merge joins the three normalized detection outputs into one plot record per
// vectorized plot. It is a pure function of its inputs: identical inputs give
// identical output. Synthetic keys depend on the vectorization order, so
// reordering the upstream result re-keys unkeyed plots.
//
// Merge assigns only the two initial statuses, COMPLIANT and ENCROACHED.
// Every later state is reached through the lifecycle manager.
func Merge(areaID string, vectors []VectorPlot, encroachedKeys []string, usage []UsageEntry) []model.Plot {
	encroached := make(map[string]bool, len(encroachedKeys))
	for _, k := range encroachedKeys {
		encroached[k] = true
	}
	usageByKey := make(map[string]UsageEntry, len(usage))
	for _, u := range usage {
		usageByKey[u.PlotKey] = u
	}

	plots := make([]model.Plot, 0, len(vectors))
	for i, v := range vectors {
		key := v.Key
		if key == "" {
			key = SyntheticKey(areaID, i)
		}

		status := model.StatusCompliant
		if encroached[key] {
			status = model.StatusEncroached
		}

		plot := model.Plot{
			PlotID:     key,
			PlotNumber: i + 1,
			OwnerName:  model.DefaultOwnerName,
			Polygons: map[string]model.PolygonLayer{
				model.LayerPlanned:    {Points: v.Points, AreaSqM: v.PixelArea},
				model.LayerExisting:   {Points: []model.Point{}},
				model.LayerEncroached: {Points: []model.Point{}},
				model.LayerUnused:     {Points: []model.Point{}},
			},
			Compliance: model.ComplianceRecord{Status: status},
			Encroached: status == model.StatusEncroached,
		}

		// Usage percentages are derived only when the usage subsystem actually
		// reported on this key. A missing report never implies full
		// construction.
		if u, ok := usageByKey[key]; ok {
			constructed := 0.0
			if u.UnusedAreaPercent != 0 {
				constructed = 100 - u.UnusedAreaPercent
			}
			plot.Usage = &model.UsageStats{
				ConstructedPercent: constructed,
				GreeneryPercent:    u.UnusedAreaPercent,
			}
		}

		plots = append(plots, plot)
	}
	return plots
}

// SyntheticKey builds the deterministic positional key for a vectorization
// entry that carried none: {areaId}_P{index+1}, 1-based.
func SyntheticKey(areaID string, index int) string {
	return fmt.Sprintf("%s_P%d", areaID, index+1)
}
