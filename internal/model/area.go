package model

import "time"

// ImageRef points at an object-store image: the provider's id plus a public URL.
type ImageRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Summary is the derived roll-up of an area's plots. It is recomputed in full
// on every merge, never incrementally patched.
type Summary struct {
	TotalPlots             int       `json:"total_plots"`
	CompliantPlots         int       `json:"compliant_plots"`
	EncroachedPlots        int       `json:"encroached_plots"`
	UnusedPlots            int       `json:"unused_plots"`
	OverallComplianceScore float64   `json:"overall_compliance_score"`
	LastProcessedAt        time.Time `json:"last_processed_at"`
}

// Area is one audited industrial zone. It exclusively owns its plots and
// summary: deleting the area deletes everything under it.
type Area struct {
	AreaID         string    `json:"area_id"`
	AreaName       string    `json:"area_name"`
	SatelliteImage ImageRef  `json:"satellite_image"`
	PlotMapImage   ImageRef  `json:"plot_map_image"`
	Plots          []Plot    `json:"plots"`
	Summary        Summary   `json:"summary"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FindPlot returns the plot with the given id, or nil when absent.
func (a *Area) FindPlot(plotID string) *Plot {
	for i := range a.Plots {
		if a.Plots[i].PlotID == plotID {
			return &a.Plots[i]
		}
	}
	return nil
}
