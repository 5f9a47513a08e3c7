package model

// Layer names for a plot's polygon geometry. Every merge writes all four;
// layers without upstream data are stored empty with zero area.
const (
	LayerPlanned    = "planned"
	LayerExisting   = "existing"
	LayerEncroached = "encroached"
	LayerUnused     = "unused"
)

// LayerNames lists the four layers in their canonical order.
var LayerNames = []string{LayerPlanned, LayerExisting, LayerEncroached, LayerUnused}

// Point is one (x, y) vertex of a polygon ring.
type Point [2]float64

// PolygonLayer is an ordered ring of points plus its measured area.
type PolygonLayer struct {
	Points  []Point `json:"points"`
	AreaSqM float64 `json:"area_sq_m"`
}

// Empty reports whether the layer carries no geometry.
func (l PolygonLayer) Empty() bool { return len(l.Points) == 0 }

// UsageStats carries land-usage percentages for a plot. Present only when the
// usage-analysis subsystem contributed data for the plot's key.
type UsageStats struct {
	ConstructedPercent float64 `json:"constructed_percent"`
	GreeneryPercent    float64 `json:"greenery_percent"`
}

// DefaultOwnerName is assigned to plots with no known owner.
const DefaultOwnerName = "Unassigned"

// Plot is one parcel within an Area. PlotID is unique within its Area; when
// the vectorization subsystem supplies no key, the merge engine synthesizes
// one from the plot's position.
type Plot struct {
	PlotID     string                  `json:"plot_id"`
	PlotNumber int                     `json:"plot_number"`
	OwnerName  string                  `json:"owner_name"`
	OwnerEmail string                  `json:"owner_email,omitempty"`
	Polygons   map[string]PolygonLayer `json:"polygons"`
	Compliance ComplianceRecord        `json:"compliance"`
	Usage      *UsageStats             `json:"usage,omitempty"`
	Encroached bool                    `json:"is_encroached"`
}

// Layer returns the named polygon layer, or an empty layer when unset.
func (p *Plot) Layer(name string) PolygonLayer {
	if p.Polygons == nil {
		return PolygonLayer{}
	}
	return p.Polygons[name]
}
