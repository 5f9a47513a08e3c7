package geometry

import (
	"fmt"
	"path/filepath"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/landgrid/geoaudit/internal/model"
)

// shapeFields is the attribute schema written alongside each polygon.
var shapeFields = []shp.Field{
	shp.StringField("PLOT_ID", 64),
	shp.StringField("STATUS", 16),
	shp.FloatField("DEVIATION", 8, 2),
	shp.FloatField("AREA_SQM", 16, 2),
}

// WriteShapefiles writes one polygon shapefile per layer for the area into
// dir, named {areaId}_{layer}.shp. Layers with no geometry in any plot are
// skipped. Returns the paths written.
func WriteShapefiles(area *model.Area, dir string) ([]string, error) {
	log := zap.L().With(zap.String("area", area.AreaID))

	var written []string
	for _, layer := range model.LayerNames {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.shp", area.AreaID, layer))
		n, err := writeLayer(area, layer, path)
		if err != nil {
			return written, err
		}
		if n == 0 {
			continue
		}
		written = append(written, path)
		log.Debug("wrote layer shapefile", zap.String("layer", layer), zap.Int("plots", n))
	}
	return written, nil
}

func writeLayer(area *model.Area, layer, path string) (int, error) {
	var shapes []*shp.Polygon
	var plots []*model.Plot
	for i := range area.Plots {
		p := &area.Plots[i]
		pl := p.Layer(layer)
		if pl.Empty() {
			continue
		}
		shapes = append(shapes, toShpPolygon(pl.Points))
		plots = append(plots, p)
	}
	if len(shapes) == 0 {
		return 0, nil
	}

	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return 0, eris.Wrapf(err, "geometry: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields(shapeFields)
	for i, s := range shapes {
		w.Write(s)
		p := plots[i]
		attrs := []any{
			p.PlotID,
			string(p.Compliance.Status),
			p.Compliance.DeviationPercent,
			LayerArea(p.Layer(layer)),
		}
		for col, v := range attrs {
			if err := w.WriteAttribute(i, col, v); err != nil {
				return 0, eris.Wrapf(err, "geometry: write attribute %d for %s", col, p.PlotID)
			}
		}
	}
	return len(shapes), nil
}

// toShpPolygon converts layer points to a single-part shapefile polygon,
// closing the ring when the source left it open.
func toShpPolygon(points []model.Point) *shp.Polygon {
	ring := make([]shp.Point, 0, len(points)+1)
	for _, p := range points {
		ring = append(ring, shp.Point{X: p[0], Y: p[1]})
	}
	if len(points) > 0 && points[0] != points[len(points)-1] {
		ring = append(ring, shp.Point{X: points[0][0], Y: points[0][1]})
	}
	return (*shp.Polygon)(shp.NewPolyLine([][]shp.Point{ring}))
}
