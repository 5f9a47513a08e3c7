package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/landgrid/geoaudit/internal/arealock"
	"github.com/landgrid/geoaudit/internal/model"
	"github.com/landgrid/geoaudit/internal/store"
	"github.com/landgrid/geoaudit/pkg/detect"
	"github.com/landgrid/geoaudit/pkg/objstore"
)

// ScanRequest is one merge-pipeline execution: two local image files plus
// area metadata. Both image files are treated as scoped temporary inputs and
// are removed on every exit path.
type ScanRequest struct {
	AreaID        string
	AreaName      string
	SatellitePath string
	PlotMapPath   string
}

// Pipeline reconciles the three detection subsystems' outputs into one
// consistent area record and persists it.
type Pipeline struct {
	store   store.Store
	detect  detect.Client
	objects objstore.Client
	rules   Rules
	locks   *arealock.Registry
	folder  string
	timeout time.Duration
}

// New creates a Pipeline with all dependencies.
func New(st store.Store, dc detect.Client, oc objstore.Client, rules Rules, locks *arealock.Registry, folder string, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{
		store:   st,
		detect:  dc,
		objects: oc,
		rules:   rules,
		locks:   locks,
		folder:  folder,
		timeout: timeout,
	}
}

// Run executes the full merge pipeline for one area and returns the persisted
// record. Detection calls fan out concurrently and are all-or-nothing: any
// failure aborts the run with no partial write.
func (p *Pipeline) Run(ctx context.Context, req ScanRequest) (*model.Area, error) {
	defer removeInputs(req)

	if req.SatellitePath == "" || req.PlotMapPath == "" {
		return nil, eris.Wrap(model.ErrValidation, "both satellite and plot-map images are required")
	}

	areaID := req.AreaID
	if areaID == "" {
		areaID = fmt.Sprintf("AREA_%d", time.Now().UnixMilli())
	}
	areaName := req.AreaName
	if areaName == "" {
		areaName = "New Scanned Area"
	}

	log := zap.L().With(zap.String("area", areaID))
	log.Info("pipeline: starting scan")

	// Fan out the three detection calls. No data dependency exists between
	// them, so end-to-end latency is bounded by the slowest single call.
	detectCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		vectorRaw, encroachRaw, usageRaw []byte
	)
	g, gctx := errgroup.WithContext(detectCtx)
	g.Go(func() error {
		raw, err := p.detect.ExtractPlots(gctx, req.PlotMapPath)
		if err != nil {
			return eris.Wrapf(model.ErrUpstream, "vectorization: %v", err)
		}
		vectorRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := p.detect.DetectEncroachment(gctx, req.PlotMapPath)
		if err != nil {
			return eris.Wrapf(model.ErrUpstream, "encroachment: %v", err)
		}
		encroachRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := p.detect.AnalyzeUsage(gctx, req.SatellitePath, req.PlotMapPath)
		if err != nil {
			return eris.Wrapf(model.ErrUpstream, "usage: %v", err)
		}
		usageRaw = raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Normalize. A malformed payload counts as an upstream failure.
	vectors, err := NormalizeVectorization(vectorRaw)
	if err != nil {
		return nil, err
	}
	encroachedKeys, err := NormalizeEncroachment(encroachRaw)
	if err != nil {
		return nil, err
	}
	usage, err := NormalizeUsage(usageRaw)
	if err != nil {
		return nil, err
	}

	plots := Merge(areaID, vectors, encroachedKeys, usage)
	for i := range plots {
		p.rules.Classify(&plots[i])
	}

	// Upload both source images; the area record keeps only the refs.
	var satObj, mapObj *objstore.Object
	ug, uctx := errgroup.WithContext(ctx)
	ug.Go(func() error {
		obj, err := p.objects.Upload(uctx, req.SatellitePath, p.folder+"/satellite")
		if err != nil {
			return eris.Wrapf(model.ErrUpstream, "satellite upload: %v", err)
		}
		satObj = obj
		return nil
	})
	ug.Go(func() error {
		obj, err := p.objects.Upload(uctx, req.PlotMapPath, p.folder+"/planned")
		if err != nil {
			return eris.Wrapf(model.ErrUpstream, "plot-map upload: %v", err)
		}
		mapObj = obj
		return nil
	})
	if err := ug.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	area := &model.Area{
		AreaID:         areaID,
		AreaName:       areaName,
		SatelliteImage: model.ImageRef{ID: satObj.ID, URL: satObj.URL},
		PlotMapImage:   model.ImageRef{ID: mapObj.ID, URL: mapObj.URL},
		Plots:          plots,
		Summary:        Summarize(plots, now),
		UpdatedAt:      now,
	}

	unlock := p.locks.Lock(areaID)
	err = p.store.UpsertArea(ctx, area)
	unlock()
	if err != nil {
		return nil, err
	}

	log.Info("pipeline: scan complete",
		zap.Int("plots", len(area.Plots)),
		zap.Int("encroached", area.Summary.EncroachedPlots),
		zap.Float64("score", area.Summary.OverallComplianceScore),
	)
	return area, nil
}

// DeleteArea removes the persisted area and releases its stored images.
// Object deletion is best-effort; the record removal is authoritative.
func (p *Pipeline) DeleteArea(ctx context.Context, areaID string) error {
	unlock := p.locks.Lock(areaID)
	defer unlock()

	area, err := p.store.GetArea(ctx, areaID)
	if err != nil {
		return err
	}

	p.objects.Delete(ctx, area.SatelliteImage.ID)
	p.objects.Delete(ctx, area.PlotMapImage.ID)

	return p.store.DeleteArea(ctx, areaID)
}

// removeInputs deletes the scan's temporary image files. Missing files are
// fine; anything else is logged and swallowed.
func removeInputs(req ScanRequest) {
	for _, path := range []string{req.SatellitePath, req.PlotMapPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("pipeline: remove temp input", zap.String("path", path), zap.Error(err))
		}
	}
}
