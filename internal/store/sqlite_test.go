package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landgrid/geoaudit/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sqliteArea(id string, encroached, review bool) *model.Area {
	plot := model.Plot{
		PlotID:     id + "_P1",
		PlotNumber: 1,
		OwnerName:  model.DefaultOwnerName,
		Compliance: model.ComplianceRecord{Status: model.StatusCompliant},
	}
	if encroached {
		plot.Compliance.Status = model.StatusEncroached
		plot.Encroached = true
	}
	plot.Compliance.RequiresManualReview = review

	return &model.Area{
		AreaID:         id,
		AreaName:       "Area " + id,
		SatelliteImage: model.ImageRef{ID: "sat-" + id, URL: "https://objects.example.com/sat-" + id},
		PlotMapImage:   model.ImageRef{ID: "map-" + id, URL: "https://objects.example.com/map-" + id},
		Plots:          []model.Plot{plot},
		Summary:        model.Summary{TotalPlots: 1},
		UpdatedAt:      time.Now().UTC().Truncate(time.Second),
	}
}

func TestSQLiteStore_UpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	area := sqliteArea("AREA_1", true, false)

	require.NoError(t, s.UpsertArea(ctx, area))

	got, err := s.GetArea(ctx, "AREA_1")
	require.NoError(t, err)
	assert.Equal(t, area.AreaID, got.AreaID)
	assert.Equal(t, area.AreaName, got.AreaName)
	assert.Equal(t, area.SatelliteImage, got.SatelliteImage)
	assert.Equal(t, area.PlotMapImage, got.PlotMapImage)
	require.Len(t, got.Plots, 1)
	assert.Equal(t, model.StatusEncroached, got.Plots[0].Compliance.Status)
	assert.True(t, got.Plots[0].Encroached)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_1", false, false)))

	updated := sqliteArea("AREA_1", true, true)
	updated.AreaName = "Renamed Estate"
	require.NoError(t, s.UpsertArea(ctx, updated))

	got, err := s.GetArea(ctx, "AREA_1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Estate", got.AreaName)
	assert.True(t, got.Plots[0].Encroached)
}

func TestSQLiteStore_GetArea_NotFound(t *testing.T) {
	s := newTestSQLite(t)
	_, err := s.GetArea(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSQLiteStore_DeleteArea(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_1", false, false)))
	require.NoError(t, s.DeleteArea(ctx, "AREA_1"))

	_, err := s.GetArea(ctx, "AREA_1")
	assert.ErrorIs(t, err, model.ErrNotFound)

	assert.ErrorIs(t, s.DeleteArea(ctx, "AREA_1"), model.ErrNotFound)
}

func TestSQLiteStore_ListAreas_Pagination(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"AREA_1", "AREA_2", "AREA_3"} {
		area := sqliteArea(id, false, false)
		require.NoError(t, s.UpsertArea(ctx, area))
	}

	page, err := s.ListAreas(ctx, AreaFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Areas, 2)
	assert.Empty(t, page.Areas[0].Plots, "listing carries no plot payload")

	page, err = s.ListAreas(ctx, AreaFilter{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Areas, 1)
}

func TestSQLiteStore_ListAreas_Filters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_OK", false, false)))
	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_ENC", true, false)))
	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_REV", false, true)))

	page, err := s.ListAreas(ctx, AreaFilter{Encroached: true})
	require.NoError(t, err)
	require.Len(t, page.Areas, 1)
	assert.Equal(t, "AREA_ENC", page.Areas[0].AreaID)

	page, err = s.ListAreas(ctx, AreaFilter{ManualReview: true})
	require.NoError(t, err)
	require.Len(t, page.Areas, 1)
	assert.Equal(t, "AREA_REV", page.Areas[0].AreaID)

	page, err = s.ListAreas(ctx, AreaFilter{Encroached: true, ManualReview: true})
	require.NoError(t, err)
	assert.Empty(t, page.Areas)
}

func TestSQLiteStore_Stats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_OK", false, false)))
	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_ENC", true, false)))
	require.NoError(t, s.UpsertArea(ctx, sqliteArea("AREA_REV", false, true)))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalAreas)
	assert.Equal(t, 1, stats.EncroachedAreas)
	assert.Equal(t, 1, stats.ManualReviewAreas)
}

func TestSQLiteStore_Ping(t *testing.T) {
	s := newTestSQLite(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestAreaFilterNormalize(t *testing.T) {
	f := AreaFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)

	f = AreaFilter{Page: 3, Limit: 25}.Normalize()
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 25, f.Limit)
}
