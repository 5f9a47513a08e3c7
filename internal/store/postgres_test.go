package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landgrid/geoaudit/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func sampleArea() *model.Area {
	return &model.Area{
		AreaID:         "AREA_1",
		AreaName:       "Siltara Phase I",
		SatelliteImage: model.ImageRef{ID: "sat-1", URL: "https://objects.example.com/sat-1"},
		PlotMapImage:   model.ImageRef{ID: "map-1", URL: "https://objects.example.com/map-1"},
		Plots: []model.Plot{
			{
				PlotID:     "AREA_1_P1",
				PlotNumber: 1,
				OwnerName:  model.DefaultOwnerName,
				Compliance: model.ComplianceRecord{Status: model.StatusEncroached, DeviationPercent: 10},
				Encroached: true,
			},
		},
		Summary:   model.Summary{TotalPlots: 1, EncroachedPlots: 1},
		UpdatedAt: time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC),
	}
}

func areaDocJSON(t *testing.T, area *model.Area) (sat, plotMap, plots, summary []byte) {
	t.Helper()
	var err error
	sat, err = json.Marshal(area.SatelliteImage)
	require.NoError(t, err)
	plotMap, err = json.Marshal(area.PlotMapImage)
	require.NoError(t, err)
	plots, err = json.Marshal(area.Plots)
	require.NoError(t, err)
	summary, err = json.Marshal(area.Summary)
	require.NoError(t, err)
	return sat, plotMap, plots, summary
}

func TestPostgresStore_UpsertArea(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	area := sampleArea()
	sat, plotMap, plots, summary := areaDocJSON(t, area)

	mock.ExpectExec(`INSERT INTO areas .*ON CONFLICT \(area_id\) DO UPDATE`).
		WithArgs(area.AreaID, area.AreaName, sat, plotMap, plots, summary, area.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertArea(context.Background(), area))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertArea_WrapsPersistence(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	area := sampleArea()

	mock.ExpectExec(`INSERT INTO areas`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	err := s.UpsertArea(context.Background(), area)
	require.ErrorIs(t, err, model.ErrPersistence)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetArea(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	area := sampleArea()
	sat, plotMap, plots, summary := areaDocJSON(t, area)

	mock.ExpectQuery(`SELECT area_id, area_name, satellite_image, plot_map_image, plots, summary, updated_at`).
		WithArgs("AREA_1").
		WillReturnRows(pgxmock.NewRows([]string{
			"area_id", "area_name", "satellite_image", "plot_map_image", "plots", "summary", "updated_at",
		}).AddRow(area.AreaID, area.AreaName, sat, plotMap, plots, summary, area.UpdatedAt))

	got, err := s.GetArea(context.Background(), "AREA_1")
	require.NoError(t, err)
	assert.Equal(t, area.AreaID, got.AreaID)
	assert.Equal(t, area.SatelliteImage, got.SatelliteImage)
	require.Len(t, got.Plots, 1)
	assert.Equal(t, model.StatusEncroached, got.Plots[0].Compliance.Status)
	assert.Equal(t, 1, got.Summary.EncroachedPlots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetArea_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT area_id, area_name`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetArea(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteArea(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM areas WHERE area_id = \$1`).
		WithArgs("AREA_1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.DeleteArea(context.Background(), "AREA_1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteArea_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM areas`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := s.DeleteArea(context.Background(), "missing")
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAreas(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	area := sampleArea()
	sat, _, _, summary := areaDocJSON(t, area)

	mock.ExpectQuery(`SELECT count\(\*\) FROM areas`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(11))

	mock.ExpectQuery(`SELECT area_id, area_name, satellite_image, summary, updated_at FROM areas ORDER BY updated_at DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"area_id", "area_name", "satellite_image", "summary", "updated_at",
		}).AddRow(area.AreaID, area.AreaName, sat, summary, area.UpdatedAt))

	page, err := s.ListAreas(context.Background(), AreaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 11, page.Total)
	assert.Equal(t, 2, page.Pages)
	require.Len(t, page.Areas, 1)
	assert.Equal(t, "AREA_1", page.Areas[0].AreaID)
	assert.Empty(t, page.Areas[0].Plots, "listing carries no plot payload")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAreas_EncroachedFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM areas WHERE EXISTS .*ENCROACHED`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT area_id, .* FROM areas WHERE EXISTS .*ENCROACHED.* ORDER BY updated_at DESC`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"area_id", "area_name", "satellite_image", "summary", "updated_at",
		}))

	page, err := s.ListAreas(context.Background(), AreaFilter{Encroached: true})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, page.Areas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Stats(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT\s+count\(\*\),\s+count\(\*\) FILTER`).
		WillReturnRows(pgxmock.NewRows([]string{"total", "encroached", "review"}).AddRow(7, 2, 1))

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalAreas)
	assert.Equal(t, 2, stats.EncroachedAreas)
	assert.Equal(t, 1, stats.ManualReviewAreas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT 1`).
		WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS areas`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
