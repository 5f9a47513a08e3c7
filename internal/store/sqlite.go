package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/landgrid/geoaudit/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Used for local and
// single-node deployments; the schema mirrors the Postgres document layout
// with JSON stored as TEXT.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS areas (
	area_id         TEXT PRIMARY KEY,
	area_name       TEXT NOT NULL DEFAULT '',
	satellite_image TEXT NOT NULL DEFAULT '{}',
	plot_map_image  TEXT NOT NULL DEFAULT '{}',
	plots           TEXT NOT NULL DEFAULT '[]',
	summary         TEXT NOT NULL DEFAULT '{}',
	updated_at      DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_areas_updated_at ON areas(updated_at DESC);
`

const (
	sqliteEncroachedCond = `EXISTS (SELECT 1 FROM json_each(areas.plots)
		WHERE json_extract(json_each.value, '$.compliance.status') = 'ENCROACHED')`
	sqliteManualReviewCond = `EXISTS (SELECT 1 FROM json_each(areas.plots)
		WHERE json_extract(json_each.value, '$.compliance.requires_manual_review') = 1)`
)

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertArea(ctx context.Context, area *model.Area) error {
	satJSON, err := json.Marshal(area.SatelliteImage)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal satellite image")
	}
	mapJSON, err := json.Marshal(area.PlotMapImage)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal plot map image")
	}
	plotsJSON, err := json.Marshal(area.Plots)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal plots")
	}
	summaryJSON, err := json.Marshal(area.Summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO areas (area_id, area_name, satellite_image, plot_map_image, plots, summary, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (area_id) DO UPDATE SET
			area_name = excluded.area_name,
			satellite_image = excluded.satellite_image,
			plot_map_image = excluded.plot_map_image,
			plots = excluded.plots,
			summary = excluded.summary,
			updated_at = excluded.updated_at`,
		area.AreaID, area.AreaName, string(satJSON), string(mapJSON),
		string(plotsJSON), string(summaryJSON), area.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(model.ErrPersistence, "sqlite: upsert area %s: %v", area.AreaID, err)
	}
	return nil
}

func (s *SQLiteStore) GetArea(ctx context.Context, areaID string) (*model.Area, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT area_id, area_name, satellite_image, plot_map_image, plots, summary, updated_at
		FROM areas WHERE area_id = ?`,
		areaID,
	)

	var (
		area        model.Area
		satJSON     []byte
		mapJSON     []byte
		plotsJSON   []byte
		summaryJSON []byte
	)
	err := row.Scan(&area.AreaID, &area.AreaName, &satJSON, &mapJSON, &plotsJSON, &summaryJSON, &area.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "area %s", areaID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get area %s", areaID)
	}

	if err := unmarshalAreaDoc(&area, satJSON, mapJSON, plotsJSON, summaryJSON); err != nil {
		return nil, err
	}
	return &area, nil
}

func (s *SQLiteStore) DeleteArea(ctx context.Context, areaID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM areas WHERE area_id = ?`, areaID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete area %s", areaID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(model.ErrNotFound, "area %s", areaID)
	}
	return nil
}

func (s *SQLiteStore) ListAreas(ctx context.Context, filter AreaFilter) (*AreaPage, error) {
	filter = filter.Normalize()
	where := sqliteConditions(filter)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM areas"+where).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "sqlite: count areas")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT area_id, area_name, satellite_image, summary, updated_at FROM areas`+
			where+` ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		filter.Limit, (filter.Page-1)*filter.Limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list areas")
	}
	defer rows.Close()

	page := &AreaPage{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
		Pages: (total + filter.Limit - 1) / filter.Limit,
	}
	for rows.Next() {
		var (
			area        model.Area
			satJSON     []byte
			summaryJSON []byte
		)
		if err := rows.Scan(&area.AreaID, &area.AreaName, &satJSON, &summaryJSON, &area.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan area row")
		}
		if err := json.Unmarshal(satJSON, &area.SatelliteImage); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal satellite image")
		}
		if err := json.Unmarshal(summaryJSON, &area.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
		page.Areas = append(page.Areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate area rows")
	}
	return page, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*DashboardStats, error) {
	query := `SELECT
		count(*),
		coalesce(sum(CASE WHEN ` + sqliteEncroachedCond + ` THEN 1 ELSE 0 END), 0),
		coalesce(sum(CASE WHEN ` + sqliteManualReviewCond + ` THEN 1 ELSE 0 END), 0)
	FROM areas`

	var stats DashboardStats
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.TotalAreas, &stats.EncroachedAreas, &stats.ManualReviewAreas)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dashboard stats")
	}
	return &stats, nil
}

func sqliteConditions(filter AreaFilter) string {
	var conds []string
	if filter.Encroached {
		conds = append(conds, sqliteEncroachedCond)
	}
	if filter.ManualReview {
		conds = append(conds, sqliteManualReviewCond)
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
