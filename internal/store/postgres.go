package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/landgrid/geoaudit/internal/db"
	"github.com/landgrid/geoaudit/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot store operations.
var preparedStatements = map[string]string{
	"upsert_area": `INSERT INTO areas (area_id, area_name, satellite_image, plot_map_image, plots, summary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (area_id) DO UPDATE SET
			area_name = EXCLUDED.area_name,
			satellite_image = EXCLUDED.satellite_image,
			plot_map_image = EXCLUDED.plot_map_image,
			plots = EXCLUDED.plots,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at`,
	"get_area": `SELECT area_id, area_name, satellite_image, plot_map_image, plots, summary, updated_at
		FROM areas WHERE area_id = $1`,
	"delete_area": `DELETE FROM areas WHERE area_id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, primarily for tests.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS areas (
	area_id         TEXT PRIMARY KEY,
	area_name       TEXT NOT NULL DEFAULT '',
	satellite_image JSONB NOT NULL DEFAULT '{}',
	plot_map_image  JSONB NOT NULL DEFAULT '{}',
	plots           JSONB NOT NULL DEFAULT '[]',
	summary         JSONB NOT NULL DEFAULT '{}',
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_areas_updated_at ON areas(updated_at DESC);
`

// Filter fragments over the plots document. Kept as EXISTS subqueries so the
// same conditions serve listing and counting.
const (
	pgEncroachedCond = `EXISTS (SELECT 1 FROM jsonb_array_elements(plots) AS p
		WHERE p->'compliance'->>'status' = 'ENCROACHED')`
	pgManualReviewCond = `EXISTS (SELECT 1 FROM jsonb_array_elements(plots) AS p
		WHERE (p->'compliance'->>'requires_manual_review')::boolean)`
)

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertArea(ctx context.Context, area *model.Area) error {
	satJSON, err := json.Marshal(area.SatelliteImage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal satellite image")
	}
	mapJSON, err := json.Marshal(area.PlotMapImage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plot map image")
	}
	plotsJSON, err := json.Marshal(area.Plots)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal plots")
	}
	summaryJSON, err := json.Marshal(area.Summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	_, err = s.pool.Exec(ctx, preparedStatements["upsert_area"],
		area.AreaID, area.AreaName, satJSON, mapJSON, plotsJSON, summaryJSON, area.UpdatedAt,
	)
	if err != nil {
		return eris.Wrapf(model.ErrPersistence, "postgres: upsert area %s: %v", area.AreaID, err)
	}
	return nil
}

func (s *PostgresStore) GetArea(ctx context.Context, areaID string) (*model.Area, error) {
	row := s.pool.QueryRow(ctx, preparedStatements["get_area"], areaID)

	var (
		area        model.Area
		satJSON     []byte
		mapJSON     []byte
		plotsJSON   []byte
		summaryJSON []byte
	)
	err := row.Scan(&area.AreaID, &area.AreaName, &satJSON, &mapJSON, &plotsJSON, &summaryJSON, &area.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "area %s", areaID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get area %s", areaID)
	}

	if err := unmarshalAreaDoc(&area, satJSON, mapJSON, plotsJSON, summaryJSON); err != nil {
		return nil, err
	}
	return &area, nil
}

func (s *PostgresStore) DeleteArea(ctx context.Context, areaID string) error {
	tag, err := s.pool.Exec(ctx, preparedStatements["delete_area"], areaID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete area %s", areaID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(model.ErrNotFound, "area %s", areaID)
	}
	return nil
}

func (s *PostgresStore) ListAreas(ctx context.Context, filter AreaFilter) (*AreaPage, error) {
	filter = filter.Normalize()

	where := pgConditions(filter)
	countQuery := "SELECT count(*) FROM areas" + where
	listQuery := `SELECT area_id, area_name, satellite_image, summary, updated_at FROM areas` +
		where + ` ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	var total int
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, eris.Wrap(err, "postgres: count areas")
	}

	rows, err := s.pool.Query(ctx, listQuery, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list areas")
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
			return nil, eris.Wrap(err, "postgres: scan area row")
		}
		if err := json.Unmarshal(satJSON, &area.SatelliteImage); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal satellite image")
		}
		if err := json.Unmarshal(summaryJSON, &area.Summary); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal summary")
		}
		page.Areas = append(page.Areas, area)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate area rows")
	}
	return page, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*DashboardStats, error) {
	query := `SELECT
		count(*),
		count(*) FILTER (WHERE ` + pgEncroachedCond + `),
		count(*) FILTER (WHERE ` + pgManualReviewCond + `)
	FROM areas`

	var stats DashboardStats
	err := s.pool.QueryRow(ctx, query).Scan(&stats.TotalAreas, &stats.EncroachedAreas, &stats.ManualReviewAreas)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dashboard stats")
	}
	return &stats, nil
}

// pgConditions assembles the WHERE clause for a filter.
func pgConditions(filter AreaFilter) string {
	var conds []string
	if filter.Encroached {
		conds = append(conds, pgEncroachedCond)
	}
	if filter.ManualReview {
		conds = append(conds, pgManualReviewCond)
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// unmarshalAreaDoc decodes the JSONB columns into the area.
func unmarshalAreaDoc(area *model.Area, satJSON, mapJSON, plotsJSON, summaryJSON []byte) error {
	if err := json.Unmarshal(satJSON, &area.SatelliteImage); err != nil {
		return eris.Wrap(err, "store: unmarshal satellite image")
	}
	if err := json.Unmarshal(mapJSON, &area.PlotMapImage); err != nil {
		return eris.Wrap(err, "store: unmarshal plot map image")
	}
	if err := json.Unmarshal(plotsJSON, &area.Plots); err != nil {
		return eris.Wrap(err, "store: unmarshal plots")
	}
	if err := json.Unmarshal(summaryJSON, &area.Summary); err != nil {
		return eris.Wrap(err, "store: unmarshal summary")
	}
	return nil
}
