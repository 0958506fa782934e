// Package enrich drives the ZIP geolocation enrichment pipeline: discover
// rows missing a geolocation, resolve their ZIP codes through cache and
// lookup, and write PostGIS points back.
package enrich

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rayparkerhenry/intertalent/internal/db"
	"github.com/rayparkerhenry/intertalent/internal/zipcache"
)

// Gateway is the boundary to the relational store. All schema operations are
// idempotent and coordinate writes touch only rows whose geolocation is
// still unset, so a run is always safe to repeat.
type Gateway interface {
	// EnsureGeolocationColumn adds the geography(Point, 4326) column if absent.
	EnsureGeolocationColumn(ctx context.Context) error

	// EnsureSpatialIndex creates a GIST index over the column if absent.
	EnsureSpatialIndex(ctx context.Context) error

	// CandidateZips returns the distinct ZIP codes of rows that have a
	// non-empty ZIP code and no geolocation yet.
	CandidateZips(ctx context.Context) ([]string, error)

	// Begin opens the transaction that scopes all coordinate writes of a run.
	Begin(ctx context.Context) error

	// ApplyCoordinate sets the geolocation on every row with the given ZIP
	// that lacks one, returning the number of rows changed.
	ApplyCoordinate(ctx context.Context, zip string, coord zipcache.Coordinate) (int64, error)

	// Commit durably persists all applied updates.
	Commit(ctx context.Context) error

	// Close rolls back any transaction left open by a failed run.
	Close(ctx context.Context)
}

// PostgresGateway implements Gateway against a Postgres table with a
// zip_code column and a nullable geolocation geography column.
type PostgresGateway struct {
	pool  db.Pool
	table string
	tx    pgx.Tx
}

// NewPostgresGateway creates a gateway for the given table. The table name
// comes from configuration and is identifier-quoted in every statement.
func NewPostgresGateway(pool db.Pool, table string) *PostgresGateway {
	return &PostgresGateway{pool: pool, table: table}
}

// querier is satisfied by both db.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// q returns the open transaction when one is active, the pool otherwise.
func (g *PostgresGateway) q() querier {
	if g.tx != nil {
		return g.tx
	}
	return g.pool
}

func (g *PostgresGateway) ident() string {
	return pgx.Identifier{g.table}.Sanitize()
}

func (g *PostgresGateway) EnsureGeolocationColumn(ctx context.Context) error {
	sql := fmt.Sprintf(
		"ALTER TABLE %s ADD COLUMN IF NOT EXISTS geolocation geography(Point, 4326)",
		g.ident(),
	)
	if _, err := g.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "enrich: ensure geolocation column on %s", g.table)
	}
	return nil
}

func (g *PostgresGateway) EnsureSpatialIndex(ctx context.Context) error {
	indexName := pgx.Identifier{fmt.Sprintf("idx_%s_geolocation", g.table)}.Sanitize()
	sql := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s USING GIST (geolocation)",
		indexName, g.ident(),
	)
	if _, err := g.pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "enrich: ensure spatial index on %s", g.table)
	}
	return nil
}

func (g *PostgresGateway) CandidateZips(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT zip_code
		FROM %s
		WHERE zip_code IS NOT NULL
		  AND zip_code <> ''
		  AND geolocation IS NULL`,
		g.ident(),
	)

	rows, err := g.pool.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: query candidates from %s", g.table)
	}
	defer rows.Close()

	var zips []string
	for rows.Next() {
		var zip string
		if err := rows.Scan(&zip); err != nil {
			return nil, eris.Wrap(err, "enrich: scan candidate row")
		}
		zips = append(zips, zip)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "enrich: iterate candidate rows")
	}
	return zips, nil
}

func (g *PostgresGateway) Begin(ctx context.Context) error {
	if g.tx != nil {
		return eris.New("enrich: transaction already open")
	}
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "enrich: begin tx")
	}
	g.tx = tx
	return nil
}

func (g *PostgresGateway) ApplyCoordinate(ctx context.Context, zip string, coord zipcache.Coordinate) (int64, error) {
	// ST_MakePoint takes (lon, lat). Only rows still NULL are touched, so
	// re-running with the same inputs changes nothing.
	sql := fmt.Sprintf(`
		UPDATE %s
		SET geolocation = ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography
		WHERE zip_code = $3 AND geolocation IS NULL`,
		g.ident(),
	)

	tag, err := g.q().Exec(ctx, sql, coord.Lng, coord.Lat, zip)
	if err != nil {
		return 0, eris.Wrapf(err, "enrich: apply coordinate for zip %s", zip)
	}
	return tag.RowsAffected(), nil
}

func (g *PostgresGateway) Commit(ctx context.Context) error {
	if g.tx == nil {
		return nil
	}
	err := g.tx.Commit(ctx)
	g.tx = nil
	if err != nil {
		return eris.Wrap(err, "enrich: commit")
	}
	return nil
}

func (g *PostgresGateway) Close(ctx context.Context) {
	if g.tx == nil {
		return
	}
	if err := g.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		zap.L().Warn("enrich: rollback", zap.Error(err))
	}
	g.tx = nil
}

// PendingCount returns the number of rows with a ZIP code and no geolocation.
func (g *PostgresGateway) PendingCount(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf(`
		SELECT count(*)
		FROM %s
		WHERE zip_code IS NOT NULL
		  AND zip_code <> ''
		  AND geolocation IS NULL`,
		g.ident(),
	)

	var n int64
	if err := g.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "enrich: count pending on %s", g.table)
	}
	return n, nil
}

// EnrichedCount returns the number of rows that already have a geolocation.
func (g *PostgresGateway) EnrichedCount(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf(
		"SELECT count(*) FROM %s WHERE geolocation IS NOT NULL",
		g.ident(),
	)

	var n int64
	if err := g.pool.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, eris.Wrapf(err, "enrich: count enriched on %s", g.table)
	}
	return n, nil
}

var _ Gateway = (*PostgresGateway)(nil)
