package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/repairhub/pricing-engine/internal/db"
	"github.com/repairhub/pricing-engine/internal/model"
)

// PostgresStore implements Store using pgxpool. Provider locations are
// PostGIS geography points.
type PostgresStore struct {
	sqlReader
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

type pgxQuerier struct {
	pool db.Pool
}

func (q pgxQuerier) query(ctx context.Context, sql string, args ...any) (rows, error) {
	return q.pool.Query(ctx, sql, args...)
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{
		sqlReader: sqlReader{q: pgxQuerier{pool: pool}, d: postgresDialect},
		pool:      pool,
		closeFn:   closeFn,
	}
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

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS platform_series (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL,
	brand       TEXT NOT NULL,
	device_type TEXT NOT NULL,
	models      JSONB NOT NULL DEFAULT '[]',
	base_prices JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS providers (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name                 TEXT NOT NULL,
	rating               DOUBLE PRECISION NOT NULL DEFAULT 0,
	years_experience     INTEGER NOT NULL DEFAULT 0,
	approved             BOOLEAN NOT NULL DEFAULT false,
	verified             BOOLEAN NOT NULL DEFAULT false,
	onboarding_completed BOOLEAN NOT NULL DEFAULT false,
	location             geography(Point, 4326),
	availability         JSONB NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS custom_series (
	id                        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider_id               TEXT NOT NULL REFERENCES providers(id),
	name                      TEXT NOT NULL,
	device_type               TEXT NOT NULL,
	brand                     TEXT NOT NULL DEFAULT '',
	models                    JSONB NOT NULL DEFAULT '[]',
	description               TEXT,
	source_platform_series_id TEXT REFERENCES platform_series(id)
);

CREATE TABLE IF NOT EXISTS offered_services (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider_id      TEXT NOT NULL REFERENCES providers(id),
	device_type      TEXT NOT NULL,
	brand            TEXT NOT NULL,
	series_id        TEXT,
	custom_series_id TEXT REFERENCES custom_series(id),
	model            TEXT,
	issue            TEXT NOT NULL,
	part_type        TEXT,
	price            NUMERIC(12, 2) NOT NULL,
	warranty         TEXT
);

CREATE TABLE IF NOT EXISTS tier_prices (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	device_type TEXT NOT NULL,
	brand       TEXT NOT NULL,
	issue       TEXT NOT NULL,
	basic       NUMERIC(12, 2) NOT NULL DEFAULT 0,
	standard    NUMERIC(12, 2) NOT NULL DEFAULT 0,
	premium     NUMERIC(12, 2) NOT NULL DEFAULT 0,
	UNIQUE (provider_id, device_type, brand, issue)
);

CREATE INDEX IF NOT EXISTS idx_platform_series_brand ON platform_series(lower(brand), device_type);
CREATE INDEX IF NOT EXISTS idx_custom_series_provider ON custom_series(provider_id, device_type);
CREATE INDEX IF NOT EXISTS idx_custom_series_source ON custom_series(source_platform_series_id);
CREATE INDEX IF NOT EXISTS idx_offered_services_lookup ON offered_services(device_type, lower(brand), lower(trim(issue)));
CREATE INDEX IF NOT EXISTS idx_offered_services_provider ON offered_services(provider_id);
CREATE INDEX IF NOT EXISTS idx_tier_prices_lookup ON tier_prices(device_type, lower(brand), lower(trim(issue)));
CREATE INDEX IF NOT EXISTS idx_providers_location ON providers USING GIST(location);
`

// Migrate creates the catalog schema.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

var tierPriceUpsert = db.UpsertConfig{
	Table:        "tier_prices",
	Columns:      []string{"id", "provider_id", "device_type", "brand", "issue", "basic", "standard", "premium"},
	ConflictKeys: []string{"provider_id", "device_type", "brand", "issue"},
	UpdateCols:   []string{"basic", "standard", "premium"},
}

// UpsertTierPrices writes tier rows keyed by (provider, device type,
// brand, issue). Rows without an ID get a fresh one.
func (s *PostgresStore) UpsertTierPrices(ctx context.Context, rows []model.TierPriceRow) (int64, error) {
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		data = append(data, []any{
			id, r.ProviderID, string(r.DeviceType), r.Brand, r.Issue,
			r.Basic.String(), r.Standard.String(), r.Premium.String(),
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, tierPriceUpsert, data)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: upsert tier prices")
	}
	return n, nil
}
