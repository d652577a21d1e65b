package catalog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/repairhub/pricing-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Prices are kept
// as text and locations as EWKB blobs.
type SQLiteStore struct {
	sqlReader
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{
		sqlReader: sqlReader{q: sqlQuerier{db: db}, d: sqliteDialect},
		db:        db,
	}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS platform_series (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	brand       TEXT NOT NULL,
	device_type TEXT NOT NULL,
	models      TEXT NOT NULL DEFAULT '[]',
	base_prices TEXT NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS providers (
	id                   TEXT PRIMARY KEY,
	name                 TEXT NOT NULL,
	rating               REAL NOT NULL DEFAULT 0,
	years_experience     INTEGER NOT NULL DEFAULT 0,
	approved             BOOLEAN NOT NULL DEFAULT 0,
	verified             BOOLEAN NOT NULL DEFAULT 0,
	onboarding_completed BOOLEAN NOT NULL DEFAULT 0,
	location             BLOB,
	availability         TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS custom_series (
	id                        TEXT PRIMARY KEY,
	provider_id               TEXT NOT NULL REFERENCES providers(id),
	name                      TEXT NOT NULL,
	device_type               TEXT NOT NULL,
	brand                     TEXT NOT NULL DEFAULT '',
	models                    TEXT NOT NULL DEFAULT '[]',
	description               TEXT,
	source_platform_series_id TEXT REFERENCES platform_series(id)
);

CREATE TABLE IF NOT EXISTS offered_services (
	id               TEXT PRIMARY KEY,
	provider_id      TEXT NOT NULL REFERENCES providers(id),
	device_type      TEXT NOT NULL,
	brand            TEXT NOT NULL,
	series_id        TEXT,
	custom_series_id TEXT REFERENCES custom_series(id),
	model            TEXT,
	issue            TEXT NOT NULL,
	part_type        TEXT,
	price            TEXT NOT NULL,
	warranty         TEXT
);

CREATE TABLE IF NOT EXISTS tier_prices (
	id          TEXT PRIMARY KEY,
	provider_id TEXT NOT NULL REFERENCES providers(id),
	device_type TEXT NOT NULL,
	brand       TEXT NOT NULL,
	issue       TEXT NOT NULL,
	basic       TEXT NOT NULL DEFAULT '0',
	standard    TEXT NOT NULL DEFAULT '0',
	premium     TEXT NOT NULL DEFAULT '0',
	UNIQUE (provider_id, device_type, brand, issue)
);

CREATE INDEX IF NOT EXISTS idx_custom_series_provider ON custom_series(provider_id, device_type);
CREATE INDEX IF NOT EXISTS idx_offered_services_provider ON offered_services(provider_id);
CREATE INDEX IF NOT EXISTS idx_offered_services_lookup ON offered_services(device_type, brand);
CREATE INDEX IF NOT EXISTS idx_tier_prices_lookup ON tier_prices(device_type, brand);
`

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

const sqliteTierUpsert = `
INSERT INTO tier_prices (id, provider_id, device_type, brand, issue, basic, standard, premium)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (provider_id, device_type, brand, issue) DO UPDATE SET
	basic = excluded.basic,
	standard = excluded.standard,
	premium = excluded.premium`

// UpsertTierPrices writes all rows in one transaction.
func (s *SQLiteStore) UpsertTierPrices(ctx context.Context, rows []model.TierPriceRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteTierUpsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare tier upsert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for _, r := range rows {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx, id, r.ProviderID, string(r.DeviceType), r.Brand, r.Issue,
			r.Basic.String(), r.Standard.String(), r.Premium.String())
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert tier price %s/%s", r.ProviderID, r.Issue)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return n, nil
}
