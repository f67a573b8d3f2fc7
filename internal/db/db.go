package db

import (
	"database/sql"
	"fmt"

	"github.com/Guillaume6606/sales-market-discovery/internal/logger"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection. It is the single persistence
// surface of the engine; the engine.Store interface is implemented here.
type DB struct {
	sql *sql.DB
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Try to read current version
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS product (
				product_id   TEXT PRIMARY KEY,
				name         TEXT NOT NULL,
				search_query TEXT NOT NULL DEFAULT '',
				brand        TEXT NOT NULL DEFAULT '',
				is_active    INTEGER NOT NULL DEFAULT 1,
				created_at   TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS listing_observation (
				obs_id        INTEGER PRIMARY KEY AUTOINCREMENT,
				product_id    TEXT NOT NULL REFERENCES product(product_id),
				source        TEXT NOT NULL,
				listing_id    TEXT NOT NULL,
				title         TEXT NOT NULL DEFAULT '',
				price         REAL NOT NULL,
				currency      TEXT NOT NULL DEFAULT 'EUR',
				condition     TEXT NOT NULL DEFAULT '',
				is_sold       INTEGER NOT NULL DEFAULT 0,
				seller_rating REAL NOT NULL DEFAULT 0,
				shipping_cost REAL NOT NULL DEFAULT 0,
				observed_at   TEXT NOT NULL,
				url           TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS idx_obs_product_time ON listing_observation(product_id, observed_at);

			CREATE TABLE IF NOT EXISTS product_daily_metrics (
				product_id      TEXT NOT NULL REFERENCES product(product_id),
				date            TEXT NOT NULL,
				sold_count_7d   INTEGER NOT NULL DEFAULT 0,
				sold_count_30d  INTEGER NOT NULL DEFAULT 0,
				price_median    REAL NOT NULL DEFAULT 0,
				price_std       REAL NOT NULL DEFAULT 0,
				price_p25       REAL NOT NULL DEFAULT 0,
				price_p75       REAL NOT NULL DEFAULT 0,
				liquidity_score REAL NOT NULL DEFAULT 0,
				trend_score     REAL NOT NULL DEFAULT 0,
				PRIMARY KEY (product_id, date)
			);

			CREATE TABLE IF NOT EXISTS market_price_normal (
				product_id       TEXT PRIMARY KEY REFERENCES product(product_id),
				pmn              REAL NOT NULL,
				pmn_low          REAL NOT NULL,
				pmn_high         REAL NOT NULL,
				last_computed_at TEXT NOT NULL,
				methodology      TEXT NOT NULL DEFAULT '{}'
			);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB for use by other packages.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
