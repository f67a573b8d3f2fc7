package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
)

// UpsertPMN overwrites the product's current price-normal row. The
// methodology descriptor is stored as JSON alongside the estimate.
func (d *DB) UpsertPMN(ctx context.Context, rec engine.PMNRecord) error {
	methodology, err := json.Marshal(rec.Methodology)
	if err != nil {
		return fmt.Errorf("marshal methodology: %w", err)
	}
	_, err = d.sql.ExecContext(ctx, `
		INSERT INTO market_price_normal
			(product_id, pmn, pmn_low, pmn_high, last_computed_at, methodology)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(product_id) DO UPDATE SET
			pmn=excluded.pmn,
			pmn_low=excluded.pmn_low,
			pmn_high=excluded.pmn_high,
			last_computed_at=excluded.last_computed_at,
			methodology=excluded.methodology`,
		rec.ProductID, rec.PMN, rec.PMNLow, rec.PMNHigh,
		rec.LastComputedAt.UTC().Format(time.RFC3339), string(methodology))
	if err != nil {
		return fmt.Errorf("upsert price normal: %w", err)
	}
	return nil
}

// GetPMN returns the product's current price normal, or nil when none exists.
func (d *DB) GetPMN(ctx context.Context, productID string) (*engine.PMNRecord, error) {
	var rec engine.PMNRecord
	var computed, methodology string
	err := d.sql.QueryRowContext(ctx, `
		SELECT product_id, pmn, pmn_low, pmn_high, last_computed_at, methodology
		FROM market_price_normal WHERE product_id=?`,
		productID).Scan(&rec.ProductID, &rec.PMN, &rec.PMNLow, &rec.PMNHigh, &computed, &methodology)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get price normal: %w", err)
	}
	rec.LastComputedAt, _ = time.Parse(time.RFC3339, computed)
	json.Unmarshal([]byte(methodology), &rec.Methodology)
	return &rec, nil
}
