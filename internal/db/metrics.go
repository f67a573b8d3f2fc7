package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
)

// UpsertDailyMetrics writes the single (product, date) summary row,
// overwriting any prior row for the same key. Recomputing an unchanged day
// is idempotent by construction.
func (d *DB) UpsertDailyMetrics(ctx context.Context, m engine.DailyMetrics) error {
	_, err := d.sql.ExecContext(ctx, `
		INSERT INTO product_daily_metrics
			(product_id, date, sold_count_7d, sold_count_30d, price_median,
			 price_std, price_p25, price_p75, liquidity_score, trend_score)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(product_id, date) DO UPDATE SET
			sold_count_7d=excluded.sold_count_7d,
			sold_count_30d=excluded.sold_count_30d,
			price_median=excluded.price_median,
			price_std=excluded.price_std,
			price_p25=excluded.price_p25,
			price_p75=excluded.price_p75,
			liquidity_score=excluded.liquidity_score,
			trend_score=excluded.trend_score`,
		m.ProductID, m.Date, m.SoldCount7d, m.SoldCount30d, m.PriceMedian,
		m.PriceStd, m.PriceP25, m.PriceP75, m.LiquidityScore, m.TrendScore)
	if err != nil {
		return fmt.Errorf("upsert daily metrics: %w", err)
	}
	return nil
}

// GetDailyMetrics returns the row for (product, date), or nil when absent.
func (d *DB) GetDailyMetrics(ctx context.Context, productID, date string) (*engine.DailyMetrics, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT product_id, date, sold_count_7d, sold_count_30d, price_median,
		       price_std, price_p25, price_p75, liquidity_score, trend_score
		FROM product_daily_metrics WHERE product_id=? AND date=?`,
		productID, date)
	return scanDailyMetrics(row)
}

// LatestDailyMetrics returns the most recent summary row for a product,
// or nil when none has been computed yet.
func (d *DB) LatestDailyMetrics(ctx context.Context, productID string) (*engine.DailyMetrics, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT product_id, date, sold_count_7d, sold_count_30d, price_median,
		       price_std, price_p25, price_p75, liquidity_score, trend_score
		FROM product_daily_metrics WHERE product_id=?
		ORDER BY date DESC LIMIT 1`,
		productID)
	return scanDailyMetrics(row)
}

func scanDailyMetrics(row *sql.Row) (*engine.DailyMetrics, error) {
	var m engine.DailyMetrics
	err := row.Scan(&m.ProductID, &m.Date, &m.SoldCount7d, &m.SoldCount30d,
		&m.PriceMedian, &m.PriceStd, &m.PriceP25, &m.PriceP75,
		&m.LiquidityScore, &m.TrendScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan daily metrics: %w", err)
	}
	return &m, nil
}
