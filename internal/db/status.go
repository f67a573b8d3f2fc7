package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
)

// StatusCounts gathers the aggregates behind the orchestration status
// summary in one pass: active products, price-normal coverage, metrics rows
// for the given date, mean liquidity across scored products, and the most
// recent computation timestamp.
func (d *DB) StatusCounts(ctx context.Context, date string) (engine.StatusCounts, error) {
	var c engine.StatusCounts

	err := d.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM product WHERE is_active=1").Scan(&c.ActiveProducts)
	if err != nil {
		return c, fmt.Errorf("count active products: %w", err)
	}

	err = d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM market_price_normal n
		JOIN product p ON p.product_id = n.product_id
		WHERE p.is_active=1`).Scan(&c.ProductsWithPMN)
	if err != nil {
		return c, fmt.Errorf("count price normals: %w", err)
	}

	var mean sql.NullFloat64
	err = d.sql.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(liquidity_score)
		FROM product_daily_metrics WHERE date=?`, date).Scan(&c.ProductsWithMetric, &mean)
	if err != nil {
		return c, fmt.Errorf("count daily metrics: %w", err)
	}
	if mean.Valid {
		c.MeanLiquidity = mean.Float64
	}

	var last sql.NullString
	err = d.sql.QueryRowContext(ctx,
		"SELECT MAX(last_computed_at) FROM market_price_normal").Scan(&last)
	if err != nil {
		return c, fmt.Errorf("last computed at: %w", err)
	}
	if last.Valid && last.String != "" {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			c.LastComputedAt = &t
		}
	}
	return c, nil
}
