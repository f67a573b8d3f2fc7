package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
)

// InsertObservation appends one immutable listing snapshot and returns its id.
// Observations are never updated or merged; recomputation reads them fresh.
func (d *DB) InsertObservation(ctx context.Context, o engine.Observation) (int64, error) {
	res, err := d.sql.ExecContext(ctx, `
		INSERT INTO listing_observation
			(product_id, source, listing_id, title, price, currency, condition,
			 is_sold, seller_rating, shipping_cost, observed_at, url)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		o.ProductID, o.Source, o.ListingID, o.Title, o.Price, o.Currency, o.Condition,
		boolToInt(o.IsSold), o.SellerRating, o.ShippingCost,
		o.ObservedAt.UTC().Format(time.RFC3339), o.URL)
	if err != nil {
		return 0, fmt.Errorf("insert observation: %w", err)
	}
	return res.LastInsertId()
}

// GetObservation returns one observation by id, or nil when absent.
func (d *DB) GetObservation(ctx context.Context, obsID int64) (*engine.Observation, error) {
	row := d.sql.QueryRowContext(ctx, `
		SELECT obs_id, product_id, source, listing_id, title, price, currency,
		       condition, is_sold, seller_rating, shipping_cost, observed_at, url
		FROM listing_observation WHERE obs_id=?`, obsID)
	o, err := scanObservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// ObservationsSince returns a product's observations observed at or after since,
// oldest first.
func (d *DB) ObservationsSince(ctx context.Context, productID string, since time.Time) ([]engine.Observation, error) {
	rows, err := d.sql.QueryContext(ctx, `
		SELECT obs_id, product_id, source, listing_id, title, price, currency,
		       condition, is_sold, seller_rating, shipping_cost, observed_at, url
		FROM listing_observation
		WHERE product_id=? AND observed_at>=?
		ORDER BY observed_at`,
		productID, since.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var obs []engine.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			continue
		}
		obs = append(obs, o)
	}
	return obs, rows.Err()
}

// LatestObservationAt returns the newest observation timestamp for a product.
// The second return is false when the product has no observations.
func (d *DB) LatestObservationAt(ctx context.Context, productID string) (time.Time, bool, error) {
	var ts sql.NullString
	err := d.sql.QueryRowContext(ctx,
		"SELECT MAX(observed_at) FROM listing_observation WHERE product_id=?",
		productID).Scan(&ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("latest observation: %w", err)
	}
	if !ts.Valid || ts.String == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, ts.String)
	if err != nil {
		return time.Time{}, false, nil
	}
	return t, true, nil
}

func scanObservation(r rowScanner) (engine.Observation, error) {
	var o engine.Observation
	var sold int
	var observed string
	if err := r.Scan(&o.ObsID, &o.ProductID, &o.Source, &o.ListingID, &o.Title,
		&o.Price, &o.Currency, &o.Condition, &sold, &o.SellerRating,
		&o.ShippingCost, &observed, &o.URL); err != nil {
		return engine.Observation{}, err
	}
	o.IsSold = sold != 0
	o.ObservedAt, _ = time.Parse(time.RFC3339, observed)
	return o, nil
}
