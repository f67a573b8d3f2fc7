package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Guillaume6606/sales-market-discovery/internal/engine"
)

// CreateProduct inserts a new active product and returns it.
func (d *DB) CreateProduct(ctx context.Context, name, searchQuery, brand string) (engine.Product, error) {
	p := engine.Product{
		ProductID:   uuid.NewString(),
		Name:        name,
		SearchQuery: searchQuery,
		Brand:       brand,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO product (product_id, name, search_query, brand, is_active, created_at) VALUES (?,?,?,?,1,?)",
		p.ProductID, p.Name, p.SearchQuery, p.Brand, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return engine.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

// GetProduct returns one product, or engine.ErrProductNotFound.
func (d *DB) GetProduct(ctx context.Context, productID string) (*engine.Product, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT product_id, name, search_query, brand, is_active, created_at FROM product WHERE product_id=?",
		productID)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", engine.ErrProductNotFound, productID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListActiveProducts returns all products with is_active=1.
func (d *DB) ListActiveProducts(ctx context.Context) ([]engine.Product, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT product_id, name, search_query, brand, is_active, created_at FROM product WHERE is_active=1 ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []engine.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			continue
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// SetProductActive flips a product's active flag.
func (d *DB) SetProductActive(ctx context.Context, productID string, active bool) error {
	res, err := d.sql.ExecContext(ctx, "UPDATE product SET is_active=? WHERE product_id=?", boolToInt(active), productID)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", engine.ErrProductNotFound, productID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (engine.Product, error) {
	var p engine.Product
	var active int
	var created string
	if err := r.Scan(&p.ProductID, &p.Name, &p.SearchQuery, &p.Brand, &active, &created); err != nil {
		return engine.Product{}, err
	}
	p.IsActive = active != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
