package store

import (
	"context"
	"fmt"

	"pricewatch-service/internal/models"
)

// GetProducts retrieves the full catalog, ordered by id so index builds are
// deterministic.
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, "SELECT * FROM products ORDER BY id")
	return products, err
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if isNoRows(err) {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductByName retrieves a product by its canonical normalized name.
// Returns nil, nil when no such product exists.
func (s *Store) GetProductByName(ctx context.Context, normalizedName string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product,
		"SELECT * FROM products WHERE normalized_name = $1", normalizedName)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// SnapshotCounts returns snapshot counts per product, used by the
// resolver's established-identity tie-break.
func (s *Store) SnapshotCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT product_id, COUNT(*) FROM price_snapshots GROUP BY product_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountProductsCreatedOn counts products first seen on the given day.
func (s *Store) CountProductsCreatedOn(ctx context.Context, day string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM products WHERE created_at::date = $1::date", day)
	return n, err
}
