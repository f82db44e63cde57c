package store

import (
	"context"
	"fmt"

	"pricewatch-service/internal/models"

	"github.com/lib/pq"
)

// CreatePriceChange inserts a price change, at most one per
// (product, site, day). The boolean is false when an equal detection
// already existed, which makes re-running a day a no-op.
func (s *Store) CreatePriceChange(ctx context.Context, change *models.PriceChange) (bool, error) {
	err := s.db.GetContext(ctx, &change.ID, `
		INSERT INTO price_changes
			(product_id, site_name, old_price, new_price, change_percent, detected_day, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $6)
		ON CONFLICT (product_id, site_name, detected_day) DO NOTHING
		RETURNING id`,
		change.ProductID, change.SiteName, change.OldPrice, change.NewPrice,
		change.ChangePercent, change.DetectedAt)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create price change: %w", err)
	}
	return true, nil
}

// CreateStockChange inserts a stock change, at most one per
// (product, site, day), mirroring CreatePriceChange.
func (s *Store) CreateStockChange(ctx context.Context, change *models.StockChange) (bool, error) {
	err := s.db.GetContext(ctx, &change.ID, `
		INSERT INTO stock_changes
			(product_id, site_name, previous_status, new_status, change_type, detected_day, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6::date, $6)
		ON CONFLICT (product_id, site_name, detected_day) DO NOTHING
		RETURNING id`,
		change.ProductID, change.SiteName, change.PreviousStatus, change.NewStatus,
		change.ChangeType, change.DetectedAt)
	if isNoRows(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create stock change: %w", err)
	}
	return true, nil
}

// UnnotifiedPriceChanges returns price changes not yet delivered.
func (s *Store) UnnotifiedPriceChanges(ctx context.Context) ([]models.PriceChange, error) {
	var changes []models.PriceChange
	err := s.db.SelectContext(ctx, &changes,
		"SELECT * FROM price_changes WHERE NOT is_notified ORDER BY detected_at")
	return changes, err
}

// UnnotifiedStockChanges returns stock changes not yet delivered.
func (s *Store) UnnotifiedStockChanges(ctx context.Context) ([]models.StockChange, error) {
	var changes []models.StockChange
	err := s.db.SelectContext(ctx, &changes,
		"SELECT * FROM stock_changes WHERE NOT is_notified ORDER BY detected_at")
	return changes, err
}

// MarkPriceChangesNotified flips the delivery marker after a successful
// hand-off.
func (s *Store) MarkPriceChangesNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE price_changes SET is_notified = TRUE WHERE id = ANY($1)", pq.Array(ids))
	return err
}

// MarkStockChangesNotified flips the delivery marker after a successful
// hand-off.
func (s *Store) MarkStockChangesNotified(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		"UPDATE stock_changes SET is_notified = TRUE WHERE id = ANY($1)", pq.Array(ids))
	return err
}

// ChangeCountsOn returns the day's price-drop, price-rise and stock-event
// counts for the summary report.
func (s *Store) ChangeCountsOn(ctx context.Context, day string) (drops, rises, stockEvents int, err error) {
	err = s.db.QueryRowxContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE change_percent < 0),
			COUNT(*) FILTER (WHERE change_percent > 0)
		FROM price_changes WHERE detected_day = $1::date`, day).Scan(&drops, &rises)
	if err != nil {
		return 0, 0, 0, err
	}
	err = s.db.GetContext(ctx, &stockEvents,
		"SELECT COUNT(*) FROM stock_changes WHERE detected_day = $1::date", day)
	return drops, rises, stockEvents, err
}

// TopMovers returns the day's sharpest price movements.
func (s *Store) TopMovers(ctx context.Context, day string, limit int) ([]models.Mover, error) {
	var movers []models.Mover
	err := s.db.SelectContext(ctx, &movers, `
		SELECT c.product_id, p.normalized_name, c.site_name, c.new_price, c.change_percent
		FROM price_changes c
		JOIN products p ON p.id = c.product_id
		WHERE c.detected_day = $1::date
		ORDER BY ABS(c.change_percent) DESC
		LIMIT $2`, day, limit)
	return movers, err
}
