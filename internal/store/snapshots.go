package store

import (
	"context"
	"fmt"
	"time"

	"pricewatch-service/internal/models"
)

// LastSnapshotBefore returns the most recent snapshot for (product, site)
// strictly before the given instant, or nil when none exists. A missing
// prior is the baseline case, not an error.
func (s *Store) LastSnapshotBefore(ctx context.Context, productID int64, siteName string, before time.Time) (*models.PriceSnapshot, error) {
	var snap models.PriceSnapshot
	err := s.db.GetContext(ctx, &snap, `
		SELECT * FROM price_snapshots
		WHERE product_id = $1 AND site_name = $2 AND scraped_at < $3
		ORDER BY scraped_at DESC
		LIMIT 1`, productID, siteName, before)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// LatestSiteStates returns the latest known price/stock per site for a
// product, the recommender's market view.
func (s *Store) LatestSiteStates(ctx context.Context, productID int64) ([]models.SiteState, error) {
	var states []models.SiteState
	err := s.db.SelectContext(ctx, &states, `
		SELECT DISTINCT ON (site_name)
		       site_name, price, currency, stock_status, scraped_at
		FROM price_snapshots
		WHERE product_id = $1
		ORDER BY site_name, scraped_at DESC`, productID)
	return states, err
}

// PriceTrend returns the per-day price series for a product on one site,
// oldest first.
func (s *Store) PriceTrend(ctx context.Context, productID int64, siteName string, days int) ([]models.PricePoint, error) {
	var points []models.PricePoint
	err := s.db.SelectContext(ctx, &points, `
		SELECT scraped_day, price
		FROM price_snapshots
		WHERE product_id = $1 AND site_name = $2
		  AND scraped_day >= CURRENT_DATE - $3::int
		ORDER BY scraped_day`, productID, siteName, days)
	return points, err
}

// CountSnapshotsOn counts the snapshots taken on one day.
func (s *Store) CountSnapshotsOn(ctx context.Context, day string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM price_snapshots WHERE scraped_day = $1::date", day)
	return n, err
}

// PruneBefore removes snapshots and change rows older than the cutoff.
// Products are never deleted here; identities outlive their observations.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var total int64
	for _, q := range []string{
		"DELETE FROM price_snapshots WHERE scraped_day < $1::date",
		"DELETE FROM price_changes WHERE detected_day < $1::date",
		"DELETE FROM stock_changes WHERE detected_day < $1::date",
	} {
		res, err := s.db.ExecContext(ctx, q, cutoff)
		if err != nil {
			return total, fmt.Errorf("failed to prune: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
