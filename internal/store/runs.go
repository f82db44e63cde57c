package store

import (
	"context"
	"fmt"

	"pricewatch-service/internal/models"
)

// RunItem pairs one resolved snapshot with the product it was assigned to.
// Product pointers may be shared between items: several sites resolving to
// one run-created product reference the same struct, and its ID is filled
// exactly once at commit.
type RunItem struct {
	Product  *models.Product
	Snapshot *models.PriceSnapshot
}

// CommitRun persists a run's outcome in one transaction: run-created
// products first (re-checking canonical-name uniqueness, so a duplicate
// that slipped past the in-run index folds into the existing row), then
// the snapshots with same-day collapse.
func (s *Store) CommitRun(ctx context.Context, items []RunItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin run transaction: %w", err)
	}
	defer tx.Rollback()

	inserted := make(map[*models.Product]bool)
	for _, item := range items {
		p := item.Product
		if p.ID == 0 && !inserted[p] {
			// the no-op update makes RETURNING yield the surviving row's id
			err := tx.GetContext(ctx, p, `
				INSERT INTO products (normalized_name, brand, category)
				VALUES ($1, $2, $3)
				ON CONFLICT (normalized_name)
				DO UPDATE SET normalized_name = EXCLUDED.normalized_name
				RETURNING *`,
				p.NormalizedName, p.Brand, p.Category)
			if err != nil {
				return fmt.Errorf("failed to insert product %q: %w", p.NormalizedName, err)
			}
			inserted[p] = true
		}

		snap := item.Snapshot
		snap.ProductID = p.ID
		err := tx.GetContext(ctx, snap, `
			INSERT INTO price_snapshots
				(site_name, product_id, original_name, price, currency, stock_status, url, scraped_day, scraped_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $8)
			ON CONFLICT (site_name, product_id, scraped_day)
			DO UPDATE SET
				original_name = EXCLUDED.original_name,
				price         = EXCLUDED.price,
				currency      = EXCLUDED.currency,
				stock_status  = EXCLUDED.stock_status,
				url           = EXCLUDED.url,
				scraped_at    = EXCLUDED.scraped_at
			RETURNING *`,
			snap.SiteName, p.ID, snap.OriginalName, snap.Price, snap.Currency,
			snap.StockStatus, snap.URL, snap.ScrapedAt)
		if err != nil {
			return fmt.Errorf("failed to upsert snapshot for product %d on %s: %w",
				p.ID, snap.SiteName, err)
		}
	}

	// backfill brand/category learned this run; only empty columns change
	for _, item := range items {
		p := item.Product
		if p.ID == 0 || (p.Brand == "" && p.Category == "") {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE products SET
				brand    = CASE WHEN brand = '' THEN $2 ELSE brand END,
				category = CASE WHEN category = '' THEN $3 ELSE category END
			WHERE id = $1`, p.ID, p.Brand, p.Category); err != nil {
			return fmt.Errorf("failed to backfill product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}
