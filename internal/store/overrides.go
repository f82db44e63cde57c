package store

import (
	"context"
	"fmt"

	"pricewatch-service/internal/models"
)

// OverrideKey builds the lookup key the resolver consults before scoring.
func OverrideKey(siteName, originalName string) string {
	return siteName + "|" + originalName
}

// GetOverrides loads the whole override table as a lookup map keyed by
// (site, original name).
func (s *Store) GetOverrides(ctx context.Context) (map[string]int64, error) {
	var rows []models.ManualOverride
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM manual_overrides"); err != nil {
		return nil, err
	}
	overrides := make(map[string]int64, len(rows))
	for _, o := range rows {
		overrides[OverrideKey(o.SiteName, o.OriginalName)] = o.ProductID
	}
	return overrides, nil
}

// ListOverrides returns the override rows for the operator API.
func (s *Store) ListOverrides(ctx context.Context) ([]models.ManualOverride, error) {
	var rows []models.ManualOverride
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM manual_overrides ORDER BY id")
	return rows, err
}

// CreateOverride pins a (site, original name) pair to a product. An
// existing pin for the pair is replaced; it is the operator's explicit
// decision, never the resolver's.
func (s *Store) CreateOverride(ctx context.Context, o *models.ManualOverride) error {
	err := s.db.GetContext(ctx, o, `
		INSERT INTO manual_overrides (site_name, original_name, product_id, note)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (site_name, original_name)
		DO UPDATE SET product_id = EXCLUDED.product_id, note = EXCLUDED.note
		RETURNING *`,
		o.SiteName, o.OriginalName, o.ProductID, o.Note)
	if err != nil {
		return fmt.Errorf("failed to create override: %w", err)
	}
	return nil
}

// DeleteOverride removes a pin by id.
func (s *Store) DeleteOverride(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM manual_overrides WHERE id = $1", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("override %d: %w", id, ErrNotFound)
	}
	return nil
}
