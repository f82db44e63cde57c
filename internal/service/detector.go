package service

import (
	"context"
	"fmt"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/redisclient"
	"pricewatch-service/internal/store"
	"pricewatch-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Detection is what the detector found for one resolved snapshot. Either
// pointer may be nil; NewProduct marks the first snapshot ever of a
// run-created product.
type Detection struct {
	PriceChange *models.PriceChange
	StockChange *models.StockChange
	NewProduct  bool
}

// Detector compares each resolved snapshot against the prior persisted
// state for its (product, site) pair and records threshold-exceeding
// transitions. Re-running a day never double-fires: a Redis day-key is the
// fast path, the unique (product, site, day) constraint the backstop.
type Detector struct {
	store  *store.Store
	redis  *redisclient.Client
	cfg    *config.Matching
	logger *zap.Logger
}

// NewDetector creates a change detector.
func NewDetector(st *store.Store, redis *redisclient.Client, cfg *config.Matching) *Detector {
	return &Detector{
		store:  st,
		redis:  redis,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// Detect evaluates one committed assignment. The prior snapshot is the
// most recent one strictly before the observation day, so an earlier poll
// the same morning is not a baseline.
func (d *Detector) Detect(ctx context.Context, a *Assignment, snap *models.PriceSnapshot) (Detection, error) {
	ctx, span := util.StartSpan(ctx, "Detector.Detect")
	defer span.End()

	var det Detection
	det.NewProduct = a.Created

	dayStart := util.DayStart(snap.ScrapedAt)
	prior, err := d.store.LastSnapshotBefore(ctx, snap.ProductID, snap.SiteName, dayStart)
	if err != nil {
		return det, fmt.Errorf("failed to load prior snapshot: %w", err)
	}

	pc, sc := d.evaluate(prior, snap)
	day := snap.ScrapedAt.Format("2006-01-02")

	if pc != nil {
		created, err := d.persistPriceChange(ctx, pc, day)
		if err != nil {
			return det, err
		}
		if created {
			det.PriceChange = pc
			util.PriceChangesTotal.WithLabelValues(direction(pc.ChangePercent)).Inc()
			d.logger.Info("Price change detected",
				zap.Int64("product_id", pc.ProductID),
				zap.String("site", pc.SiteName),
				zap.String("old", pc.OldPrice.String()),
				zap.String("new", pc.NewPrice.String()),
				zap.String("percent", pc.ChangePercent.String()))
		}
	}

	if sc != nil {
		created, err := d.persistStockChange(ctx, sc, day)
		if err != nil {
			return det, err
		}
		if created {
			det.StockChange = sc
			util.StockChangesTotal.WithLabelValues(sc.ChangeType).Inc()
			d.logger.Info("Stock change detected",
				zap.Int64("product_id", sc.ProductID),
				zap.String("site", sc.SiteName),
				zap.String("from", sc.PreviousStatus),
				zap.String("to", sc.NewStatus),
				zap.String("type", sc.ChangeType))
		}
	}

	return det, nil
}

// evaluate is the pure detection decision: given the prior snapshot (nil
// when none exists) and the current one, what changed? No prior means no
// change events of either kind; the first observation is baseline only.
func (d *Detector) evaluate(prior, current *models.PriceSnapshot) (*models.PriceChange, *models.StockChange) {
	if prior == nil {
		return nil, nil
	}

	var pc *models.PriceChange
	if prior.Price.IsPositive() {
		delta := priceDeltaPercent(prior.Price, current.Price)
		if exceedsThreshold(delta, d.cfg.PriceChangeThreshold) {
			pc = &models.PriceChange{
				ProductID:     current.ProductID,
				SiteName:      current.SiteName,
				OldPrice:      prior.Price,
				NewPrice:      current.Price,
				ChangePercent: delta,
				DetectedAt:    current.ScrapedAt,
			}
		}
	}

	var sc *models.StockChange
	if prior.StockStatus != current.StockStatus {
		sc = &models.StockChange{
			ProductID:      current.ProductID,
			SiteName:       current.SiteName,
			PreviousStatus: prior.StockStatus,
			NewStatus:      current.StockStatus,
			ChangeType:     classifyStockTransition(prior.StockStatus, current.StockStatus),
			DetectedAt:     current.ScrapedAt,
		}
	}

	return pc, sc
}

func (d *Detector) persistPriceChange(ctx context.Context, pc *models.PriceChange, day string) (bool, error) {
	fresh, err := d.redis.MarkDetected(ctx, "price", pc.ProductID, pc.SiteName, day, 48*time.Hour)
	if err != nil {
		d.logger.Warn("Detection day-key unavailable, relying on store constraint", zap.Error(err))
	} else if !fresh {
		return false, nil
	}
	created, err := d.store.CreatePriceChange(ctx, pc)
	if err != nil {
		return false, fmt.Errorf("failed to persist price change: %w", err)
	}
	return created, nil
}

func (d *Detector) persistStockChange(ctx context.Context, sc *models.StockChange, day string) (bool, error) {
	fresh, err := d.redis.MarkDetected(ctx, "stock", sc.ProductID, sc.SiteName, day, 48*time.Hour)
	if err != nil {
		d.logger.Warn("Detection day-key unavailable, relying on store constraint", zap.Error(err))
	} else if !fresh {
		return false, nil
	}
	created, err := d.store.CreateStockChange(ctx, sc)
	if err != nil {
		return false, fmt.Errorf("failed to persist stock change: %w", err)
	}
	return created, nil
}

// priceDeltaPercent computes (new-old)/old*100 rounded to 2 decimals.
func priceDeltaPercent(oldPrice, newPrice decimal.Decimal) decimal.Decimal {
	return newPrice.Sub(oldPrice).
		Div(oldPrice).
		Mul(decimal.NewFromInt(100)).
		Round(2)
}

// exceedsThreshold applies the strictly-greater-than policy: a move landing
// exactly on the threshold does not fire (1000 -> 950 at 5% stays quiet,
// 1000 -> 949 fires).
func exceedsThreshold(delta decimal.Decimal, threshold float64) bool {
	return delta.Abs().GreaterThan(decimal.NewFromFloat(threshold))
}

// classifyStockTransition tags a (previous, new) status pair. Evaluation
// order matters: going out of stock beats everything, a return from
// out-of-stock beats the low-stock tag.
func classifyStockTransition(prev, next string) string {
	switch {
	case next == models.StockOutOfStock:
		return models.StockChangeOut
	case prev == models.StockOutOfStock && (next == models.StockInStock || next == models.StockLimited):
		return models.StockChangeIn
	case next == models.StockLimited:
		return models.StockChangeLow
	default:
		return models.StockChangeStatus
	}
}

func direction(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return "drop"
	}
	return "rise"
}
