package service

import (
	"testing"
	"time"

	"pricewatch-service/config"
	"pricewatch-service/internal/models"
	"pricewatch-service/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	cfg := config.DefaultMatching()
	require.NoError(t, cfg.Validate())
	return NewDetector(nil, nil, cfg)
}

func snapshotAt(price string, status string) *models.PriceSnapshot {
	return &models.PriceSnapshot{
		ProductID:   1,
		SiteName:    "competitor-a",
		Price:       decimal.RequireFromString(price),
		StockStatus: status,
		ScrapedAt:   time.Date(2026, 8, 29, 6, 0, 0, 0, time.UTC),
	}
}

func TestEvaluateNoPriorMeansNoEvents(t *testing.T) {
	d := newTestDetector(t)

	pc, sc := d.evaluate(nil, snapshotAt("1000", models.StockInStock))

	assert.Nil(t, pc)
	assert.Nil(t, sc)
}

func TestEvaluatePriceThresholdStrictlyGreater(t *testing.T) {
	d := newTestDetector(t)

	// exactly -5.00% stays quiet
	pc, _ := d.evaluate(snapshotAt("1000", models.StockInStock), snapshotAt("950", models.StockInStock))
	assert.Nil(t, pc)

	// -5.10% fires
	pc, _ = d.evaluate(snapshotAt("1000", models.StockInStock), snapshotAt("949", models.StockInStock))
	require.NotNil(t, pc)
	assert.Equal(t, "-5.1", pc.ChangePercent.String())
	assert.Equal(t, "1000", pc.OldPrice.String())
	assert.Equal(t, "949", pc.NewPrice.String())
}

func TestEvaluatePriceRiseFires(t *testing.T) {
	d := newTestDetector(t)

	pc, _ := d.evaluate(snapshotAt("1000", models.StockInStock), snapshotAt("1120", models.StockInStock))
	require.NotNil(t, pc)
	assert.Equal(t, "12", pc.ChangePercent.String())
	assert.Equal(t, "rise", direction(pc.ChangePercent))
}

func TestEvaluateZeroPriorPriceSkipsPriceCheck(t *testing.T) {
	d := newTestDetector(t)

	pc, _ := d.evaluate(snapshotAt("0", models.StockInStock), snapshotAt("500", models.StockInStock))
	assert.Nil(t, pc)
}

func TestEvaluateStockTransitionDetected(t *testing.T) {
	d := newTestDetector(t)

	_, sc := d.evaluate(snapshotAt("1000", models.StockInStock), snapshotAt("1000", models.StockOutOfStock))
	require.NotNil(t, sc)
	assert.Equal(t, models.StockInStock, sc.PreviousStatus)
	assert.Equal(t, models.StockOutOfStock, sc.NewStatus)
	assert.Equal(t, models.StockChangeOut, sc.ChangeType)
}

func TestEvaluateBothKindsAtOnce(t *testing.T) {
	d := newTestDetector(t)

	pc, sc := d.evaluate(snapshotAt("1000", models.StockInStock), snapshotAt("800", models.StockLimited))
	require.NotNil(t, pc)
	require.NotNil(t, sc)
	assert.Equal(t, "-20", pc.ChangePercent.String())
	assert.Equal(t, models.StockChangeLow, sc.ChangeType)
}

func TestClassifyStockTransition(t *testing.T) {
	tests := []struct {
		prev, next string
		want       string
	}{
		{models.StockInStock, models.StockOutOfStock, models.StockChangeOut},
		{models.StockLimited, models.StockOutOfStock, models.StockChangeOut},
		{models.StockOutOfStock, models.StockInStock, models.StockChangeIn},
		{models.StockOutOfStock, models.StockLimited, models.StockChangeIn},
		{models.StockInStock, models.StockLimited, models.StockChangeLow},
		{models.StockUnknown, models.StockInStock, models.StockChangeStatus},
		{models.StockInStock, models.StockPreorder, models.StockChangeStatus},
	}

	for _, tt := range tests {
		got := classifyStockTransition(tt.prev, tt.next)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.prev, tt.next)
	}
}

func TestPriorLookupDayBoundaryIsLocal(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)

	// an early-morning poll stays on its own local day
	scraped := time.Date(2026, 8, 29, 2, 0, 0, 0, istanbul)
	boundary := util.DayStart(scraped)

	assert.Equal(t, time.Date(2026, 8, 29, 0, 0, 0, 0, istanbul), boundary)
	assert.True(t, boundary.Before(scraped))

	// UTC truncation would have landed on the previous local day
	utcMidnight := scraped.Truncate(24 * time.Hour)
	assert.Equal(t, 28, utcMidnight.In(istanbul).Day())
}

func TestPriceDeltaPercentRounding(t *testing.T) {
	delta := priceDeltaPercent(decimal.RequireFromString("2999.90"), decimal.RequireFromString("2849.90"))
	assert.Equal(t, "-5", delta.String())

	delta = priceDeltaPercent(decimal.RequireFromString("333"), decimal.RequireFromString("334"))
	assert.Equal(t, "0.3", delta.String())
}
