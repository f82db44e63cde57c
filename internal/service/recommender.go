package service

import (
	"pricewatch-service/config"
	"pricewatch-service/internal/models"

	"github.com/shopspring/decimal"
)

// Recommendation is the human-readable action attached to a change event.
type Recommendation struct {
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// MarketView is the recommender's cross-site context for stock rules:
// whether the operator's own catalog and any competitor currently have the
// product available.
type MarketView struct {
	OwnHasStock        bool
	CompetitorHasStock bool
}

// priceRule is one row of the declarative price rule table. Role "" means
// any role; min/max bound the signed delta percent, with wide sentinels
// standing in for infinity.
type priceRule struct {
	role     string
	min, max float64 // delta band: min < d <= max
	severity string
	message  string
}

// Recommender maps a change event's shape (direction, magnitude, site
// role) to a suggested action. The rules are a table, deliberately outside
// the detector, so pricing policy can change without touching detection.
type Recommender struct {
	priceRules []priceRule
}

const unbounded = 1e9

// NewRecommender builds the rule table from the configured band edges
// (default: 5% threshold, 10% sharp move).
func NewRecommender(cfg *config.Matching) *Recommender {
	t := cfg.PriceChangeThreshold
	sharp := cfg.SharpMovePercent
	return &Recommender{
		priceRules: []priceRule{
			{models.SiteRoleCompetitor, -unbounded, -sharp, models.SeverityCritical,
				"[URGENT] competitor undercut: consider matching or differentiating"},
			{models.SiteRoleCompetitor, -sharp, -t, models.SeverityWarning,
				"[WARNING] competitor price falling: review pricing"},
			{models.SiteRoleCompetitor, sharp, unbounded, models.SeverityInfo,
				"[OPPORTUNITY] competitor price rose sharply: margin opportunity"},
			{models.SiteRoleCompetitor, t, sharp, models.SeverityMinor,
				"[INFO] competitor price drifting up: monitor"},
			{models.SiteRoleOwn, -unbounded, -t, models.SeverityWarning,
				"[CHECK] own price decreased: verify margin impact"},
			{models.SiteRoleOwn, t, unbounded, models.SeverityInfo,
				"[CHECK] own price increased: watch conversion"},
		},
	}
}

// Price returns the action for a price change on a site with the given
// role. Falls back to a neutral monitor message for deltas no rule claims.
func (r *Recommender) Price(role string, changePercent decimal.Decimal) Recommendation {
	d, _ := changePercent.Float64()
	for _, rule := range r.priceRules {
		if rule.role != "" && rule.role != role {
			continue
		}
		if inBand(d, rule.min, rule.max) {
			return Recommendation{Severity: rule.severity, Message: rule.message}
		}
	}
	return Recommendation{Severity: models.SeverityMinor, Message: "[INFO] price moved: monitor"}
}

// inBand reports band membership, strict on the sharp edge for both
// signs: a -12% delta sits in [-inf, -10), an exact -10% stays in the
// moderate band.
func inBand(d, min, max float64) bool {
	if d < 0 {
		return d >= min && d < max
	}
	return d > min && d <= max
}

// Stock returns the action for a stock transition, using the market view
// for the cross-site rules. Distinct transitions yield distinct messages:
// a competitor coming back in stock reads differently from one running
// out.
func (r *Recommender) Stock(role, changeType string, view MarketView) Recommendation {
	switch changeType {
	case models.StockChangeOut:
		if role == models.SiteRoleOwn {
			if view.CompetitorHasStock {
				return Recommendation{models.SeverityCritical,
					"[URGENT] own catalog out of stock while competitors sell: restock now"}
			}
			return Recommendation{models.SeverityWarning,
				"[WARNING] own catalog out of stock: restock"}
		}
		if view.OwnHasStock {
			return Recommendation{models.SeverityInfo,
				"[OPPORTUNITY] competitor out of stock: promote in-stock advantage"}
		}
		return Recommendation{models.SeverityInfo,
			"[INFO] competitor out of stock"}

	case models.StockChangeIn:
		if role == models.SiteRoleCompetitor {
			return Recommendation{models.SeverityWarning,
				"[WATCH] competitor back in stock: expect price pressure"}
		}
		return Recommendation{models.SeverityInfo,
			"[INFO] own catalog back in stock"}

	case models.StockChangeLow:
		if role == models.SiteRoleOwn {
			return Recommendation{models.SeverityWarning,
				"[WARNING] own stock running low: replenish"}
		}
		return Recommendation{models.SeverityInfo,
			"[INFO] competitor stock running low: demand signal"}

	default:
		return Recommendation{models.SeverityMinor,
			"[INFO] stock status changed: monitor"}
	}
}
