package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the durable canonical identity a listing resolves to.
// NormalizedName is the identity key and is never mutated after creation;
// brand and category may be backfilled later when a snapshot supplies them.
type Product struct {
	ID             int64     `db:"id" json:"id"`
	NormalizedName string    `db:"normalized_name" json:"normalized_name"`
	Brand          string    `db:"brand" json:"brand,omitempty"`
	Category       string    `db:"category" json:"category,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PriceSnapshot is one observation of one listing on one site on one day.
// At most one row exists per (site, product, scraped_day); a later
// observation the same day overwrites price/stock/url in place.
type PriceSnapshot struct {
	ID           int64           `db:"id" json:"id"`
	SiteName     string          `db:"site_name" json:"site_name"`
	ProductID    int64           `db:"product_id" json:"product_id"`
	OriginalName string          `db:"original_name" json:"original_name"`
	Price        decimal.Decimal `db:"price" json:"price"`
	Currency     string          `db:"currency" json:"currency"`
	StockStatus  string          `db:"stock_status" json:"stock_status"`
	URL          string          `db:"url" json:"url,omitempty"`
	ScrapedDay   time.Time       `db:"scraped_day" json:"scraped_day"`
	ScrapedAt    time.Time       `db:"scraped_at" json:"scraped_at"`
}

// PriceChange records a price movement beyond the configured threshold.
type PriceChange struct {
	ID            int64           `db:"id" json:"id"`
	ProductID     int64           `db:"product_id" json:"product_id"`
	SiteName      string          `db:"site_name" json:"site_name"`
	OldPrice      decimal.Decimal `db:"old_price" json:"old_price"`
	NewPrice      decimal.Decimal `db:"new_price" json:"new_price"`
	ChangePercent decimal.Decimal `db:"change_percent" json:"change_percent"`
	DetectedAt    time.Time       `db:"detected_at" json:"detected_at"`
	IsNotified    bool            `db:"is_notified" json:"is_notified"`
}

// StockChange records a stock-status transition on one site.
type StockChange struct {
	ID             int64     `db:"id" json:"id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	SiteName       string    `db:"site_name" json:"site_name"`
	PreviousStatus string    `db:"previous_status" json:"previous_status"`
	NewStatus      string    `db:"new_status" json:"new_status"`
	ChangeType     string    `db:"change_type" json:"change_type"`
	DetectedAt     time.Time `db:"detected_at" json:"detected_at"`
	IsNotified     bool      `db:"is_notified" json:"is_notified"`
}

// ManualOverride pins a (site, raw name) pair to a product, bypassing
// scoring entirely. Operators create these for listings the scorer gets
// wrong.
type ManualOverride struct {
	ID           int64     `db:"id" json:"id"`
	SiteName     string    `db:"site_name" json:"site_name"`
	OriginalName string    `db:"original_name" json:"original_name"`
	ProductID    int64     `db:"product_id" json:"product_id"`
	Note         string    `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// RawListing is the boundary input produced by the site fetchers.
// StockStatus may be a canonical token or the site's free-text phrase;
// Price may be zero when PriceText still needs parsing.
type RawListing struct {
	Site        string          `json:"site"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand,omitempty"`
	Price       decimal.Decimal `json:"price"`
	PriceText   string          `json:"price_text,omitempty"`
	Currency    string          `json:"currency,omitempty"`
	StockStatus string          `json:"stock_status,omitempty"`
	URL         string          `json:"url,omitempty"`
	ScrapedAt   time.Time       `json:"scraped_at,omitempty"`
}

// SiteState is the latest known price/stock for a product on one site.
type SiteState struct {
	SiteName    string          `db:"site_name" json:"site_name"`
	Price       decimal.Decimal `db:"price" json:"price"`
	Currency    string          `db:"currency" json:"currency"`
	StockStatus string          `db:"stock_status" json:"stock_status"`
	ScrapedAt   time.Time       `db:"scraped_at" json:"scraped_at"`
}

// PricePoint is one step of a product's price history on one site.
type PricePoint struct {
	Day   time.Time       `db:"scraped_day" json:"day"`
	Price decimal.Decimal `db:"price" json:"price"`
}

// Mover is a summary row for the day's sharpest price movements.
type Mover struct {
	ProductID     int64           `db:"product_id" json:"product_id"`
	ProductName   string          `db:"normalized_name" json:"product_name"`
	SiteName      string          `db:"site_name" json:"site_name"`
	NewPrice      decimal.Decimal `db:"new_price" json:"new_price"`
	ChangePercent decimal.Decimal `db:"change_percent" json:"change_percent"`
}

// DailySummary aggregates one day's detection results.
type DailySummary struct {
	Day         string  `json:"day"`
	Snapshots   int     `json:"snapshots"`
	PriceDrops  int     `json:"price_drops"`
	PriceRises  int     `json:"price_rises"`
	StockEvents int     `json:"stock_events"`
	NewProducts int     `json:"new_products"`
	TopMovers   []Mover `json:"top_movers,omitempty"`
}

// Stock statuses (closed set)
const (
	StockInStock    = "in_stock"
	StockOutOfStock = "out_of_stock"
	StockLimited    = "limited"
	StockPreorder   = "preorder"
	StockUnknown    = "unknown"
)

// Stock change types
const (
	StockChangeOut    = "stock_out"
	StockChangeIn     = "stock_in"
	StockChangeLow    = "stock_low"
	StockChangeStatus = "status_change"
)

// Site roles
const (
	SiteRoleOwn        = "own"
	SiteRoleCompetitor = "competitor"
)

// Recommendation severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
	SeverityMinor    = "minor"
)

// ValidStockStatus reports whether s is one of the canonical tokens.
func ValidStockStatus(s string) bool {
	switch s {
	case StockInStock, StockOutOfStock, StockLimited, StockPreorder, StockUnknown:
		return true
	}
	return false
}
