package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypePriceChange = "PRICE_CHANGE"
	EventTypeStockChange = "STOCK_CHANGE"
	EventTypeNewProduct  = "NEW_PRODUCT"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// PriceChangeEvent published when a price moves beyond the threshold
type PriceChangeEvent struct {
	BaseEvent
	ChangeID       int64           `json:"change_id"`
	ProductID      int64           `json:"product_id"`
	ProductName    string          `json:"product_name"`
	SiteName       string          `json:"site_name"`
	SiteRole       string          `json:"site_role"`
	OldPrice       decimal.Decimal `json:"old_price"`
	NewPrice       decimal.Decimal `json:"new_price"`
	ChangePercent  decimal.Decimal `json:"change_percent"`
	Currency       string          `json:"currency"`
	Severity       string          `json:"severity"`
	Recommendation string          `json:"recommendation"`
}

// StockChangeEvent published when a stock status transitions
type StockChangeEvent struct {
	BaseEvent
	ChangeID       int64  `json:"change_id"`
	ProductID      int64  `json:"product_id"`
	ProductName    string `json:"product_name"`
	SiteName       string `json:"site_name"`
	SiteRole       string `json:"site_role"`
	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	ChangeType     string `json:"change_type"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
}

// NewProductEvent published when a run creates a product that has never
// been snapshotted before
type NewProductEvent struct {
	BaseEvent
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Brand       string          `json:"brand,omitempty"`
	Category    string          `json:"category,omitempty"`
	SiteName    string          `json:"site_name"`
	Price       decimal.Decimal `json:"price"`
	StockStatus string          `json:"stock_status"`
}
