package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParLevel holds the replenishment settings of a product at a location
type ParLevel struct {
	ProductID    ProductID
	LocationID   LocationID
	ParLevel     decimal.Decimal
	ReorderPoint decimal.Decimal
	MinOrderQty  decimal.Decimal
	MaxOrderQty  decimal.Decimal // zero = unbounded
}

// NewParLevel creates a validated ParLevel
func NewParLevel(productID ProductID, locationID LocationID, parLevel, reorderPoint, minOrderQty, maxOrderQty decimal.Decimal) (*ParLevel, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if locationID == "" {
		return nil, fmt.Errorf("location id cannot be empty")
	}
	if parLevel.IsNegative() {
		return nil, fmt.Errorf("par level cannot be negative, got %s", parLevel)
	}
	if reorderPoint.IsNegative() {
		return nil, fmt.Errorf("reorder point cannot be negative, got %s", reorderPoint)
	}
	if minOrderQty.IsNegative() {
		return nil, fmt.Errorf("min order quantity cannot be negative, got %s", minOrderQty)
	}
	if maxOrderQty.IsNegative() {
		return nil, fmt.Errorf("max order quantity cannot be negative, got %s", maxOrderQty)
	}
	if maxOrderQty.IsPositive() && maxOrderQty.LessThan(minOrderQty) {
		return nil, fmt.Errorf("max order quantity %s cannot be less than min order quantity %s", maxOrderQty, minOrderQty)
	}

	return &ParLevel{
		ProductID:    productID,
		LocationID:   locationID,
		ParLevel:     parLevel,
		ReorderPoint: reorderPoint,
		MinOrderQty:  minOrderQty,
		MaxOrderQty:  maxOrderQty,
	}, nil
}

// Clamp bounds qty by the min and max order quantities
func (p ParLevel) Clamp(qty decimal.Decimal) decimal.Decimal {
	if qty.LessThan(p.MinOrderQty) {
		qty = p.MinOrderQty
	}
	if p.MaxOrderQty.IsPositive() && qty.GreaterThan(p.MaxOrderQty) {
		qty = p.MaxOrderQty
	}
	return qty
}

// ReplenishmentSuggestion is planner output awaiting review
type ReplenishmentSuggestion struct {
	ProductID    ProductID       `json:"product_id"`
	LocationID   LocationID      `json:"location_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	ParLevel     decimal.Decimal `json:"par_level"`
	ReorderPoint decimal.Decimal `json:"reorder_point"`
	SuggestedQty decimal.Decimal `json:"suggested_qty"`
}
