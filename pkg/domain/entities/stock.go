package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StockLevel is the on-hand and reserved quantity of a product at a location
type StockLevel struct {
	ProductID  ProductID
	LocationID LocationID
	OnHand     decimal.Decimal
	Reserved   decimal.Decimal
}

// NewStockLevel creates a validated StockLevel
func NewStockLevel(productID ProductID, locationID LocationID, onHand, reserved decimal.Decimal) (*StockLevel, error) {
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if locationID == "" {
		return nil, fmt.Errorf("location id cannot be empty")
	}
	if onHand.IsNegative() {
		return nil, fmt.Errorf("on-hand quantity cannot be negative, got %s", onHand)
	}
	if reserved.IsNegative() {
		return nil, fmt.Errorf("reserved quantity cannot be negative, got %s", reserved)
	}

	return &StockLevel{
		ProductID:  productID,
		LocationID: locationID,
		OnHand:     onHand,
		Reserved:   reserved,
	}, nil
}

// Available returns on-hand minus reserved, floored at zero
func (s StockLevel) Available() decimal.Decimal {
	available := s.OnHand.Sub(s.Reserved)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Overcommitted reports reservations exceeding on-hand stock
func (s StockLevel) Overcommitted() bool {
	return s.Reserved.GreaterThan(s.OnHand)
}
