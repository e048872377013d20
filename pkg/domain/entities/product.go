package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ProductID represents a unique product identifier
type ProductID string

// Product represents a catalog product with its default costing data
type Product struct {
	ID          ProductID
	Name        string
	Unit        string
	DefaultCost decimal.Decimal
}

// NewProduct creates a validated Product
func NewProduct(id ProductID, name, unit string, defaultCost decimal.Decimal) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if unit == "" {
		return nil, fmt.Errorf("unit of measure cannot be empty for %s", id)
	}
	if defaultCost.IsNegative() {
		return nil, fmt.Errorf("default cost cannot be negative, got %s", defaultCost)
	}

	return &Product{
		ID:          id,
		Name:        name,
		Unit:        unit,
		DefaultCost: defaultCost,
	}, nil
}
