package repositories

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/vsinha/storereq/pkg/domain/entities"
)

// ProductCatalog provides unit and costing data for products
type ProductCatalog interface {
	GetUnit(ctx context.Context, id entities.ProductID) (string, error)
	GetDefaultCost(ctx context.Context, id entities.ProductID) (decimal.Decimal, error)
}
