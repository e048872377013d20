package repositories

import (
	"context"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// StockRepository provides on-hand and reserved quantities.
// A product with no stock record at a location reports a zero StockLevel
type StockRepository interface {
	GetStockLevel(
		ctx context.Context,
		productID entities.ProductID,
		locationID entities.LocationID,
	) (*entities.StockLevel, error)
	ListStockByProduct(ctx context.Context, productID entities.ProductID) ([]*entities.StockLevel, error)
}
