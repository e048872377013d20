package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

type stockKey struct {
	productID  entities.ProductID
	locationID entities.LocationID
}

// StockRepository provides in-memory stock levels
type StockRepository struct {
	mutex  sync.RWMutex
	levels map[stockKey]entities.StockLevel
}

// NewStockRepository creates a new in-memory stock repository
func NewStockRepository() *StockRepository {
	return &StockRepository{
		levels: make(map[stockKey]entities.StockLevel),
	}
}

// Verify interface compliance
var _ repositories.StockRepository = (*StockRepository)(nil)

// LoadStockLevels loads stock levels into the repository
func (r *StockRepository) LoadStockLevels(levels []*entities.StockLevel) error {
	for _, level := range levels {
		r.SetStockLevel(*level)
	}
	return nil
}

// SetStockLevel adds or replaces the stock of a product at a location
func (r *StockRepository) SetStockLevel(level entities.StockLevel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.levels[stockKey{level.ProductID, level.LocationID}] = level
}

// Consume lowers on-hand stock, flooring at zero
func (r *StockRepository) Consume(productID entities.ProductID, locationID entities.LocationID, quantity decimal.Decimal) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := stockKey{productID, locationID}
	level, exists := r.levels[key]
	if !exists {
		return
	}
	level.OnHand = level.OnHand.Sub(quantity)
	if level.OnHand.IsNegative() {
		level.OnHand = decimal.Zero
	}
	r.levels[key] = level
}

// GetStockLevel returns the stock of a product at a location, zero if none
func (r *StockRepository) GetStockLevel(ctx context.Context, productID entities.ProductID, locationID entities.LocationID) (*entities.StockLevel, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	level, exists := r.levels[stockKey{productID, locationID}]
	if !exists {
		return &entities.StockLevel{
			ProductID:  productID,
			LocationID: locationID,
			OnHand:     decimal.Zero,
			Reserved:   decimal.Zero,
		}, nil
	}
	return &level, nil
}

// ListStockByProduct returns every stock record of a product
func (r *StockRepository) ListStockByProduct(ctx context.Context, productID entities.ProductID) ([]*entities.StockLevel, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var levels []*entities.StockLevel
	for key, level := range r.levels {
		if key.productID == productID {
			level := level
			levels = append(levels, &level)
		}
	}
	sort.Slice(levels, func(i, j int) bool {
		return levels[i].LocationID < levels[j].LocationID
	})
	return levels, nil
}
