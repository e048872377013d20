package testing

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/memory"
)

// Fixture bundles the in-memory collaborators of one test scenario
type Fixture struct {
	Directory    *memory.LocationDirectory
	Catalog      *memory.ProductCatalog
	Stock        *memory.StockRepository
	ParLevels    *memory.ParLevelRepository
	Requisitions *memory.RequisitionRepository
	Counters     *memory.CounterStore
}

// NewFixture creates empty in-memory collaborators
func NewFixture() *Fixture {
	return &Fixture{
		Directory:    memory.NewLocationDirectory(8),
		Catalog:      memory.NewProductCatalog(8),
		Stock:        memory.NewStockRepository(),
		ParLevels:    memory.NewParLevelRepository(),
		Requisitions: memory.NewRequisitionRepository(),
		Counters:     memory.NewCounterStore(),
	}
}

// BuildHotelTestData builds a small hotel: four tracked stores, two expense
// departments and a consignment minibar.
//
// Notable stock:
//   - FLOUR: 60 at MAIN, 50 at KITCHEN, 20 at BANQUET
//   - TOWEL: none anywhere
//   - LIME: 5 at BAR against a PAR of 40 (reorder point 10, min order 10)
//   - BULB: 10 at MAIN with 15 reserved
func BuildHotelTestData() *Fixture {
	f := NewFixture()

	locations := []*entities.Location{
		mustCreateLocation("MAIN", "MS01", "Main Store", entities.TrackedInventory),
		mustCreateLocation("BAR", "BR01", "Bar Store", entities.TrackedInventory),
		mustCreateLocation("KITCHEN", "KT01", "Kitchen Store", entities.TrackedInventory),
		mustCreateLocation("BANQUET", "BQ01", "Banquet Store", entities.TrackedInventory),
		mustCreateLocation("HOUSEKEEPING", "HK01", "Housekeeping", entities.DirectExpense),
		mustCreateLocation("ENGINEERING", "EN01", "Engineering", entities.DirectExpense),
		mustCreateLocation("MINIBAR", "CS01", "Minibar Consignment", entities.Consignment),
	}
	if err := f.Directory.LoadLocations(locations); err != nil {
		panic(err)
	}

	products := []*entities.Product{
		mustCreateProduct("FLOUR", "Flour, all purpose", "kg", "1.20"),
		mustCreateProduct("LIME", "Fresh lime", "ea", "0.30"),
		mustCreateProduct("SOAP", "Guest soap 30g", "ea", "0.45"),
		mustCreateProduct("TONIC", "Tonic water 200ml", "btl", "1.10"),
		mustCreateProduct("TOWEL", "Bath towel", "ea", "6.50"),
		mustCreateProduct("BULB", "LED bulb E27", "ea", "2.00"),
	}
	if err := f.Catalog.LoadProducts(products); err != nil {
		panic(err)
	}

	stock := []*entities.StockLevel{
		mustCreateStock("FLOUR", "MAIN", 60, 0),
		mustCreateStock("FLOUR", "KITCHEN", 50, 0),
		mustCreateStock("FLOUR", "BANQUET", 20, 0),
		mustCreateStock("LIME", "BAR", 5, 0),
		mustCreateStock("LIME", "MAIN", 100, 0),
		mustCreateStock("SOAP", "MAIN", 200, 20),
		mustCreateStock("TONIC", "MAIN", 24, 0),
		mustCreateStock("TONIC", "MINIBAR", 12, 0),
		mustCreateStock("BULB", "MAIN", 10, 15),
	}
	if err := f.Stock.LoadStockLevels(stock); err != nil {
		panic(err)
	}

	parLevels := []*entities.ParLevel{
		mustCreateParLevel("LIME", "BAR", 40, 10, 10, 0),
		mustCreateParLevel("TONIC", "BAR", 48, 12, 24, 0),
		mustCreateParLevel("FLOUR", "KITCHEN", 80, 30, 10, 40),
		mustCreateParLevel("TOWEL", "MAIN", 20, 5, 10, 15),
	}
	if err := f.ParLevels.LoadParLevels(parLevels); err != nil {
		panic(err)
	}

	return f
}

// mustCreateLocation is a helper for tests - panics on validation error
func mustCreateLocation(id, code, name string, category entities.LocationCategory) *entities.Location {
	location, err := entities.NewLocation(entities.LocationID(id), code, name, category)
	if err != nil {
		panic(err)
	}
	return location
}

// mustCreateProduct is a helper for tests - panics on validation error
func mustCreateProduct(id, name, unit, cost string) *entities.Product {
	product, err := entities.NewProduct(entities.ProductID(id), name, unit, decimal.RequireFromString(cost))
	if err != nil {
		panic(err)
	}
	return product
}

// mustCreateStock is a helper for tests - panics on validation error
func mustCreateStock(productID, locationID string, onHand, reserved int64) *entities.StockLevel {
	level, err := entities.NewStockLevel(
		entities.ProductID(productID),
		entities.LocationID(locationID),
		decimal.NewFromInt(onHand),
		decimal.NewFromInt(reserved),
	)
	if err != nil {
		panic(err)
	}
	return level
}

// mustCreateParLevel is a helper for tests - panics on validation error
func mustCreateParLevel(productID, locationID string, par, reorder, minQty, maxQty int64) *entities.ParLevel {
	level, err := entities.NewParLevel(
		entities.ProductID(productID),
		entities.LocationID(locationID),
		decimal.NewFromInt(par),
		decimal.NewFromInt(reorder),
		decimal.NewFromInt(minQty),
		decimal.NewFromInt(maxQty),
	)
	if err != nil {
		panic(err)
	}
	return level
}
