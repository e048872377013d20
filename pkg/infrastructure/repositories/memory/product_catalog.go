package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// ProductCatalog provides in-memory product storage
type ProductCatalog struct {
	products    []entities.Product
	productsMap map[entities.ProductID]int
}

// NewProductCatalog creates a new in-memory product catalog
func NewProductCatalog(expectedProducts int) *ProductCatalog {
	return &ProductCatalog{
		products:    make([]entities.Product, 0, expectedProducts),
		productsMap: make(map[entities.ProductID]int, expectedProducts),
	}
}

// Verify interface compliance
var _ repositories.ProductCatalog = (*ProductCatalog)(nil)

// LoadProducts loads products into the catalog
func (c *ProductCatalog) LoadProducts(products []*entities.Product) error {
	for _, product := range products {
		c.AddProduct(*product)
	}
	return nil
}

// AddProduct adds or replaces a product
func (c *ProductCatalog) AddProduct(product entities.Product) {
	if index, exists := c.productsMap[product.ID]; exists {
		c.products[index] = product
		return
	}
	c.productsMap[product.ID] = len(c.products)
	c.products = append(c.products, product)
}

// GetProduct returns product master data
func (c *ProductCatalog) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	index, exists := c.productsMap[id]
	if !exists {
		return nil, fmt.Errorf("product %s: %w", id, entities.ErrNotFound)
	}
	product := c.products[index]
	return &product, nil
}

// GetUnit returns the unit of measure of a product
func (c *ProductCatalog) GetUnit(ctx context.Context, id entities.ProductID) (string, error) {
	product, err := c.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	return product.Unit, nil
}

// GetDefaultCost returns the default unit cost of a product
func (c *ProductCatalog) GetDefaultCost(ctx context.Context, id entities.ProductID) (decimal.Decimal, error) {
	product, err := c.GetProduct(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return product.DefaultCost, nil
}
