package stock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
)

// Availability is the resolved stock of a product at a location
type Availability struct {
	ProductID     entities.ProductID
	LocationID    entities.LocationID
	Category      entities.LocationCategory
	OnHand        decimal.Decimal
	Reserved      decimal.Decimal
	Available     decimal.Decimal
	Overcommitted bool
}

// Alternate is a candidate location for re-homing a shortfall
type Alternate struct {
	LocationID entities.LocationID
	Code       string
	Available  decimal.Decimal
}

// Query identifies one product/location pair for CheckMany
type Query struct {
	ProductID  entities.ProductID
	LocationID entities.LocationID
}

// CheckResult carries the outcome of one query; exactly one of
// Availability and Err is set
type CheckResult struct {
	Query        Query
	Availability *Availability
	Err          error
}

// Option configures a Resolver
type Option func(*Resolver)

// WithCatalog makes Check reject products unknown to the catalog
func WithCatalog(catalog repositories.ProductCatalog) Option {
	return func(r *Resolver) {
		r.catalog = catalog
	}
}

// WithLogger sets the resolver logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver answers how much of a product is available where. It holds no
// state of its own and is safe for concurrent use
type Resolver struct {
	directory repositories.LocationDirectory
	stock     repositories.StockRepository
	catalog   repositories.ProductCatalog
	logger    *zap.Logger
}

// NewResolver creates a stock availability resolver
func NewResolver(directory repositories.LocationDirectory, stock repositories.StockRepository, opts ...Option) *Resolver {
	r := &Resolver{
		directory: directory,
		stock:     stock,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Check returns the availability of productID at locationID
func (r *Resolver) Check(ctx context.Context, productID entities.ProductID, locationID entities.LocationID) (*Availability, error) {
	location, err := r.location(ctx, locationID)
	if err != nil {
		return nil, err
	}

	if r.catalog != nil {
		if _, err := r.catalog.GetUnit(ctx, productID); err != nil {
			return nil, classify(fmt.Sprintf("product %s", productID), err)
		}
	}

	level, err := r.stock.GetStockLevel(ctx, productID, locationID)
	if err != nil {
		return nil, classify(fmt.Sprintf("stock of %s at %s", productID, locationID), err)
	}

	availability := &Availability{
		ProductID:     productID,
		LocationID:    locationID,
		Category:      location.Category,
		OnHand:        level.OnHand,
		Reserved:      level.Reserved,
		Available:     level.Available(),
		Overcommitted: level.Overcommitted(),
	}

	if availability.Overcommitted {
		r.logger.Warn("stock overcommitted",
			zap.String("product_id", string(productID)),
			zap.String("location_id", string(locationID)),
			zap.String("on_hand", level.OnHand.String()),
			zap.String("reserved", level.Reserved.String()))
	}

	return availability, nil
}

// CheckMany resolves each query independently; one failing query does not
// fail the others
func (r *Resolver) CheckMany(ctx context.Context, queries []Query) []CheckResult {
	results := make([]CheckResult, len(queries))
	for i, q := range queries {
		availability, err := r.Check(ctx, q.ProductID, q.LocationID)
		results[i] = CheckResult{Query: q, Availability: availability, Err: err}
	}
	return results
}

// FindAlternates lists tracked-inventory locations outside exclude that
// hold available stock of productID, best first: descending availability,
// ties broken by location code
func (r *Resolver) FindAlternates(ctx context.Context, productID entities.ProductID, exclude ...entities.LocationID) ([]Alternate, error) {
	levels, err := r.stock.ListStockByProduct(ctx, productID)
	if err != nil {
		return nil, classify(fmt.Sprintf("stock of %s", productID), err)
	}

	alternates := make([]Alternate, 0, len(levels))
	for _, level := range levels {
		if slices.Contains(exclude, level.LocationID) || !level.Available().IsPositive() {
			continue
		}

		location, err := r.location(ctx, level.LocationID)
		if errors.Is(err, entities.ErrNotFound) {
			r.logger.Warn("stock held at unknown location",
				zap.String("product_id", string(productID)),
				zap.String("location_id", string(level.LocationID)))
			continue
		}
		if err != nil {
			return nil, err
		}
		if location.Category != entities.TrackedInventory {
			continue
		}

		alternates = append(alternates, Alternate{
			LocationID: level.LocationID,
			Code:       location.Code,
			Available:  level.Available(),
		})
	}

	sort.Slice(alternates, func(i, j int) bool {
		if !alternates[i].Available.Equal(alternates[j].Available) {
			return alternates[i].Available.GreaterThan(alternates[j].Available)
		}
		return alternates[i].Code < alternates[j].Code
	})

	return alternates, nil
}

func (r *Resolver) location(ctx context.Context, id entities.LocationID) (*entities.Location, error) {
	location, err := r.directory.GetLocation(ctx, id)
	if err != nil {
		return nil, classify(fmt.Sprintf("location %s", id), err)
	}
	return location, nil
}

// classify keeps not-found errors as they are and turns every other
// collaborator failure into a retryable insufficient-data error
func classify(subject string, err error) error {
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("%s: %w", subject, err)
	}
	return fmt.Errorf("%w: %s: %w", entities.ErrInsufficientData, subject, err)
}
