package fulfillment

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/services/stock"
	"github.com/vsinha/storereq/pkg/domain/entities"
)

// Allocator decides how much of each line can be satisfied and from where.
//
// Policy: the primary source is drained first. Any remainder is re-homed to
// the single best alternate, the tracked-inventory location with the most
// available stock (ties by location code). Whatever is still missing is the
// shortfall. Lines are allocated independently; availability is not shared
// across lines of the same requisition
type Allocator struct {
	resolver *stock.Resolver
	logger   *zap.Logger
}

// NewAllocator creates an allocator on top of a stock resolver
func NewAllocator(resolver *stock.Resolver, logger *zap.Logger) *Allocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Allocator{resolver: resolver, logger: logger}
}

// Allocate computes a fresh fulfillment result for line drawn from source.
// The allocated quantity is the approved quantity once recorded, the
// requested quantity before that. Locations in exclude, typically the
// destination, are never picked as alternates
func (a *Allocator) Allocate(ctx context.Context, line *entities.LineItem, source entities.LocationID, exclude ...entities.LocationID) (*entities.FulfillmentResult, error) {
	if line == nil {
		return nil, fmt.Errorf("line item cannot be nil")
	}

	qty := line.FulfillableQty()
	result := &entities.FulfillmentResult{
		LineID:       line.ID,
		ProductID:    line.ProductID,
		RequestedQty: qty,
		Satisfiable:  decimal.Zero,
		Shortfall:    qty,
		ChosenSource: source,
	}
	if !qty.IsPositive() {
		return result, nil
	}

	primary, err := a.resolver.Check(ctx, line.ProductID, source)
	if err != nil {
		return nil, fmt.Errorf("failed to check primary source for line %s: %w", line.ID, err)
	}

	fromPrimary := decimal.Min(primary.Available, qty)
	if fromPrimary.IsPositive() {
		result.Portions = append(result.Portions, entities.SourcePortion{
			LocationID: source,
			Quantity:   fromPrimary,
		})
	}
	remainder := qty.Sub(fromPrimary)

	if remainder.IsPositive() {
		alternates, err := a.resolver.FindAlternates(ctx, line.ProductID, append([]entities.LocationID{source}, exclude...)...)
		if err != nil {
			return nil, fmt.Errorf("failed to find alternates for line %s: %w", line.ID, err)
		}

		if len(alternates) > 0 {
			best := alternates[0]
			fromAlternate := decimal.Min(best.Available, remainder)
			result.Portions = append(result.Portions, entities.SourcePortion{
				LocationID: best.LocationID,
				Quantity:   fromAlternate,
				Alternate:  true,
			})
			remainder = remainder.Sub(fromAlternate)

			if !fromPrimary.IsPositive() {
				result.ChosenSource = best.LocationID
			}

			a.logger.Debug("re-homed line to alternate source",
				zap.String("line_id", line.ID),
				zap.String("product_id", string(line.ProductID)),
				zap.String("primary", string(source)),
				zap.String("alternate", string(best.LocationID)),
				zap.String("quantity", fromAlternate.String()))
		}
	}

	result.Satisfiable = qty.Sub(remainder)
	result.Shortfall = remainder

	if !result.Balanced() {
		return nil, fmt.Errorf("%w: line %s allocated %s + %s of %s",
			entities.ErrInvariantViolation, line.ID, result.Satisfiable, result.Shortfall, qty)
	}

	return result, nil
}

// AllocateAll allocates every line of r from its effective source, never
// re-homing to r's destination. The first failing line aborts the pass; a
// partial result is never returned
func (a *Allocator) AllocateAll(ctx context.Context, r *entities.Requisition) ([]*entities.FulfillmentResult, error) {
	results := make([]*entities.FulfillmentResult, 0, len(r.Lines))
	for _, line := range r.Lines {
		result, err := a.Allocate(ctx, line, r.LineSource(line), r.DestinationLocationID)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}
