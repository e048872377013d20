package replenishment

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/fulfillment"
	"github.com/vsinha/storereq/pkg/application/services/requisition"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// AcceptInput turns reviewed suggestions into a draft requisition.
// Every suggestion must target the same location
type AcceptInput struct {
	Suggestions      []entities.ReplenishmentSuggestion
	SourceLocationID entities.LocationID
	Requester        string
	Department       string
	Notes            string
}

// Planner produces PAR-based replenishment suggestions
type Planner struct {
	parLevels    repositories.ParLevelRepository
	stock        repositories.StockRepository
	requisitions *requisition.Service
	allocator    *fulfillment.Allocator
	events       events.EventStore
	logger       *zap.Logger
}

// PlannerOption configures a Planner
type PlannerOption func(*Planner)

// WithLogger sets the planner logger
func WithLogger(logger *zap.Logger) PlannerOption {
	return func(p *Planner) {
		p.logger = logger
	}
}

// WithEventStore publishes a replenishment accepted event per accepted draft
func WithEventStore(store events.EventStore) PlannerOption {
	return func(p *Planner) {
		p.events = store
	}
}

// NewPlanner creates a replenishment planner
func NewPlanner(
	parLevels repositories.ParLevelRepository,
	stock repositories.StockRepository,
	requisitions *requisition.Service,
	allocator *fulfillment.Allocator,
	opts ...PlannerOption,
) *Planner {
	p := &Planner{
		parLevels:    parLevels,
		stock:        stock,
		requisitions: requisitions,
		allocator:    allocator,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Suggest returns one suggestion per product at locationID whose on-hand
// stock has fallen to or below its reorder point. The quantity tops the
// location up to PAR, clamped to the order bounds; suggestions that end up
// non-positive are dropped
func (p *Planner) Suggest(ctx context.Context, locationID entities.LocationID) ([]entities.ReplenishmentSuggestion, error) {
	levels, err := p.parLevels.ListParLevels(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load PAR levels for %s: %w", locationID, err)
	}

	suggestions := make([]entities.ReplenishmentSuggestion, 0, len(levels))
	for _, par := range levels {
		level, err := p.stock.GetStockLevel(ctx, par.ProductID, locationID)
		if err != nil {
			return nil, fmt.Errorf("failed to load stock of %s at %s: %w", par.ProductID, locationID, err)
		}

		current := level.OnHand
		if current.GreaterThan(par.ReorderPoint) {
			continue
		}

		suggested := par.Clamp(par.ParLevel.Sub(current))
		if !suggested.IsPositive() {
			continue
		}

		suggestions = append(suggestions, entities.ReplenishmentSuggestion{
			ProductID:    par.ProductID,
			LocationID:   locationID,
			CurrentStock: current,
			ParLevel:     par.ParLevel,
			ReorderPoint: par.ReorderPoint,
			SuggestedQty: suggested,
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		return suggestions[i].ProductID < suggestions[j].ProductID
	})

	p.logger.Debug("replenishment suggestions computed",
		zap.String("location_id", string(locationID)),
		zap.Int("par_levels", len(levels)),
		zap.Int("suggestions", len(suggestions)))

	return suggestions, nil
}

// SuggestAll runs Suggest for every location holding PAR settings
func (p *Planner) SuggestAll(ctx context.Context) (map[entities.LocationID][]entities.ReplenishmentSuggestion, error) {
	locations, err := p.parLevels.ListParLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list PAR locations: %w", err)
	}

	all := make(map[entities.LocationID][]entities.ReplenishmentSuggestion, len(locations))
	for _, locationID := range locations {
		suggestions, err := p.Suggest(ctx, locationID)
		if err != nil {
			return nil, err
		}
		if len(suggestions) > 0 {
			all[locationID] = suggestions
		}
	}
	return all, nil
}

// Accept builds a draft requisition from suggestions and attaches a
// provisional fulfillment so the requester can review it before submitting
func (p *Planner) Accept(ctx context.Context, input AcceptInput) (*dto.AcceptedReplenishment, error) {
	if len(input.Suggestions) == 0 {
		return nil, fmt.Errorf("no suggestions to accept")
	}
	if input.SourceLocationID == "" {
		return nil, fmt.Errorf("source location cannot be empty")
	}

	destination := input.Suggestions[0].LocationID
	lines := make([]dto.LineInput, 0, len(input.Suggestions))
	for _, s := range input.Suggestions {
		if s.LocationID != destination {
			return nil, fmt.Errorf("suggestions span locations %s and %s", destination, s.LocationID)
		}
		if !s.SuggestedQty.IsPositive() {
			return nil, fmt.Errorf("%w: suggestion for %s has quantity %s",
				entities.ErrInvariantViolation, s.ProductID, s.SuggestedQty)
		}
		lines = append(lines, dto.LineInput{ProductID: s.ProductID, Quantity: s.SuggestedQty})
	}

	r, err := p.requisitions.Create(ctx, dto.CreateRequisition{
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: destination,
		Requester:             input.Requester,
		Department:            input.Department,
		Notes:                 input.Notes,
		Lines:                 lines,
	}, input.Requester)
	if err != nil {
		return nil, fmt.Errorf("failed to create replenishment requisition: %w", err)
	}

	provisional, err := p.allocator.AllocateAll(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate replenishment requisition %s: %w", r.Reference, err)
	}

	accepted := &dto.AcceptedReplenishment{Requisition: r, Provisional: provisional}

	p.logger.Info("replenishment accepted",
		zap.String("requisition_id", r.ID),
		zap.String("reference", r.Reference),
		zap.String("location_id", string(destination)),
		zap.Int("lines", len(r.Lines)),
		zap.String("shortfall", accepted.Shortfall().String()))

	if p.events != nil {
		event := events.NewEventAt(events.ReplenishmentAcceptedEvent, r.ID, events.ReplenishmentAccepted{
			RequisitionID: r.ID,
			LocationID:    destination,
			Suggestions:   input.Suggestions,
		}, r.CreatedAt)
		if err := p.events.AppendEvent(r.ID, event); err != nil {
			p.logger.Warn("failed to publish event", zap.String("event_type", event.Type()), zap.Error(err))
		}
	}

	return accepted, nil
}

// TotalSuggested sums suggested quantities, used by reports
func TotalSuggested(suggestions []entities.ReplenishmentSuggestion) decimal.Decimal {
	total := decimal.Zero
	for _, s := range suggestions {
		total = total.Add(s.SuggestedQty)
	}
	return total
}
