package services

import (
	"fmt"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// Classify maps a fulfillment result and the destination category to the
// documents it produces. A line yields zero, one or two outcomes: the
// satisfiable portion as a Transfer or Issue, the shortfall as a
// PurchaseRequest. Outcome quantities always sum to the line quantity
func Classify(result *entities.FulfillmentResult, destination entities.LocationCategory) ([]entities.Outcome, error) {
	if result == nil {
		return nil, fmt.Errorf("fulfillment result cannot be nil")
	}
	if !result.Balanced() {
		return nil, fmt.Errorf("%w: line %s satisfiable %s + shortfall %s != requested %s",
			entities.ErrInvariantViolation, result.LineID, result.Satisfiable, result.Shortfall, result.RequestedQty)
	}

	outcomes := make([]entities.Outcome, 0, 2)

	if result.Satisfiable.IsPositive() {
		switch destination {
		case entities.TrackedInventory:
			outcomes = append(outcomes, entities.Outcome{
				Type:     entities.DocumentTransfer,
				Quantity: result.Satisfiable,
			})
		case entities.DirectExpense:
			outcomes = append(outcomes, entities.Outcome{
				Type:     entities.DocumentIssue,
				Quantity: result.Satisfiable,
			})
		case entities.Consignment:
			outcomes = append(outcomes, entities.Outcome{
				Type:            entities.DocumentTransfer,
				Quantity:        result.Satisfiable,
				VendorLiability: true,
			})
		default:
			return nil, fmt.Errorf("cannot classify line %s: unknown destination category %s", result.LineID, destination)
		}
	}

	if result.Shortfall.IsPositive() {
		outcomes = append(outcomes, entities.Outcome{
			Type:     entities.DocumentPurchaseRequest,
			Quantity: result.Shortfall,
		})
	}

	return outcomes, nil
}
