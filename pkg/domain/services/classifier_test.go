package services

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vsinha/storereq/pkg/domain/entities"
)

func result(requested, satisfiable, shortfall int64) *entities.FulfillmentResult {
	return &entities.FulfillmentResult{
		LineID:       "L1",
		ProductID:    "FLOUR",
		RequestedQty: decimal.NewFromInt(requested),
		Satisfiable:  decimal.NewFromInt(satisfiable),
		Shortfall:    decimal.NewFromInt(shortfall),
	}
}

func TestClassify_RuleTable(t *testing.T) {
	tests := []struct {
		name        string
		result      *entities.FulfillmentResult
		destination entities.LocationCategory
		expected    []entities.Outcome
	}{
		{
			name:        "tracked_full",
			result:      result(20, 20, 0),
			destination: entities.TrackedInventory,
			expected:    []entities.Outcome{{Type: entities.DocumentTransfer, Quantity: decimal.NewFromInt(20)}},
		},
		{
			name:        "tracked_partial",
			result:      result(20, 12, 8),
			destination: entities.TrackedInventory,
			expected: []entities.Outcome{
				{Type: entities.DocumentTransfer, Quantity: decimal.NewFromInt(12)},
				{Type: entities.DocumentPurchaseRequest, Quantity: decimal.NewFromInt(8)},
			},
		},
		{
			name:        "direct_expense_full",
			result:      result(5, 5, 0),
			destination: entities.DirectExpense,
			expected:    []entities.Outcome{{Type: entities.DocumentIssue, Quantity: decimal.NewFromInt(5)}},
		},
		{
			name:        "direct_expense_nothing_on_hand",
			result:      result(30, 0, 30),
			destination: entities.DirectExpense,
			expected:    []entities.Outcome{{Type: entities.DocumentPurchaseRequest, Quantity: decimal.NewFromInt(30)}},
		},
		{
			name:        "consignment_partial",
			result:      result(10, 6, 4),
			destination: entities.Consignment,
			expected: []entities.Outcome{
				{Type: entities.DocumentTransfer, Quantity: decimal.NewFromInt(6), VendorLiability: true},
				{Type: entities.DocumentPurchaseRequest, Quantity: decimal.NewFromInt(4)},
			},
		},
		{
			name:        "zero_line",
			result:      result(0, 0, 0),
			destination: entities.TrackedInventory,
			expected:    []entities.Outcome{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcomes, err := Classify(tt.result, tt.destination)
			if err != nil {
				t.Fatalf("Classify failed: %v", err)
			}
			if len(outcomes) != len(tt.expected) {
				t.Fatalf("Expected %d outcomes, got %d: %+v", len(tt.expected), len(outcomes), outcomes)
			}

			total := decimal.Zero
			for i, outcome := range outcomes {
				want := tt.expected[i]
				if outcome.Type != want.Type || !outcome.Quantity.Equal(want.Quantity) || outcome.VendorLiability != want.VendorLiability {
					t.Errorf("Outcome %d = %+v, want %+v", i, outcome, want)
				}
				total = total.Add(outcome.Quantity)
			}
			if !total.Equal(tt.result.RequestedQty) {
				t.Errorf("Outcome quantities sum to %s, want %s", total, tt.result.RequestedQty)
			}
		})
	}
}

func TestClassify_RejectsUnbalancedResult(t *testing.T) {
	_, err := Classify(result(20, 15, 10), entities.TrackedInventory)
	if !errors.Is(err, entities.ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation, got %v", err)
	}
}

func TestClassify_RejectsNilAndUnknownCategory(t *testing.T) {
	if _, err := Classify(nil, entities.TrackedInventory); err == nil {
		t.Error("Expected error for nil result")
	}
	if _, err := Classify(result(5, 5, 0), entities.LocationCategory(99)); err == nil {
		t.Error("Expected error for unknown destination category")
	}
}
