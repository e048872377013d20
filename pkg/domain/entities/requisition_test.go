package entities

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func nullQty(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func TestLineItem_Validation(t *testing.T) {
	validLine, err := NewLineItem("L1", "FLOUR", "KG", qty(10), decimal.RequireFromString("1.25"))
	if err != nil {
		t.Fatalf("Expected valid line creation to succeed: %v", err)
	}
	if !validLine.RequestedQty.Equal(qty(10)) {
		t.Errorf("Expected requested qty 10, got %s", validLine.RequestedQty)
	}

	testCases := []struct {
		name        string
		id          string
		productID   ProductID
		requested   decimal.Decimal
		unitCost    decimal.Decimal
		expectError string
	}{
		{"empty id", "", "FLOUR", qty(1), qty(1), "line id cannot be empty"},
		{"empty product", "L1", "", qty(1), qty(1), "product id cannot be empty"},
		{"zero quantity", "L1", "FLOUR", qty(0), qty(1), "requested quantity must be positive, got 0"},
		{"negative quantity", "L1", "FLOUR", qty(-3), qty(1), "requested quantity must be positive, got -3"},
		{"negative cost", "L1", "FLOUR", qty(1), qty(-1), "unit cost cannot be negative, got -1"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewLineItem(tc.id, tc.productID, "KG", tc.requested, tc.unitCost)
			if err == nil {
				t.Fatalf("Expected error for %s, but got none", tc.name)
			}
			if err.Error() != tc.expectError {
				t.Errorf("Expected error '%s', got '%s'", tc.expectError, err.Error())
			}
		})
	}
}

func TestLineItem_QuantityInvariant(t *testing.T) {
	tests := []struct {
		name      string
		approved  decimal.NullDecimal
		issued    decimal.NullDecimal
		expectErr bool
	}{
		{"requested only", decimal.NullDecimal{}, decimal.NullDecimal{}, false},
		{"approved equal requested", nullQty(10), decimal.NullDecimal{}, false},
		{"approved above requested", nullQty(11), decimal.NullDecimal{}, true},
		{"issued within approved", nullQty(8), nullQty(8), false},
		{"issued above approved", nullQty(8), nullQty(9), true},
		{"issued without approval", decimal.NullDecimal{}, nullQty(1), true},
		{"negative approved", nullQty(-1), decimal.NullDecimal{}, true},
		{"zero issued", nullQty(5), nullQty(0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := &LineItem{ID: "L1", ProductID: "FLOUR", RequestedQty: qty(10), ApprovedQty: tt.approved, IssuedQty: tt.issued}
			err := line.Validate()
			if tt.expectErr {
				if err == nil {
					t.Fatal("Expected invariant violation but got none")
				}
				if !errors.Is(err, ErrInvariantViolation) {
					t.Errorf("Expected ErrInvariantViolation, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLineItem_FulfillableQtyAndCost(t *testing.T) {
	line := &LineItem{ID: "L1", ProductID: "FLOUR", RequestedQty: qty(10), UnitCost: decimal.RequireFromString("2.5")}

	if !line.FulfillableQty().Equal(qty(10)) {
		t.Errorf("Expected fulfillable 10 before approval, got %s", line.FulfillableQty())
	}
	if !line.TotalCost().Equal(qty(25)) {
		t.Errorf("Expected total cost 25, got %s", line.TotalCost())
	}

	line.ApprovedQty = nullQty(6)
	if !line.FulfillableQty().Equal(qty(6)) {
		t.Errorf("Expected fulfillable 6 after approval, got %s", line.FulfillableQty())
	}

	line.IssuedQty = nullQty(4)
	if !line.TotalCost().Equal(qty(10)) {
		t.Errorf("Expected total cost 10 after issue, got %s", line.TotalCost())
	}
}

func TestRequisition_CloneIsDeep(t *testing.T) {
	req := &Requisition{
		ID:       "R1",
		Lines:    []*LineItem{{ID: "L1", ProductID: "FLOUR", RequestedQty: qty(5)}},
		Approval: &ApprovalRecord{RequiredRole: "department-head"},
		Documents: []GeneratedDocument{
			{Type: DocumentTransfer, Reference: "TRF-2410-001", Lines: []DocumentLine{{LineID: "L1", Quantity: qty(5)}}},
		},
	}

	clone := req.Clone()
	clone.Lines[0].RequestedQty = qty(99)
	clone.Approval.RequiredRole = "changed"
	clone.Documents[0].Lines[0].Quantity = qty(1)

	if !req.Lines[0].RequestedQty.Equal(qty(5)) {
		t.Error("Expected original line to be untouched by clone mutation")
	}
	if req.Approval.RequiredRole != "department-head" {
		t.Error("Expected original approval to be untouched by clone mutation")
	}
	if !req.Documents[0].Lines[0].Quantity.Equal(qty(5)) {
		t.Error("Expected original document lines to be untouched by clone mutation")
	}
}

func TestRequisition_Validate(t *testing.T) {
	now := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)
	base := func() *Requisition {
		return &Requisition{
			SourceLocationID:      "MAIN",
			DestinationLocationID: "BAR",
			Requester:             "chef",
			RequestedDate:         now,
			RequiredDate:          now.Add(48 * time.Hour),
			Lines:                 []*LineItem{{ID: "L1", ProductID: "LIME", RequestedQty: qty(3)}},
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("Expected valid requisition, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(r *Requisition)
	}{
		{"missing source", func(r *Requisition) { r.SourceLocationID = "" }},
		{"missing destination", func(r *Requisition) { r.DestinationLocationID = "" }},
		{"missing requester", func(r *Requisition) { r.Requester = "" }},
		{"required before requested", func(r *Requisition) { r.RequiredDate = now.Add(-time.Hour) }},
		{"duplicate line", func(r *Requisition) { r.Lines = append(r.Lines, &LineItem{ID: "L1", ProductID: "X", RequestedQty: qty(1)}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base()
			tt.mutate(r)
			if err := r.Validate(); err == nil {
				t.Error("Expected validation error but got none")
			}
		})
	}
}
