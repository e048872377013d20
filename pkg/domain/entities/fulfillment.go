package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DocumentType is the kind of document a fulfillment outcome produces
type DocumentType int

const (
	DocumentTransfer DocumentType = iota
	DocumentIssue
	DocumentPurchaseRequest
)

// String method for DocumentType enum
func (d DocumentType) String() string {
	switch d {
	case DocumentTransfer:
		return "Transfer"
	case DocumentIssue:
		return "Issue"
	case DocumentPurchaseRequest:
		return "PurchaseRequest"
	default:
		return "Unknown"
	}
}

// SourcePortion is the part of a line satisfied from one location
type SourcePortion struct {
	LocationID LocationID
	Quantity   decimal.Decimal
	Alternate  bool
}

// Outcome is one classified consequence of a fulfillment result
type Outcome struct {
	Type     DocumentType
	Quantity decimal.Decimal

	// VendorLiability marks transfers into consignment locations
	VendorLiability bool
}

// FulfillmentResult is the transient allocation of one line item. It is
// computed fresh on every pass and never cached
type FulfillmentResult struct {
	LineID       string
	ProductID    ProductID
	RequestedQty decimal.Decimal
	Satisfiable  decimal.Decimal
	Shortfall    decimal.Decimal
	Portions     []SourcePortion
	ChosenSource LocationID
	Outcomes     []Outcome
}

// Balanced reports satisfiable + shortfall == requested
func (f *FulfillmentResult) Balanced() bool {
	return f.Satisfiable.Add(f.Shortfall).Equal(f.RequestedQty)
}

// Rehomed reports whether any portion came from an alternate location
func (f *FulfillmentResult) Rehomed() bool {
	for _, p := range f.Portions {
		if p.Alternate {
			return true
		}
	}
	return false
}

// DocumentLine is the portion of a requisition line carried by a document
type DocumentLine struct {
	LineID           string
	ProductID        ProductID
	Quantity         decimal.Decimal
	SourceLocationID LocationID
}

// GeneratedDocument links a requisition to an emitted outcome. Transfers and
// issues are projections over the requisition, not separate aggregates
type GeneratedDocument struct {
	Type            DocumentType
	Reference       string
	RequisitionID   string
	Lines           []DocumentLine
	VendorLiability bool
	GeneratedAt     time.Time
}

// NewGeneratedDocument creates a validated GeneratedDocument
func NewGeneratedDocument(docType DocumentType, reference, requisitionID string, lines []DocumentLine, generatedAt time.Time) (*GeneratedDocument, error) {
	if reference == "" {
		return nil, fmt.Errorf("document reference cannot be empty")
	}
	if requisitionID == "" {
		return nil, fmt.Errorf("requisition id cannot be empty")
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s document %s has no lines", docType, reference)
	}

	return &GeneratedDocument{
		Type:          docType,
		Reference:     reference,
		RequisitionID: requisitionID,
		Lines:         lines,
		GeneratedAt:   generatedAt,
	}, nil
}

// TotalQuantity sums the document lines
func (d GeneratedDocument) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}

// Clone returns a copy with its own line slice
func (d GeneratedDocument) Clone() GeneratedDocument {
	c := d
	c.Lines = append([]DocumentLine(nil), d.Lines...)
	return c
}
