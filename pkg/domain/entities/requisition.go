package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RequisitionStatus is the lifecycle status of a requisition
type RequisitionStatus int

const (
	StatusDraft RequisitionStatus = iota
	StatusInProgress
	StatusCompleted
	StatusCancelled
	StatusVoided
)

// String method for RequisitionStatus enum
func (s RequisitionStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusVoided:
		return "voided"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible from s
func (s RequisitionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusVoided:
		return true
	default:
		return false
	}
}

// Stage is the workflow position of a requisition, orthogonal to its status
type Stage int

const (
	StageDraft Stage = iota
	StageSubmit
	StageApprove
	StageIssue
	StageComplete
)

// String method for Stage enum
func (s Stage) String() string {
	switch s {
	case StageDraft:
		return "draft"
	case StageSubmit:
		return "submit"
	case StageApprove:
		return "approve"
	case StageIssue:
		return "issue"
	case StageComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// LineItem is a single requested product on a requisition
type LineItem struct {
	ID           string
	ProductID    ProductID
	Unit         string
	RequestedQty decimal.Decimal
	ApprovedQty  decimal.NullDecimal
	IssuedQty    decimal.NullDecimal
	UnitCost     decimal.Decimal

	// IssueFinalized is set once the issued quantity can no longer change
	IssueFinalized bool

	// SourceLocationID overrides the requisition source for this line
	SourceLocationID LocationID
}

// NewLineItem creates a validated LineItem
func NewLineItem(id string, productID ProductID, unit string, requestedQty, unitCost decimal.Decimal) (*LineItem, error) {
	if id == "" {
		return nil, fmt.Errorf("line id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if !requestedQty.IsPositive() {
		return nil, fmt.Errorf("requested quantity must be positive, got %s", requestedQty)
	}
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost cannot be negative, got %s", unitCost)
	}

	return &LineItem{
		ID:           id,
		ProductID:    productID,
		Unit:         unit,
		RequestedQty: requestedQty,
		UnitCost:     unitCost,
	}, nil
}

// Validate checks 0 <= issued <= approved <= requested
func (l *LineItem) Validate() error {
	if !l.RequestedQty.IsPositive() {
		return fmt.Errorf("%w: line %s requested quantity must be positive, got %s",
			ErrInvariantViolation, l.ID, l.RequestedQty)
	}
	if l.ApprovedQty.Valid {
		if l.ApprovedQty.Decimal.IsNegative() {
			return fmt.Errorf("%w: line %s approved quantity cannot be negative, got %s",
				ErrInvariantViolation, l.ID, l.ApprovedQty.Decimal)
		}
		if l.ApprovedQty.Decimal.GreaterThan(l.RequestedQty) {
			return fmt.Errorf("%w: line %s approved %s exceeds requested %s",
				ErrInvariantViolation, l.ID, l.ApprovedQty.Decimal, l.RequestedQty)
		}
	}
	if l.IssuedQty.Valid {
		if l.IssuedQty.Decimal.IsNegative() {
			return fmt.Errorf("%w: line %s issued quantity cannot be negative, got %s",
				ErrInvariantViolation, l.ID, l.IssuedQty.Decimal)
		}
		if !l.ApprovedQty.Valid {
			return fmt.Errorf("%w: line %s issued before approval", ErrInvariantViolation, l.ID)
		}
		if l.IssuedQty.Decimal.GreaterThan(l.ApprovedQty.Decimal) {
			return fmt.Errorf("%w: line %s issued %s exceeds approved %s",
				ErrInvariantViolation, l.ID, l.IssuedQty.Decimal, l.ApprovedQty.Decimal)
		}
	}
	return nil
}

// FulfillableQty is the quantity the allocator works on: the approved
// quantity once approval is recorded, the requested quantity before that
func (l *LineItem) FulfillableQty() decimal.Decimal {
	if l.ApprovedQty.Valid {
		return l.ApprovedQty.Decimal
	}
	return l.RequestedQty
}

// TotalCost returns unit cost times the most advanced quantity known for the line
func (l *LineItem) TotalCost() decimal.Decimal {
	qty := l.FulfillableQty()
	if l.IssuedQty.Valid {
		qty = l.IssuedQty.Decimal
	}
	return l.UnitCost.Mul(qty)
}

// ApprovalRecord captures how a requisition got through the approve stage
type ApprovalRecord struct {
	Bypassed     bool
	RequiredRole string
	Rule         string
	ApprovedBy   string
	ApprovedRole string
	ApprovedAt   time.Time
}

// Requisition is an internal material request from one location to another
type Requisition struct {
	ID                    string
	Reference             string
	SourceLocationID      LocationID
	DestinationLocationID LocationID
	Requester             string
	Department            string
	RequestedDate         time.Time
	RequiredDate          time.Time
	Lines                 []*LineItem
	Status                RequisitionStatus
	Stage                 Stage
	Notes                 string
	Approval              *ApprovalRecord
	Documents             []GeneratedDocument
	CancelReason          string

	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time

	// Version is bumped on every save and used for optimistic concurrency
	Version int
}

// Line returns the line with the given id
func (r *Requisition) Line(lineID string) (*LineItem, bool) {
	for _, line := range r.Lines {
		if line.ID == lineID {
			return line, true
		}
	}
	return nil, false
}

// LineSource returns the effective source location of a line
func (r *Requisition) LineSource(line *LineItem) LocationID {
	if line.SourceLocationID != "" {
		return line.SourceLocationID
	}
	return r.SourceLocationID
}

// TotalCost sums the line totals
func (r *Requisition) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.TotalCost())
	}
	return total
}

// Immutable reports whether the requisition has reached a terminal status
func (r *Requisition) Immutable() bool {
	return r.Status.Terminal()
}

// Clone returns a deep copy, so that a rejected transition never leaks
// partial mutations into the stored requisition
func (r *Requisition) Clone() *Requisition {
	c := *r
	c.Lines = make([]*LineItem, len(r.Lines))
	for i, line := range r.Lines {
		l := *line
		c.Lines[i] = &l
	}
	if r.Approval != nil {
		a := *r.Approval
		c.Approval = &a
	}
	c.Documents = make([]GeneratedDocument, len(r.Documents))
	for i, doc := range r.Documents {
		c.Documents[i] = doc.Clone()
	}
	return &c
}

// Validate checks header fields and every line invariant
func (r *Requisition) Validate() error {
	if r.SourceLocationID == "" {
		return fmt.Errorf("source location cannot be empty")
	}
	if r.DestinationLocationID == "" {
		return fmt.Errorf("destination location cannot be empty")
	}
	if r.Requester == "" {
		return fmt.Errorf("requester cannot be empty")
	}
	if !r.RequiredDate.IsZero() && r.RequiredDate.Before(r.RequestedDate) {
		return fmt.Errorf("required date %s cannot be before requested date %s",
			r.RequiredDate.Format("2006-01-02"), r.RequestedDate.Format("2006-01-02"))
	}
	seen := make(map[string]bool, len(r.Lines))
	for _, line := range r.Lines {
		if seen[line.ID] {
			return fmt.Errorf("duplicate line id %s", line.ID)
		}
		seen[line.ID] = true
		if err := line.Validate(); err != nil {
			return err
		}
	}
	return nil
}
