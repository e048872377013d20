package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// LineInput describes a line to add to a draft requisition
type LineInput struct {
	ProductID entities.ProductID `json:"product_id"`
	Quantity  decimal.Decimal    `json:"quantity"`

	// UnitCost overrides the catalog default cost when set
	UnitCost decimal.NullDecimal `json:"unit_cost"`

	// SourceLocationID overrides the requisition source for this line
	SourceLocationID entities.LocationID `json:"source_location_id,omitempty"`
}

// CreateRequisition carries everything needed to open a draft requisition
type CreateRequisition struct {
	SourceLocationID      entities.LocationID `json:"source_location_id"`
	DestinationLocationID entities.LocationID `json:"destination_location_id"`
	Requester             string              `json:"requester"`
	Department            string              `json:"department"`
	RequestedDate         time.Time           `json:"requested_date"`
	RequiredDate          time.Time           `json:"required_date"`
	Notes                 string              `json:"notes"`
	Lines                 []LineInput         `json:"lines"`
}

// Approval records a manual approval. Quantities maps line IDs to approved
// quantities; lines left out are approved in full
type Approval struct {
	Approver   string                     `json:"approver"`
	Role       string                     `json:"role"`
	Quantities map[string]decimal.Decimal `json:"quantities"`
}

// IssueResult is the outcome of moving a requisition into the issue stage
type IssueResult struct {
	Requisition *entities.Requisition
	Results     []*entities.FulfillmentResult
	Documents   []entities.GeneratedDocument
}

// AcceptedReplenishment is a draft requisition built from PAR suggestions,
// with the provisional fulfillment computed when it was created
type AcceptedReplenishment struct {
	Requisition *entities.Requisition
	Provisional []*entities.FulfillmentResult
}

// Shortfall sums the shortfall of every provisional result
func (a *AcceptedReplenishment) Shortfall() decimal.Decimal {
	total := decimal.Zero
	for _, r := range a.Provisional {
		total = total.Add(r.Shortfall)
	}
	return total
}
