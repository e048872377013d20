package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

type requisitionResponse struct {
	ID                    string             `json:"id"`
	Reference             string             `json:"reference"`
	SourceLocationID      string             `json:"source_location_id"`
	DestinationLocationID string             `json:"destination_location_id"`
	Requester             string             `json:"requester"`
	Department            string             `json:"department,omitempty"`
	RequestedDate         time.Time          `json:"requested_date"`
	RequiredDate          *time.Time         `json:"required_date,omitempty"`
	Status                string             `json:"status"`
	Stage                 string             `json:"stage"`
	Notes                 string             `json:"notes,omitempty"`
	CancelReason          string             `json:"cancel_reason,omitempty"`
	TotalCost             decimal.Decimal    `json:"total_cost"`
	Lines                 []lineResponse     `json:"lines"`
	Approval              *approvalResponse  `json:"approval,omitempty"`
	Documents             []documentResponse `json:"documents,omitempty"`
	Version               int                `json:"version"`
}

type lineResponse struct {
	ID               string              `json:"id"`
	ProductID        string              `json:"product_id"`
	Unit             string              `json:"unit"`
	RequestedQty     decimal.Decimal     `json:"requested_qty"`
	ApprovedQty      decimal.NullDecimal `json:"approved_qty"`
	IssuedQty        decimal.NullDecimal `json:"issued_qty"`
	IssueFinalized   bool                `json:"issue_finalized"`
	UnitCost         decimal.Decimal     `json:"unit_cost"`
	TotalCost        decimal.Decimal     `json:"total_cost"`
	SourceLocationID string              `json:"source_location_id,omitempty"`
}

type approvalResponse struct {
	Bypassed     bool      `json:"bypassed"`
	Rule         string    `json:"rule"`
	RequiredRole string    `json:"required_role,omitempty"`
	ApprovedBy   string    `json:"approved_by,omitempty"`
	ApprovedRole string    `json:"approved_role,omitempty"`
	ApprovedAt   time.Time `json:"approved_at"`
}

type documentResponse struct {
	Type            string                 `json:"type"`
	Reference       string                 `json:"reference"`
	RequisitionID   string                 `json:"requisition_id"`
	VendorLiability bool                   `json:"vendor_liability"`
	GeneratedAt     time.Time              `json:"generated_at"`
	Lines           []documentLineResponse `json:"lines"`
}

type documentLineResponse struct {
	LineID           string          `json:"line_id"`
	ProductID        string          `json:"product_id"`
	Quantity         decimal.Decimal `json:"quantity"`
	SourceLocationID string          `json:"source_location_id,omitempty"`
}

type fulfillmentResponse struct {
	LineID       string            `json:"line_id"`
	ProductID    string            `json:"product_id"`
	RequestedQty decimal.Decimal   `json:"requested_qty"`
	Satisfiable  decimal.Decimal   `json:"satisfiable"`
	Shortfall    decimal.Decimal   `json:"shortfall"`
	ChosenSource string            `json:"chosen_source,omitempty"`
	Rehomed      bool              `json:"rehomed"`
	Portions     []portionResponse `json:"portions,omitempty"`
}

type portionResponse struct {
	LocationID string          `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Alternate  bool            `json:"alternate"`
}

type issueResponse struct {
	Requisition requisitionResponse   `json:"requisition"`
	Fulfillment []fulfillmentResponse `json:"fulfillment"`
	Documents   []documentResponse    `json:"documents"`
}

type acceptResponse struct {
	Requisition requisitionResponse   `json:"requisition"`
	Provisional []fulfillmentResponse `json:"provisional"`
	Shortfall   decimal.Decimal       `json:"shortfall"`
}

type eventResponse struct {
	Type      string      `json:"type"`
	StreamID  string      `json:"stream_id"`
	Version   int         `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

func newRequisitionResponse(r *entities.Requisition) requisitionResponse {
	res := requisitionResponse{
		ID:                    r.ID,
		Reference:             r.Reference,
		SourceLocationID:      string(r.SourceLocationID),
		DestinationLocationID: string(r.DestinationLocationID),
		Requester:             r.Requester,
		Department:            r.Department,
		RequestedDate:         r.RequestedDate,
		Status:                r.Status.String(),
		Stage:                 r.Stage.String(),
		Notes:                 r.Notes,
		CancelReason:          r.CancelReason,
		TotalCost:             r.TotalCost(),
		Lines:                 make([]lineResponse, 0, len(r.Lines)),
		Documents:             newDocumentResponses(r.Documents),
		Version:               r.Version,
	}
	if !r.RequiredDate.IsZero() {
		required := r.RequiredDate
		res.RequiredDate = &required
	}
	for _, line := range r.Lines {
		res.Lines = append(res.Lines, lineResponse{
			ID:               line.ID,
			ProductID:        string(line.ProductID),
			Unit:             line.Unit,
			RequestedQty:     line.RequestedQty,
			ApprovedQty:      line.ApprovedQty,
			IssuedQty:        line.IssuedQty,
			IssueFinalized:   line.IssueFinalized,
			UnitCost:         line.UnitCost,
			TotalCost:        line.TotalCost(),
			SourceLocationID: string(line.SourceLocationID),
		})
	}
	if a := r.Approval; a != nil {
		res.Approval = &approvalResponse{
			Bypassed:     a.Bypassed,
			Rule:         a.Rule,
			RequiredRole: a.RequiredRole,
			ApprovedBy:   a.ApprovedBy,
			ApprovedRole: a.ApprovedRole,
			ApprovedAt:   a.ApprovedAt,
		}
	}
	return res
}

func newDocumentResponses(docs []entities.GeneratedDocument) []documentResponse {
	res := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		d := documentResponse{
			Type:            doc.Type.String(),
			Reference:       doc.Reference,
			RequisitionID:   doc.RequisitionID,
			VendorLiability: doc.VendorLiability,
			GeneratedAt:     doc.GeneratedAt,
			Lines:           make([]documentLineResponse, 0, len(doc.Lines)),
		}
		for _, line := range doc.Lines {
			d.Lines = append(d.Lines, documentLineResponse{
				LineID:           line.LineID,
				ProductID:        string(line.ProductID),
				Quantity:         line.Quantity,
				SourceLocationID: string(line.SourceLocationID),
			})
		}
		res = append(res, d)
	}
	return res
}

func newFulfillmentResponses(results []*entities.FulfillmentResult) []fulfillmentResponse {
	res := make([]fulfillmentResponse, 0, len(results))
	for _, result := range results {
		f := fulfillmentResponse{
			LineID:       result.LineID,
			ProductID:    string(result.ProductID),
			RequestedQty: result.RequestedQty,
			Satisfiable:  result.Satisfiable,
			Shortfall:    result.Shortfall,
			ChosenSource: string(result.ChosenSource),
			Rehomed:      result.Rehomed(),
		}
		for _, p := range result.Portions {
			f.Portions = append(f.Portions, portionResponse{
				LocationID: string(p.LocationID),
				Quantity:   p.Quantity,
				Alternate:  p.Alternate,
			})
		}
		res = append(res, f)
	}
	return res
}

func newIssueResponse(result *dto.IssueResult) issueResponse {
	return issueResponse{
		Requisition: newRequisitionResponse(result.Requisition),
		Fulfillment: newFulfillmentResponses(result.Results),
		Documents:   newDocumentResponses(result.Documents),
	}
}

func newEventResponses(stored []events.Event) []eventResponse {
	res := make([]eventResponse, 0, len(stored))
	for _, e := range stored {
		res = append(res, eventResponse{
			Type:      e.Type(),
			StreamID:  e.StreamID(),
			Version:   e.Version(),
			Timestamp: e.Timestamp(),
			Data:      e.Data(),
		})
	}
	return res
}
