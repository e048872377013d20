package events

import (
	"github.com/vsinha/storereq/pkg/domain/entities"
)

const (
	RequisitionCreatedEvent   = "requisition.created"
	RequisitionUpdatedEvent   = "requisition.updated"
	RequisitionSubmittedEvent = "requisition.submitted"
	RequisitionApprovedEvent  = "requisition.approved"
	RequisitionIssuedEvent    = "requisition.issued"
	RequisitionCompletedEvent = "requisition.completed"
	RequisitionCancelledEvent = "requisition.cancelled"
	RequisitionVoidedEvent    = "requisition.voided"

	DocumentGeneratedEvent = "document.generated"

	ReplenishmentAcceptedEvent = "replenishment.accepted"
)

// RequisitionEventTypes lists every state-change event type
var RequisitionEventTypes = []string{
	RequisitionCreatedEvent,
	RequisitionUpdatedEvent,
	RequisitionSubmittedEvent,
	RequisitionApprovedEvent,
	RequisitionIssuedEvent,
	RequisitionCompletedEvent,
	RequisitionCancelledEvent,
	RequisitionVoidedEvent,
	DocumentGeneratedEvent,
	ReplenishmentAcceptedEvent,
}

// StateChanged is the payload of every requisition transition event
type StateChanged struct {
	RequisitionID string `json:"requisition_id"`
	Reference     string `json:"reference"`
	FromStatus    string `json:"from_status"`
	ToStatus      string `json:"to_status"`
	FromStage     string `json:"from_stage"`
	ToStage       string `json:"to_stage"`
	Actor         string `json:"actor"`
	Reason        string `json:"reason,omitempty"`
}

type DocumentGenerated struct {
	RequisitionID   string                  `json:"requisition_id"`
	DocumentType    string                  `json:"document_type"`
	Reference       string                  `json:"reference"`
	Lines           []entities.DocumentLine `json:"lines"`
	VendorLiability bool                    `json:"vendor_liability"`
}

type ReplenishmentAccepted struct {
	RequisitionID string                             `json:"requisition_id"`
	LocationID    entities.LocationID                `json:"location_id"`
	Suggestions   []entities.ReplenishmentSuggestion `json:"suggestions"`
}

func NewStateChangedEvent(before, after *entities.Requisition, eventType, actor, reason string) Event {
	return NewEventAt(eventType, after.ID, StateChanged{
		RequisitionID: after.ID,
		Reference:     after.Reference,
		FromStatus:    before.Status.String(),
		ToStatus:      after.Status.String(),
		FromStage:     before.Stage.String(),
		ToStage:       after.Stage.String(),
		Actor:         actor,
		Reason:        reason,
	}, after.UpdatedAt)
}

func NewDocumentGeneratedEvent(doc entities.GeneratedDocument) Event {
	return NewEventAt(DocumentGeneratedEvent, doc.RequisitionID, DocumentGenerated{
		RequisitionID:   doc.RequisitionID,
		DocumentType:    doc.Type.String(),
		Reference:       doc.Reference,
		Lines:           doc.Lines,
		VendorLiability: doc.VendorLiability,
	}, doc.GeneratedAt)
}
