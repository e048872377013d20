package logging

import (
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// AuditHandler writes every requisition state change to a logger
type AuditHandler struct {
	logger *zap.Logger
	types  map[string]bool
}

// NewAuditHandler creates an audit handler for the requisition event types
func NewAuditHandler(logger *zap.Logger) *AuditHandler {
	types := make(map[string]bool, len(events.RequisitionEventTypes))
	for _, t := range events.RequisitionEventTypes {
		types[t] = true
	}
	return &AuditHandler{logger: logger.Named("audit"), types: types}
}

// Register subscribes the handler to store
func (h *AuditHandler) Register(store events.EventStore) error {
	return store.Subscribe(events.RequisitionEventTypes, h)
}

func (h *AuditHandler) CanHandle(eventType string) bool {
	return h.types[eventType]
}

func (h *AuditHandler) Handle(event events.Event) error {
	fields := []zap.Field{
		zap.String("event_type", event.Type()),
		zap.String("stream_id", event.StreamID()),
		zap.Int("version", event.Version()),
		zap.Time("at", event.Timestamp()),
	}

	switch data := event.Data().(type) {
	case events.StateChanged:
		fields = append(fields,
			zap.String("reference", data.Reference),
			zap.String("status", data.FromStatus+"->"+data.ToStatus),
			zap.String("stage", data.FromStage+"->"+data.ToStage),
			zap.String("actor", data.Actor))
		if data.Reason != "" {
			fields = append(fields, zap.String("reason", data.Reason))
		}
	case events.DocumentGenerated:
		fields = append(fields,
			zap.String("document_type", data.DocumentType),
			zap.String("reference", data.Reference),
			zap.Int("lines", len(data.Lines)),
			zap.Bool("vendor_liability", data.VendorLiability))
	case events.ReplenishmentAccepted:
		fields = append(fields,
			zap.String("location_id", string(data.LocationID)),
			zap.Int("suggestions", len(data.Suggestions)))
	default:
		fields = append(fields, zap.Any("data", data))
	}

	h.logger.Info("requisition event", fields...)
	return nil
}
