package logging

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

func TestAuditHandler_LogsStateChanges(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := NewAuditHandler(zap.New(core))

	store := events.NewInMemoryEventStore()
	if err := handler.Register(store); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	at := time.Date(2024, time.October, 15, 9, 0, 0, 0, time.UTC)
	_ = store.AppendEvent("REQ-1", events.NewEventAt(events.RequisitionSubmittedEvent, "REQ-1", events.StateChanged{
		RequisitionID: "REQ-1",
		Reference:     "SR-2410-001",
		FromStatus:    "draft",
		ToStatus:      "in_progress",
		FromStage:     "draft",
		ToStage:       "submit",
		Actor:         "jdoe",
	}, at))
	_ = store.AppendEvent("REQ-1", events.NewEventAt("unrelated.event", "REQ-1", nil, at))
	store.Drain()

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 audit entry, got %d", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["reference"] != "SR-2410-001" {
		t.Errorf("reference = %v, want SR-2410-001", fields["reference"])
	}
	if fields["stage"] != "draft->submit" {
		t.Errorf("stage = %v, want draft->submit", fields["stage"])
	}
	if fields["actor"] != "jdoe" {
		t.Errorf("actor = %v, want jdoe", fields["actor"])
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty", false); err == nil {
		t.Error("Expected error for unknown level")
	}
	logger, err := New("debug", true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Error("Expected debug level to be enabled")
	}
}
