package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/fulfillment"
	"github.com/vsinha/storereq/pkg/application/services/replenishment"
	"github.com/vsinha/storereq/pkg/application/services/requisition"
	"github.com/vsinha/storereq/pkg/application/services/stock"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
	testhelpers "github.com/vsinha/storereq/pkg/infrastructure/testing"
)

func newOrchestrator() *RequisitionOrchestrator {
	f := testhelpers.BuildHotelTestData()
	clock := func() time.Time { return time.Date(2024, time.October, 15, 9, 0, 0, 0, time.UTC) }

	resolver := stock.NewResolver(f.Directory, f.Stock, stock.WithCatalog(f.Catalog))
	allocator := fulfillment.NewAllocator(resolver, nil)
	service := requisition.NewService(
		f.Requisitions,
		f.Directory,
		f.Catalog,
		allocator,
		services.NewWorkflowGate(services.DefaultApprovalConfig()),
		services.NewReferenceSequencer(f.Counters, services.WithClock(clock)),
		requisition.WithClock(clock),
	)
	planner := replenishment.NewPlanner(f.ParLevels, f.Stock, service, allocator)

	return NewRequisitionOrchestrator(service, planner, nil)
}

func script(key string, destination entities.LocationID, role string, product entities.ProductID, qty int64, approved decimal.NullDecimal) dto.ScriptedRequisition {
	return dto.ScriptedRequisition{
		Key: key,
		Create: dto.CreateRequisition{
			SourceLocationID:      "MAIN",
			DestinationLocationID: destination,
			Requester:             "jdoe",
			Department:            "Operations",
			Lines:                 []dto.LineInput{{ProductID: product, Quantity: decimal.NewFromInt(qty)}},
		},
		ApproverRole: role,
		ApprovedQty:  []decimal.NullDecimal{approved},
	}
}

func TestRequisitionOrchestrator_RunScripts(t *testing.T) {
	o := newOrchestrator()

	outcomes, err := o.RunScripts(context.Background(), []dto.ScriptedRequisition{
		script("bar-flour", "BAR", "", "FLOUR", 100, decimal.NullDecimal{}),
		script("hk-soap", "HOUSEKEEPING", "department-head", "SOAP", 50, decimal.NewNullDecimal(decimal.NewFromInt(40))),
		script("hk-towels", "HOUSEKEEPING", "store-manager", "TOWEL", 30, decimal.NullDecimal{}),
	})
	if err != nil {
		t.Fatalf("RunScripts failed: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("Expected 3 outcomes, got %d", len(outcomes))
	}

	flour := outcomes[0]
	if !flour.Issued() || !flour.Bypassed {
		t.Fatalf("Expected store-to-store requisition to bypass approval and issue, got %+v", flour)
	}
	if len(flour.Issue.Documents) != 1 || flour.Issue.Documents[0].Reference != "TRF-2410-001" {
		t.Errorf("Expected TRF-2410-001, got %+v", flour.Issue.Documents)
	}

	soap := outcomes[1]
	if !soap.Issued() || soap.Bypassed {
		t.Fatalf("Expected manual approval and issue, got %+v", soap)
	}
	doc := soap.Issue.Documents[0]
	if doc.Reference != "ISS-2410-001" || !doc.TotalQuantity().Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected ISS-2410-001 for 40, got %s for %s", doc.Reference, doc.TotalQuantity())
	}

	towels := outcomes[2]
	if towels.Issued() || !errors.Is(towels.Err, entities.ErrApproverMismatch) {
		t.Errorf("Expected approver mismatch, got %v", towels.Err)
	}
	if towels.Requisition == nil || towels.Requisition.Stage != entities.StageSubmit {
		t.Errorf("Expected towel requisition to stay at submit, got %+v", towels.Requisition)
	}

	summary := Summarize(outcomes)
	want := RunSummary{Requisitions: 3, Issued: 2, Bypassed: 1, Failed: 1}
	if summary.Requisitions != want.Requisitions || summary.Issued != want.Issued ||
		summary.Bypassed != want.Bypassed || summary.Failed != want.Failed {
		t.Errorf("Unexpected summary: %s", summary)
	}
	if summary.Documents[entities.DocumentTransfer] != 1 || summary.Documents[entities.DocumentIssue] != 1 {
		t.Errorf("Unexpected document counts: %v", summary.Documents)
	}
}

func TestRequisitionOrchestrator_RunScriptsRejectsEmptyBatch(t *testing.T) {
	if _, err := newOrchestrator().RunScripts(context.Background(), nil); err == nil {
		t.Error("Expected error for empty batch")
	}
}

func TestRequisitionOrchestrator_ApprovalLengthMismatch(t *testing.T) {
	s := script("too-many", "HOUSEKEEPING", "department-head", "SOAP", 10, decimal.NullDecimal{})
	s.ApprovedQty = append(s.ApprovedQty, decimal.NewNullDecimal(decimal.NewFromInt(1)))

	outcomes, err := newOrchestrator().RunScripts(context.Background(), []dto.ScriptedRequisition{s})
	if err != nil {
		t.Fatalf("RunScripts failed: %v", err)
	}
	if outcomes[0].Err == nil {
		t.Error("Expected approval mapping error")
	}
}

func TestRequisitionOrchestrator_Replenish(t *testing.T) {
	o := newOrchestrator()

	accepted, err := o.Replenish(context.Background(), "MAIN", "planner")
	if err != nil {
		t.Fatalf("Replenish failed: %v", err)
	}

	// MAIN is below PAR for towels but is the source, so only BAR remains
	if len(accepted) != 1 {
		t.Fatalf("Expected 1 accepted replenishment, got %d", len(accepted))
	}
	r := accepted[0].Requisition
	if r.DestinationLocationID != "BAR" || r.Reference != "SR-2410-001" {
		t.Errorf("Expected SR-2410-001 to BAR, got %s to %s", r.Reference, r.DestinationLocationID)
	}
	if r.Stage != entities.StageDraft {
		t.Errorf("Expected draft requisition, got stage %s", r.Stage)
	}
	if !accepted[0].Shortfall().Equal(decimal.NewFromInt(24)) {
		t.Errorf("Expected tonic shortfall of 24, got %s", accepted[0].Shortfall())
	}
}
