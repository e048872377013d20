package requisition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/fulfillment"
	"github.com/vsinha/storereq/pkg/application/services/stock"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
	testhelpers "github.com/vsinha/storereq/pkg/infrastructure/testing"
)

var issueDate = time.Date(2024, time.October, 15, 9, 0, 0, 0, time.UTC)

type harness struct {
	fixture   *testhelpers.Fixture
	service   *Service
	sequencer *services.ReferenceSequencer
	events    *events.InMemoryEventStore
}

func newHarness() *harness {
	f := testhelpers.BuildHotelTestData()
	clock := func() time.Time { return issueDate }

	resolver := stock.NewResolver(f.Directory, f.Stock, stock.WithCatalog(f.Catalog))
	sequencer := services.NewReferenceSequencer(f.Counters, services.WithClock(clock))
	store := events.NewInMemoryEventStore()

	var next int64
	service := NewService(
		f.Requisitions,
		f.Directory,
		f.Catalog,
		fulfillment.NewAllocator(resolver, nil),
		services.NewWorkflowGate(services.DefaultApprovalConfig()),
		sequencer,
		WithClock(clock),
		WithEventStore(store),
		WithIDGenerator(func() string {
			return fmt.Sprintf("REQ-%d", atomic.AddInt64(&next, 1))
		}),
	)

	return &harness{fixture: f, service: service, sequencer: sequencer, events: store}
}

func (h *harness) create(t *testing.T, source, destination entities.LocationID, lines ...dto.LineInput) *entities.Requisition {
	t.Helper()
	r, err := h.service.Create(context.Background(), dto.CreateRequisition{
		SourceLocationID:      source,
		DestinationLocationID: destination,
		Requester:             "jdoe",
		Department:            "F&B",
		Lines:                 lines,
	}, "jdoe")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return r
}

func lineInput(productID entities.ProductID, qty int64) dto.LineInput {
	return dto.LineInput{ProductID: productID, Quantity: decimal.NewFromInt(qty)}
}

func TestService_StoreToStoreBypassAndIssue(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("FLOUR", 100))
	if r.Reference != "SR-2410-001" {
		t.Errorf("Reference = %s, want SR-2410-001", r.Reference)
	}
	if r.Status != entities.StatusDraft || r.Stage != entities.StageDraft {
		t.Errorf("Expected draft/draft, got %s/%s", r.Status, r.Stage)
	}
	if r.Lines[0].Unit != "kg" || !r.Lines[0].UnitCost.Equal(decimal.RequireFromString("1.20")) {
		t.Errorf("Expected catalog snapshot kg @ 1.20, got %s @ %s", r.Lines[0].Unit, r.Lines[0].UnitCost)
	}

	submitted, err := h.service.Submit(ctx, r.ID, "jdoe")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Stage != entities.StageApprove {
		t.Errorf("Expected bypass to land in approve stage, got %s", submitted.Stage)
	}
	if !submitted.Approval.Bypassed || submitted.Approval.ApprovedBy != BypassApprover {
		t.Errorf("Unexpected approval record: %+v", submitted.Approval)
	}
	if !submitted.Lines[0].ApprovedQty.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected auto-approval of 100, got %s", submitted.Lines[0].ApprovedQty.Decimal)
	}

	issued, err := h.service.Issue(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if len(issued.Documents) != 1 {
		t.Fatalf("Expected a single transfer, got %+v", issued.Documents)
	}
	doc := issued.Documents[0]
	if doc.Type != entities.DocumentTransfer || doc.Reference != "TRF-2410-001" {
		t.Errorf("Unexpected document %s %s", doc.Type, doc.Reference)
	}
	if len(doc.Lines) != 2 {
		t.Fatalf("Expected one document line per source, got %+v", doc.Lines)
	}
	if doc.Lines[0].SourceLocationID != "MAIN" || !doc.Lines[0].Quantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Unexpected primary line: %+v", doc.Lines[0])
	}
	if doc.Lines[1].SourceLocationID != "KITCHEN" || !doc.Lines[1].Quantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Unexpected re-homed line: %+v", doc.Lines[1])
	}

	stored, _ := h.service.Get(ctx, r.ID)
	if stored.Stage != entities.StageIssue {
		t.Errorf("Expected stage issue, got %s", stored.Stage)
	}
	if !stored.Lines[0].IssuedQty.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected issued 100, got %s", stored.Lines[0].IssuedQty.Decimal)
	}

	docs, _ := h.service.Documents(ctx, r.ID)
	if len(docs) != 1 || docs[0].Reference != "TRF-2410-001" {
		t.Errorf("Documents() = %+v", docs)
	}
}

func TestService_DirectExpenseWithNothingOnHand(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "HOUSEKEEPING", lineInput("TOWEL", 30))

	submitted, err := h.service.Submit(ctx, r.ID, "jdoe")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Stage != entities.StageSubmit {
		t.Errorf("Expected manual approval to wait in submit stage, got %s", submitted.Stage)
	}
	if submitted.Approval.RequiredRole != services.DefaultDeptHeadRole {
		t.Errorf("RequiredRole = %s, want %s", submitted.Approval.RequiredRole, services.DefaultDeptHeadRole)
	}

	_, err = h.service.Approve(ctx, r.ID, dto.Approval{Approver: "mgr", Role: "store-manager"})
	if !errors.Is(err, entities.ErrApproverMismatch) {
		t.Fatalf("Expected ErrApproverMismatch, got %v", err)
	}
	unchanged, _ := h.service.Get(ctx, r.ID)
	if unchanged.Stage != entities.StageSubmit || unchanged.Lines[0].ApprovedQty.Valid {
		t.Errorf("Rejected approval must not change the requisition: %+v", unchanged)
	}

	if _, err := h.service.Approve(ctx, r.ID, dto.Approval{Approver: "hk-head", Role: services.DefaultDeptHeadRole}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	issued, err := h.service.Issue(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if len(issued.Results) != 1 || len(issued.Results[0].Outcomes) != 1 {
		t.Fatalf("Expected exactly one outcome, got %+v", issued.Results)
	}
	if len(issued.Documents) != 1 {
		t.Fatalf("Expected only a purchase request, got %+v", issued.Documents)
	}
	doc := issued.Documents[0]
	if doc.Type != entities.DocumentPurchaseRequest || doc.Reference != "PR-2410-001" {
		t.Errorf("Unexpected document %s %s", doc.Type, doc.Reference)
	}
	if !doc.TotalQuantity().Equal(decimal.NewFromInt(30)) {
		t.Errorf("Purchase request quantity = %s, want 30", doc.TotalQuantity())
	}
}

func TestService_PartialApprovalIssuesApprovedQuantity(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "ENGINEERING", lineInput("FLOUR", 100))
	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	over := dto.Approval{
		Approver:   "eng-head",
		Role:       services.DefaultDeptHeadRole,
		Quantities: map[string]decimal.Decimal{"L1": decimal.NewFromInt(120)},
	}
	if _, err := h.service.Approve(ctx, r.ID, over); !errors.Is(err, entities.ErrInvariantViolation) {
		t.Fatalf("Expected ErrInvariantViolation for approval above request, got %v", err)
	}

	partial := dto.Approval{
		Approver:   "eng-head",
		Role:       services.DefaultDeptHeadRole,
		Quantities: map[string]decimal.Decimal{"L1": decimal.NewFromInt(40)},
	}
	if _, err := h.service.Approve(ctx, r.ID, partial); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	issued, err := h.service.Issue(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(issued.Documents) != 1 || issued.Documents[0].Type != entities.DocumentIssue {
		t.Fatalf("Expected a single issue document, got %+v", issued.Documents)
	}
	if !issued.Documents[0].TotalQuantity().Equal(decimal.NewFromInt(40)) {
		t.Errorf("Issued %s, want 40", issued.Documents[0].TotalQuantity())
	}
	if issued.Documents[0].Reference != "ISS-2410-001" {
		t.Errorf("Reference = %s, want ISS-2410-001", issued.Documents[0].Reference)
	}
}

func TestService_ConsignmentSplitsTransferAndPurchaseRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	// 24 tonic at MAIN, the 12 at MINIBAR are consignment stock
	r := h.create(t, "MAIN", "MINIBAR", lineInput("TONIC", 30))
	submitted, err := h.service.Submit(ctx, r.ID, "jdoe")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if submitted.Approval.Rule != services.RuleConsignment {
		t.Errorf("Rule = %s, want %s", submitted.Approval.Rule, services.RuleConsignment)
	}
	if _, err := h.service.Approve(ctx, r.ID, dto.Approval{Approver: "buyer", Role: services.DefaultVendorRole}); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	issued, err := h.service.Issue(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(issued.Documents) != 2 {
		t.Fatalf("Expected transfer and purchase request, got %+v", issued.Documents)
	}

	transfer, purchase := issued.Documents[0], issued.Documents[1]
	if transfer.Type != entities.DocumentTransfer || !transfer.VendorLiability {
		t.Errorf("Expected vendor-liability transfer first, got %+v", transfer)
	}
	if !transfer.TotalQuantity().Equal(decimal.NewFromInt(24)) {
		t.Errorf("Transfer quantity = %s, want 24", transfer.TotalQuantity())
	}
	if purchase.Type != entities.DocumentPurchaseRequest || !purchase.TotalQuantity().Equal(decimal.NewFromInt(6)) {
		t.Errorf("Unexpected purchase request %+v", purchase)
	}
}

func TestService_IssueReallocatesAgainstCurrentStock(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "KITCHEN", lineInput("TONIC", 20))
	submitted, err := h.service.Submit(ctx, r.ID, "jdoe")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !submitted.Approval.Bypassed {
		t.Fatalf("Expected store-to-store bypass, got %+v", submitted.Approval)
	}

	// 24 at MAIN when submitted, 10 left by the time the store issues
	h.fixture.Stock.Consume("TONIC", "MAIN", decimal.NewFromInt(14))

	issued, err := h.service.Issue(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if len(issued.Documents) != 2 {
		t.Fatalf("Expected transfer and purchase request, got %+v", issued.Documents)
	}

	expected := []struct {
		docType   entities.DocumentType
		reference string
		quantity  int64
	}{
		{entities.DocumentTransfer, "TRF-2410-001", 10},
		{entities.DocumentPurchaseRequest, "PR-2410-001", 10},
	}
	for i, want := range expected {
		doc := issued.Documents[i]
		if doc.Type != want.docType || doc.Reference != want.reference {
			t.Errorf("Document %d = %s %s, want %s %s", i, doc.Type, doc.Reference, want.docType, want.reference)
		}
		if !doc.TotalQuantity().Equal(decimal.NewFromInt(want.quantity)) {
			t.Errorf("%s quantity = %s, want %d", doc.Reference, doc.TotalQuantity(), want.quantity)
		}
	}
	if !issued.Requisition.Lines[0].IssuedQty.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Errorf("IssuedQty = %s, want 10", issued.Requisition.Lines[0].IssuedQty.Decimal)
	}
}

func TestService_RejectsNonLinearTransitions(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))

	attempts := []struct {
		name string
		run  func() error
	}{
		{"draft_to_issue", func() error { _, err := h.service.Issue(ctx, r.ID, "x"); return err }},
		{"draft_to_approve", func() error {
			_, err := h.service.Approve(ctx, r.ID, dto.Approval{Approver: "x", Role: services.DefaultStandardRole})
			return err
		}},
		{"draft_to_complete", func() error { _, err := h.service.Complete(ctx, r.ID, "x"); return err }},
		{"finalize_in_draft", func() error {
			_, err := h.service.FinalizeIssue(ctx, r.ID, "L1", decimal.NewFromInt(5), "x")
			return err
		}},
	}

	for _, tt := range attempts {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, entities.ErrStageViolation) {
				t.Fatalf("Expected ErrStageViolation, got %v", err)
			}
			stored, _ := h.service.Get(ctx, r.ID)
			if stored.Status != entities.StatusDraft || stored.Stage != entities.StageDraft || stored.Version != 1 {
				t.Errorf("Requisition changed after rejected transition: %s/%s v%d", stored.Status, stored.Stage, stored.Version)
			}
		})
	}
}

func TestService_FinalizeAndComplete(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("FLOUR", 100), lineInput("LIME", 10))
	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := h.service.Issue(ctx, r.ID, "storekeeper"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := h.service.Complete(ctx, r.ID, "storekeeper"); !errors.Is(err, entities.ErrStageViolation) {
		t.Fatalf("Expected completion to wait for finalized lines, got %v", err)
	}

	if _, err := h.service.FinalizeIssue(ctx, r.ID, "L1", decimal.NewFromInt(101), "storekeeper"); !errors.Is(err, entities.ErrInvariantViolation) {
		t.Fatalf("Expected ErrInvariantViolation for issuing above approval, got %v", err)
	}
	if _, err := h.service.FinalizeIssue(ctx, r.ID, "L9", decimal.NewFromInt(1), "storekeeper"); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for unknown line, got %v", err)
	}

	if _, err := h.service.FinalizeIssue(ctx, r.ID, "L1", decimal.NewFromInt(95), "storekeeper"); err != nil {
		t.Fatalf("FinalizeIssue failed: %v", err)
	}
	if _, err := h.service.FinalizeIssue(ctx, r.ID, "L2", decimal.NewFromInt(10), "storekeeper"); err != nil {
		t.Fatalf("FinalizeIssue failed: %v", err)
	}

	completed, err := h.service.Complete(ctx, r.ID, "storekeeper")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != entities.StatusCompleted || completed.Stage != entities.StageComplete {
		t.Errorf("Expected completed/complete, got %s/%s", completed.Status, completed.Stage)
	}
	if !completed.Lines[0].IssuedQty.Decimal.Equal(decimal.NewFromInt(95)) {
		t.Errorf("Expected final issued 95, got %s", completed.Lines[0].IssuedQty.Decimal)
	}

	if _, err := h.service.Cancel(ctx, r.ID, "jdoe", "too late"); !errors.Is(err, entities.ErrStageViolation) {
		t.Errorf("Expected completed requisition to be immutable, got %v", err)
	}
}

func TestService_CancelAndVoidFreezeStage(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	draft := h.create(t, "MAIN", "HOUSEKEEPING", lineInput("SOAP", 10))
	if _, err := h.service.Submit(ctx, draft.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	cancelled, err := h.service.Cancel(ctx, draft.ID, "jdoe", "ordered twice")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != entities.StatusCancelled || cancelled.Stage != entities.StageSubmit {
		t.Errorf("Expected cancelled/submit, got %s/%s", cancelled.Status, cancelled.Stage)
	}
	if cancelled.CancelReason != "ordered twice" {
		t.Errorf("CancelReason = %q", cancelled.CancelReason)
	}
	if _, err := h.service.Void(ctx, draft.ID, "jdoe", ""); !errors.Is(err, entities.ErrStageViolation) {
		t.Errorf("Expected cancelled requisition to reject void, got %v", err)
	}

	other := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	voided, err := h.service.Void(ctx, other.ID, "auditor", "raised in error")
	if err != nil {
		t.Fatalf("Void failed: %v", err)
	}
	if voided.Status != entities.StatusVoided || voided.Stage != entities.StageDraft {
		t.Errorf("Expected voided/draft, got %s/%s", voided.Status, voided.Stage)
	}
}

func TestService_DraftLineEditing(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))

	withLine, err := h.service.AddLine(ctx, r.ID, dto.LineInput{
		ProductID: "TONIC",
		Quantity:  decimal.NewFromInt(12),
		UnitCost:  decimal.NewNullDecimal(decimal.RequireFromString("0.95")),
	}, "jdoe")
	if err != nil {
		t.Fatalf("AddLine failed: %v", err)
	}
	if len(withLine.Lines) != 2 || withLine.Lines[1].ID != "L2" {
		t.Fatalf("Expected new line L2, got %+v", withLine.Lines)
	}
	if !withLine.Lines[1].UnitCost.Equal(decimal.RequireFromString("0.95")) {
		t.Errorf("Expected explicit unit cost 0.95, got %s", withLine.Lines[1].UnitCost)
	}

	if _, err := h.service.AddLine(ctx, r.ID, lineInput("LIME", 0), "jdoe"); !errors.Is(err, entities.ErrInvariantViolation) {
		t.Errorf("Expected ErrInvariantViolation for zero quantity, got %v", err)
	}
	if _, err := h.service.AddLine(ctx, r.ID, lineInput("CAVIAR", 1), "jdoe"); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
	}

	trimmed, err := h.service.RemoveLine(ctx, r.ID, "L1", "jdoe")
	if err != nil {
		t.Fatalf("RemoveLine failed: %v", err)
	}
	if len(trimmed.Lines) != 1 || trimmed.Lines[0].ID != "L2" {
		t.Errorf("Expected only L2 left, got %+v", trimmed.Lines)
	}

	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := h.service.AddLine(ctx, r.ID, lineInput("LIME", 1), "jdoe"); !errors.Is(err, entities.ErrStageViolation) {
		t.Errorf("Expected ErrStageViolation after submit, got %v", err)
	}
}

func TestService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	_, err := h.service.Create(ctx, dto.CreateRequisition{
		SourceLocationID:      "ATTIC",
		DestinationLocationID: "BAR",
		Requester:             "jdoe",
	}, "jdoe")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown source, got %v", err)
	}

	_, err = h.service.Create(ctx, dto.CreateRequisition{
		SourceLocationID:      "MAIN",
		DestinationLocationID: "BAR",
		Requester:             "jdoe",
		Lines:                 []dto.LineInput{lineInput("CAVIAR", 1)},
	}, "jdoe")
	if !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown product, got %v", err)
	}

	// Failed creations must not consume requisition numbers
	r := h.create(t, "MAIN", "BAR")
	if r.Reference != "SR-2410-001" {
		t.Errorf("Reference = %s, want SR-2410-001", r.Reference)
	}

	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); !errors.Is(err, entities.ErrInvariantViolation) {
		t.Errorf("Expected empty requisition to be rejected at submit, got %v", err)
	}
}

func TestService_ConcurrentIssuesGetConsecutiveNumbers(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	first := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	second := h.create(t, "MAIN", "KITCHEN", lineInput("SOAP", 5))
	for _, r := range []*entities.Requisition{first, second} {
		if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	references := make([]string, 2)
	var wg sync.WaitGroup
	for i, r := range []*entities.Requisition{first, second} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			issued, err := h.service.Issue(ctx, id, "storekeeper")
			if err != nil {
				t.Errorf("Issue failed: %v", err)
				return
			}
			references[i] = issued.Documents[0].Reference
		}(i, r.ID)
	}
	wg.Wait()

	a, errA := h.sequencer.Parse(references[0])
	b, errB := h.sequencer.Parse(references[1])
	if errA != nil || errB != nil {
		t.Fatalf("Failed to parse references %v", references)
	}
	if a.Prefix != "TRF" || b.Prefix != "TRF" || a.Period() != b.Period() {
		t.Fatalf("Expected two transfers in the same period, got %v", references)
	}

	diff := a.Sequence - b.Sequence
	if diff != 1 && diff != -1 {
		t.Errorf("Expected consecutive sequences, got %v", references)
	}
}

func TestService_ConcurrentTransitionsOnSameRequisition(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	var wg sync.WaitGroup
	var succeeded int64
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.service.Issue(ctx, r.ID, "storekeeper"); err == nil {
				atomic.AddInt64(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("Expected exactly one issue to win, got %d", succeeded)
	}
	stored, _ := h.service.Get(ctx, r.ID)
	if len(stored.Documents) != 1 {
		t.Errorf("Expected one set of documents, got %+v", stored.Documents)
	}
}

func TestService_PublishesStateChanges(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	var mu sync.Mutex
	var audited []string
	_ = h.events.Subscribe(events.RequisitionEventTypes, &events.HandlerFunc{
		Types: events.RequisitionEventTypes,
		Fn: func(e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			audited = append(audited, e.Type())
			return nil
		},
	})

	r := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := h.service.Issue(ctx, r.ID, "storekeeper"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	h.events.Drain()

	stream, _ := h.events.ReadEvents(r.ID, 1)
	expected := []string{
		events.RequisitionCreatedEvent,
		events.RequisitionSubmittedEvent,
		events.RequisitionApprovedEvent,
		events.RequisitionIssuedEvent,
		events.DocumentGeneratedEvent,
	}
	if len(stream) != len(expected) {
		t.Fatalf("Expected %d events, got %d", len(expected), len(stream))
	}
	for i, want := range expected {
		if stream[i].Type() != want {
			t.Errorf("Event %d = %s, want %s", i, stream[i].Type(), want)
		}
	}

	// A bypass is reported as two steps, so each stage is entered once
	stages := []struct{ from, to string }{
		{"draft", "submit"},
		{"submit", "approve"},
		{"approve", "issue"},
	}
	for i, want := range stages {
		event := stream[i+1]
		change, ok := event.Data().(events.StateChanged)
		if !ok {
			t.Fatalf("Event %s carries %T, want events.StateChanged", event.Type(), event.Data())
		}
		if change.FromStage != want.from || change.ToStage != want.to {
			t.Errorf("Event %s moved %s->%s, want %s->%s",
				event.Type(), change.FromStage, change.ToStage, want.from, want.to)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(audited) != len(expected) {
		t.Errorf("Expected subscriber to see %d events, got %v", len(expected), audited)
	}
}

func TestService_RestoreSequences(t *testing.T) {
	ctx := context.Background()
	h := newHarness()

	r := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	if _, err := h.service.Submit(ctx, r.ID, "jdoe"); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := h.service.Issue(ctx, r.ID, "storekeeper"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Simulate a restart that lost the counters but kept the requisitions
	for _, prefix := range []string{"SR", "TRF"} {
		if err := h.sequencer.Reset(ctx, prefix, "2410"); err != nil {
			t.Fatalf("Reset failed: %v", err)
		}
	}

	if err := h.service.RestoreSequences(ctx); err != nil {
		t.Fatalf("RestoreSequences failed: %v", err)
	}

	next := h.create(t, "MAIN", "BAR", lineInput("LIME", 5))
	if next.Reference != "SR-2410-002" {
		t.Errorf("Expected SR-2410-002 after restore, got %s", next.Reference)
	}
	if peek, _ := h.sequencer.Peek(ctx, "TRF", "2410"); peek != 1 {
		t.Errorf("Expected TRF counter restored to 1, got %d", peek)
	}
}
