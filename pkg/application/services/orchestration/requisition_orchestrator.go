package orchestration

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/replenishment"
	"github.com/vsinha/storereq/pkg/application/services/requisition"
	"github.com/vsinha/storereq/pkg/domain/entities"
)

// RequisitionOrchestrator coordinates the requisition state machine and the
// replenishment planner for batch runs
type RequisitionOrchestrator struct {
	requisitions *requisition.Service
	planner      *replenishment.Planner
	logger       *zap.Logger
}

// NewRequisitionOrchestrator creates a new orchestrator
func NewRequisitionOrchestrator(
	requisitions *requisition.Service,
	planner *replenishment.Planner,
	logger *zap.Logger,
) *RequisitionOrchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequisitionOrchestrator{
		requisitions: requisitions,
		planner:      planner,
		logger:       logger,
	}
}

// RunSummary aggregates the outcomes of a batch run
type RunSummary struct {
	Requisitions int
	Issued       int
	Bypassed     int
	Failed       int
	Documents    map[entities.DocumentType]int
}

// RunScripts creates, submits, approves and issues every script in order.
// A failing script is recorded on its outcome and does not stop the batch
func (o *RequisitionOrchestrator) RunScripts(ctx context.Context, scripts []dto.ScriptedRequisition) ([]*dto.ScriptOutcome, error) {
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no requisitions to run")
	}

	outcomes := make([]*dto.ScriptOutcome, 0, len(scripts))
	for _, script := range scripts {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome := o.runScript(ctx, script)
		if outcome.Err != nil {
			o.logger.Warn("requisition script stopped",
				zap.String("key", script.Key),
				zap.Error(outcome.Err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

func (o *RequisitionOrchestrator) runScript(ctx context.Context, script dto.ScriptedRequisition) *dto.ScriptOutcome {
	outcome := &dto.ScriptOutcome{Key: script.Key}
	actor := script.Create.Requester

	r, err := o.requisitions.Create(ctx, script.Create, actor)
	if err != nil {
		outcome.Err = fmt.Errorf("create: %w", err)
		return outcome
	}
	outcome.Requisition = r

	r, err = o.requisitions.Submit(ctx, r.ID, actor)
	if err != nil {
		outcome.Err = fmt.Errorf("submit %s: %w", outcome.Requisition.Reference, err)
		return outcome
	}
	outcome.Requisition = r
	outcome.Bypassed = r.Approval != nil && r.Approval.Bypassed

	if !outcome.Bypassed {
		approval, err := approvalFor(script, r)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		r, err = o.requisitions.Approve(ctx, r.ID, approval)
		if err != nil {
			outcome.Err = fmt.Errorf("approve %s: %w", outcome.Requisition.Reference, err)
			return outcome
		}
		outcome.Requisition = r
	}

	issue, err := o.requisitions.Issue(ctx, r.ID, actor)
	if err != nil {
		outcome.Err = fmt.Errorf("issue %s: %w", r.Reference, err)
		return outcome
	}
	outcome.Requisition = issue.Requisition
	outcome.Issue = issue
	return outcome
}

// approvalFor maps script quantities onto the line IDs assigned at create
func approvalFor(script dto.ScriptedRequisition, r *entities.Requisition) (dto.Approval, error) {
	if len(script.ApprovedQty) > len(r.Lines) {
		return dto.Approval{}, fmt.Errorf("script %s approves %d lines but requisition %s has %d",
			script.Key, len(script.ApprovedQty), r.Reference, len(r.Lines))
	}

	approver := script.Approver
	if approver == "" {
		approver = script.ApproverRole
	}
	approval := dto.Approval{
		Approver:   approver,
		Role:       script.ApproverRole,
		Quantities: make(map[string]decimal.Decimal),
	}
	for i, qty := range script.ApprovedQty {
		if qty.Valid {
			approval.Quantities[r.Lines[i].ID] = qty.Decimal
		}
	}
	return approval, nil
}

// Replenish accepts the PAR suggestions of every location below its reorder
// point, one draft requisition per location, sourced from source
func (o *RequisitionOrchestrator) Replenish(ctx context.Context, source entities.LocationID, requester string) ([]*dto.AcceptedReplenishment, error) {
	all, err := o.planner.SuggestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute replenishment suggestions: %w", err)
	}

	locations := make([]entities.LocationID, 0, len(all))
	for locationID := range all {
		if locationID == source {
			continue
		}
		locations = append(locations, locationID)
	}
	sort.Slice(locations, func(i, j int) bool { return locations[i] < locations[j] })

	accepted := make([]*dto.AcceptedReplenishment, 0, len(locations))
	for _, locationID := range locations {
		result, err := o.planner.Accept(ctx, replenishment.AcceptInput{
			Suggestions:      all[locationID],
			SourceLocationID: source,
			Requester:        requester,
			Notes:            "PAR replenishment",
		})
		if err != nil {
			return accepted, fmt.Errorf("failed to accept replenishment for %s: %w", locationID, err)
		}
		accepted = append(accepted, result)
	}
	return accepted, nil
}

// Summarize counts outcomes and generated documents by type
func Summarize(outcomes []*dto.ScriptOutcome) RunSummary {
	summary := RunSummary{
		Requisitions: len(outcomes),
		Documents:    make(map[entities.DocumentType]int),
	}
	for _, outcome := range outcomes {
		if outcome.Bypassed {
			summary.Bypassed++
		}
		if !outcome.Issued() {
			summary.Failed++
			continue
		}
		summary.Issued++
		for _, doc := range outcome.Issue.Documents {
			summary.Documents[doc.Type]++
		}
	}
	return summary
}

// String returns a one-line summary
func (s RunSummary) String() string {
	return fmt.Sprintf("Requisitions: %d, Issued: %d, Bypassed: %d, Failed: %d, Transfers: %d, Issues: %d, Purchase requests: %d",
		s.Requisitions, s.Issued, s.Bypassed, s.Failed,
		s.Documents[entities.DocumentTransfer],
		s.Documents[entities.DocumentIssue],
		s.Documents[entities.DocumentPurchaseRequest])
}
