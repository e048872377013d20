package requisition

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// Create opens a draft requisition. Units and unit costs are snapshotted
// from the product catalog
func (s *Service) Create(ctx context.Context, input dto.CreateRequisition, actor string) (*entities.Requisition, error) {
	if _, err := s.location(ctx, input.SourceLocationID); err != nil {
		return nil, fmt.Errorf("invalid source: %w", err)
	}
	if _, err := s.location(ctx, input.DestinationLocationID); err != nil {
		return nil, fmt.Errorf("invalid destination: %w", err)
	}

	now := s.now()
	requestedDate := input.RequestedDate
	if requestedDate.IsZero() {
		requestedDate = now
	}

	r := &entities.Requisition{
		ID:                    s.newID(),
		SourceLocationID:      input.SourceLocationID,
		DestinationLocationID: input.DestinationLocationID,
		Requester:             input.Requester,
		Department:            input.Department,
		RequestedDate:         requestedDate,
		RequiredDate:          input.RequiredDate,
		Notes:                 input.Notes,
		Status:                entities.StatusDraft,
		Stage:                 entities.StageDraft,
		CreatedBy:             actor,
		CreatedAt:             now,
		UpdatedBy:             actor,
		UpdatedAt:             now,
	}

	for _, lineInput := range input.Lines {
		line, err := s.newLine(ctx, r, lineInput)
		if err != nil {
			return nil, err
		}
		r.Lines = append(r.Lines, line)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}

	reference, err := s.sequencer.Next(ctx, s.prefixes.Requisition, requestedDate)
	if err != nil {
		return nil, fmt.Errorf("failed to number requisition: %w", err)
	}
	r.Reference = reference

	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to save requisition %s: %w", reference, err)
	}

	s.logger.Info("requisition created",
		zap.String("requisition_id", r.ID),
		zap.String("reference", r.Reference),
		zap.Int("lines", len(r.Lines)),
		zap.String("actor", actor))
	s.publish(events.NewStateChangedEvent(r, r, events.RequisitionCreatedEvent, actor, ""))

	return r.Clone(), nil
}

// AddLine appends a line to a draft requisition
func (s *Service) AddLine(ctx context.Context, id string, input dto.LineInput, actor string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionUpdatedEvent, "line added", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageDraft, "add a line to"); err != nil {
			return err
		}
		line, err := s.newLine(ctx, r, input)
		if err != nil {
			return err
		}
		r.Lines = append(r.Lines, line)
		return nil
	})
}

// RemoveLine drops a line from a draft requisition
func (s *Service) RemoveLine(ctx context.Context, id, lineID, actor string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionUpdatedEvent, "line removed", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageDraft, "remove a line from"); err != nil {
			return err
		}
		for i, line := range r.Lines {
			if line.ID == lineID {
				r.Lines = append(r.Lines[:i], r.Lines[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("line %s on requisition %s: %w", lineID, r.Reference, entities.ErrNotFound)
	})
}

// Submit moves a draft into the submit stage and asks the workflow gate
// whether approval is needed. A bypass decision approves every line in full
// and lands the requisition in the approve stage; the submitted event still
// reports draft->submit and the approval follows as its own event
func (s *Service) Submit(ctx context.Context, id, actor string) (*entities.Requisition, error) {
	var decision services.Decision
	submitted := entities.StageSubmit

	r, err := s.transitionReporting(ctx, id, actor, events.RequisitionSubmittedEvent, "", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageDraft, "submit"); err != nil {
			return err
		}
		if len(r.Lines) == 0 {
			return fmt.Errorf("%w: requisition %s has no lines", entities.ErrInvariantViolation, r.Reference)
		}

		input, err := s.gateInput(ctx, r)
		if err != nil {
			return err
		}
		decision = s.gate.Decide(input)

		r.Status = entities.StatusInProgress
		r.Stage = entities.StageSubmit
		r.Approval = &entities.ApprovalRecord{
			Bypassed:     decision.Bypass,
			RequiredRole: decision.RequiredApproverRole,
			Rule:         decision.Rule,
		}

		if decision.Bypass {
			for _, line := range r.Lines {
				line.ApprovedQty = decimal.NewNullDecimal(line.RequestedQty)
			}
			r.Approval.ApprovedBy = BypassApprover
			r.Approval.ApprovedAt = s.now()
			r.Stage = entities.StageApprove
		}
		return nil
	}, &submitted)
	if err != nil {
		return nil, err
	}

	if decision.Bypass {
		s.publish(events.NewEventAt(events.RequisitionApprovedEvent, r.ID, events.StateChanged{
			RequisitionID: r.ID,
			Reference:     r.Reference,
			FromStatus:    r.Status.String(),
			ToStatus:      r.Status.String(),
			FromStage:     entities.StageSubmit.String(),
			ToStage:       r.Stage.String(),
			Actor:         BypassApprover,
			Reason:        decision.Rule,
		}, r.UpdatedAt))
	}
	return r, nil
}

// Approve records a manual approval. The approver's role must satisfy the
// gate decision recorded at submit
func (s *Service) Approve(ctx context.Context, id string, approval dto.Approval) (*entities.Requisition, error) {
	return s.transition(ctx, id, approval.Approver, events.RequisitionApprovedEvent, "", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageSubmit, "approve"); err != nil {
			return err
		}
		if approval.Approver == "" {
			return fmt.Errorf("approver cannot be empty")
		}
		if r.Approval == nil {
			return fmt.Errorf("%w: requisition %s has no gate decision", entities.ErrStageViolation, r.Reference)
		}

		decision := services.Decision{
			Bypass:               r.Approval.Bypassed,
			RequiredApproverRole: r.Approval.RequiredRole,
			Rule:                 r.Approval.Rule,
		}
		if !s.gate.AcceptsApprover(decision, approval.Role) {
			return fmt.Errorf("%w: requisition %s requires %s, got %q",
				entities.ErrApproverMismatch, r.Reference, r.Approval.RequiredRole, approval.Role)
		}

		for lineID := range approval.Quantities {
			if _, ok := r.Line(lineID); !ok {
				return fmt.Errorf("line %s on requisition %s: %w", lineID, r.Reference, entities.ErrNotFound)
			}
		}
		for _, line := range r.Lines {
			qty, ok := approval.Quantities[line.ID]
			if !ok {
				qty = line.RequestedQty
			}
			line.ApprovedQty = decimal.NewNullDecimal(qty)
		}

		r.Approval.ApprovedBy = approval.Approver
		r.Approval.ApprovedRole = approval.Role
		r.Approval.ApprovedAt = s.now()
		r.Stage = entities.StageApprove
		return nil
	})
}

// FinalizeIssue fixes the issued quantity of one line. Completion requires
// every line to be finalized
func (s *Service) FinalizeIssue(ctx context.Context, id, lineID string, qty decimal.Decimal, actor string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionUpdatedEvent, "issue finalized", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageIssue, "finalize issue on"); err != nil {
			return err
		}
		line, ok := r.Line(lineID)
		if !ok {
			return fmt.Errorf("line %s on requisition %s: %w", lineID, r.Reference, entities.ErrNotFound)
		}
		if line.IssueFinalized {
			return fmt.Errorf("%w: line %s issue already finalized", entities.ErrInvariantViolation, lineID)
		}
		line.IssuedQty = decimal.NewNullDecimal(qty)
		line.IssueFinalized = true
		return nil
	})
}

// Complete closes an issued requisition; it is immutable afterwards
func (s *Service) Complete(ctx context.Context, id, actor string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionCompletedEvent, "", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageIssue, "complete"); err != nil {
			return err
		}
		var pending []string
		for _, line := range r.Lines {
			if !line.IssueFinalized {
				pending = append(pending, line.ID)
			}
		}
		if len(pending) > 0 {
			return fmt.Errorf("%w: requisition %s has unfinalized lines %s",
				entities.ErrStageViolation, r.Reference, strings.Join(pending, ", "))
		}
		r.Status = entities.StatusCompleted
		r.Stage = entities.StageComplete
		return nil
	})
}

// Cancel withdraws a requisition from any non-terminal state. The stage is
// left where it was
func (s *Service) Cancel(ctx context.Context, id, actor, reason string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionCancelledEvent, reason, func(r *entities.Requisition) error {
		r.Status = entities.StatusCancelled
		r.CancelReason = reason
		return nil
	})
}

// Void annuls a requisition from any non-terminal state, typically one whose
// documents were raised in error. The stage is left where it was
func (s *Service) Void(ctx context.Context, id, actor, reason string) (*entities.Requisition, error) {
	return s.transition(ctx, id, actor, events.RequisitionVoidedEvent, reason, func(r *entities.Requisition) error {
		r.Status = entities.StatusVoided
		r.CancelReason = reason
		return nil
	})
}

func (s *Service) newLine(ctx context.Context, r *entities.Requisition, input dto.LineInput) (*entities.LineItem, error) {
	unit, err := s.catalog.GetUnit(ctx, input.ProductID)
	if err != nil {
		return nil, catalogError(input.ProductID, err)
	}

	cost := input.UnitCost.Decimal
	if !input.UnitCost.Valid {
		cost, err = s.catalog.GetDefaultCost(ctx, input.ProductID)
		if err != nil {
			return nil, catalogError(input.ProductID, err)
		}
	}

	if input.SourceLocationID != "" {
		if _, err := s.location(ctx, input.SourceLocationID); err != nil {
			return nil, fmt.Errorf("invalid line source: %w", err)
		}
	}

	line, err := entities.NewLineItem(nextLineID(r), input.ProductID, unit, input.Quantity, cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvariantViolation, err)
	}
	line.SourceLocationID = input.SourceLocationID
	return line, nil
}

func (s *Service) gateInput(ctx context.Context, r *entities.Requisition) (services.GateInput, error) {
	source, err := s.location(ctx, r.SourceLocationID)
	if err != nil {
		return services.GateInput{}, err
	}
	destination, err := s.location(ctx, r.DestinationLocationID)
	if err != nil {
		return services.GateInput{}, err
	}

	input := services.GateInput{
		SourceCategory:      source.Category,
		DestinationCategory: destination.Category,
	}
	for _, line := range r.Lines {
		if line.SourceLocationID == "" {
			continue
		}
		override, err := s.location(ctx, line.SourceLocationID)
		if err != nil {
			return services.GateInput{}, err
		}
		input.LineSourceCategories = append(input.LineSourceCategories, override.Category)
	}
	return input, nil
}

func catalogError(productID entities.ProductID, err error) error {
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("product %s: %w", productID, err)
	}
	return fmt.Errorf("%w: product %s: %w", entities.ErrInsufficientData, productID, err)
}

// nextLineID returns L<n> one above the highest numbered line
func nextLineID(r *entities.Requisition) string {
	highest := 0
	for _, line := range r.Lines {
		if n, err := strconv.Atoi(strings.TrimPrefix(line.ID, "L")); err == nil && n > highest {
			highest = n
		}
	}
	return "L" + strconv.Itoa(highest+1)
}
