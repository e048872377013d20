package requisition

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// documentGroup collects the lines of one document to be generated
type documentGroup struct {
	docType         entities.DocumentType
	vendorLiability bool
	lines           []entities.DocumentLine
}

// Issue moves an approved requisition into the issue stage. Allocation is
// recomputed against current stock, each line is classified, and one
// document is generated per outcome group, each with its own reference.
// Issued quantities are set provisionally to the satisfiable quantity
func (s *Service) Issue(ctx context.Context, id, actor string) (*dto.IssueResult, error) {
	var (
		results   []*entities.FulfillmentResult
		generated []entities.GeneratedDocument
	)

	r, err := s.transition(ctx, id, actor, events.RequisitionIssuedEvent, "", func(r *entities.Requisition) error {
		if err := requireStage(r, entities.StageApprove, "issue"); err != nil {
			return err
		}

		destination, err := s.location(ctx, r.DestinationLocationID)
		if err != nil {
			return err
		}

		results, err = s.allocator.AllocateAll(ctx, r)
		if err != nil {
			return fmt.Errorf("failed to allocate requisition %s: %w", r.Reference, err)
		}

		groups := make([]*documentGroup, 0, 3)
		for i, result := range results {
			outcomes, err := services.Classify(result, destination.Category)
			if err != nil {
				return fmt.Errorf("failed to classify line %s: %w", result.LineID, err)
			}
			result.Outcomes = outcomes

			for _, outcome := range outcomes {
				group := findGroup(&groups, outcome)
				group.lines = append(group.lines, documentLines(result, outcome)...)
			}

			r.Lines[i].IssuedQty = decimal.NewNullDecimal(result.Satisfiable)
		}

		// Stamp only once every line has been classified, so a failing line
		// never burns a reference number
		issuedAt := s.now()
		generated = make([]entities.GeneratedDocument, 0, len(groups))
		for _, group := range groups {
			prefix, err := s.prefixes.ForDocument(group.docType)
			if err != nil {
				return err
			}
			reference, err := s.sequencer.Next(ctx, prefix, issuedAt)
			if err != nil {
				return fmt.Errorf("failed to number %s document: %w", group.docType, err)
			}

			doc, err := entities.NewGeneratedDocument(group.docType, reference, r.ID, group.lines, issuedAt)
			if err != nil {
				return err
			}
			doc.VendorLiability = group.vendorLiability
			generated = append(generated, *doc)
		}

		r.Documents = append(r.Documents, generated...)
		r.Stage = entities.StageIssue
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, doc := range generated {
		s.logger.Info("document generated",
			zap.String("requisition_id", r.ID),
			zap.Stringer("type", doc.Type),
			zap.String("reference", doc.Reference),
			zap.Bool("vendor_liability", doc.VendorLiability),
			zap.String("quantity", doc.TotalQuantity().String()))
		s.publish(events.NewDocumentGeneratedEvent(doc))
	}

	return &dto.IssueResult{
		Requisition: r,
		Results:     results,
		Documents:   generated,
	}, nil
}

// findGroup returns the group for an outcome, creating it in type order:
// transfers, vendor-liability transfers, issues, purchase requests
func findGroup(groups *[]*documentGroup, outcome entities.Outcome) *documentGroup {
	for _, g := range *groups {
		if g.docType == outcome.Type && g.vendorLiability == outcome.VendorLiability {
			return g
		}
	}

	g := &documentGroup{docType: outcome.Type, vendorLiability: outcome.VendorLiability}
	*groups = append(*groups, g)

	sorted := *groups
	for i := len(sorted) - 1; i > 0 && groupRank(sorted[i]) < groupRank(sorted[i-1]); i-- {
		sorted[i], sorted[i-1] = sorted[i-1], sorted[i]
	}
	return g
}

func groupRank(g *documentGroup) int {
	rank := int(g.docType) * 2
	if g.vendorLiability {
		rank++
	}
	return rank
}

// documentLines splits an outcome into document lines. Satisfiable outcomes
// get one line per source portion; purchase requests carry no source
func documentLines(result *entities.FulfillmentResult, outcome entities.Outcome) []entities.DocumentLine {
	if outcome.Type == entities.DocumentPurchaseRequest {
		return []entities.DocumentLine{{
			LineID:    result.LineID,
			ProductID: result.ProductID,
			Quantity:  outcome.Quantity,
		}}
	}

	lines := make([]entities.DocumentLine, 0, len(result.Portions))
	for _, portion := range result.Portions {
		lines = append(lines, entities.DocumentLine{
			LineID:           result.LineID,
			ProductID:        result.ProductID,
			Quantity:         portion.Quantity,
			SourceLocationID: portion.LocationID,
		})
	}
	return lines
}
