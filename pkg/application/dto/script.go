package dto

import (
	"github.com/shopspring/decimal"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// ScriptedRequisition drives one requisition from creation to issue.
// ApprovedQty is aligned with Create.Lines; unset entries approve the
// requested quantity
type ScriptedRequisition struct {
	Key          string
	Create       CreateRequisition
	Approver     string
	ApproverRole string
	ApprovedQty  []decimal.NullDecimal
}

// ScriptOutcome is what happened to one scripted requisition. Err is set when
// the requisition stopped before issue; Requisition then holds its last state
type ScriptOutcome struct {
	Key         string
	Requisition *entities.Requisition
	Bypassed    bool
	Issue       *IssueResult
	Err         error
}

// Issued reports whether the script reached the issue stage
func (o *ScriptOutcome) Issued() bool {
	return o.Err == nil && o.Issue != nil
}
