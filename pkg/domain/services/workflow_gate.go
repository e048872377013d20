package services

import (
	"strings"

	"github.com/vsinha/storereq/pkg/domain/entities"
)

// Rule names recorded on every gate decision
const (
	RuleStoreToStore    = "store-to-store"
	RuleDirectExpense   = "direct-expense"
	RuleConsignment     = "consignment"
	RuleStandardChain   = "standard-chain"
	DefaultDeptHeadRole = "department-head"
	DefaultVendorRole   = "procurement-or-vendor-liaison"
	DefaultStandardRole = "store-manager"
)

// ApprovalConfig is the static rule set consumed by the workflow gate
type ApprovalConfig struct {
	DepartmentHeadRole string
	ConsignmentRole    string
	StandardChain      []string

	// DisableBypass forces manual approval even for store-to-store moves
	DisableBypass bool
}

// DefaultApprovalConfig returns the roles used when nothing is configured
func DefaultApprovalConfig() ApprovalConfig {
	return ApprovalConfig{
		DepartmentHeadRole: DefaultDeptHeadRole,
		ConsignmentRole:    DefaultVendorRole,
		StandardChain:      []string{DefaultStandardRole},
	}
}

// GateInput is the requisition snapshot the gate decides on
type GateInput struct {
	SourceCategory      entities.LocationCategory
	DestinationCategory entities.LocationCategory
	// LineSourceCategories holds the categories of line-level source overrides
	LineSourceCategories []entities.LocationCategory
}

// Decision is the outcome of the workflow gate
type Decision struct {
	Bypass               bool
	RequiredApproverRole string
	Rule                 string
}

// WorkflowGate decides whether a requisition may skip manual approval.
// It is pure: the same input and configuration always yield the same decision
type WorkflowGate struct {
	config ApprovalConfig
}

// NewWorkflowGate creates a gate, filling unset roles with defaults
func NewWorkflowGate(config ApprovalConfig) *WorkflowGate {
	defaults := DefaultApprovalConfig()
	if config.DepartmentHeadRole == "" {
		config.DepartmentHeadRole = defaults.DepartmentHeadRole
	}
	if config.ConsignmentRole == "" {
		config.ConsignmentRole = defaults.ConsignmentRole
	}
	if len(config.StandardChain) == 0 {
		config.StandardChain = defaults.StandardChain
	}
	config.StandardChain = append([]string(nil), config.StandardChain...)
	return &WorkflowGate{config: config}
}

// Decide evaluates the rules in order; the first match wins
func (g *WorkflowGate) Decide(input GateInput) Decision {
	lineCategories := input.LineSourceCategories

	// (a) routine store-to-store movement
	if input.SourceCategory == entities.TrackedInventory &&
		input.DestinationCategory == entities.TrackedInventory &&
		allCategories(lineCategories, entities.TrackedInventory) &&
		!g.config.DisableBypass {
		return Decision{Bypass: true, Rule: RuleStoreToStore}
	}

	// (b) expensed straight to a department
	if input.DestinationCategory == entities.DirectExpense {
		return Decision{RequiredApproverRole: g.config.DepartmentHeadRole, Rule: RuleDirectExpense}
	}

	// (c) vendor-owned stock involved anywhere
	if input.SourceCategory == entities.Consignment ||
		input.DestinationCategory == entities.Consignment ||
		anyCategory(lineCategories, entities.Consignment) {
		return Decision{RequiredApproverRole: g.config.ConsignmentRole, Rule: RuleConsignment}
	}

	return Decision{RequiredApproverRole: strings.Join(g.config.StandardChain, ">"), Rule: RuleStandardChain}
}

// AcceptsApprover reports whether role may approve under decision. A chained
// standard role accepts any member of the chain
func (g *WorkflowGate) AcceptsApprover(decision Decision, role string) bool {
	if decision.Bypass {
		return true
	}
	if decision.Rule == RuleStandardChain {
		for _, member := range g.config.StandardChain {
			if member == role {
				return true
			}
		}
		return false
	}
	return decision.RequiredApproverRole == role
}

func allCategories(categories []entities.LocationCategory, want entities.LocationCategory) bool {
	for _, c := range categories {
		if c != want {
			return false
		}
	}
	return true
}

func anyCategory(categories []entities.LocationCategory, want entities.LocationCategory) bool {
	for _, c := range categories {
		if c == want {
			return true
		}
	}
	return false
}
