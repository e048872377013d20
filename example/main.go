package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/infrastructure/config"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/storereq/pkg/interfaces/cli/commands"
)

func main() {
	ctx := context.Background()

	// Load the sample hotel
	scenario, err := csv.NewLoader().LoadScenario("examples/hotel")
	if err != nil {
		fmt.Printf("❌ Failed to load scenario: %v\n", err)
		return
	}

	engine, err := commands.NewEngine(ctx, config.Default(), scenario, zap.NewNop())
	if err != nil {
		fmt.Printf("❌ Failed to start engine: %v\n", err)
		return
	}
	defer engine.Close()

	svc := engine.Requisitions

	fmt.Println("🧼 Housekeeping requests soap and towels from the main store...")
	r, err := svc.Create(ctx, dto.CreateRequisition{
		SourceLocationID:      "MAIN",
		DestinationLocationID: "HOUSEKEEPING",
		Requester:             "hk.lee",
		Department:            "Rooms",
		Lines: []dto.LineInput{
			{ProductID: "SOAP", Quantity: decimal.NewFromInt(50)},
			{ProductID: "TOWEL", Quantity: decimal.NewFromInt(30)},
		},
	}, "hk.lee")
	if err != nil {
		fmt.Printf("❌ Create failed: %v\n", err)
		return
	}
	fmt.Printf("  Draft %s with %d lines\n", r.Reference, len(r.Lines))

	if r, err = svc.Submit(ctx, r.ID, "hk.lee"); err != nil {
		fmt.Printf("❌ Submit failed: %v\n", err)
		return
	}
	fmt.Printf("  Submitted, rule %s needs %s\n", r.Approval.Rule, r.Approval.RequiredRole)

	// The department head trims the soap to 40
	if r, err = svc.Approve(ctx, r.ID, dto.Approval{
		Approver:   "dh.okafor",
		Role:       "department-head",
		Quantities: map[string]decimal.Decimal{"L1": decimal.NewFromInt(40)},
	}); err != nil {
		fmt.Printf("❌ Approve failed: %v\n", err)
		return
	}
	fmt.Printf("  Approved by %s\n", r.Approval.ApprovedBy)

	issued, err := svc.Issue(ctx, r.ID, "store.clerk")
	if err != nil {
		fmt.Printf("❌ Issue failed: %v\n", err)
		return
	}

	fmt.Println()
	fmt.Println("📄 Generated documents:")
	for _, doc := range issued.Documents {
		fmt.Printf("  %-14s %-16s total %s\n", doc.Reference, doc.Type, doc.TotalQuantity())
		for _, line := range doc.Lines {
			fmt.Printf("    %-4s %-8s %s\n", line.LineID, line.ProductID, line.Quantity)
		}
	}

	// Counting at the store confirms what actually left the shelf
	for _, line := range issued.Requisition.Lines {
		qty := decimal.Zero
		if line.IssuedQty.Valid {
			qty = line.IssuedQty.Decimal
		}
		if _, err := svc.FinalizeIssue(ctx, r.ID, line.ID, qty, "store.clerk"); err != nil {
			fmt.Printf("❌ Finalize %s failed: %v\n", line.ID, err)
			return
		}
	}
	if r, err = svc.Complete(ctx, r.ID, "store.clerk"); err != nil {
		fmt.Printf("❌ Complete failed: %v\n", err)
		return
	}
	fmt.Printf("\n✅ %s is %s, total cost %s\n", r.Reference, r.Status, r.TotalCost().StringFixed(2))

	fmt.Println()
	fmt.Println("📦 Bar replenishment suggestions:")
	suggestions, err := engine.Planner.Suggest(ctx, "BAR")
	if err != nil {
		fmt.Printf("❌ Suggest failed: %v\n", err)
		return
	}
	for _, s := range suggestions {
		fmt.Printf("  %-6s on hand %-4s reorder at %-4s suggest %s\n",
			s.ProductID, s.CurrentStock, s.ReorderPoint, s.SuggestedQty)
	}
}
