package commands

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/csv"
)

// GenerateConfig holds configuration for scenario generation
type GenerateConfig struct {
	Outlets      int     // Number of outlets besides the main store
	Products     int     // Number of catalog products
	Requisitions int     // Number of scripted requisitions
	Coverage     float64 // Stock multiplier against PAR (e.g., 0.5 = half stocked, 2.0 = overstocked)
	OutputDir    string  // Output directory for generated files
	Seed         int64   // Random seed for reproducible generation
	Help         bool    // Show help
	Verbose      bool    // Verbose output

	// Stdout receives progress output; os.Stdout when nil
	Stdout io.Writer
}

// GenerateCommand handles scenario generation
type GenerateCommand struct {
	config GenerateConfig
	rand   *rand.Rand
	out    io.Writer
}

// NewGenerateCommand creates a new generate command
func NewGenerateCommand(config GenerateConfig) *GenerateCommand {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	out := config.Stdout
	if out == nil {
		out = os.Stdout
	}

	return &GenerateCommand{
		config: config,
		rand:   rand.New(rand.NewSource(seed)),
		out:    out,
	}
}

// generatedLocation is a location row plus what the generator needs to know
// about it
type generatedLocation struct {
	ID       string
	Code     string
	Name     string
	Category entities.LocationCategory
}

type generatedProduct struct {
	ID   string
	Name string
	Unit string
	Cost string
	Par  int
}

// Execute runs the generate command
func (cmd *GenerateCommand) Execute(ctx context.Context) error {
	if cmd.config.Help {
		cmd.printHelp()
		return nil
	}
	if err := cmd.validate(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out,
			"🔧 Generating scenario with %d outlets, %d products, %d requisitions, %.1fx coverage\n",
			cmd.config.Outlets,
			cmd.config.Products,
			cmd.config.Requisitions,
			cmd.config.Coverage,
		)
		fmt.Fprintf(cmd.out, "📁 Output directory: %s\n", cmd.config.OutputDir)
		fmt.Fprintf(cmd.out, "🎲 Random seed: %d\n", cmd.config.Seed)
	}

	if err := os.MkdirAll(cmd.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	locations := cmd.generateLocations()
	products := cmd.generateProducts()

	steps := []struct {
		file string
		fn   func(io.Writer) error
	}{
		{csv.LocationsFile, func(w io.Writer) error { return cmd.writeLocations(w, locations) }},
		{csv.ProductsFile, func(w io.Writer) error { return cmd.writeProducts(w, products) }},
		{csv.StockFile, func(w io.Writer) error { return cmd.writeStock(w, locations, products) }},
		{csv.ParLevelsFile, func(w io.Writer) error { return cmd.writeParLevels(w, locations, products) }},
		{csv.RequisitionsFile, func(w io.Writer) error { return cmd.writeRequisitions(w, locations, products) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cmd.config.Verbose {
			fmt.Fprintf(cmd.out, "📦 Generating %s...\n", step.file)
		}
		if err := cmd.writeFile(step.file, step.fn); err != nil {
			return fmt.Errorf("failed to generate %s: %w", step.file, err)
		}
	}

	if cmd.config.Verbose {
		fmt.Fprintf(cmd.out, "✅ Scenario generated successfully in %s\n", cmd.config.OutputDir)
	}
	return nil
}

func (cmd *GenerateCommand) validate() error {
	if cmd.config.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	if cmd.config.Outlets < 1 {
		return fmt.Errorf("at least one outlet is required, got %d", cmd.config.Outlets)
	}
	if cmd.config.Products < 1 {
		return fmt.Errorf("at least one product is required, got %d", cmd.config.Products)
	}
	if cmd.config.Requisitions < 0 {
		return fmt.Errorf("requisitions cannot be negative, got %d", cmd.config.Requisitions)
	}
	if cmd.config.Coverage < 0 {
		return fmt.Errorf("coverage cannot be negative, got %.2f", cmd.config.Coverage)
	}
	return nil
}

func (cmd *GenerateCommand) writeFile(name string, fn func(io.Writer) error) error {
	file, err := os.Create(filepath.Join(cmd.config.OutputDir, name))
	if err != nil {
		return err
	}
	defer file.Close()
	return fn(file)
}

// generateLocations creates one main store plus a mix of tracked stores,
// expense departments and consignment outlets
func (cmd *GenerateCommand) generateLocations() []generatedLocation {
	locations := []generatedLocation{{ID: "MAIN", Code: "MS01", Name: "Main Store", Category: entities.TrackedInventory}}

	kinds := []struct {
		prefix   string
		name     string
		category entities.LocationCategory
	}{
		{"ST", "Sub Store", entities.TrackedInventory},
		{"DP", "Department", entities.DirectExpense},
		{"CS", "Consignment Outlet", entities.Consignment},
	}

	for i := 0; i < cmd.config.Outlets; i++ {
		// Half the outlets are tracked stores, so alternates exist for re-homing
		kind := kinds[0]
		if roll := cmd.rand.Float64(); roll >= 0.5 && roll < 0.85 {
			kind = kinds[1]
		} else if roll >= 0.85 {
			kind = kinds[2]
		}
		code := fmt.Sprintf("%s%02d", kind.prefix, i+1)
		locations = append(locations, generatedLocation{
			ID:       code,
			Code:     code,
			Name:     fmt.Sprintf("%s %d", kind.name, i+1),
			Category: kind.category,
		})
	}
	return locations
}

func (cmd *GenerateCommand) generateProducts() []generatedProduct {
	units := []string{"ea", "kg", "btl", "box", "l"}
	products := make([]generatedProduct, 0, cmd.config.Products)
	for i := 0; i < cmd.config.Products; i++ {
		products = append(products, generatedProduct{
			ID:   fmt.Sprintf("P%04d", i+1),
			Name: fmt.Sprintf("Product %d", i+1),
			Unit: units[cmd.rand.Intn(len(units))],
			Cost: fmt.Sprintf("%d.%02d", cmd.rand.Intn(40), cmd.rand.Intn(100)),
			Par:  10 * (1 + cmd.rand.Intn(10)),
		})
	}
	return products
}

func (cmd *GenerateCommand) writeLocations(w io.Writer, locations []generatedLocation) error {
	fmt.Fprintln(w, "id,code,name,category")
	for _, l := range locations {
		if _, err := fmt.Fprintf(w, "%s,%s,%s,%s\n", l.ID, l.Code, l.Name, categoryName(l.Category)); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *GenerateCommand) writeProducts(w io.Writer, products []generatedProduct) error {
	fmt.Fprintln(w, "id,name,unit,default_cost")
	for _, p := range products {
		if _, err := fmt.Fprintf(w, "%s,%s,%s,%s\n", p.ID, p.Name, p.Unit, p.Cost); err != nil {
			return err
		}
	}
	return nil
}

// writeStock stocks the main store at coverage times the outlets' combined
// PAR and gives tracked stores a random share of their own PAR
func (cmd *GenerateCommand) writeStock(w io.Writer, locations []generatedLocation, products []generatedProduct) error {
	fmt.Fprintln(w, "product_id,location_id,on_hand,reserved")
	for _, p := range products {
		mainQty := int(float64(p.Par*len(locations)) * cmd.config.Coverage)
		reserved := 0
		if mainQty > 0 && cmd.rand.Float64() < 0.2 {
			reserved = cmd.rand.Intn(mainQty/4 + 1)
		}
		fmt.Fprintf(w, "%s,MAIN,%d,%d\n", p.ID, mainQty, reserved)

		for _, l := range locations[1:] {
			if l.Category != entities.TrackedInventory {
				continue
			}
			qty := cmd.rand.Intn(p.Par + 1)
			if _, err := fmt.Fprintf(w, "%s,%s,%d,0\n", p.ID, l.ID, qty); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cmd *GenerateCommand) writeParLevels(w io.Writer, locations []generatedLocation, products []generatedProduct) error {
	fmt.Fprintln(w, "product_id,location_id,par_level,reorder_point,min_order_qty,max_order_qty")
	for _, l := range locations[1:] {
		if l.Category != entities.TrackedInventory {
			continue
		}
		for _, p := range products {
			reorder := p.Par / 4
			minQty := p.Par / 10
			maxQty := ""
			if cmd.rand.Float64() < 0.3 {
				maxQty = fmt.Sprintf("%d", p.Par/2)
			}
			if _, err := fmt.Fprintf(w, "%s,%s,%d,%d,%d,%s\n", p.ID, l.ID, p.Par, reorder, minQty, maxQty); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeRequisitions scripts requisitions from the main store to random
// outlets. Direct-expense and consignment destinations get the role their
// approval rule requires; a few are approved below the requested quantity
func (cmd *GenerateCommand) writeRequisitions(w io.Writer, locations []generatedLocation, products []generatedProduct) error {
	fmt.Fprintln(w, "requisition,source,destination,requester,department,product_id,quantity,approver_role,approved_qty,line_source")
	for i := 0; i < cmd.config.Requisitions; i++ {
		destination := locations[1+cmd.rand.Intn(len(locations)-1)]
		role := ""
		switch destination.Category {
		case entities.DirectExpense:
			role = "department-head"
		case entities.Consignment:
			role = "procurement-or-vendor-liaison"
		}

		lines := 1 + cmd.rand.Intn(min(4, len(products)))
		picked := cmd.rand.Perm(len(products))[:lines]
		for _, pi := range picked {
			p := products[pi]
			qty := 1 + cmd.rand.Intn(p.Par)
			approved := ""
			if role != "" && cmd.rand.Float64() < 0.25 {
				approved = fmt.Sprintf("%d", 1+cmd.rand.Intn(qty))
			}
			if _, err := fmt.Fprintf(w, "R%04d,MAIN,%s,user%02d,%s,%s,%d,%s,%s,\n",
				i+1, destination.ID, 1+cmd.rand.Intn(20), destination.Name, p.ID, qty, role, approved); err != nil {
				return err
			}
		}
	}
	return nil
}

func categoryName(c entities.LocationCategory) string {
	switch c {
	case entities.DirectExpense:
		return "direct-expense"
	case entities.Consignment:
		return "consignment"
	default:
		return "tracked-inventory"
	}
}

// printHelp shows usage information
func (cmd *GenerateCommand) printHelp() {
	fmt.Fprintln(cmd.out, `Store Requisition Scenario Generator

USAGE:
    storereq generate [OPTIONS]

OPTIONS:
    -outlets <N>        Number of outlets besides the main store (required)
    -products <N>       Number of catalog products (required)
    -requisitions <N>   Number of scripted requisitions (default: 10)
    -coverage <F>       Main store stock against outlet PAR (e.g., 0.5 = short, 2.0 = overstocked)
    -output <DIR>       Output directory for generated files (required)
    -seed <N>           Random seed for reproducible generation (optional)
    -verbose            Enable verbose output
    -help               Show this help message

EXAMPLES:
    # Generate a small hotel
    storereq generate -outlets 6 -products 20 -requisitions 10 -coverage 0.5 -output ./small_hotel

    # Generate a reproducible scenario
    storereq generate -outlets 20 -products 300 -requisitions 200 -coverage 1.2 -output ./resort -seed 12345`)
}
