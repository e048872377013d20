package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/infrastructure/config"
	"github.com/vsinha/storereq/pkg/infrastructure/logging"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/storereq/pkg/interfaces/api"
	"github.com/vsinha/storereq/pkg/interfaces/cli/output"
)

// Commands understood by Command
const (
	CommandRun       = "run"
	CommandSuggest   = "suggest"
	CommandReplenish = "replenish"
	CommandParse     = "parse"
	CommandServe     = "serve"
)

// Config holds configuration for the storereq command
type Config struct {
	Command     string
	ScenarioDir string
	ConfigFile  string
	OutputDir   string
	Format      string
	Location    string
	Source      string
	Address     string
	References  []string
	Verbose     bool
	Help        bool

	// Stdout receives command output; os.Stdout when nil
	Stdout io.Writer
	// Now fixes the clock; time.Now when nil
	Now func() time.Time
}

// Command loads a scenario and runs one engine operation over it
type Command struct {
	config Config
	out    io.Writer
}

// NewCommand creates a new command with the given configuration
func NewCommand(config Config) *Command {
	out := config.Stdout
	if out == nil {
		out = os.Stdout
	}
	if config.Command == "" {
		config.Command = CommandRun
	}
	if config.Format == "" {
		config.Format = "text"
	}
	return &Command{config: config, out: out}
}

// Execute runs the command
func (c *Command) Execute(ctx context.Context) error {
	if c.config.Help {
		c.showHelp()
		return nil
	}

	if err := c.validateInputs(); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	cfg, err := config.Load(c.config.ConfigFile)
	if err != nil {
		return err
	}
	if c.config.Address != "" {
		cfg.HTTP.Address = c.config.Address
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if c.config.Command == CommandParse {
		return c.parse(ctx, cfg, logger)
	}

	if c.config.Verbose {
		c.printHeader(cfg)
		fmt.Fprintln(c.out, "📂 Loading scenario from CSV files...")
	}

	scenario, err := csv.NewLoader().LoadScenario(c.config.ScenarioDir)
	if err != nil {
		return fmt.Errorf("error loading scenario: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.out, "✅ Scenario loaded successfully:\n")
		fmt.Fprintf(c.out, "  Locations: %d\n", len(scenario.Locations))
		fmt.Fprintf(c.out, "  Products: %d\n", len(scenario.Products))
		fmt.Fprintf(c.out, "  Stock Levels: %d\n", len(scenario.Stock))
		fmt.Fprintf(c.out, "  PAR Levels: %d\n", len(scenario.ParLevels))
		fmt.Fprintf(c.out, "  Requisition Lines: %d\n", len(scenario.Requisitions))
		fmt.Fprintln(c.out)
	}

	engine, err := NewEngine(ctx, cfg, scenario, logger, c.engineOptions()...)
	if err != nil {
		return err
	}
	defer engine.Close()

	switch c.config.Command {
	case CommandRun:
		return c.run(ctx, engine, scenario.Requisitions)
	case CommandSuggest:
		return c.suggest(ctx, engine)
	case CommandReplenish:
		return c.replenish(ctx, engine)
	case CommandServe:
		server := api.NewServer(engine.Requisitions, engine.Planner, engine.Sequencer, engine.Events, logger.Named("http"))
		return server.Listen(ctx, cfg.HTTP.Address)
	default:
		return fmt.Errorf("unknown command %q", c.config.Command)
	}
}

func (c *Command) engineOptions() []EngineOption {
	if c.config.Now == nil {
		return nil
	}
	return []EngineOption{WithEngineClock(c.config.Now)}
}

func (c *Command) outputConfig(elapsed time.Duration) output.Config {
	return output.Config{
		Format:    c.config.Format,
		OutputDir: c.config.OutputDir,
		Verbose:   c.config.Verbose,
		Elapsed:   elapsed,
	}
}

// run drives every scripted requisition of the scenario to issue
func (c *Command) run(ctx context.Context, engine *Engine, rows []*csv.RequisitionRow) error {
	scripts, err := BuildScripts(rows)
	if err != nil {
		return err
	}

	if c.config.Verbose {
		fmt.Fprintf(c.out, "🔄 Running %d requisitions...\n", len(scripts))
	}

	startTime := time.Now()
	outcomes, err := engine.Orchestrator.RunScripts(ctx, scripts)
	elapsed := time.Since(startTime)
	if err != nil {
		return fmt.Errorf("error running requisitions: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintf(c.out, "✅ Requisitions processed in %v\n\n", elapsed)
	}

	if err := output.GenerateRun(c.out, outcomes, c.outputConfig(elapsed)); err != nil {
		return fmt.Errorf("error generating output: %w", err)
	}

	if c.config.Verbose {
		fmt.Fprintln(c.out, "🏁 Requisition run complete!")
	}
	return nil
}

// suggest prints PAR suggestions for one location or all of them
func (c *Command) suggest(ctx context.Context, engine *Engine) error {
	suggestions := make(map[entities.LocationID][]entities.ReplenishmentSuggestion)

	if c.config.Location != "" {
		locationID := entities.LocationID(c.config.Location)
		list, err := engine.Planner.Suggest(ctx, locationID)
		if err != nil {
			return fmt.Errorf("error computing suggestions for %s: %w", locationID, err)
		}
		if len(list) > 0 {
			suggestions[locationID] = list
		}
	} else {
		all, err := engine.Planner.SuggestAll(ctx)
		if err != nil {
			return fmt.Errorf("error computing suggestions: %w", err)
		}
		suggestions = all
	}

	return output.GenerateSuggestions(c.out, suggestions, c.outputConfig(0))
}

// replenish accepts every suggestion as draft requisitions from the source store
func (c *Command) replenish(ctx context.Context, engine *Engine) error {
	accepted, err := engine.Orchestrator.Replenish(ctx, entities.LocationID(c.config.Source), "replenishment-planner")
	if err != nil {
		return err
	}

	for _, a := range accepted {
		r := a.Requisition
		fmt.Fprintf(c.out, "📝 %s drafted for %s (%d lines, provisional shortfall %s)\n",
			r.Reference, r.DestinationLocationID, len(r.Lines), a.Shortfall())
		if c.config.Verbose {
			for _, line := range r.Lines {
				fmt.Fprintf(c.out, "    %-4s %-10s %s %s\n", line.ID, line.ProductID, line.RequestedQty, line.Unit)
			}
		}
	}
	if len(accepted) == 0 {
		fmt.Fprintln(c.out, "✅ Nothing to replenish")
	}
	return nil
}

// parse prints the parts of each reference code
func (c *Command) parse(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	engine, err := NewEngine(ctx, cfg, nil, logger, c.engineOptions()...)
	if err != nil {
		return err
	}
	defer engine.Close()

	views := make([]output.ReferenceView, 0, len(c.config.References))
	for _, code := range c.config.References {
		views = append(views, output.NewReferenceView(engine.Sequencer, code))
	}

	if len(views) > 1 && c.config.Format == "text" {
		sorted := append([]string(nil), c.config.References...)
		sort.SliceStable(sorted, func(i, j int) bool {
			return engine.Sequencer.Compare(sorted[i], sorted[j]) < 0
		})
		defer fmt.Fprintf(c.out, "\nOrdered: %v\n", sorted)
	}

	return output.GenerateReferences(c.out, views, c.outputConfig(0))
}

// BuildScripts groups requisition rows by key, keeping the order in which
// keys first appear. The first row of a key supplies the header fields
func BuildScripts(rows []*csv.RequisitionRow) ([]dto.ScriptedRequisition, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("scenario has no requisitions to run")
	}

	index := make(map[string]int)
	var scripts []dto.ScriptedRequisition
	for _, row := range rows {
		i, ok := index[row.Key]
		if !ok {
			i = len(scripts)
			index[row.Key] = i
			scripts = append(scripts, dto.ScriptedRequisition{
				Key: row.Key,
				Create: dto.CreateRequisition{
					SourceLocationID:      row.Source,
					DestinationLocationID: row.Destination,
					Requester:             row.Requester,
					Department:            row.Department,
				},
			})
		}

		script := &scripts[i]
		if row.Source != script.Create.SourceLocationID || row.Destination != script.Create.DestinationLocationID {
			return nil, fmt.Errorf("requisition %s: rows disagree on source or destination", row.Key)
		}
		if script.ApproverRole == "" {
			script.ApproverRole = row.ApproverRole
		}
		script.Create.Lines = append(script.Create.Lines, dto.LineInput{
			ProductID:        row.ProductID,
			Quantity:         row.Quantity,
			SourceLocationID: row.LineSourceID,
		})
		script.ApprovedQty = append(script.ApprovedQty, row.ApprovedQty)
	}
	return scripts, nil
}

// validateInputs validates the command configuration
func (c *Command) validateInputs() error {
	switch c.config.Command {
	case CommandParse:
		if len(c.config.References) == 0 {
			return fmt.Errorf("parse needs at least one reference code")
		}
		return nil
	case CommandReplenish:
		if c.config.Source == "" {
			return fmt.Errorf("replenish needs a -source store")
		}
	case CommandRun, CommandSuggest, CommandServe:
	default:
		return fmt.Errorf("unknown command %q", c.config.Command)
	}

	if c.config.ScenarioDir == "" {
		return fmt.Errorf("must specify a -scenario directory")
	}
	if _, err := os.Stat(c.config.ScenarioDir); os.IsNotExist(err) {
		return fmt.Errorf("scenario directory not found: %s", c.config.ScenarioDir)
	}
	return nil
}

// printHeader prints the command header information
func (c *Command) printHeader(cfg *config.Config) {
	fmt.Fprintf(c.out, "🚀 Store Requisition Engine CLI\n")
	fmt.Fprintf(c.out, "Command: %s\n", c.config.Command)
	fmt.Fprintf(c.out, "Scenario: %s\n", c.config.ScenarioDir)
	fmt.Fprintf(c.out, "Counter storage: %s\n", cfg.Storage.Backend)
	fmt.Fprintf(c.out, "Output format: %s\n", c.config.Format)
	if c.config.OutputDir != "" {
		fmt.Fprintf(c.out, "Output directory: %s\n", c.config.OutputDir)
	}
	fmt.Fprintln(c.out)
}

// showHelp displays the help message
func (c *Command) showHelp() {
	fmt.Fprintf(c.out, `Store Requisition Engine CLI - requisition fulfillment and document numbering

USAGE:
    storereq [run|suggest|replenish|parse|serve|generate] [OPTIONS]

COMMANDS:
    run          Submit, approve and issue every requisition in requisitions.csv
    suggest      Print PAR replenishment suggestions
    replenish    Draft one requisition per location below its reorder point
    parse        Parse and order document reference codes given as arguments
    serve        Serve the HTTP API over the scenario
    generate     Generate a random scenario (see storereq generate -help)

OPTIONS:
    -scenario <dir>     Path to scenario directory containing CSV files
    -config <file>      Configuration file (yaml, toml or json; optional)
    -output <dir>       Output directory for results (required for csv)
    -format <fmt>       Output format: text, json, csv (default: text)
    -location <id>      Restrict suggest to one location
    -source <id>        Source store for replenish
    -addr <address>     Listen address for serve (default from config)
    -verbose            Enable verbose output
    -help               Show this help message

SCENARIO DIRECTORY STRUCTURE:
    scenario_name/
    ├── locations.csv      # Location directory
    ├── products.csv       # Product catalog
    ├── stock.csv          # On-hand and reserved stock
    ├── par_levels.csv     # PAR settings (optional)
    └── requisitions.csv   # Scripted requisitions (optional)

CSV FILE FORMATS:

locations.csv:
    id,code,name,category
    MAIN,MS01,Main Store,tracked-inventory

products.csv:
    id,name,unit,default_cost
    FLOUR,Flour 25kg,kg,1.20

stock.csv:
    product_id,location_id,on_hand,reserved
    FLOUR,MAIN,60,0

par_levels.csv:
    product_id,location_id,par_level,reorder_point,min_order_qty,max_order_qty
    LIME,BAR,40,10,10,

requisitions.csv:
    requisition,source,destination,requester,department,product_id,quantity,approver_role,approved_qty,line_source
    R1,MAIN,HOUSEKEEPING,jdoe,Rooms,SOAP,50,department-head,40,

ENVIRONMENT:
    STOREREQ_STORAGE_BACKEND    memory, badger or postgres
    STOREREQ_STORAGE_BADGER_PATH
    STOREREQ_STORAGE_POSTGRES_DSN
    STOREREQ_LOG_LEVEL

EXAMPLES:
    storereq run -scenario examples/hotel -verbose
    storereq suggest -scenario examples/hotel -location BAR
    storereq replenish -scenario examples/hotel -source MAIN
    storereq parse TRF-2410-015 TRF-2409-200 ISS-2410-001
    storereq run -scenario examples/hotel -format csv -output results/
`)
}
