package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/storereq/pkg/interfaces/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := commands.CommandRun
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	var err error
	if command == "generate" {
		err = runGenerate(ctx, args)
	} else {
		err = runCommand(ctx, command, args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, command string, args []string) error {
	flags := flag.NewFlagSet(command, flag.ExitOnError)

	// Command line flags
	var (
		scenarioDir = flags.String(
			"scenario",
			"",
			"Path to scenario directory containing CSV files",
		)
		configFile = flags.String("config", "", "Configuration file (optional)")
		outputDir  = flags.String("output", "", "Output directory for results (optional)")
		format     = flags.String("format", "text", "Output format: text, json, csv")
		location   = flags.String("location", "", "Restrict suggestions to one location")
		source     = flags.String("source", "", "Source store for replenishment requisitions")
		address    = flags.String("addr", "", "Listen address for the HTTP API")
		verbose    = flags.Bool("verbose", false, "Enable verbose output")
		help       = flags.Bool("help", false, "Show help message")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	config := commands.Config{
		Command:     command,
		ScenarioDir: *scenarioDir,
		ConfigFile:  *configFile,
		OutputDir:   *outputDir,
		Format:      *format,
		Location:    *location,
		Source:      *source,
		Address:     *address,
		References:  flags.Args(),
		Verbose:     *verbose,
		Help:        *help,
	}

	return commands.NewCommand(config).Execute(ctx)
}

func runGenerate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("generate", flag.ExitOnError)

	var (
		outlets      = flags.Int("outlets", 0, "Number of outlets besides the main store")
		products     = flags.Int("products", 0, "Number of catalog products")
		requisitions = flags.Int("requisitions", 10, "Number of scripted requisitions")
		coverage     = flags.Float64("coverage", 1.0, "Main store stock against outlet PAR")
		outputDir    = flags.String("output", "", "Output directory for generated files")
		seed         = flags.Int64("seed", 0, "Random seed (0 picks one from the clock)")
		verbose      = flags.Bool("verbose", false, "Enable verbose output")
		help         = flags.Bool("help", false, "Show help message")
	)

	if err := flags.Parse(args); err != nil {
		return err
	}

	return commands.NewGenerateCommand(commands.GenerateConfig{
		Outlets:      *outlets,
		Products:     *products,
		Requisitions: *requisitions,
		Coverage:     *coverage,
		OutputDir:    *outputDir,
		Seed:         *seed,
		Help:         *help,
		Verbose:      *verbose,
	}).Execute(ctx)
}
