package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/services/fulfillment"
	"github.com/vsinha/storereq/pkg/application/services/orchestration"
	"github.com/vsinha/storereq/pkg/application/services/replenishment"
	"github.com/vsinha/storereq/pkg/application/services/requisition"
	"github.com/vsinha/storereq/pkg/application/services/stock"
	"github.com/vsinha/storereq/pkg/domain/repositories"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/config"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
	"github.com/vsinha/storereq/pkg/infrastructure/logging"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/badgerstore"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/storereq/pkg/infrastructure/repositories/memory"
)

// Engine is a fully wired requisition engine over one scenario
type Engine struct {
	Config *config.Config
	Logger *zap.Logger
	Events *events.InMemoryEventStore

	Directory        *memory.LocationDirectory
	Catalog          *memory.ProductCatalog
	Stock            *memory.StockRepository
	ParLevels        *memory.ParLevelRepository
	RequisitionStore *memory.RequisitionRepository
	Counters         repositories.CounterStore

	Sequencer    *services.ReferenceSequencer
	Resolver     *stock.Resolver
	Allocator    *fulfillment.Allocator
	Requisitions *requisition.Service
	Planner      *replenishment.Planner
	Orchestrator *orchestration.RequisitionOrchestrator

	closeCounters func() error
}

// EngineOption configures an Engine
type EngineOption func(*engineOptions)

type engineOptions struct {
	now func() time.Time
}

// WithEngineClock fixes the clock used for dates and document periods
func WithEngineClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		o.now = now
	}
}

// NewEngine loads scenario into in-memory collaborators, opens the configured
// counter store and wires every service on top. Counters are raised past any
// reference already held by the requisition store
func NewEngine(ctx context.Context, cfg *config.Config, scenario *csv.Scenario, logger *zap.Logger, opts ...EngineOption) (*Engine, error) {
	options := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if scenario == nil {
		scenario = &csv.Scenario{}
	}

	e := &Engine{
		Config:           cfg,
		Logger:           logger,
		Events:           events.NewInMemoryEventStore(events.WithLogger(logger)),
		Directory:        memory.NewLocationDirectory(len(scenario.Locations)),
		Catalog:          memory.NewProductCatalog(len(scenario.Products)),
		Stock:            memory.NewStockRepository(),
		ParLevels:        memory.NewParLevelRepository(),
		RequisitionStore: memory.NewRequisitionRepository(),
	}

	if err := e.Directory.LoadLocations(scenario.Locations); err != nil {
		return nil, fmt.Errorf("failed to load locations into directory: %w", err)
	}
	if err := e.Catalog.LoadProducts(scenario.Products); err != nil {
		return nil, fmt.Errorf("failed to load products into catalog: %w", err)
	}
	if err := e.Stock.LoadStockLevels(scenario.Stock); err != nil {
		return nil, fmt.Errorf("failed to load stock levels into repository: %w", err)
	}
	if err := e.ParLevels.LoadParLevels(scenario.ParLevels); err != nil {
		return nil, fmt.Errorf("failed to load PAR levels into repository: %w", err)
	}

	counters, closeCounters, err := openCounterStore(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	e.Counters = counters
	e.closeCounters = closeCounters

	if err := logging.NewAuditHandler(logger).Register(e.Events); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to register audit handler: %w", err)
	}

	e.Sequencer = services.NewReferenceSequencer(counters, services.WithClock(options.now))
	e.Resolver = stock.NewResolver(e.Directory, e.Stock,
		stock.WithCatalog(e.Catalog),
		stock.WithLogger(logger.Named("stock")))
	e.Allocator = fulfillment.NewAllocator(e.Resolver, logger.Named("fulfillment"))
	e.Requisitions = requisition.NewService(
		e.RequisitionStore,
		e.Directory,
		e.Catalog,
		e.Allocator,
		services.NewWorkflowGate(approvalConfig(cfg.Approval)),
		e.Sequencer,
		requisition.WithLogger(logger.Named("requisition")),
		requisition.WithEventStore(e.Events),
		requisition.WithClock(options.now),
		requisition.WithPrefixes(requisition.Prefixes{
			Transfer:        cfg.Prefixes.Transfer,
			Issue:           cfg.Prefixes.Issue,
			PurchaseRequest: cfg.Prefixes.PurchaseRequest,
			Requisition:     cfg.Prefixes.Requisition,
		}),
	)
	e.Planner = replenishment.NewPlanner(e.ParLevels, e.Stock, e.Requisitions, e.Allocator,
		replenishment.WithLogger(logger.Named("replenishment")),
		replenishment.WithEventStore(e.Events))
	e.Orchestrator = orchestration.NewRequisitionOrchestrator(e.Requisitions, e.Planner, logger.Named("orchestration"))

	if err := e.Requisitions.RestoreSequences(ctx); err != nil {
		e.Close()
		return nil, fmt.Errorf("failed to restore document sequences: %w", err)
	}

	return e, nil
}

// Close drains pending event handlers and releases the counter store
func (e *Engine) Close() error {
	e.Events.Drain()
	if e.closeCounters == nil {
		return nil
	}
	return e.closeCounters()
}

func approvalConfig(c config.ApprovalConfig) services.ApprovalConfig {
	return services.ApprovalConfig{
		DepartmentHeadRole: c.DepartmentHeadRole,
		ConsignmentRole:    c.ConsignmentRole,
		StandardChain:      c.StandardChain,
		DisableBypass:      c.DisableBypass,
	}
}

// openCounterStore opens the sequence counter backend named by storage
func openCounterStore(storage config.StorageConfig, logger *zap.Logger) (repositories.CounterStore, func() error, error) {
	switch storage.Backend {
	case config.BackendMemory:
		return memory.NewCounterStore(), nil, nil
	case config.BackendBadger:
		store, err := badgerstore.Open(storage.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using badger counter store", zap.String("path", storage.BadgerPath))
		return store, store.Close, nil
	case config.BackendPostgres:
		store, err := gormstore.Open(storage.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using postgres counter store")
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", storage.Backend)
	}
}
