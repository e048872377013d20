package requisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/services/fulfillment"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/repositories"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// BypassApprover is recorded as approver when the workflow gate lets a
// requisition skip manual approval
const BypassApprover = "system:bypass"

// Prefixes holds the document prefix of each generated document type
type Prefixes struct {
	Transfer        string
	Issue           string
	PurchaseRequest string
	Requisition     string
}

// DefaultPrefixes returns TRF, ISS, PR and SR
func DefaultPrefixes() Prefixes {
	return Prefixes{
		Transfer:        "TRF",
		Issue:           "ISS",
		PurchaseRequest: "PR",
		Requisition:     "SR",
	}
}

// ForDocument returns the prefix stamped on documents of type t
func (p Prefixes) ForDocument(t entities.DocumentType) (string, error) {
	switch t {
	case entities.DocumentTransfer:
		return p.Transfer, nil
	case entities.DocumentIssue:
		return p.Issue, nil
	case entities.DocumentPurchaseRequest:
		return p.PurchaseRequest, nil
	default:
		return "", fmt.Errorf("no prefix configured for document type %s", t)
	}
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for transitions and generated documents
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithEventStore publishes every state change to store
func WithEventStore(store events.EventStore) Option {
	return func(s *Service) {
		s.events = store
	}
}

// WithClock overrides time.Now for stamps and reference periods
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithPrefixes sets the reference prefix per document type
func WithPrefixes(prefixes Prefixes) Option {
	return func(s *Service) {
		s.prefixes = prefixes
	}
}

// WithIDGenerator replaces the uuid requisition ID generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// Service is the requisition state machine. It is the only writer of
// requisitions; every transition loads a copy, mutates the copy and saves it
// with an optimistic version check, so a rejected transition never changes
// the stored requisition
type Service struct {
	repo      repositories.RequisitionRepository
	directory repositories.LocationDirectory
	catalog   repositories.ProductCatalog
	allocator *fulfillment.Allocator
	gate      *services.WorkflowGate
	sequencer *services.ReferenceSequencer

	events   events.EventStore
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	prefixes Prefixes
}

// NewService wires the requisition state machine
func NewService(
	repo repositories.RequisitionRepository,
	directory repositories.LocationDirectory,
	catalog repositories.ProductCatalog,
	allocator *fulfillment.Allocator,
	gate *services.WorkflowGate,
	sequencer *services.ReferenceSequencer,
	opts ...Option,
) *Service {
	s := &Service{
		repo:      repo,
		directory: directory,
		catalog:   catalog,
		allocator: allocator,
		gate:      gate,
		sequencer: sequencer,
		logger:    zap.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
		prefixes:  DefaultPrefixes(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a requisition by ID
func (s *Service) Get(ctx context.Context, id string) (*entities.Requisition, error) {
	return s.repo.Get(ctx, id)
}

// List returns every stored requisition ordered by reference
func (s *Service) List(ctx context.Context) ([]*entities.Requisition, error) {
	return s.repo.List(ctx)
}

// Documents returns the documents generated for a requisition
func (s *Service) Documents(ctx context.Context, id string) ([]entities.GeneratedDocument, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Documents, nil
}

// RestoreSequences raises the reference counters above every reference
// already stored, so a restarted process never reissues a number
func (s *Service) RestoreSequences(ctx context.Context) error {
	all, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list requisitions: %w", err)
	}

	codes := make([]string, 0, len(all))
	for _, r := range all {
		codes = append(codes, r.Reference)
		for _, doc := range r.Documents {
			codes = append(codes, doc.Reference)
		}
	}

	skipped, err := s.sequencer.InitializeFrom(ctx, codes)
	if err != nil {
		return err
	}
	for _, code := range skipped {
		s.logger.Warn("skipping malformed stored reference", zap.String("reference", code))
	}
	return nil
}

// transition runs mutate against a copy of the stored requisition and
// persists the copy only when mutate and validation both succeed
func (s *Service) transition(
	ctx context.Context,
	id, actor, eventType, reason string,
	mutate func(r *entities.Requisition) error,
) (*entities.Requisition, error) {
	return s.transitionReporting(ctx, id, actor, eventType, reason, mutate, nil)
}

// transitionReporting is transition with the event's target stage pinned to
// reported when it is set
func (s *Service) transitionReporting(
	ctx context.Context,
	id, actor, eventType, reason string,
	mutate func(r *entities.Requisition) error,
	reported *entities.Stage,
) (*entities.Requisition, error) {
	stored, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.Immutable() {
		return nil, fmt.Errorf("%w: requisition %s is %s", entities.ErrStageViolation, stored.Reference, stored.Status)
	}

	working := stored.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}

	working.UpdatedBy = actor
	working.UpdatedAt = s.now()

	if err := s.repo.Save(ctx, working); err != nil {
		return nil, fmt.Errorf("failed to save requisition %s: %w", stored.Reference, err)
	}

	s.logger.Info("requisition transition",
		zap.String("event", eventType),
		zap.String("requisition_id", working.ID),
		zap.String("reference", working.Reference),
		zap.Stringer("status", working.Status),
		zap.Stringer("stage", working.Stage),
		zap.String("actor", actor))

	announced := working
	if reported != nil {
		view := *working
		view.Stage = *reported
		announced = &view
	}
	s.publish(events.NewStateChangedEvent(stored, announced, eventType, actor, reason))
	return working.Clone(), nil
}

func (s *Service) publish(event events.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.AppendEvent(event.StreamID(), event); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("event_type", event.Type()),
			zap.String("stream_id", event.StreamID()),
			zap.Error(err))
	}
}

// location looks a location up, turning collaborator failures other than
// not-found into retryable insufficient-data errors
func (s *Service) location(ctx context.Context, id entities.LocationID) (*entities.Location, error) {
	location, err := s.directory.GetLocation(ctx, id)
	if err == nil {
		return location, nil
	}
	if errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("location %s: %w", id, err)
	}
	return nil, fmt.Errorf("%w: location %s: %w", entities.ErrInsufficientData, id, err)
}

func requireStage(r *entities.Requisition, want entities.Stage, operation string) error {
	if r.Stage != want {
		return fmt.Errorf("%w: cannot %s requisition %s in stage %s, expected %s",
			entities.ErrStageViolation, operation, r.Reference, r.Stage, want)
	}
	return nil
}
