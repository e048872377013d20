package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/storereq/pkg/application/dto"
	"github.com/vsinha/storereq/pkg/application/services/replenishment"
	"github.com/vsinha/storereq/pkg/application/services/requisition"
	"github.com/vsinha/storereq/pkg/domain/entities"
	"github.com/vsinha/storereq/pkg/domain/services"
	"github.com/vsinha/storereq/pkg/infrastructure/events"
)

// Server is a thin HTTP adapter over the requisition engine
type Server struct {
	requisitions *requisition.Service
	planner      *replenishment.Planner
	sequencer    *services.ReferenceSequencer
	events       events.EventStore
	logger       *zap.Logger
	app          *fiber.App
}

// NewServer builds the fiber application and registers every route
func NewServer(
	requisitions *requisition.Service,
	planner *replenishment.Planner,
	sequencer *services.ReferenceSequencer,
	eventStore events.EventStore,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		requisitions: requisitions,
		planner:      planner,
		sequencer:    sequencer,
		events:       eventStore,
		logger:       logger,
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App returns the underlying fiber application
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on address until ctx is cancelled
func (s *Server) Listen(ctx context.Context, address string) error {
	go func() {
		<-ctx.Done()
		if err := s.app.Shutdown(); err != nil {
			s.logger.Warn("shutdown failed", zap.Error(err))
		}
	}()

	s.logger.Info("listening", zap.String("address", address))
	return s.app.Listen(address)
}

func (s *Server) routes() {
	api := s.app.Group("/api")

	api.Post("/requisitions", s.createRequisition)
	api.Get("/requisitions", s.listRequisitions)
	api.Get("/requisitions/:id", s.getRequisition)
	api.Post("/requisitions/:id/lines", s.addLine)
	api.Delete("/requisitions/:id/lines/:lineID", s.removeLine)
	api.Post("/requisitions/:id/lines/:lineID/finalize", s.finalizeIssue)
	api.Post("/requisitions/:id/submit", s.submit)
	api.Post("/requisitions/:id/approve", s.approve)
	api.Post("/requisitions/:id/issue", s.issue)
	api.Post("/requisitions/:id/complete", s.complete)
	api.Post("/requisitions/:id/cancel", s.cancel)
	api.Post("/requisitions/:id/void", s.void)
	api.Get("/requisitions/:id/documents", s.documents)
	api.Get("/requisitions/:id/events", s.requisitionEvents)

	api.Get("/replenishment/suggestions", s.suggestions)
	api.Post("/replenishment/accept", s.acceptReplenishment)

	api.Get("/references/compare", s.compareReferences)
	api.Get("/references/:code", s.parseReference)
}

// statusFor maps the engine's error taxonomy onto HTTP status codes.
// Unclassified errors are input validation failures
func statusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.Is(err, entities.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, entities.ErrMalformedReference):
		return fiber.StatusBadRequest
	case errors.Is(err, entities.ErrApproverMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, entities.ErrStageViolation), errors.Is(err, entities.ErrConcurrentModification):
		return fiber.StatusConflict
	case errors.Is(err, entities.ErrInvariantViolation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, entities.ErrInsufficientData):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusBadRequest
	}
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	message := err.Error()
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		message = fiberErr.Message
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}

type createRequisitionRequest struct {
	dto.CreateRequisition
	Actor string `json:"actor"`
}

type actorRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type lineRequest struct {
	dto.LineInput
	Actor string `json:"actor"`
}

type finalizeRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
	Actor    string          `json:"actor"`
}

type acceptRequest struct {
	LocationID       entities.LocationID `json:"location_id"`
	SourceLocationID entities.LocationID `json:"source_location_id"`
	Requester        string              `json:"requester"`
	Department       string              `json:"department"`
	Notes            string              `json:"notes"`
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

// POST /api/requisitions
func (s *Server) createRequisition(c *fiber.Ctx) error {
	var body createRequisitionRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	actor := body.Actor
	if actor == "" {
		actor = body.Requester
	}

	r, err := s.requisitions.Create(c.UserContext(), body.CreateRequisition, actor)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(newRequisitionResponse(r))
}

// GET /api/requisitions
func (s *Server) listRequisitions(c *fiber.Ctx) error {
	all, err := s.requisitions.List(c.UserContext())
	if err != nil {
		return err
	}

	stage := strings.ToLower(c.Query("stage"))
	res := make([]requisitionResponse, 0, len(all))
	for _, r := range all {
		if stage != "" && r.Stage.String() != stage {
			continue
		}
		res = append(res, newRequisitionResponse(r))
	}
	return c.JSON(res)
}

// GET /api/requisitions/:id
func (s *Server) getRequisition(c *fiber.Ctx) error {
	r, err := s.requisitions.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/lines
func (s *Server) addLine(c *fiber.Ctx) error {
	var body lineRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	r, err := s.requisitions.AddLine(c.UserContext(), c.Params("id"), body.LineInput, body.Actor)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// DELETE /api/requisitions/:id/lines/:lineID?actor=...
func (s *Server) removeLine(c *fiber.Ctx) error {
	r, err := s.requisitions.RemoveLine(c.UserContext(), c.Params("id"), c.Params("lineID"), c.Query("actor"))
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/lines/:lineID/finalize
func (s *Server) finalizeIssue(c *fiber.Ctx) error {
	var body finalizeRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	r, err := s.requisitions.FinalizeIssue(c.UserContext(), c.Params("id"), c.Params("lineID"), body.Quantity, body.Actor)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// actorBody reads an optional actor/reason body
func actorBody(c *fiber.Ctx) (actorRequest, error) {
	var body actorRequest
	if len(c.Body()) == 0 {
		return body, nil
	}
	err := parseBody(c, &body)
	return body, err
}

// POST /api/requisitions/:id/submit
func (s *Server) submit(c *fiber.Ctx) error {
	body, err := actorBody(c)
	if err != nil {
		return err
	}
	r, err := s.requisitions.Submit(c.UserContext(), c.Params("id"), body.Actor)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/approve
func (s *Server) approve(c *fiber.Ctx) error {
	var body dto.Approval
	if err := parseBody(c, &body); err != nil {
		return err
	}
	r, err := s.requisitions.Approve(c.UserContext(), c.Params("id"), body)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/issue
func (s *Server) issue(c *fiber.Ctx) error {
	body, err := actorBody(c)
	if err != nil {
		return err
	}
	result, err := s.requisitions.Issue(c.UserContext(), c.Params("id"), body.Actor)
	if err != nil {
		return err
	}
	return c.JSON(newIssueResponse(result))
}

// POST /api/requisitions/:id/complete
func (s *Server) complete(c *fiber.Ctx) error {
	body, err := actorBody(c)
	if err != nil {
		return err
	}
	r, err := s.requisitions.Complete(c.UserContext(), c.Params("id"), body.Actor)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/cancel
func (s *Server) cancel(c *fiber.Ctx) error {
	body, err := actorBody(c)
	if err != nil {
		return err
	}
	r, err := s.requisitions.Cancel(c.UserContext(), c.Params("id"), body.Actor, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// POST /api/requisitions/:id/void
func (s *Server) void(c *fiber.Ctx) error {
	body, err := actorBody(c)
	if err != nil {
		return err
	}
	r, err := s.requisitions.Void(c.UserContext(), c.Params("id"), body.Actor, body.Reason)
	if err != nil {
		return err
	}
	return c.JSON(newRequisitionResponse(r))
}

// GET /api/requisitions/:id/documents
func (s *Server) documents(c *fiber.Ctx) error {
	docs, err := s.requisitions.Documents(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(newDocumentResponses(docs))
}

// GET /api/requisitions/:id/events
func (s *Server) requisitionEvents(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := s.requisitions.Get(c.UserContext(), id); err != nil {
		return err
	}
	stored, err := s.events.ReadEvents(id, 0)
	if err != nil {
		return err
	}
	return c.JSON(newEventResponses(stored))
}

// GET /api/replenishment/suggestions?location=...
func (s *Server) suggestions(c *fiber.Ctx) error {
	if location := c.Query("location"); location != "" {
		suggestions, err := s.planner.Suggest(c.UserContext(), entities.LocationID(location))
		if err != nil {
			return err
		}
		return c.JSON(suggestions)
	}

	all, err := s.planner.SuggestAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(all)
}

// POST /api/replenishment/accept
//
// Recomputes the suggestions for location_id and accepts all of them as one
// draft requisition sourced from source_location_id
func (s *Server) acceptReplenishment(c *fiber.Ctx) error {
	var body acceptRequest
	if err := parseBody(c, &body); err != nil {
		return err
	}
	if body.LocationID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "location_id is required")
	}

	suggestions, err := s.planner.Suggest(c.UserContext(), body.LocationID)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		return fiber.NewError(fiber.StatusConflict, "no replenishment needed for "+string(body.LocationID))
	}

	accepted, err := s.planner.Accept(c.UserContext(), replenishment.AcceptInput{
		Suggestions:      suggestions,
		SourceLocationID: body.SourceLocationID,
		Requester:        body.Requester,
		Department:       body.Department,
		Notes:            body.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(acceptResponse{
		Requisition: newRequisitionResponse(accepted.Requisition),
		Provisional: newFulfillmentResponses(accepted.Provisional),
		Shortfall:   accepted.Shortfall(),
	})
}

// GET /api/references/:code
func (s *Server) parseReference(c *fiber.Ctx) error {
	ref, err := s.sequencer.Parse(c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"code":     ref.String(),
		"prefix":   ref.Prefix,
		"year":     ref.Year,
		"month":    ref.Month,
		"period":   ref.Period(),
		"sequence": ref.Sequence,
	})
}

// GET /api/references/compare?a=...&b=...
func (s *Server) compareReferences(c *fiber.Ctx) error {
	a, b := c.Query("a"), c.Query("b")
	if a == "" || b == "" {
		return fiber.NewError(fiber.StatusBadRequest, "both a and b are required")
	}
	return c.JSON(fiber.Map{"a": a, "b": b, "result": s.sequencer.Compare(a, b)})
}
