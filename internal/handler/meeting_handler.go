package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// MeetingHandler wires the meeting lifecycle endpoints for HR users.
type MeetingHandler struct {
	meetings service.MeetingService
	grading  service.GradingService
	logger   zerolog.Logger
}

// NewMeetingHandler constructs the handler.
func NewMeetingHandler(meetings service.MeetingService, grading service.GradingService, logger zerolog.Logger) *MeetingHandler {
	return &MeetingHandler{
		meetings: meetings,
		grading:  grading,
		logger:   logger.With().Str("component", "meeting_handler").Logger(),
	}
}

// Register attaches meeting endpoints to the router group.
func (h *MeetingHandler) Register(router fiber.Router) {
	router.Post("/", h.schedule)
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Post("/:id/start", h.start)
	router.Post("/:id/cancel", h.cancel)
	router.Post("/:id/finish", h.finish)
	router.Post("/:id/evaluation", h.evaluate)
}

func (h *MeetingHandler) schedule(c *fiber.Ctx) error {
	var payload dto.MeetingScheduleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := actorFromContext(c)
	meeting, err := h.meetings.Schedule(c.Context(), payload, actor)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrApplicationNotFound), errors.Is(err, service.ErrRoundNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrCandidateNotEligible):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, service.ErrDuplicateMeeting):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to schedule meeting")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to schedule meeting")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "meeting scheduled", meeting)
}

func (h *MeetingHandler) list(c *fiber.Ctx) error {
	var filter dto.MeetingFilter
	if err := c.QueryParser(&filter); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	meetings, err := h.meetings.List(c.Context(), filter)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list meetings")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list meetings")
	}

	return utils.SendSuccess(c, "meetings", meetings)
}

func (h *MeetingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	meeting, err := h.meetings.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrMeetingNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "meeting not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("meeting_id", id).Msg("failed to load meeting")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load meeting")
	}

	return utils.SendSuccess(c, "meeting", meeting)
}

func (h *MeetingHandler) start(c *fiber.Ctx) error {
	return h.transition(c, "meeting started", h.meetings.Start)
}

func (h *MeetingHandler) cancel(c *fiber.Ctx) error {
	return h.transition(c, "meeting cancelled", h.meetings.Cancel)
}

func (h *MeetingHandler) finish(c *fiber.Ctx) error {
	return h.transition(c, "meeting finished", h.meetings.Finish)
}

func (h *MeetingHandler) transition(c *fiber.Ctx, message string, op func(ctx context.Context, meetingID uint, actor service.Actor) (dto.MeetingResponse, error)) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	meeting, err := op(c.Context(), id, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMeetingNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "meeting not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("meeting_id", id).Msg("meeting transition failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "meeting transition failed")
		}
	}

	return utils.SendSuccess(c, message, meeting)
}

func (h *MeetingHandler) evaluate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.EvaluationSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	meeting, err := h.grading.SubmitEvaluation(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMeetingNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "meeting not found")
		case errors.Is(err, service.ErrAlreadyEvaluated):
			return utils.SendError(c, fiber.StatusConflict, "meeting already evaluated")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("meeting_id", id).Msg("failed to submit evaluation")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit evaluation")
		}
	}

	return utils.SendSuccess(c, "evaluation recorded", meeting)
}
