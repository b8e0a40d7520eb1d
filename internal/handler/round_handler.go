package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// RoundHandler wires interview round management endpoints.
type RoundHandler struct {
	rounds service.RoundService
	logger zerolog.Logger
}

// NewRoundHandler constructs the handler.
func NewRoundHandler(rounds service.RoundService, logger zerolog.Logger) *RoundHandler {
	return &RoundHandler{
		rounds: rounds,
		logger: logger.With().Str("component", "round_handler").Logger(),
	}
}

// Register attaches round endpoints to the router group.
func (h *RoundHandler) Register(router fiber.Router) {
	router.Post("/", h.create)
	router.Get("/", h.list)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
}

func (h *RoundHandler) create(c *fiber.Ctx) error {
	var payload dto.RoundCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	round, err := h.rounds.Create(c.Context(), payload, actorFromContext(c))
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to create round")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to create round")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "round created", round)
}

func (h *RoundHandler) list(c *fiber.Ctx) error {
	postingID, err := parseQueryUint(c, "job_posting_id")
	if err != nil || postingID == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "job_posting_id required")
	}

	rounds, err := h.rounds.ListByPosting(c.Context(), postingID)
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to list rounds")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list rounds")
	}

	return utils.SendSuccess(c, "rounds", rounds)
}

func (h *RoundHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	round, err := h.rounds.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRoundNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "round not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("round_id", id).Msg("failed to load round")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load round")
	}

	return utils.SendSuccess(c, "round", round)
}

func (h *RoundHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.RoundUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	round, err := h.rounds.Update(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRoundNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "round not found")
		case errors.Is(err, service.ErrRoundFrozen):
			return utils.SendError(c, fiber.StatusConflict, "round is referenced by meetings")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("round_id", id).Msg("failed to update round")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to update round")
		}
	}

	return utils.SendSuccess(c, "round updated", round)
}
