package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// SelectionHandler wires the batch top-N selection endpoint.
type SelectionHandler struct {
	selection service.SelectionService
	logger    zerolog.Logger
}

// NewSelectionHandler constructs the handler.
func NewSelectionHandler(selection service.SelectionService, logger zerolog.Logger) *SelectionHandler {
	return &SelectionHandler{
		selection: selection,
		logger:    logger.With().Str("component", "selection_handler").Logger(),
	}
}

// Register attaches the selection endpoint to the router group.
func (h *SelectionHandler) Register(router fiber.Router) {
	router.Post("/", h.selectTopN)
}

func (h *SelectionHandler) selectTopN(c *fiber.Ctx) error {
	var payload dto.SelectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.selection.SelectTopN(c.Context(), payload, actorFromContext(c))
	if err != nil {
		if isValidationError(err) {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to run selection")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to run selection")
	}

	// Per-candidate failures are reported inside the payload, not as an
	// HTTP error: the batch itself completed.
	return utils.SendSuccess(c, "selection completed", result)
}
