package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// InvitationHandler wires the public, token-authenticated invitation surface.
// These routes carry no JWT; the response token is the only credential.
type InvitationHandler struct {
	invitations service.InvitationService
	logger      zerolog.Logger
}

// NewInvitationHandler constructs the handler.
func NewInvitationHandler(invitations service.InvitationService, logger zerolog.Logger) *InvitationHandler {
	return &InvitationHandler{
		invitations: invitations,
		logger:      logger.With().Str("component", "invitation_handler").Logger(),
	}
}

// Register attaches invitation endpoints to the router group.
func (h *InvitationHandler) Register(router fiber.Router) {
	router.Get("/:token", h.verify)
	router.Post("/respond", h.respond)
}

func (h *InvitationHandler) verify(c *fiber.Ctx) error {
	token := strings.TrimSpace(c.Params("token"))
	if token == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "token required")
	}

	view, err := h.invitations.Verify(c.Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return utils.SendError(c, fiber.StatusNotFound, "invitation not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to verify invitation token")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to verify invitation")
	}

	return utils.SendSuccess(c, "invitation", view)
}

func (h *InvitationHandler) respond(c *fiber.Ctx) error {
	var payload dto.InvitationRespondRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.invitations.Respond(c.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			return utils.SendError(c, fiber.StatusNotFound, "invitation not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to process invitation response")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to process invitation response")
		}
	}

	return utils.SendSuccess(c, "invitation response recorded", result)
}
