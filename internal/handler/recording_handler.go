package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// RecordingHandler wires the post-meeting recording upload endpoint.
type RecordingHandler struct {
	recordings service.RecordingService
	logger     zerolog.Logger
}

// NewRecordingHandler constructs the handler.
func NewRecordingHandler(recordings service.RecordingService, logger zerolog.Logger) *RecordingHandler {
	return &RecordingHandler{
		recordings: recordings,
		logger:     logger.With().Str("component", "recording_handler").Logger(),
	}
}

// Register attaches recording endpoints under the meetings group.
func (h *RecordingHandler) Register(router fiber.Router) {
	router.Post("/:id/recording", h.upload)
	router.Get("/:id/recording", h.get)
}

func (h *RecordingHandler) upload(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "recording file required")
	}

	recording, err := h.recordings.Store(c.Context(), id, file, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMeetingNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "meeting not found")
		case errors.Is(err, service.ErrRecordingExists):
			return utils.SendError(c, fiber.StatusConflict, "recording already stored")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case errors.Is(err, service.ErrRecordingTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrRecordingTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("meeting_id", id).Msg("failed to store recording")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to store recording")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "recording stored", recording)
}

func (h *RecordingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	recording, err := h.recordings.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRecordingNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "recording not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("meeting_id", id).Msg("failed to load recording")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load recording")
	}

	return utils.SendSuccess(c, "recording", recording)
}
