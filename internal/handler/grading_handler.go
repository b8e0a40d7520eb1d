package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/internal/utils"
)

// GradingHandler wires the written-test lifecycle and grading endpoints.
type GradingHandler struct {
	grading service.GradingService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(grading service.GradingService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading: grading,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// RegisterSubmissions attaches submission lifecycle endpoints.
func (h *GradingHandler) RegisterSubmissions(router fiber.Router) {
	router.Post("/", h.startTest)
	router.Get("/:id", h.get)
	router.Put("/:id/answers", h.upsertAnswer)
	router.Post("/:id/submit", h.submitTest)
	router.Post("/:id/autograde", h.autoGrade)
	router.Post("/:id/finalize", h.finalize)
}

// RegisterAnswers attaches the answer override endpoint.
func (h *GradingHandler) RegisterAnswers(router fiber.Router) {
	router.Patch("/:id/score", h.override)
}

func (h *GradingHandler) startTest(c *fiber.Ctx) error {
	var payload dto.StartTestRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if payload.UserID == 0 {
		payload.UserID = userIDFromContext(c)
	}

	submission, err := h.grading.StartTest(c.Context(), payload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTestNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "screening test not found")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to start test")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to start test")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "test started", submission)
}

func (h *GradingHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.grading.GetSubmission(c.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrSubmissionNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to load submission")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load submission")
	}

	return utils.SendSuccess(c, "submission", submission)
}

func (h *GradingHandler) upsertAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AnswerUpsertRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.grading.UpsertAnswer(c.Context(), id, payload, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound), errors.Is(err, service.ErrAnswerNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to save answer")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to save answer")
		}
	}

	return utils.SendSuccess(c, "answer saved", submission)
}

func (h *GradingHandler) submitTest(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.grading.SubmitTest(c.Context(), id, userIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to submit test")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to submit test")
		}
	}

	return utils.SendSuccess(c, "test submitted", submission)
}

func (h *GradingHandler) autoGrade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.grading.AutoGrade(c.Context(), id, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrSubmissionFinalized), errors.Is(err, service.ErrSubmissionNotGradable):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to auto-grade submission")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to auto-grade submission")
		}
	}

	return utils.SendSuccess(c, "submission auto-graded", submission)
}

func (h *GradingHandler) finalize(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	submission, err := h.grading.FinalizeGrading(c.Context(), id, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrAlreadyFinalized), errors.Is(err, service.ErrSubmissionNotGradable):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("submission_id", id).Msg("failed to finalize grading")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to finalize grading")
		}
	}

	return utils.SendSuccess(c, "grading finalized", submission)
}

func (h *GradingHandler) override(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid identifier")
	}

	var payload dto.AnswerOverrideRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	answer, err := h.grading.OverrideAnswerScore(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAnswerNotFound), errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, service.ErrSubmissionFinalized):
			return utils.SendError(c, fiber.StatusConflict, "submission already finalized")
		case isValidationError(err):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Uint("answer_id", id).Msg("failed to override answer score")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to override answer score")
		}
	}

	return utils.SendSuccess(c, "answer score updated", answer)
}
