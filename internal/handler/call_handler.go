package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/middleware"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/service"
)

// CallHandler wires the websocket upgrade for live interview calls.
type CallHandler struct {
	calls    service.CallService
	meetings service.MeetingService
	logger   zerolog.Logger
}

// NewCallHandler creates a call handler instance.
func NewCallHandler(calls service.CallService, meetings service.MeetingService, logger zerolog.Logger) *CallHandler {
	return &CallHandler{
		calls:    calls,
		meetings: meetings,
		logger:   logger.With().Str("component", "call_handler").Logger(),
	}
}

// Register binds call routes under the provided router group.
func (h *CallHandler) Register(router fiber.Router) {
	router.Use("/ws/:id", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws/:id", websocket.New(h.handleConnection))
}

func (h *CallHandler) handleConnection(conn *websocket.Conn) {
	userID := websocketUserID(conn)
	if userID == 0 {
		closeWithReason(conn, fiber.StatusUnauthorized, "user id missing")
		return
	}

	meetingID, err := strconv.ParseUint(strings.TrimSpace(conn.Params("id")), 10, 64)
	if err != nil || meetingID == 0 {
		closeWithReason(conn, fiber.StatusBadRequest, "invalid meeting id")
		return
	}

	baseCtx, _ := conn.Locals("request_ctx").(context.Context)
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	meeting, err := h.meetings.Resolve(baseCtx, uint(meetingID))
	if err != nil {
		if errors.Is(err, service.ErrMeetingNotFound) {
			closeWithReason(conn, fiber.StatusNotFound, "meeting not found")
			return
		}
		h.logger.Error().Err(err).Uint64("meeting_id", meetingID).Msg("failed to resolve meeting for call")
		closeWithReason(conn, fiber.StatusInternalServerError, "meeting lookup failed")
		return
	}

	if meeting.IsTerminal() && meeting.Status != models.MeetingStatusDone {
		closeWithReason(conn, fiber.StatusConflict, "meeting is not joinable")
		return
	}

	role := fmt.Sprint(conn.Locals("user_role"))
	correlation := fmt.Sprint(conn.Locals("correlation_id"))

	h.calls.ServeConnection(conn, service.CallConnectionOptions{
		UserID:        userID,
		Role:          role,
		Meeting:       meeting,
		CorrelationID: correlation,
		Context:       baseCtx,
	})
}

func websocketUserID(conn *websocket.Conn) uint {
	switch v := conn.Locals("user_id").(type) {
	case uint:
		return v
	case int:
		if v < 0 {
			return 0
		}
		return uint(v)
	case string:
		parsed, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0
		}
		return uint(parsed)
	default:
		return 0
	}
}

func closeWithReason(conn *websocket.Conn, status int, reason string) {
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(status, reason))
	_ = conn.Close()
}
