package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/observability"
)

const callSendBufferSize = 32

// CallConnectionOptions wraps metadata extracted during the HTTP upgrade.
type CallConnectionOptions struct {
	UserID        uint
	Role          string
	Meeting       models.Meeting
	CorrelationID string
	Context       context.Context
}

// CallService manages websocket signaling rooms for live interview calls.
// Moderator presence drives the meeting lifecycle: the first moderator to
// join starts the meeting, the last one to leave finishes it.
type CallService interface {
	ServeConnection(conn *websocket.Conn, opts CallConnectionOptions)
	Start(ctx context.Context)
}

type callService struct {
	meetings    MeetingService
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	hub         *callHub
	nodeID      string
}

type callHub struct {
	mu         sync.RWMutex
	rooms      map[string]map[*callClient]struct{}
	moderators map[string]int
	log        zerolog.Logger
}

type callClient struct {
	conn      *websocket.Conn
	send      chan dto.CallEvent
	options   CallConnectionOptions
	service   *callService
	closed    chan struct{}
	once      sync.Once
	moderator bool
	baseCtx   context.Context
}

type callWireEvent struct {
	Source string        `json:"source"`
	Event  dto.CallEvent `json:"event"`
}

// NewCallService creates the live-call signaling gateway.
func NewCallService(meetings MeetingService, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) CallService {
	hub := &callHub{
		rooms:      make(map[string]map[*callClient]struct{}),
		moderators: make(map[string]int),
		log:        logger.With().Str("component", "call_hub").Logger(),
	}

	streamChannel := ""
	natsSubject := ""
	if channelBase != "" {
		streamChannel = channelBase + ":call"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".call"
	}

	return &callService{
		meetings:    meetings,
		redis:       redisClient,
		redisStream: streamChannel,
		nats:        natsConn,
		natsSubject: natsSubject,
		validator:   validate,
		logger:      logger.With().Str("component", "call_service").Logger(),
		tracer:      otel.Tracer("github.com/hireloop/interview-api/internal/service/call"),
		sanitizer:   bluemonday.StrictPolicy(),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *callService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *callService) ServeConnection(conn *websocket.Conn, opts CallConnectionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}

	client := &callClient{
		conn:      conn,
		send:      make(chan dto.CallEvent, callSendBufferSize),
		options:   opts,
		service:   s,
		closed:    make(chan struct{}),
		moderator: isModerator(opts),
		baseCtx:   baseCtx,
	}

	firstModerator := s.hub.register(client)
	observability.CallConnections().Inc()

	if firstModerator {
		actor := Actor{ID: opts.UserID, Role: opts.Role}
		if _, err := s.meetings.Start(baseCtx, opts.Meeting.ID, actor); err != nil {
			if !errors.Is(err, ErrInvalidTransition) {
				s.logger.Warn().Err(err).Uint("meeting_id", opts.Meeting.ID).Msg("failed to start meeting on moderator join")
			}
		}
	}

	go client.writer()
	client.reader()
}

func isModerator(opts CallConnectionOptions) bool {
	role := strings.ToLower(opts.Role)
	if role == "admin" || role == "hr" {
		return true
	}
	return opts.UserID == opts.Meeting.ScheduledByID
}

func (s *callService) processSignal(ctx context.Context, client *callClient, payload dto.CallSignal) (dto.CallEvent, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CallEvent{}, err
	}

	event := dto.CallEvent{
		RoomName: client.options.Meeting.RoomName,
		Type:     payload.Type,
		SenderID: client.options.UserID,
		Role:     client.options.Role,
		Payload:  payload.Payload,
		SentAt:   time.Now().UTC(),
	}

	if payload.Type == "chat" {
		clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
		if clean == "" {
			return dto.CallEvent{}, fmt.Errorf("chat text empty after sanitization")
		}
		event.Text = clean
		event.Payload = nil
	}

	s.hub.broadcast(event.RoomName, event, client)
	if err := s.publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish call event")
	}

	observability.CallSignals().WithLabelValues(event.Type).Inc()

	return event, nil
}

func (s *callService) publish(ctx context.Context, event dto.CallEvent) error {
	wire := callWireEvent{Source: s.nodeID, Event: event}

	payload, err := json.Marshal(wire)
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(ctx, s.redisStream, payload).Err(); err != nil {
			return err
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}

	return nil
}

func (s *callService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("call redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload))
	}
}

func (s *callService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "hireloop-call", func(msg *nats.Msg) {
		s.handleEvent(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats call subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain call nats subscription")
		}
	}()
}

func (s *callService) handleEvent(data []byte) {
	var wire callWireEvent
	if err := json.Unmarshal(data, &wire); err != nil {
		s.logger.Warn().Err(err).Msg("invalid call event")
		return
	}

	if wire.Source == s.nodeID {
		return
	}

	s.hub.broadcast(wire.Event.RoomName, wire.Event, nil)
}

// register adds the client to its room and reports whether this join raised
// the room's moderator count from zero.
func (h *callHub) register(client *callClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.Meeting.RoomName
	if _, exists := h.rooms[room]; !exists {
		h.rooms[room] = make(map[*callClient]struct{})
	}
	h.rooms[room][client] = struct{}{}

	firstModerator := false
	if client.moderator {
		h.moderators[room]++
		firstModerator = h.moderators[room] == 1
	}

	h.log.Debug().Str("room", room).Uint("user_id", client.options.UserID).Bool("moderator", client.moderator).Msg("call client connected")

	return firstModerator
}

// unregister removes the client and reports whether the room just lost its
// last moderator.
func (h *callHub) unregister(client *callClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := client.options.Meeting.RoomName
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}

	lastModerator := false
	if client.moderator {
		h.moderators[room]--
		if h.moderators[room] <= 0 {
			delete(h.moderators, room)
			lastModerator = true
		}
	}

	h.log.Debug().Str("room", room).Uint("user_id", client.options.UserID).Msg("call client disconnected")

	return lastModerator
}

func (h *callHub) broadcast(room string, event dto.CallEvent, exclude *callClient) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		if client == exclude {
			continue
		}
		select {
		case client.send <- event:
		default:
			h.log.Warn().Str("room", room).Uint("user_id", client.options.UserID).Msg("dropping call event for slow client")
		}
	}
}

func (c *callClient) reader() {
	defer c.close()

	connCtx := c.baseCtx

	for {
		var payload dto.CallSignal
		if err := c.conn.ReadJSON(&payload); err != nil {
			c.service.logger.Debug().Err(err).Msg("call read loop ended")
			return
		}

		if _, err := c.service.processSignal(connCtx, c, payload); err != nil {
			c.service.logger.Warn().Err(err).Msg("failed to process call signal")
		}
	}
}

func (c *callClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("call write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("call ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *callClient) close() {
	c.once.Do(func() {
		close(c.closed)
		lastModerator := c.service.hub.unregister(c)
		_ = c.conn.Close()

		if lastModerator {
			actor := Actor{ID: c.options.UserID, Role: c.options.Role}
			if _, err := c.service.meetings.Finish(c.baseCtx, c.options.Meeting.ID, actor); err != nil {
				if !errors.Is(err, ErrInvalidTransition) {
					c.service.logger.Warn().Err(err).Uint("meeting_id", c.options.Meeting.ID).Msg("failed to finish meeting on moderator leave")
				}
			}
		}
	})
}
