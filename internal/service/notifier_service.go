package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/observability"
	"github.com/hireloop/interview-api/internal/repository"
)

// Notifier emits the orchestrator's outbound events. Implementations must
// never propagate delivery failures back into the owning workflow step:
// failures are logged, not retried synchronously against the caller.
type Notifier interface {
	InvitationIssued(ctx context.Context, meeting models.Meeting, token string)
	ApplicationAdvanced(ctx context.Context, application models.JobApplication)
	ApplicationCancelled(ctx context.Context, application models.JobApplication)
}

// NotifierService persists and publishes notification events.
type NotifierService interface {
	Notifier
	Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error)
	List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error)
	MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error)
}

type notifierService struct {
	repo        repository.NotificationRepository
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	sanitizer   *bluemonday.Policy
	nodeID      string
}

type notificationEvent struct {
	Source       string                   `json:"source"`
	Notification dto.NotificationResponse `json:"notification"`
	SentAt       time.Time                `json:"sent_at"`
}

// NewNotifierService constructs a notifier backed by redis and NATS.
func NewNotifierService(repo repository.NotificationRepository, redisClient *redis.Client, channelBase string, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger) NotifierService {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":notifications"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".notifications"
	}

	return &notifierService{
		repo:        repo,
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		validator:   validate,
		logger:      logger.With().Str("component", "notifier_service").Logger(),
		tracer:      otel.Tracer("github.com/hireloop/interview-api/internal/service/notifier"),
		sanitizer:   bluemonday.StrictPolicy(),
		nodeID:      uuid.NewString(),
	}
}

func (s *notifierService) Publish(ctx context.Context, payload dto.NotificationCreateRequest) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.NotificationResponse{}, err
	}

	cleanMessage := strings.TrimSpace(s.sanitizer.Sanitize(payload.Message))
	if cleanMessage == "" {
		return dto.NotificationResponse{}, errors.New("notification message empty after sanitization")
	}

	spanCtx, span := s.tracer.Start(ctx, "notifications.publish", trace.WithAttributes(
		attribute.String("notification.user_id", payload.UserID),
		attribute.String("notification.type", payload.Type),
	))
	defer span.End()

	model := models.Notification{
		UserID:  payload.UserID,
		Type:    payload.Type,
		Message: cleanMessage,
	}

	if err := s.repo.Create(spanCtx, &model); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}

	response := dto.NewNotificationResponse(model)
	if err := s.broadcast(spanCtx, response); err != nil {
		s.logger.Warn().Err(err).Str("type", response.Type).Msg("failed to publish notification event")
	}

	observability.NotificationsPublished().WithLabelValues(response.Type).Inc()

	return response, nil
}

func (s *notifierService) List(ctx context.Context, userID string, limit, offset int) ([]dto.NotificationResponse, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("user id is required")
	}

	notifications, err := s.repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.NotificationResponse, 0, len(notifications))
	for _, notification := range notifications {
		responses = append(responses, dto.NewNotificationResponse(notification))
	}

	return responses, nil
}

func (s *notifierService) MarkRead(ctx context.Context, id uint, userID string) (dto.NotificationResponse, error) {
	notification, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return dto.NotificationResponse{}, err
	}

	return dto.NewNotificationResponse(notification), nil
}

// InvitationIssued notifies the candidate that a meeting awaits their
// response. The single-use token is embedded in the message payload for the
// email layer to template into a response URL.
func (s *notifierService) InvitationIssued(ctx context.Context, meeting models.Meeting, token string) {
	message := fmt.Sprintf("interview scheduled for %s; respond with token %s", meeting.ScheduledAt.Format(time.RFC3339), token)
	s.emit(ctx, meeting.CandidateUserID, models.NotificationInvitationIssued, message)
}

// ApplicationAdvanced notifies the candidate their application moved forward.
func (s *notifierService) ApplicationAdvanced(ctx context.Context, application models.JobApplication) {
	message := fmt.Sprintf("application %d advanced to the next round", application.ID)
	s.emit(ctx, application.CandidateID, models.NotificationApplicationAdvanced, message)
}

// ApplicationCancelled notifies the candidate their application was closed.
func (s *notifierService) ApplicationCancelled(ctx context.Context, application models.JobApplication) {
	message := fmt.Sprintf("application %d was cancelled", application.ID)
	s.emit(ctx, application.CandidateID, models.NotificationApplicationCancelled, message)
}

func (s *notifierService) emit(ctx context.Context, userID uint, eventType, message string) {
	_, err := s.Publish(ctx, dto.NotificationCreateRequest{
		UserID:  strconv.FormatUint(uint64(userID), 10),
		Type:    eventType,
		Message: message,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("type", eventType).Uint("user_id", userID).Msg("failed to emit notification")
	}
}

func (s *notifierService) broadcast(ctx context.Context, notification dto.NotificationResponse) error {
	event := notificationEvent{
		Source:       s.nodeID,
		Notification: notification,
		SentAt:       time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
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
