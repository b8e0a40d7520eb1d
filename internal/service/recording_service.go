package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/dto"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/observability"
	"github.com/hireloop/interview-api/internal/repository"
	"github.com/hireloop/interview-api/pkg/blob"
)

var (
	// ErrRecordingTooLarge indicates the payload exceeded the configured limit.
	ErrRecordingTooLarge = errors.New("recording exceeds maximum allowed size")
	// ErrRecordingTypeNotAllowed indicates the MIME type is not an accepted media container.
	ErrRecordingTypeNotAllowed = errors.New("recording type not allowed")
)

var allowedRecordingTypes = map[string]struct{}{
	"video/webm": {},
	"video/mp4":  {},
	"audio/webm": {},
	"audio/ogg":  {},
}

// RecordingService accepts the post-meeting recording artifact.
type RecordingService interface {
	Store(ctx context.Context, meetingID uint, file *multipart.FileHeader, actor Actor) (dto.RecordingResponse, error)
	Get(ctx context.Context, meetingID uint) (dto.RecordingResponse, error)
}

type recordingService struct {
	recordings repository.RecordingRepository
	meetings   repository.MeetingRepository
	store      blob.Store
	audit      AuditRecorder
	logger     zerolog.Logger
	maxSize    int64
	tracer     trace.Tracer
	locks      *keyedMutex
}

// NewRecordingService constructs the recording service. maxSizeMB bounds the
// accepted artifact size.
func NewRecordingService(recordings repository.RecordingRepository, meetings repository.MeetingRepository, store blob.Store, audit AuditRecorder, maxSizeMB int, logger zerolog.Logger) RecordingService {
	if maxSizeMB <= 0 {
		maxSizeMB = 200
	}
	return &recordingService{
		recordings: recordings,
		meetings:   meetings,
		store:      store,
		audit:      audit,
		logger:     logger.With().Str("component", "recording_service").Logger(),
		maxSize:    int64(maxSizeMB) * 1024 * 1024,
		tracer:     otel.Tracer("github.com/hireloop/interview-api/internal/service/recording"),
		locks:      newKeyedMutex(),
	}
}

// Store validates and persists a meeting's recording. The row is write-once:
// a second upload for the same meeting fails with ErrRecordingExists. An
// upstream storage failure is a degraded success, recorded as fallback_local
// with the meeting left untouched.
func (s *recordingService) Store(ctx context.Context, meetingID uint, file *multipart.FileHeader, actor Actor) (dto.RecordingResponse, error) {
	unlock := s.locks.Lock(meetingID)
	defer unlock()

	ctx, span := s.tracer.Start(ctx, "recording.store", trace.WithAttributes(
		attribute.Int64("meeting.id", int64(meetingID)),
		attribute.Int64("recording.max_bytes", s.maxSize),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		observability.RecordingStoreLatency().Observe(time.Since(start).Seconds())
	}()

	meeting, err := s.meetings.GetByID(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordingResponse{}, ErrMeetingNotFound
		}
		return dto.RecordingResponse{}, err
	}

	if meeting.Status != models.MeetingStatusDone {
		span.SetStatus(codes.Error, "meeting not done")
		return dto.RecordingResponse{}, fmt.Errorf("%w: record while %s", ErrInvalidTransition, meeting.Status)
	}

	if _, err := s.recordings.GetByMeeting(ctx, meetingID); err == nil {
		span.SetStatus(codes.Error, "recording exists")
		return dto.RecordingResponse{}, ErrRecordingExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.RecordingResponse{}, err
	}

	if file == nil {
		err := errors.New("recording file is required")
		span.RecordError(err)
		return dto.RecordingResponse{}, err
	}

	if file.Size > s.maxSize {
		observability.RecordingRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrRecordingTooLarge)
		return dto.RecordingResponse{}, ErrRecordingTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		return dto.RecordingResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		return dto.RecordingResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.RecordingRejected().WithLabelValues("size").Inc()
		span.RecordError(ErrRecordingTooLarge)
		return dto.RecordingResponse{}, ErrRecordingTooLarge
	}

	data := buf.Bytes()
	detected := mimetype.Detect(data)
	mimeType := strings.Split(detected.String(), ";")[0]
	if _, ok := allowedRecordingTypes[mimeType]; !ok {
		observability.RecordingRejected().WithLabelValues("type").Inc()
		span.RecordError(ErrRecordingTypeNotAllowed)
		span.SetAttributes(attribute.String("recording.detected_type", mimeType))
		return dto.RecordingResponse{}, ErrRecordingTypeNotAllowed
	}

	digest := sha256.Sum256(data)
	recording := models.Recording{
		MeetingID: meetingID,
		MimeType:  mimeType,
		SizeBytes: int64(len(data)),
		Checksum:  hex.EncodeToString(digest[:]),
	}

	url, err := s.store.Put(ctx, meetingID, data, mimeType)
	if err != nil {
		recording.Outcome = models.RecordingFallbackLocal
		observability.RecordingFallbacks().Inc()
		span.RecordError(err)
		s.logger.Warn().Err(err).Uint("meeting_id", meetingID).Msg("blob upload failed, recording kept client-side")
	} else {
		recording.Outcome = models.RecordingUploaded
		recording.URL = &url
	}

	if err := s.recordings.Create(ctx, &recording); err != nil {
		span.RecordError(err)
		return dto.RecordingResponse{}, err
	}

	if recording.Outcome == models.RecordingUploaded {
		meeting.RecordingURL = recording.URL
		if err := s.meetings.Update(ctx, &meeting); err != nil {
			s.logger.Error().Err(err).Uint("meeting_id", meetingID).Msg("failed to link recording url to meeting")
		}
	}

	if s.audit != nil {
		id := meetingID
		_, _ = s.audit.Record(ctx, AuditEntry{
			ActorID:    actor.ID,
			ActorRole:  actor.Role,
			Action:     "recording.stored",
			EntityType: "meeting",
			EntityID:   &id,
			Metadata: map[string]interface{}{
				"outcome":    recording.Outcome,
				"size_bytes": recording.SizeBytes,
				"mime_type":  recording.MimeType,
			},
		})
	}

	span.SetAttributes(attribute.String("recording.outcome", recording.Outcome))

	return dto.NewRecordingResponse(recording), nil
}

func (s *recordingService) Get(ctx context.Context, meetingID uint) (dto.RecordingResponse, error) {
	recording, err := s.recordings.GetByMeeting(ctx, meetingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RecordingResponse{}, ErrRecordingNotFound
		}
		return dto.RecordingResponse{}, err
	}

	return dto.NewRecordingResponse(recording), nil
}
