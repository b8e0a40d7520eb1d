package performance_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hireloop/interview-api/internal/config"
	"github.com/hireloop/interview-api/internal/handler"
	"github.com/hireloop/interview-api/internal/middleware"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/repository"
	"github.com/hireloop/interview-api/internal/router"
	"github.com/hireloop/interview-api/internal/service"
)

const (
	listRuns       = 40
	p95Budget      = 250 * time.Millisecond
	seededMeetings = 60
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:perf?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.JobApplication{}, &models.InterviewRound{}, &models.Meeting{},
		&models.AuditLog{}, &models.Notification{},
	))

	round := models.InterviewRound{JobPostingID: 1, RoundNumber: 1, Title: "Screen", Duration: 30, IsActive: true}
	require.NoError(t, db.Create(&round).Error)

	for i := 0; i < seededMeetings; i++ {
		application := models.JobApplication{JobPostingID: 1, CandidateID: uint(100 + i), Status: models.ApplicationStatusInterviewing}
		require.NoError(t, db.Create(&application).Error)

		meeting := models.Meeting{
			RoomName:         fmt.Sprintf("perf-room-%03d", i),
			JobApplicationID: application.ID,
			InterviewRoundID: round.ID,
			CandidateUserID:  application.CandidateID,
			ScheduledByID:    1,
			Status:           models.MeetingStatusPending,
			ScheduledAt:      time.Now().Add(time.Duration(i) * time.Hour),
			InvitationStatus: models.InvitationSent,
			ResponseToken:    fmt.Sprintf("perf-token-%03d-aaaaaaaaaaaaaaaa", i),
		}
		require.NoError(t, db.Create(&meeting).Error)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)

	meetingRepo := repository.NewMeetingRepository(db)
	roundRepo := repository.NewRoundRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	auditService := service.NewAuditService(auditRepo, validate, logger)
	notifierService := service.NewNotifierService(notificationRepo, nil, "perf:interview", nil, validate, logger)
	invitationService := service.NewInvitationService(meetingRepo, applicationRepo, notifierService, auditService, nil, validate, logger)
	meetingService := service.NewMeetingService(meetingRepo, roundRepo, applicationRepo, invitationService, notifierService, auditService, validate, logger)
	gradingService := service.NewGradingService(meetingRepo, nil, nil, applicationRepo, nil, nil, notifierService, auditService, validate, logger)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})

	cfg := config.Config{AppName: "Perf", AppEnv: "test", InvitationRateMax: 1000, InvitationRateWindow: time.Minute}
	router.Register(app, cfg, router.Dependencies{
		MeetingHandler: handler.NewMeetingHandler(meetingService, gradingService, logger),
		JWTMiddleware: func(c *fiber.Ctx) error {
			c.Locals("user_id", uint(1))
			c.Locals("user_role", "hr")
			return c.Next()
		},
	})

	return app
}

func TestMeetingListLatency(t *testing.T) {
	app := setupApp(t)

	// Warm up the route and the sqlite page cache once before timing.
	warmup := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)
	resp, err := app.Test(warmup, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp.Body.Close()

	durations := make([]time.Duration, 0, listRuns)
	for i := 0; i < listRuns; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/meetings", nil)

		start := time.Now()
		resp, err := app.Test(req, -1)
		elapsed := time.Since(start)

		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		resp.Body.Close()

		durations = append(durations, elapsed)
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	p95 := durations[len(durations)*95/100]
	t.Logf("meeting list p50=%s p95=%s", durations[len(durations)/2], p95)
	require.Less(t, p95, p95Budget, "meeting list p95 latency over budget")
}
