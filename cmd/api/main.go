package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/hireloop/interview-api/internal/config"
	"github.com/hireloop/interview-api/internal/database"
	"github.com/hireloop/interview-api/internal/handler"
	"github.com/hireloop/interview-api/internal/middleware"
	"github.com/hireloop/interview-api/internal/models"
	"github.com/hireloop/interview-api/internal/repository"
	"github.com/hireloop/interview-api/internal/router"
	"github.com/hireloop/interview-api/internal/service"
	"github.com/hireloop/interview-api/pkg/blob"
	"github.com/hireloop/interview-api/pkg/oracle"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.JobApplication{},
		&models.InterviewRound{},
		&models.Meeting{},
		&models.Recording{},
		&models.ScreeningTest{},
		&models.Question{},
		&models.TestSubmission{},
		&models.Answer{},
		&models.EvaluationHistory{},
		&models.AnswerGradeHistory{},
		&models.AuditLog{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	store, err := blob.New(blob.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create blob store: %v", err)
	}

	var scorer oracle.Scorer
	if cfg.OpenAIAPIKey != "" {
		scorer, err = oracle.NewOpenAIScorer(oracle.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
			Logger: logger,
		})
		if err != nil {
			log.Fatalf("failed to create scoring oracle: %v", err)
		}
	} else {
		logger.Warn().Msg("no openai api key configured, automated answer scoring disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	meetingRepo := repository.NewMeetingRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	roundRepo := repository.NewRoundRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	testRepo := repository.NewTestRepository(db)
	recordingRepo := repository.NewRecordingRepository(db)
	historyRepo := repository.NewEvaluationHistoryRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	auditService := service.NewAuditService(auditRepo, validate, logger)
	notifierService := service.NewNotifierService(notificationRepo, redisClient, cfg.EventChannelBase, natsConn, validate, logger)
	invitationService := service.NewInvitationService(meetingRepo, applicationRepo, notifierService, auditService, redisClient, validate, logger)
	meetingService := service.NewMeetingService(meetingRepo, roundRepo, applicationRepo, invitationService, notifierService, auditService, validate, logger)
	gradingService := service.NewGradingService(meetingRepo, submissionRepo, testRepo, applicationRepo, historyRepo, scorer, notifierService, auditService, validate, logger)
	selectionService := service.NewSelectionService(submissionRepo, applicationRepo, notifierService, auditService, validate, logger)
	recordingService := service.NewRecordingService(recordingRepo, meetingRepo, store, auditService, cfg.RecordingMaxSizeMB, logger)
	roundService := service.NewRoundService(roundRepo, auditService, validate, logger)
	callService := service.NewCallService(meetingService, redisClient, cfg.EventChannelBase, natsConn, validate, logger)

	appCtx, stopServices := context.WithCancel(context.Background())
	defer stopServices()
	callService.Start(appCtx)

	meetingHandler := handler.NewMeetingHandler(meetingService, gradingService, logger)
	recordingHandler := handler.NewRecordingHandler(recordingService, logger)
	invitationHandler := handler.NewInvitationHandler(invitationService, logger)
	gradingHandler := handler.NewGradingHandler(gradingService, logger)
	selectionHandler := handler.NewSelectionHandler(selectionService, logger)
	roundHandler := handler.NewRoundHandler(roundService, logger)
	notificationHandler := handler.NewNotificationHandler(notifierService, logger)
	auditHandler := handler.NewAuditHandler(auditService, logger)
	callHandler := handler.NewCallHandler(callService, meetingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.RecordingMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		MeetingHandler:      meetingHandler,
		RecordingHandler:    recordingHandler,
		InvitationHandler:   invitationHandler,
		GradingHandler:      gradingHandler,
		SelectionHandler:    selectionHandler,
		RoundHandler:        roundHandler,
		NotificationHandler: notificationHandler,
		AuditHandler:        auditHandler,
		CallHandler:         callHandler,
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
