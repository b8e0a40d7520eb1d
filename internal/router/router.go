package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/hireloop/interview-api/internal/config"
	"github.com/hireloop/interview-api/internal/handler"
	"github.com/hireloop/interview-api/internal/middleware"
	"github.com/hireloop/interview-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	MeetingHandler      *handler.MeetingHandler
	RecordingHandler    *handler.RecordingHandler
	InvitationHandler   *handler.InvitationHandler
	GradingHandler      *handler.GradingHandler
	SelectionHandler    *handler.SelectionHandler
	RoundHandler        *handler.RoundHandler
	NotificationHandler *handler.NotificationHandler
	AuditHandler        *handler.AuditHandler
	CallHandler         *handler.CallHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Public invitation surface. The response token is the credential, so
	// no JWT; rate limited instead.
	if deps.InvitationHandler != nil {
		invitations := api.Group("/invitations",
			middleware.RateLimit("invitations", cfg.InvitationRateMax, cfg.InvitationRateWindow))
		deps.InvitationHandler.Register(invitations)
	}

	if deps.MeetingHandler != nil {
		meetings := api.Group("/meetings", jwtMiddleware, middleware.RequireRole("hr", "admin"))
		deps.MeetingHandler.Register(meetings)

		if deps.RecordingHandler != nil {
			deps.RecordingHandler.Register(meetings)
		}
	}

	if deps.GradingHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.GradingHandler.RegisterSubmissions(submissions)

		answers := api.Group("/answers", jwtMiddleware, middleware.RequireRole("hr", "admin"))
		deps.GradingHandler.RegisterAnswers(answers)
	}

	if deps.SelectionHandler != nil {
		selections := api.Group("/selections", jwtMiddleware, middleware.RequireRole("hr", "admin"))
		deps.SelectionHandler.Register(selections)
	}

	if deps.RoundHandler != nil {
		rounds := api.Group("/rounds", jwtMiddleware, middleware.RequireRole("hr", "admin"))
		deps.RoundHandler.Register(rounds)
	}

	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.AuditHandler != nil {
		audit := api.Group("/audit-logs", jwtMiddleware, middleware.RequireRole("admin"))
		deps.AuditHandler.Register(audit)
	}

	if deps.CallHandler != nil {
		calls := api.Group("/calls", jwtMiddleware)
		deps.CallHandler.Register(calls)
	}
}
