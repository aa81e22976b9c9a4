package http

import (
	"net/http"

	"github.com/clearflow/clearflow-api/internal/application/alert"
	"github.com/clearflow/clearflow-api/internal/application/analytics"
	"github.com/clearflow/clearflow-api/internal/application/auth"
	"github.com/clearflow/clearflow-api/internal/application/device"
	"github.com/clearflow/clearflow-api/internal/application/user"
	"github.com/clearflow/clearflow-api/internal/config"
	"github.com/clearflow/clearflow-api/internal/infrastructure/ai"
	"github.com/clearflow/clearflow-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/clearflow/clearflow-api/internal/infrastructure/jwt"
	"github.com/clearflow/clearflow-api/internal/infrastructure/redisdb"
	s3infra "github.com/clearflow/clearflow-api/internal/infrastructure/s3"
	"github.com/clearflow/clearflow-api/internal/infrastructure/smtp"
	"github.com/clearflow/clearflow-api/internal/infrastructure/sns"
	"github.com/clearflow/clearflow-api/internal/pkg/id"
	"github.com/clearflow/clearflow-api/internal/transport/http/handler"
	appmiddleware "github.com/clearflow/clearflow-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo      *dynamo.UserRepo
	DeviceRepo    *dynamo.DeviceRepo
	ReadingRepo   *dynamo.ReadingRepo
	StatusRepo    *dynamo.StatusRepo
	AnalyticsRepo *dynamo.AnalyticsRepo
	AlertRepo     *dynamo.AlertRepo
	Blacklist     *redisdb.Blacklist
	S3Store       *s3infra.Store
	Mailer        smtp.Mailer
	Publisher     sns.AlertPublisher
	AI            ai.Completer
	JWTProvider   *jwtinfra.Provider
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.JWTProvider, deps.Blacklist, deps.UserRepo, deps.DeviceRepo)

	authSvc := auth.NewService(auth.ServiceDeps{
		UserRepo:  deps.UserRepo,
		Mailer:    deps.Mailer,
		JWT:       deps.JWTProvider,
		Blacklist: deps.Blacklist,
		NewID:     id.New,
		OTPTTL:    cfg.OTPTTL,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    deps.UserRepo,
		ObjectStore: deps.S3Store,
		Mailer:      deps.Mailer,
		NewID:       id.New,
		OTPTTL:      cfg.OTPTTL,
	})
	deviceSvc := device.NewService(device.ServiceDeps{
		DeviceRepo:    deps.DeviceRepo,
		ReadingRepo:   deps.ReadingRepo,
		StatusRepo:    deps.StatusRepo,
		AnalyticsRepo: deps.AnalyticsRepo,
		AlertRepo:     deps.AlertRepo,
		JWT:           deps.JWTProvider,
		Publisher:     deps.Publisher,
		NewID:         id.New,
	})
	analyticsSvc := analytics.NewService(analytics.ServiceDeps{
		AnalyticsRepo: deps.AnalyticsRepo,
		DeviceRepo:    deps.DeviceRepo,
		AI:            deps.AI,
	})
	alertSvc := alert.NewService(deps.AlertRepo)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	deviceH := handler.NewDeviceHandler(deviceSvc)
	analyticsH := handler.NewAnalyticsHandler(analyticsSvc)
	alertH := handler.NewAlertHandler(alertSvc)

	r.Route("/api", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check", healthH.Ping)
		r.Post("/auth/signup", authH.Signup)
		r.Post("/auth/verify-otp", authH.VerifyOTP)
		r.Post("/auth/resend-otp", authH.ResendOTP)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/forgot-password", authH.ForgotPassword)
		r.Post("/auth/reset-password", authH.ResetPassword)
		// Logout only needs a bearer token shape, not a valid session.
		r.Post("/auth/logout", authH.Logout)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			// Telemetry ingest accepts user or device tokens.
			r.Post("/devices/data", deviceH.AddReading)

			// Dashboard routes require an account holder.
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireUser)

				r.Post("/auth/change-password", authH.ChangePassword)

				r.Get("/users/me", userH.Me)
				r.Put("/users/me/profile-picture", userH.UploadProfilePicture)
				r.Post("/users/me/email", userH.RequestEmailChange)
				r.Post("/users/me/email/confirm", userH.ConfirmEmailChange)

				r.Post("/devices", deviceH.Register)
				r.Post("/devices/link", deviceH.Link)
				r.Get("/devices", deviceH.List)
				r.Get("/devices/statuses", deviceH.GetStatuses)
				r.Get("/devices/overview", deviceH.Overview)
				r.Post("/devices/{id}/token", deviceH.IssueToken)
				r.Get("/devices/{serial}/data", deviceH.ListReadings)
				r.Put("/devices/{serial}/status", deviceH.UpdateStatus)

				r.Get("/alerts", alertH.ListUnread)
				r.Put("/alerts/{id}/read", alertH.MarkAsRead)

				r.Post("/analytics/{serial}", analyticsH.Record)
				r.Get("/analytics", analyticsH.List)
			})
		})
	})

	return r
}
