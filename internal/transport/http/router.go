package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/identity-api/internal/application/account"
	"github.com/identity-api/internal/application/otp"
	"github.com/identity-api/internal/application/passwordreset"
	"github.com/identity-api/internal/application/registration"
	"github.com/identity-api/internal/application/session"
	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/transport/http/handler"
	appmiddleware "github.com/identity-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

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

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	strictMail := cfg.Production()

	otpSvc := otp.NewService(deps.OTPRepo)
	sessionSvc := session.NewService(deps.SessionRepo, deps.UserRepo, deps.JWTProvider)
	registrationSvc := registration.NewService(registration.ServiceDeps{
		UserRepo:    deps.UserRepo,
		PendingRepo: deps.PendingRepo,
		OTPService:  otpSvc,
		Sessions:    sessionSvc,
		Mailer:      deps.Mailer,
		Events:      deps.Events,
		StrictMail:  strictMail,
	})
	resetSvc := passwordreset.NewService(passwordreset.ServiceDeps{
		UserRepo:   deps.UserRepo,
		OTPService: otpSvc,
		Signer:     deps.JWTProvider,
		Sessions:   sessionSvc,
		Mailer:     deps.Mailer,
		Events:     deps.Events,
		StrictMail: strictMail,
	})
	accountSvc := account.NewService(account.ServiceDeps{
		UserRepo:    deps.UserRepo,
		SessionRepo: deps.SessionRepo,
		OTPService:  otpSvc,
		Mailer:      deps.Mailer,
		Events:      deps.Events,
		StrictMail:  strictMail,
	})

	healthH := handler.NewHealthHandler()
	registrationH := handler.NewRegistrationHandler(registrationSvc)
	sessionH := handler.NewSessionHandler(sessionSvc)
	pwH := handler.NewPasswordRecoveryHandler(resetSvc)
	deletionH := handler.NewAccountDeletionHandler(accountSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/registration/{action}", registrationH.Action)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// Diagnostic OTP read path — never mounted in production.
		if !cfg.Production() {
			debugH := handler.NewDebugOTPHandler(otpSvc)
			r.Get("/debug/otp", debugH.Peek)
		}

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Post("/password-recovery/change-password", pwH.ChangePassword)
			r.Post("/account-deletion/{action}", deletionH.Action)
		})
	})

	return r
}
