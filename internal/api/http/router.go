package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/clearsight/auth-service/internal/api/http/handlers"
	"github.com/clearsight/auth-service/internal/auth"
	"github.com/clearsight/auth-service/internal/domain"
	"github.com/clearsight/auth-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *ratelimit.Limiter
	Logger         *zap.Logger
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	throttled := func(scope string) fiber.Handler {
		return ratelimit.Middleware(cfg.Limiter, scope, cfg.Logger)
	}

	authGroup.Post("/register", throttled("register"), cfg.Auth.Register)
	authGroup.Post("/login", throttled("login"), cfg.Auth.Login)
	authGroup.Get("/refresh-token", cfg.Auth.RefreshToken)
	authGroup.Delete("/revoke-token", cfg.Auth.RevokeToken)
	authGroup.Post("/confirm-email", cfg.Auth.ConfirmEmail)
	authGroup.Post("/password/code", throttled("reset"), cfg.Auth.RequestResetCode)
	authGroup.Post("/password/reset", throttled("reset"), cfg.Auth.ResetPassword)

	protected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protected.Post("/password/change", cfg.Auth.ChangePassword)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Patch("/doctors/:id/verification", cfg.Admin.DecideVerification)
}
