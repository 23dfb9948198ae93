package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/bonus-desk/internal/api/http/handlers"
	"github.com/spec-kit/bonus-desk/internal/auth"
	"github.com/spec-kit/bonus-desk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Requests       *handlers.RequestsHandler
	Queue          *handlers.QueueHandler
	Admins         *handlers.AdminsHandler
	Stats          *handlers.StatsHandler
	BonusTypes     *handlers.BonusTypesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Public intake surface.
	app.Get("/bonus-types", cfg.BonusTypes.ListActive)
	app.Post("/requests", cfg.Requests.Submit)
	app.Get("/requests", cfg.Requests.History)
	app.Get("/requests/:displayId", cfg.Requests.Status)
	app.Post("/requests/:displayId/ack", cfg.Requests.Acknowledge)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Admins.Login)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	session.Post("/logout", cfg.Admins.Logout)
	session.Post("/password/change", cfg.Admins.ChangePassword)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole())
	admin.Get("/queue", cfg.Queue.Queue)
	admin.Get("/requests", cfg.Queue.List)
	admin.Post("/requests/:id/claim", cfg.Queue.Claim)
	admin.Post("/requests/:id/release", cfg.Queue.Release)
	admin.Post("/requests/:id/approve", cfg.Queue.Approve)
	admin.Post("/requests/:id/reject", cfg.Queue.Reject)

	admin.Get("/presence", cfg.Admins.OnlineAdmins)
	admin.Put("/presence", cfg.Admins.SetPresence)
	admin.Post("/presence/heartbeat", cfg.Admins.Heartbeat)
	admin.Post("/presence/offline", cfg.Admins.ForceOffline)

	admin.Get("/stats/summary", cfg.Stats.Summary)
	admin.Get("/stats/charts", cfg.Stats.Charts)
	admin.Get("/stats/top-users", cfg.Stats.TopSubmitters)
	admin.Get("/stats/export", cfg.Stats.Export)

	manage := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.AdminRoleAdmin))
	manage.Get("/admins", cfg.Admins.ListAdmins)
	manage.Post("/admins", cfg.Admins.CreateAdmin)
	manage.Delete("/admins/:id", cfg.Admins.DeleteAdmin)

	manage.Get("/bonus-types", cfg.BonusTypes.ListAll)
	manage.Post("/bonus-types", cfg.BonusTypes.Create)
	manage.Put("/bonus-types/:name", cfg.BonusTypes.Update)
	manage.Delete("/bonus-types/:name", cfg.BonusTypes.Delete)
}
