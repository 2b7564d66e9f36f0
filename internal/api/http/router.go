package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Responses      *handlers.ResponsesHandler
	Attachments    *handlers.AttachmentsHandler
	Categories     *handlers.CategoriesHandler
	Areas          *handlers.AreasHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Users.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuth(), cfg.Users.ChangePassword)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireAuth())

	tickets := api.Group("/tickets")
	tickets.Post("/", cfg.Tickets.Create)
	tickets.Get("/", cfg.Tickets.List)
	tickets.Post("/predict-area", cfg.Tickets.PredictArea)
	tickets.Get("/code/:code", cfg.Tickets.GetByCode)
	tickets.Patch("/:id", cfg.Tickets.Update)
	tickets.Delete("/:id", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Tickets.Delete)
	tickets.Post("/:id/resolve", auth.RequireStaff(), cfg.Tickets.Resolve)
	tickets.Post("/:id/close", cfg.Tickets.Close)
	tickets.Post("/:id/reopen", cfg.Tickets.Reopen)
	tickets.Post("/:id/assign", auth.RequireStaff(), cfg.Tickets.Assign)

	tickets.Post("/:id/responses", cfg.Responses.Create)
	tickets.Get("/:id/responses", cfg.Responses.List)
	api.Patch("/responses/:id", cfg.Responses.Update)
	api.Delete("/responses/:id", cfg.Responses.Delete)

	tickets.Post("/:id/attachments", cfg.Attachments.Upload)
	tickets.Get("/:id/attachments", cfg.Attachments.List)
	api.Get("/attachments/:id", cfg.Attachments.Download)
	api.Delete("/attachments/:id", cfg.Attachments.Delete)

	companies := api.Group("/companies/:companyID")
	companies.Get("/categories", cfg.Categories.List)
	companies.Post("/categories", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Categories.Create)
	api.Patch("/categories/:id", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Categories.Update)
	api.Delete("/categories/:id", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Categories.Delete)

	companies.Get("/areas", cfg.Areas.List)
	companies.Post("/areas", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Areas.Create)
	api.Patch("/areas/:id", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Areas.Update)
	api.Delete("/areas/:id", auth.RequireRole(domain.RoleCompanyAdmin), cfg.Areas.Delete)
}
