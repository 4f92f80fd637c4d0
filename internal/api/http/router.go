package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/trackdesk/internal/api/http/handlers"
	"github.com/spec-kit/trackdesk/internal/auth"
	"github.com/spec-kit/trackdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Departments    *handlers.DepartmentsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.AuthMiddleware.Handle, auth.RequireAdmin(), cfg.Health.Metrics)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.AuthMiddleware.Optional, cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password-reset/request", cfg.Users.RequestPasswordReset)
	authGroup.Post("/password-reset/confirm", cfg.Users.ConfirmPasswordReset)

	authProtected := authGroup.Group("", cfg.AuthMiddleware.Handle)
	authProtected.Get("/me", cfg.Users.Me)
	authProtected.Post("/change-password", cfg.Users.ChangePassword)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/forward", cfg.Tickets.ForwardTicket)
	tickets.Post("/:id/respond", cfg.Tickets.RespondToForward)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Patch("/:id/comments/:commentId", cfg.Tickets.EditComment)
	tickets.Post("/:id/attachments", cfg.Tickets.AddAttachment)
	tickets.Get("/:id/attachments", cfg.Tickets.ListAttachments)

	departments := app.Group("/departments", cfg.AuthMiddleware.Handle)
	departments.Get("/", cfg.Departments.ListDepartments)
	departments.Get("/:id", cfg.Departments.GetDepartment)
	departments.Get("/:id/members", cfg.Departments.ListMembers)

	adminDepartments := departments.Group("", auth.RequireRole(domain.RoleAdmin))
	adminDepartments.Post("/", cfg.Departments.CreateDepartment)
	adminDepartments.Patch("/:id", cfg.Departments.UpdateDepartment)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("/", cfg.Notifications.ListNotifications)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
}
