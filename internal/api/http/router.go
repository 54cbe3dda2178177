package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-maintenance/internal/api/http/handlers"
	"github.com/spec-kit/equipment-maintenance/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Equipment      *handlers.EquipmentHandler
	Maintenance    *handlers.MaintenanceHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Route-level guards cover the coarse
// capability checks; finer rules such as assignee-resolve live in the
// services.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	tickets := api.Group("/tickets")
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transition", cfg.Tickets.TransitionTicket)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTicket)

	equipment := api.Group("/equipment")
	equipment.Post("", auth.RequireCapability(auth.CapManageEquipment), cfg.Equipment.CreateEquipment)
	equipment.Get("", cfg.Equipment.ListEquipment)
	equipment.Get("/:id", cfg.Equipment.GetEquipment)
	equipment.Post("/:id/status", auth.RequireCapability(auth.CapUpdateEquipmentStatus), cfg.Equipment.UpdateEquipmentStatus)
	equipment.Get("/:id/logs", cfg.Equipment.ListEquipmentLogs)

	maintenance := api.Group("/maintenance")
	maintenance.Post("", auth.RequireCapability(auth.CapCreateMaintenance), cfg.Maintenance.CreateSchedule)
	maintenance.Get("", cfg.Maintenance.ListSchedules)
	maintenance.Get("/stats", cfg.Maintenance.GetStats)
	maintenance.Get("/:id", cfg.Maintenance.GetSchedule)
	maintenance.Patch("/:id", auth.RequireCapability(auth.CapCreateMaintenance), cfg.Maintenance.UpdateSchedule)
	maintenance.Post("/:id/complete", auth.RequireCapability(auth.CapCompleteMaintenance), cfg.Maintenance.CompleteSchedule)

	notifications := api.Group("/notifications")
	notifications.Get("", cfg.Notifications.ListNotifications)
	notifications.Get("/unread-count", cfg.Notifications.UnreadCount)
	notifications.Post("/read-all", cfg.Notifications.MarkAllRead)
	notifications.Post("/:id/read", cfg.Notifications.MarkRead)
	notifications.Delete("/:id", cfg.Notifications.DeleteNotification)
}
