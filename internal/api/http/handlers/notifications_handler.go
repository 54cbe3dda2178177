package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-maintenance/internal/api/dto"
	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/service"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// NotificationsHandler serves the caller's notification inbox.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// ListNotifications GET /notifications.
func (h *NotificationsHandler) ListNotifications(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	unreadOnly := c.Query("unread_only") == "true"
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	notifications, total, err := h.service.List(c.Context(), principal.User.ID, unreadOnly, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		items = append(items, notificationResponse(&notifications[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total": total})
}

// UnreadCount GET /notifications/unread-count.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	count, err := h.service.UnreadCount(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Count: count}})
}

// MarkRead POST /notifications/:id/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	n, err := h.service.MarkRead(c.Context(), principal.User.ID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": notificationResponse(n)})
}

// MarkAllRead POST /notifications/read-all.
func (h *NotificationsHandler) MarkAllRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	count, err := h.service.MarkAllRead(c.Context(), principal.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"marked": count}})
}

// DeleteNotification DELETE /notifications/:id.
func (h *NotificationsHandler) DeleteNotification(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	if err := h.service.Delete(c.Context(), principal.User.ID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
		ReadAt:    n.ReadAt,
	}
	if n.Related != nil {
		resp.RelatedEntityType = &n.Related.Type
		resp.RelatedEntityID = &n.Related.ID
	}
	return resp
}
