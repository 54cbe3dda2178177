package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-maintenance/internal/api/dto"
	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	"github.com/spec-kit/equipment-maintenance/internal/service"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// MaintenanceHandler manages maintenance schedule endpoints.
type MaintenanceHandler struct {
	service *service.MaintenanceService
}

// NewMaintenanceHandler constructs handler.
func NewMaintenanceHandler(maintenanceService *service.MaintenanceService) *MaintenanceHandler {
	return &MaintenanceHandler{service: maintenanceService}
}

// CreateSchedule POST /maintenance.
func (h *MaintenanceHandler) CreateSchedule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateMaintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.EquipmentID == "" {
		return apperrors.NewValidationError("equipment_id required", nil)
	}

	schedule, err := h.service.Create(c.Context(), principal.User, service.CreateMaintenanceInput{
		EquipmentID:         req.EquipmentID,
		MaintenanceType:     req.MaintenanceType,
		FrequencyDays:       req.FrequencyDays,
		NextMaintenanceDate: req.NextMaintenanceDate,
		AssignedToUserID:    req.AssignedToUserID,
		Notes:               req.Notes,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": h.maintenanceResponse(schedule)})
}

// ListSchedules GET /maintenance.
func (h *MaintenanceHandler) ListSchedules(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	schedules, total, err := h.service.List(c.Context(), principal.User, parseMaintenanceQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.MaintenanceResponse, 0, len(schedules))
	for i := range schedules {
		items = append(items, h.maintenanceResponse(&schedules[i]))
	}
	return c.JSON(fiber.Map{"data": items, "total": total})
}

// GetSchedule GET /maintenance/:id.
func (h *MaintenanceHandler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.maintenanceResponse(schedule)})
}

// UpdateSchedule PATCH /maintenance/:id.
func (h *MaintenanceHandler) UpdateSchedule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateMaintenanceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	schedule, err := h.service.Update(c.Context(), principal.User, c.Params("id"), service.UpdateMaintenanceInput{
		MaintenanceType:     req.MaintenanceType,
		FrequencyDays:       req.FrequencyDays,
		NextMaintenanceDate: req.NextMaintenanceDate,
		AssignedToUserID:    req.AssignedToUserID,
		Notes:               req.Notes,
		Active:              req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.maintenanceResponse(schedule)})
}

// CompleteSchedule POST /maintenance/:id/complete.
func (h *MaintenanceHandler) CompleteSchedule(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	schedule, err := h.service.Complete(c.Context(), principal.User, c.Params("id"), time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.maintenanceResponse(schedule)})
}

// GetStats GET /maintenance/stats.
func (h *MaintenanceHandler) GetStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context(), time.Now().UTC())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MaintenanceStatsResponse{
		TotalActive:   stats.TotalActive,
		Overdue:       stats.Overdue,
		UpcomingWeek:  stats.UpcomingWeek,
		UpcomingMonth: stats.UpcomingMonth,
	}})
}

func parseMaintenanceQuery(c *fiber.Ctx) repository.MaintenanceFilter {
	filter := repository.MaintenanceFilter{}
	if equipmentID := c.Query("equipment_id"); equipmentID != "" {
		filter.EquipmentID = &equipmentID
	}
	if departmentID := c.Query("department_id"); departmentID != "" {
		filter.DepartmentID = &departmentID
	}
	if activeStr := c.Query("is_active"); activeStr != "" {
		active := activeStr == "true"
		filter.Active = &active
	}
	if c.Query("overdue") == "true" {
		filter.Overdue = true
	}
	if upcoming := parseInt(c.Query("upcoming_days"), 0); upcoming > 0 {
		filter.UpcomingDays = upcoming
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func (h *MaintenanceHandler) maintenanceResponse(schedule *domain.MaintenanceSchedule) dto.MaintenanceResponse {
	return dto.MaintenanceResponse{
		ID:                  schedule.ID,
		EquipmentID:         schedule.EquipmentID,
		MaintenanceType:     schedule.MaintenanceType,
		FrequencyDays:       schedule.FrequencyDays,
		LastMaintenanceDate: schedule.LastMaintenanceDate,
		NextMaintenanceDate: schedule.NextMaintenanceDate,
		AssignedToUserID:    schedule.AssignedToUserID,
		Notes:               schedule.Notes,
		Active:              schedule.Active,
		Classification:      h.service.Classify(schedule, time.Now().UTC()),
		CreatedAt:           schedule.CreatedAt,
		UpdatedAt:           schedule.UpdatedAt,
	}
}
