package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/equipment-maintenance/internal/api/dto"
	"github.com/spec-kit/equipment-maintenance/internal/auth"
	"github.com/spec-kit/equipment-maintenance/internal/domain"
	"github.com/spec-kit/equipment-maintenance/internal/repository"
	"github.com/spec-kit/equipment-maintenance/internal/service"
	apperrors "github.com/spec-kit/equipment-maintenance/pkg/util"
)

// EquipmentHandler manages equipment endpoints.
type EquipmentHandler struct {
	service *service.EquipmentService
}

// NewEquipmentHandler constructs handler.
func NewEquipmentHandler(equipmentService *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{service: equipmentService}
}

// CreateEquipment POST /equipment.
func (h *EquipmentHandler) CreateEquipment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateEquipmentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	eq, err := h.service.Create(c.Context(), principal.User, service.CreateEquipmentInput{
		AssetTag:     req.AssetTag,
		DeviceName:   req.DeviceName,
		SerialNumber: req.SerialNumber,
		DepartmentID: req.DepartmentID,
		Criticality:  req.Criticality,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": equipmentResponse(eq)})
}

// ListEquipment GET /equipment.
func (h *EquipmentHandler) ListEquipment(c *fiber.Ctx) error {
	result, err := h.service.List(c.Context(), parseEquipmentQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.EquipmentResponse, 0, len(result))
	for i := range result {
		items = append(items, equipmentResponse(&result[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetEquipment GET /equipment/:id.
func (h *EquipmentHandler) GetEquipment(c *fiber.Ctx) error {
	eq, err := h.service.Get(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(eq)})
}

// UpdateEquipmentStatus POST /equipment/:id/status.
func (h *EquipmentHandler) UpdateEquipmentStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.UpdateEquipmentStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status == "" {
		return apperrors.NewValidationError("status required", nil)
	}

	eq, err := h.service.UpdateStatus(c.Context(), principal.User, c.Params("id"), req.Status, req.Note)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": equipmentResponse(eq)})
}

// ListEquipmentLogs GET /equipment/:id/logs.
func (h *EquipmentHandler) ListEquipmentLogs(c *fiber.Ctx) error {
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 50)
	entries, err := h.service.ListLogs(c.Context(), c.Params("id"), pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.EquipmentLogResponse, 0, len(entries))
	for i := range entries {
		items = append(items, equipmentLogResponse(&entries[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

func parseEquipmentQuery(c *fiber.Ctx) repository.EquipmentFilter {
	filter := repository.EquipmentFilter{}
	if departmentID := c.Query("department_id"); departmentID != "" {
		filter.DepartmentID = &departmentID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.EquipmentStatus(strings.TrimSpace(part)))
		}
	}
	if downStr := c.Query("currently_down"); downStr != "" {
		down := downStr == "true"
		filter.CurrentlyDown = &down
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func equipmentResponse(eq *domain.Equipment) dto.EquipmentResponse {
	return dto.EquipmentResponse{
		ID:                   eq.ID,
		AssetTag:             eq.AssetTag,
		DeviceName:           eq.DeviceName,
		SerialNumber:         eq.SerialNumber,
		Status:               eq.Status,
		DepartmentID:         eq.DepartmentID,
		Criticality:          eq.Criticality,
		RepairCount:          eq.RepairCount,
		TotalDowntimeMinutes: eq.TotalDowntimeMinutes,
		IsCurrentlyDown:      eq.IsCurrentlyDown,
		LastDowntimeStart:    eq.LastDowntimeStart,
		CreatedAt:            eq.CreatedAt,
		UpdatedAt:            eq.UpdatedAt,
	}
}

func equipmentLogResponse(entry *domain.EquipmentLog) dto.EquipmentLogResponse {
	return dto.EquipmentLogResponse{
		ID:              entry.ID,
		EquipmentID:     entry.EquipmentID,
		CreatedByUserID: entry.CreatedByUserID,
		LogType:         entry.LogType,
		Title:           entry.Title,
		Description:     entry.Description,
		DowntimeMinutes: entry.DowntimeMinutes,
		CreatedAt:       entry.CreatedAt,
	}
}
