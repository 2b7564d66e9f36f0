package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AreasHandler exposes routing-area management.
type AreasHandler struct {
	areas *service.AreaService
}

// NewAreasHandler constructs handler.
func NewAreasHandler(areas *service.AreaService) *AreasHandler {
	return &AreasHandler{areas: areas}
}

// Create POST /companies/:companyID/areas.
func (h *AreasHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AreaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	area, err := h.areas.Create(c.Context(), principal.Actor(), c.Params("companyID"), service.AreaInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAreaView(area)})
}

// List GET /companies/:companyID/areas.
func (h *AreasHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	areas, err := h.areas.List(c.Context(), principal.Actor(), c.Params("companyID"))
	if err != nil {
		return err
	}
	items := make([]dto.AreaView, 0, len(areas))
	for i := range areas {
		items = append(items, dto.NewAreaView(&areas[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update PATCH /areas/:id.
func (h *AreasHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AreaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	area, err := h.areas.Update(c.Context(), principal.Actor(), c.Params("id"), service.AreaInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAreaView(area)})
}

// Delete DELETE /areas/:id.
func (h *AreasHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.areas.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
