package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CategoriesHandler exposes the category registry.
type CategoriesHandler struct {
	categories *service.CategoryService
}

// NewCategoriesHandler constructs handler.
func NewCategoriesHandler(categories *service.CategoryService) *CategoriesHandler {
	return &CategoriesHandler{categories: categories}
}

// Create POST /companies/:companyID/categories.
func (h *CategoriesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	category, err := h.categories.Create(c.Context(), principal.Actor(), c.Params("companyID"), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewCategoryView(category)})
}

// List GET /companies/:companyID/categories.
func (h *CategoriesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	includeInactive := c.QueryBool("include_inactive")
	categories, err := h.categories.List(c.Context(), principal.Actor(), c.Params("companyID"), includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryView, 0, len(categories))
	for i := range categories {
		items = append(items, dto.NewCategoryView(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update PATCH /categories/:id.
func (h *CategoriesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	category, err := h.categories.Update(c.Context(), principal.Actor(), c.Params("id"), service.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewCategoryView(category)})
}

// Delete DELETE /categories/:id.
func (h *CategoriesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.categories.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
