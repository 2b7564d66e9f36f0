package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler exposes ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets    *service.TicketService
	prediction *service.AreaPredictionService
	categories *service.CategoryService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, prediction *service.AreaPredictionService, categories *service.CategoryService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, prediction: prediction, categories: categories}
}

// Create POST /tickets. When the client sends no area hint the predictor is
// consulted; its failure never blocks creation.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	areaID := req.AreaID
	if areaID == nil && h.prediction != nil {
		if category, err := h.categories.List(c.Context(), principal.Actor(), req.CompanyID, false); err == nil {
			for i := range category {
				if category[i].ID == req.CategoryID {
					if predicted, err := h.prediction.PredictArea(c.Context(), req.CompanyID, category[i].Name, category[i].Description); err == nil && predicted != "" {
						areaID = &predicted
					}
					break
				}
			}
		}
	}

	ticket, err := h.tickets.Create(c.Context(), principal.Actor(), service.CreateTicketInput{
		CompanyID:   req.CompanyID,
		CategoryID:  req.CategoryID,
		AreaID:      areaID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.TicketPriority(req.Priority),
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	input := parseTicketListQuery(c)
	page, err := h.tickets.List(c.Context(), principal.Actor(), input)
	if err != nil {
		return err
	}

	items := make([]dto.TicketView, 0, len(page.Tickets))
	for i := range page.Tickets {
		items = append(items, dto.NewTicketView(&page.Tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": items,
		"meta": dto.PageMeta{Page: page.Page, PerPage: page.PerPage, Total: page.Total},
	})
}

// GetByCode GET /tickets/:code.
func (h *TicketsHandler) GetByCode(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetByCode(c.Context(), principal.Actor(), c.Params("code"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// Update PATCH /tickets/:id.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	var priority *domain.TicketPriority
	if req.Priority != nil {
		p := domain.TicketPriority(*req.Priority)
		priority = &p
	}
	ticket, err := h.tickets.Update(c.Context(), principal.Actor(), c.Params("id"), service.UpdateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		CategoryID:  req.CategoryID,
		AreaID:      req.AreaID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// Delete DELETE /tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Resolve POST /tickets/:id/resolve.
func (h *TicketsHandler) Resolve(c *fiber.Ctx) error {
	return h.lifecycle(c, h.tickets.Resolve)
}

// Close POST /tickets/:id/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	return h.lifecycle(c, h.tickets.Close)
}

// Reopen POST /tickets/:id/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	return h.lifecycle(c, h.tickets.Reopen)
}

func (h *TicketsHandler) lifecycle(c *fiber.Ctx, op func(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error)) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := op(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// Assign POST /tickets/:id/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.AssignTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	ticket, err := h.tickets.Assign(c.Context(), principal.Actor(), c.Params("id"), req.AgentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketView(ticket)})
}

// PredictArea POST /tickets/predict-area.
func (h *TicketsHandler) PredictArea(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PredictAreaRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	if !principal.Actor().CanAccessCompany(req.CompanyID) {
		return apperrors.NewForbidden("cannot request predictions for another company")
	}
	areaID, err := h.prediction.PredictArea(c.Context(), req.CompanyID, req.CategoryName, req.CategoryDescription)
	if err != nil {
		return err
	}
	var result *string
	if areaID != "" {
		result = &areaID
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"area_id": result}})
}

func parseTicketListQuery(c *fiber.Ctx) service.ListTicketsInput {
	input := service.ListTicketsInput{
		SortBy:  c.Query("sort_by"),
		SortAsc: strings.EqualFold(c.Query("sort_dir"), "asc"),
	}
	input.Page, _ = strconv.Atoi(c.Query("page"))
	input.PerPage, _ = strconv.Atoi(c.Query("per_page"))

	for _, s := range splitCSV(c.Query("status")) {
		input.Statuses = append(input.Statuses, domain.TicketStatus(strings.ToUpper(s)))
	}
	for _, p := range splitCSV(c.Query("priority")) {
		input.Priorities = append(input.Priorities, domain.TicketPriority(strings.ToUpper(p)))
	}
	if v := c.Query("category_id"); v != "" {
		input.CategoryID = &v
	}
	if v := c.Query("area_id"); v != "" {
		input.AreaID = &v
	}
	if v := c.Query("owner_agent_id"); v != "" {
		input.OwnerAgentID = &v
	}
	if v := c.Query("created_by"); v != "" {
		input.CreatedByUserID = &v
	}
	if v := c.Query("last_response_author_type"); v != "" {
		t := domain.ResponseAuthorType(strings.ToUpper(v))
		input.LastResponseAuthorType = &t
	}
	if v := c.Query("search"); v != "" {
		input.SearchTerm = &v
	}
	if v := c.Query("created_from"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			input.CreatedFrom = &ts
		}
	}
	if v := c.Query("created_to"); v != "" {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			input.CreatedTo = &ts
		}
	}
	return input
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
