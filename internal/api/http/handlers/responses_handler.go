package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ResponsesHandler exposes the ticket conversation thread.
type ResponsesHandler struct {
	responses *service.ResponseService
	tickets   *service.TicketService
}

// NewResponsesHandler constructs handler.
func NewResponsesHandler(responses *service.ResponseService, tickets *service.TicketService) *ResponsesHandler {
	return &ResponsesHandler{responses: responses, tickets: tickets}
}

// Create POST /tickets/:id/responses.
func (h *ResponsesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}

	// Resolving through the ticket service applies the caller's read scope.
	ticket, err := h.tickets.GetByID(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	response, err := h.responses.Create(c.Context(), principal.Actor(), ticket.ID, req.Content)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewResponseView(response)})
}

// List GET /tickets/:id/responses.
func (h *ResponsesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetByID(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	responses, err := h.responses.List(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.ResponseView, 0, len(responses))
	for i := range responses {
		items = append(items, dto.NewResponseView(&responses[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Update PATCH /responses/:id.
func (h *ResponsesHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateResponseRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := req.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	response, err := h.responses.Update(c.Context(), principal.Actor(), c.Params("id"), req.Content)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewResponseView(response)})
}

// Delete DELETE /responses/:id.
func (h *ResponsesHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.responses.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
