package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AttachmentsHandler exposes ticket attachment endpoints.
type AttachmentsHandler struct {
	attachments *service.AttachmentService
	tickets     *service.TicketService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachments *service.AttachmentService, tickets *service.TicketService) *AttachmentsHandler {
	return &AttachmentsHandler{attachments: attachments, tickets: tickets}
}

// Upload POST /tickets/:id/attachments (multipart/form-data, field "file",
// optional field "response_id").
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetByID(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field \"file\" is required", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	defer file.Close()

	var responseID *string
	if v := c.FormValue("response_id"); v != "" {
		responseID = &v
	}

	attachment, err := h.attachments.Upload(c.Context(), principal.Actor(), ticket.ID, service.UploadInput{
		FileName:   fileHeader.Filename,
		SizeBytes:  fileHeader.Size,
		Contents:   file,
		ResponseID: responseID,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewAttachmentView(attachment)})
}

// List GET /tickets/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.GetByID(c.Context(), principal.Actor(), c.Params("id"))
	if err != nil {
		return err
	}
	attachments, err := h.attachments.List(c.Context(), ticket.ID)
	if err != nil {
		return err
	}
	items := make([]dto.AttachmentView, 0, len(attachments))
	for i := range attachments {
		items = append(items, dto.NewAttachmentView(&attachments[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Download GET /attachments/:id.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	attachment, rc, err := h.attachments.Open(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if _, err := h.tickets.GetByID(c.Context(), principal.Actor(), attachment.TicketID); err != nil {
		rc.Close()
		return err
	}
	c.Set("Content-Disposition", `attachment; filename="`+attachment.FileName+`"`)
	return c.SendStream(rc)
}

// Delete DELETE /attachments/:id.
func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.attachments.Delete(c.Context(), principal.Actor(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
