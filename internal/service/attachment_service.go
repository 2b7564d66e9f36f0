package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// allowedAttachmentTypes is the extension allow-list for uploads.
var allowedAttachmentTypes = map[string]struct{}{
	"pdf": {}, "txt": {}, "log": {}, "doc": {}, "docx": {}, "xls": {},
	"xlsx": {}, "csv": {}, "jpg": {}, "jpeg": {}, "png": {}, "gif": {},
	"bmp": {}, "webp": {}, "svg": {}, "mp4": {},
}

// AttachmentService validates, stores and tracks files bound to tickets.
type AttachmentService struct {
	attachments repository.AttachmentRepository
	tickets     repository.TicketRepository
	responses   repository.ResponseRepository
	files       storage.Store
	cfg         config.AttachmentConfig
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	AttachmentRepo repository.AttachmentRepository
	TicketRepo     repository.TicketRepository
	ResponseRepo   repository.ResponseRepository
	FileStore      storage.Store
	Config         config.AttachmentConfig
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
}

// NewAttachmentService constructs the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	return &AttachmentService{
		attachments: deps.AttachmentRepo,
		tickets:     deps.TicketRepo,
		responses:   deps.ResponseRepo,
		files:       deps.FileStore,
		cfg:         deps.Config,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
	}
}

// UploadInput describes one incoming file.
type UploadInput struct {
	FileName   string
	SizeBytes  int64
	Contents   io.Reader
	ResponseID *string
}

// Upload validates the file, persists it to the backing store and records the
// metadata. The per-ticket quota is enforced inside the repository transaction
// so concurrent uploads cannot both slip under the limit.
func (s *AttachmentService) Upload(ctx context.Context, actor domain.Actor, ticketID string, input UploadInput) (*domain.TicketAttachment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, util.NewPolicyViolation("Cannot add attachments to a closed ticket.", nil)
	}

	if input.ResponseID != nil {
		response, err := s.responses.GetByID(ctx, *input.ResponseID)
		if err != nil {
			return nil, util.NewNotFound("response", nil)
		}
		if response.TicketID != ticket.ID {
			return nil, util.NewValidationError("response does not belong to this ticket", nil)
		}
	}

	if input.SizeBytes > s.cfg.MaxSizeBytes {
		return nil, util.NewValidationError(
			fmt.Sprintf("File size must not exceed %d MB.", s.cfg.MaxSizeBytes/(1024*1024)),
			map[string]any{"size_bytes": input.SizeBytes},
		)
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(input.FileName), "."))
	if _, ok := allowedAttachmentTypes[ext]; !ok {
		return nil, util.NewValidationError(
			fmt.Sprintf("Invalid file type: .%s is not an accepted attachment type.", ext),
			map[string]any{"file_name": input.FileName},
		)
	}

	storagePath := fmt.Sprintf("tickets/attachments/%d_%s", time.Now().Unix(), sanitizeFileName(input.FileName))
	if err := s.files.Save(ctx, storagePath, input.Contents); err != nil {
		return nil, util.NewInternalError(err)
	}

	attachment := &domain.TicketAttachment{
		TicketID:         ticket.ID,
		ResponseID:       input.ResponseID,
		UploadedByUserID: actor.UserID,
		FileName:         input.FileName,
		StoragePath:      storagePath,
		FileType:         ext,
		FileSizeBytes:    input.SizeBytes,
	}
	if err := s.attachments.Create(ctx, attachment, s.cfg.MaxPerTicket); err != nil {
		// Metadata insert failed: remove the orphaned file.
		if rmErr := s.files.Remove(ctx, storagePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove orphaned attachment file",
				zap.String("path", storagePath), zap.Error(rmErr))
		}
		if errors.Is(err, repository.ErrAttachmentQuota) {
			return nil, util.NewPolicyViolation(
				fmt.Sprintf("Maximum %d attachments per ticket.", s.cfg.MaxPerTicket),
				map[string]any{"ticket_id": ticket.ID},
			)
		}
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAttachmentUploaded,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload: events.TicketAttachmentUploadedPayload{
			AttachmentID:  attachment.ID,
			ResponseID:    attachment.ResponseID,
			FileName:      attachment.FileName,
			FileSizeBytes: attachment.FileSizeBytes,
		},
	})
	return attachment, nil
}

// List returns a ticket's attachments oldest first.
func (s *AttachmentService) List(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	return s.attachments.ListByTicket(ctx, ticketID)
}

// Open streams an attachment's contents from the backing store.
func (s *AttachmentService) Open(ctx context.Context, attachmentID string) (*domain.TicketAttachment, io.ReadCloser, error) {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return nil, nil, util.NewNotFound("attachment", nil)
	}
	rc, err := s.files.Open(ctx, attachment.StoragePath)
	if err != nil {
		return nil, nil, util.NewNotFound("attachment", nil)
	}
	return attachment, rc, nil
}

// Delete removes the backing file and then the record. A file already gone
// from the store is not an error. The uploader may delete their own upload
// within the configured window; agents and company admins of the ticket's
// company may delete any time. Attachments of foreign-company tickets are
// reported as missing.
func (s *AttachmentService) Delete(ctx context.Context, actor domain.Actor, attachmentID string) error {
	attachment, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return util.NewNotFound("attachment", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, attachment.TicketID)
	if err != nil {
		return util.NewNotFound("attachment", nil)
	}
	if !actor.CanAccessCompany(ticket.CompanyID) {
		return util.NewNotFound("attachment", nil)
	}

	if !actor.Role.IsStaff() && actor.Role != domain.RolePlatformAdmin {
		if attachment.UploadedByUserID != actor.UserID {
			return util.NewForbidden("only the uploader can delete this attachment")
		}
		if time.Since(attachment.CreatedAt) > s.cfg.DeleteWindow() {
			return util.NewPolicyViolation(
				fmt.Sprintf("Attachments can only be deleted within %d minutes of upload.", s.cfg.DeleteWindowMinutes),
				nil,
			)
		}
	}

	if err := s.files.Remove(ctx, attachment.StoragePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("failed to remove attachment file",
			zap.String("path", attachment.StoragePath), zap.Error(err))
	}
	return s.attachments.Delete(ctx, attachmentID)
}

// sanitizeFileName strips path separators and whitespace from an uploaded
// name before it becomes part of the storage path.
func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
