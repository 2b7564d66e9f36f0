package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ResponseService manages the conversation thread of a ticket.
type ResponseService struct {
	responses  repository.ResponseRepository
	tickets    repository.TicketRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
}

// ResponseDependencies bundles collaborators for the response service.
type ResponseDependencies struct {
	ResponseRepo repository.ResponseRepository
	TicketRepo   repository.TicketRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
}

// NewResponseService constructs the service.
func NewResponseService(deps ResponseDependencies) *ResponseService {
	return &ResponseService{
		responses:  deps.ResponseRepo,
		tickets:    deps.TicketRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create appends a response to the ticket thread. The author type comes from
// the actor's role, never from the request: agents and company admins write
// AGENT responses, everyone else writes USER responses. The parent ticket's
// last_response_author_type is bumped in the same transaction as the insert.
func (s *ResponseService) Create(ctx context.Context, actor domain.Actor, ticketID, content string) (*domain.TicketResponse, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	if _, err := s.users.GetByID(ctx, actor.UserID); err != nil {
		return nil, util.NewNotFound("user", nil)
	}
	if strings.TrimSpace(content) == "" {
		return nil, util.NewValidationError("response content must not be empty", nil)
	}

	authorType := domain.ResponseAuthorUser
	if actor.Role.IsStaff() {
		authorType = domain.ResponseAuthorAgent
	}

	response := &domain.TicketResponse{
		TicketID:   ticket.ID,
		AuthorID:   actor.UserID,
		AuthorType: authorType,
		Content:    content,
	}
	if err := s.responses.Create(ctx, response); err != nil {
		return nil, err
	}

	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketResponseAdded,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload: events.TicketResponseAddedPayload{
			ResponseID:     response.ID,
			AuthorType:     response.AuthorType,
			AuthorID:       response.AuthorID,
			ContentPreview: preview(content, 120),
		},
	})
	return response, nil
}

// List returns a ticket's responses oldest first.
func (s *ResponseService) List(ctx context.Context, ticketID string) ([]domain.TicketResponse, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	return s.responses.ListByTicket(ctx, ticketID)
}

// Update edits a response's content. Only the author may edit, and the parent
// ticket's last_response_author_type is deliberately left untouched.
func (s *ResponseService) Update(ctx context.Context, actor domain.Actor, responseID, content string) (*domain.TicketResponse, error) {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return nil, util.NewNotFound("response", nil)
	}
	if response.AuthorID != actor.UserID {
		return nil, util.NewForbidden("only the author can edit a response")
	}
	if strings.TrimSpace(content) == "" {
		return nil, util.NewValidationError("response content must not be empty", nil)
	}

	response.Content = content
	if err := s.responses.Update(ctx, response); err != nil {
		return nil, err
	}
	return response, nil
}

// Delete removes a response. The author may delete their own; company admins
// may delete any within their company. Responses of foreign-company tickets
// are reported as missing. The parent ticket is not retouched.
func (s *ResponseService) Delete(ctx context.Context, actor domain.Actor, responseID string) error {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return util.NewNotFound("response", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, response.TicketID)
	if err != nil {
		return util.NewNotFound("response", nil)
	}
	if !actor.CanAccessCompany(ticket.CompanyID) {
		return util.NewNotFound("response", nil)
	}
	if response.AuthorID != actor.UserID &&
		actor.Role != domain.RoleCompanyAdmin && actor.Role != domain.RolePlatformAdmin {
		return util.NewForbidden("only the author or an admin can delete a response")
	}
	return s.responses.Delete(ctx, responseID)
}

func preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
