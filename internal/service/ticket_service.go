package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// maxPerPage caps page size regardless of what the client asks for.
const maxPerPage = 100

// defaultPerPage applies when the client does not ask for a page size.
const defaultPerPage = 15

// TicketService coordinates the ticket lifecycle. Every method takes the
// acting identity explicitly; there is no ambient caller state.
type TicketService struct {
	tickets    repository.TicketRepository
	categories repository.CategoryRepository
	areas      repository.AreaRepository
	companies  repository.CompanyRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CategoryRepo repository.CategoryRepository
	AreaRepo     repository.AreaRepository
	CompanyRepo  repository.CompanyRepository
	UserRepo     repository.UserRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		categories: deps.CategoryRepo,
		areas:      deps.AreaRepo,
		companies:  deps.CompanyRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// CreateTicketInput describes the ticket creation payload. AreaID is an
// advisory routing hint, usually filled in by the area predictor.
type CreateTicketInput struct {
	CompanyID   string
	CategoryID  string
	AreaID      *string
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// UpdateTicketInput carries optional edits; nil fields are left untouched.
type UpdateTicketInput struct {
	Title       *string
	Description *string
	Priority    *domain.TicketPriority
	CategoryID  *string
	AreaID      *string
}

// ListTicketsInput describes filters and pagination for listing. OwnerAgentID
// accepts the sentinels "null" (unassigned) and "me" (the caller).
type ListTicketsInput struct {
	Statuses               []domain.TicketStatus
	Priorities             []domain.TicketPriority
	CategoryID             *string
	AreaID                 *string
	OwnerAgentID           *string
	CreatedByUserID        *string
	LastResponseAuthorType *domain.ResponseAuthorType
	SearchTerm             *string
	CreatedFrom            *time.Time
	CreatedTo              *time.Time
	SortBy                 string
	SortAsc                bool
	Page                   int
	PerPage                int
}

// TicketPage is one page of listing results.
type TicketPage struct {
	Tickets []domain.Ticket
	Total   int64
	Page    int
	PerPage int
}

// Create opens a new ticket. The company must exist and the category must be
// active and belong to it; both are looked up fresh rather than trusted from
// the request.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !actor.CanAccessCompany(input.CompanyID) {
		return nil, util.NewForbidden("cannot create tickets for another company")
	}

	company, err := s.companies.GetByID(ctx, input.CompanyID)
	if err != nil {
		return nil, util.NewNotFound("company", nil)
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, util.NewNotFound("category", nil)
	}
	if !category.IsActive || category.CompanyID != company.ID {
		return nil, util.NewNotFound("category", nil)
	}

	if input.AreaID != nil {
		area, err := s.areas.GetByID(ctx, *input.AreaID)
		if err != nil || area.CompanyID != company.ID || !area.IsActive {
			// The area is advisory: a bad hint is dropped, not fatal.
			s.logger.Warn("dropping invalid area hint on ticket create",
				zap.String("company_id", company.ID),
				zap.Stringp("area_id", input.AreaID))
			input.AreaID = nil
		}
	}

	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}

	ticket := &domain.Ticket{
		TicketCode:             generateTicketCode(),
		CompanyID:              company.ID,
		CategoryID:             category.ID,
		AreaID:                 input.AreaID,
		CreatedByUserID:        actor.UserID,
		Title:                  input.Title,
		Description:            input.Description,
		Status:                 domain.TicketStatusOpen,
		Priority:               priority,
		LastResponseAuthorType: domain.ResponseAuthorNone,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketCreated, ticket, actor, events.TicketCreatedPayload{
		TicketCode: ticket.TicketCode,
		CategoryID: ticket.CategoryID,
		AreaID:     ticket.AreaID,
		Priority:   ticket.Priority,
		Title:      ticket.Title,
	})
	return ticket, nil
}

// List returns tickets visible to the actor. Role scope is applied before any
// client-supplied filter: end users only ever see their own tickets, staff see
// their company, platform admins see everything.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, input ListTicketsInput) (*TicketPage, error) {
	if input.SortBy != "" && !repository.IsAllowedSortField(input.SortBy) {
		return nil, util.NewValidationError(
			fmt.Sprintf("unknown sort field %q", input.SortBy),
			map[string]any{"sort": input.SortBy},
		)
	}

	perPage := input.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	page := input.Page
	if page <= 0 {
		page = 1
	}

	filter := repository.TicketFilter{
		CategoryID:             input.CategoryID,
		AreaID:                 input.AreaID,
		CreatedByUserID:        input.CreatedByUserID,
		Statuses:               input.Statuses,
		Priorities:             input.Priorities,
		LastResponseAuthorType: input.LastResponseAuthorType,
		SearchTerm:             input.SearchTerm,
		CreatedFrom:            input.CreatedFrom,
		CreatedTo:              input.CreatedTo,
		SortBy:                 input.SortBy,
		SortAsc:                input.SortAsc,
		Limit:                  perPage,
		Offset:                 (page - 1) * perPage,
	}

	switch actor.Role {
	case domain.RolePlatformAdmin:
		// unrestricted
	case domain.RoleAgent, domain.RoleCompanyAdmin:
		companyID := actor.CompanyID
		filter.CompanyID = &companyID
	default:
		companyID := actor.CompanyID
		userID := actor.UserID
		filter.CompanyID = &companyID
		filter.CreatedByUserID = &userID
	}

	if input.OwnerAgentID != nil {
		switch *input.OwnerAgentID {
		case "null":
			filter.Unassigned = true
		case "me":
			me := actor.UserID
			filter.OwnerAgentID = &me
		default:
			filter.OwnerAgentID = input.OwnerAgentID
		}
	}

	tickets, total, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TicketPage{Tickets: tickets, Total: total, Page: page, PerPage: perPage}, nil
}

// GetByCode resolves a ticket by its public code, enforcing read access.
// Tickets outside the actor's scope are reported as absent rather than
// forbidden so codes cannot be probed across tenants.
func (s *TicketService) GetByCode(ctx context.Context, actor domain.Actor, code string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	if !s.canView(actor, ticket) {
		return nil, util.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// GetByID resolves a ticket by primary id with the same access rules.
func (s *TicketService) GetByID(ctx context.Context, actor domain.Actor, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, util.NewNotFound("ticket", nil)
	}
	if !s.canView(actor, ticket) {
		return nil, util.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// Update edits mutable fields. A category change is re-validated exactly like
// at creation time.
func (s *TicketService) Update(ctx context.Context, actor domain.Actor, ticketID string, input UpdateTicketInput) (*domain.Ticket, error) {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	if input.CategoryID != nil && *input.CategoryID != ticket.CategoryID {
		category, err := s.categories.GetByID(ctx, *input.CategoryID)
		if err != nil || !category.IsActive || category.CompanyID != ticket.CompanyID {
			return nil, util.NewNotFound("category", nil)
		}
		ticket.CategoryID = category.ID
	}
	if input.AreaID != nil {
		area, err := s.areas.GetByID(ctx, *input.AreaID)
		if err != nil || area.CompanyID != ticket.CompanyID {
			return nil, util.NewNotFound("area", nil)
		}
		ticket.AreaID = &area.ID
	}
	if input.Title != nil {
		ticket.Title = *input.Title
	}
	if input.Description != nil {
		ticket.Description = *input.Description
	}
	if input.Priority != nil {
		ticket.Priority = *input.Priority
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Delete removes a ticket. Only closed tickets may be deleted; anything else
// is a policy violation that names the current status.
func (s *TicketService) Delete(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return util.NewPolicyViolation(
			fmt.Sprintf("Only closed tickets can be deleted. Current status: %s", ticket.Status),
			map[string]any{"status": string(ticket.Status)},
		)
	}
	return s.tickets.Delete(ctx, ticket.ID)
}

// Resolve marks the ticket resolved.
func (s *TicketService) Resolve(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	switch ticket.Status {
	case domain.TicketStatusResolved:
		return nil, util.NewDomainError("ALREADY_RESOLVED", "ticket is already resolved", http.StatusConflict, nil)
	case domain.TicketStatusClosed:
		return nil, util.NewDomainError("ALREADY_CLOSED", "ticket is already closed", http.StatusConflict, nil)
	}
	return s.transition(ctx, actor, ticket, domain.TicketStatusResolved)
}

// Close marks the ticket closed.
func (s *TicketService) Close(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return nil, util.NewDomainError("ALREADY_CLOSED", "ticket is already closed", http.StatusConflict, nil)
	}
	return s.transition(ctx, actor, ticket, domain.TicketStatusClosed)
}

// Reopen moves a resolved or closed ticket back to PENDING and clears the
// terminal timestamps.
func (s *TicketService) Reopen(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, util.NewDomainError("CANNOT_REOPEN",
			fmt.Sprintf("only resolved or closed tickets can be reopened, status is %s", ticket.Status),
			http.StatusConflict, nil)
	}
	return s.transition(ctx, actor, ticket, domain.TicketStatusPending)
}

// Assign hands the ticket to an agent. The target must hold the AGENT role in
// the ticket's company.
func (s *TicketService) Assign(ctx context.Context, actor domain.Actor, ticketID, agentID string) (*domain.Ticket, error) {
	ticket, err := s.GetByID(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && actor.Role != domain.RolePlatformAdmin {
		return nil, util.NewForbidden("only staff can assign tickets")
	}

	isAgent, err := s.users.HasRoleInCompany(ctx, agentID, domain.RoleAgent, ticket.CompanyID)
	if err != nil {
		return nil, err
	}
	if !isAgent {
		return nil, util.NewDomainError("INVALID_AGENT_ROLE",
			"assignee does not hold the agent role in this company", http.StatusConflict, nil)
	}

	ticket.OwnerAgentID = &agentID
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketAssigned, ticket, actor, events.TicketAssignedPayload{
		OwnerAgentID: agentID,
	})
	return ticket, nil
}

func (s *TicketService) transition(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, next domain.TicketStatus) (*domain.Ticket, error) {
	old := ticket.Status
	now := time.Now()

	ticket.Status = next
	switch next {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	case domain.TicketStatusPending:
		ticket.ResolvedAt = nil
		ticket.ClosedAt = nil
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketStatusChanged, ticket, actor, events.TicketStatusChangedPayload{
		OldStatus: old,
		NewStatus: next,
	})
	return ticket, nil
}

func (s *TicketService) canView(actor domain.Actor, ticket *domain.Ticket) bool {
	if actor.Role == domain.RolePlatformAdmin {
		return true
	}
	if actor.CompanyID != ticket.CompanyID {
		return false
	}
	if actor.Role.IsStaff() {
		return true
	}
	return ticket.CreatedByUserID == actor.UserID
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticket *domain.Ticket, actor domain.Actor, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticket.ID,
		CompanyID: ticket.CompanyID,
		Actor:     actor,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// generateTicketCode builds the public code, e.g. TKT-2026-3F1A9C0D.
func generateTicketCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("TKT-%d-%s", time.Now().Year(), raw[:8])
}
