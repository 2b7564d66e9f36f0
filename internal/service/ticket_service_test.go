package service

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type ticketFixture struct {
	db         *memDB
	svc        *TicketService
	dispatcher *recordingDispatcher
	company    domain.Company
	category   domain.Category
	user       domain.User
	agent      domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	db := newMemDB()
	dispatcher := &recordingDispatcher{}

	company := db.addCompany("acme")
	category := db.addCategory(company.ID, "Billing", true)
	user := db.addUser("alice")
	agent := db.addUser("bob")
	db.grantRole(user.ID, domain.RoleUser, company.ID)
	db.grantRole(agent.ID, domain.RoleAgent, company.ID)

	svc := NewTicketService(TicketDependencies{
		TicketRepo:   &memTicketRepo{db: db},
		CategoryRepo: &memCategoryRepo{db: db},
		AreaRepo:     &memAreaRepo{db: db},
		CompanyRepo:  &memCompanyRepo{db: db},
		UserRepo:     &memUserRepo{db: db},
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
	})
	return &ticketFixture{db: db, svc: svc, dispatcher: dispatcher, company: company, category: category, user: user, agent: agent}
}

func (f *ticketFixture) userActor() domain.Actor {
	return domain.Actor{UserID: f.user.ID, Role: domain.RoleUser, CompanyID: f.company.ID}
}

func (f *ticketFixture) agentActor() domain.Actor {
	return domain.Actor{UserID: f.agent.ID, Role: domain.RoleAgent, CompanyID: f.company.ID}
}

func (f *ticketFixture) createTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), f.userActor(), CreateTicketInput{
		CompanyID:   f.company.ID,
		CategoryID:  f.category.ID,
		Title:       "printer on fire",
		Description: "smoke everywhere",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return ticket
}

func TestCreateTicket_Defaults(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want OPEN", ticket.Status)
	}
	if ticket.LastResponseAuthorType != domain.ResponseAuthorNone {
		t.Errorf("last_response_author_type = %s, want NONE", ticket.LastResponseAuthorType)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", ticket.Priority)
	}
	if ticket.OwnerAgentID != nil {
		t.Errorf("owner_agent_id = %v, want nil", *ticket.OwnerAgentID)
	}
	if !strings.HasPrefix(ticket.TicketCode, "TKT-") {
		t.Errorf("ticket code %q lacks TKT- prefix", ticket.TicketCode)
	}
	if len(f.dispatcher.events) != 1 || f.dispatcher.events[0].Type != events.EventTicketCreated {
		t.Errorf("expected a single ticket_created event, got %v", f.dispatcher.typesSeen())
	}
}

func TestCreateTicket_CategoryValidation(t *testing.T) {
	f := newTicketFixture(t)
	inactive := f.db.addCategory(f.company.ID, "Legacy", false)
	otherCompany := f.db.addCompany("globex")
	foreign := f.db.addCategory(otherCompany.ID, "Shipping", true)

	tests := []struct {
		name       string
		categoryID string
	}{
		{"inactive category", inactive.ID},
		{"category of another company", foreign.ID},
		{"missing category", "id-nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), f.userActor(), CreateTicketInput{
				CompanyID:   f.company.ID,
				CategoryID:  tt.categoryID,
				Title:       "x",
				Description: "y",
			})
			if err == nil || !strings.Contains(err.Error(), "category not found") {
				t.Errorf("Create() error = %v, want category not found", err)
			}
		})
	}
}

func TestCreateTicket_DropsInvalidAreaHint(t *testing.T) {
	f := newTicketFixture(t)
	other := f.db.addCompany("globex")
	foreignArea := f.db.addArea("", other.ID, "Logistics", "")

	ticket, err := f.svc.Create(context.Background(), f.userActor(), CreateTicketInput{
		CompanyID:   f.company.ID,
		CategoryID:  f.category.ID,
		AreaID:      &foreignArea.ID,
		Title:       "x",
		Description: "y",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if ticket.AreaID != nil {
		t.Errorf("area hint from another company should be dropped, got %v", *ticket.AreaID)
	}
}

func TestDeleteTicket_OnlyClosed(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	err := f.svc.Delete(context.Background(), f.agentActor(), ticket.ID)
	if err == nil {
		t.Fatal("Delete() on OPEN ticket should fail")
	}
	if !strings.Contains(err.Error(), "Only closed tickets can be deleted. Current status: OPEN") {
		t.Errorf("Delete() error = %q, want message naming current status", err.Error())
	}
	if _, ok := f.db.tickets[ticket.ID]; !ok {
		t.Fatal("ticket should still exist after refused delete")
	}

	if _, err := f.svc.Close(context.Background(), f.agentActor(), ticket.ID); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := f.svc.Delete(context.Background(), f.agentActor(), ticket.ID); err != nil {
		t.Fatalf("Delete() on CLOSED ticket error: %v", err)
	}
	if _, ok := f.db.tickets[ticket.ID]; ok {
		t.Fatal("ticket should be gone after delete")
	}
}

func TestListTickets_UserSeesOnlyOwnTickets(t *testing.T) {
	f := newTicketFixture(t)
	mine := f.createTicket(t)

	other := f.db.addUser("carol")
	f.db.grantRole(other.ID, domain.RoleUser, f.company.ID)
	otherActor := domain.Actor{UserID: other.ID, Role: domain.RoleUser, CompanyID: f.company.ID}
	if _, err := f.svc.Create(context.Background(), otherActor, CreateTicketInput{
		CompanyID:   f.company.ID,
		CategoryID:  f.category.ID,
		Title:       "carol's ticket",
		Description: "z",
	}); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	page, err := f.svc.List(context.Background(), f.userActor(), ListTicketsInput{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Tickets) != 1 || page.Tickets[0].ID != mine.ID {
		t.Errorf("USER listing should contain exactly the caller's ticket, got %d tickets", len(page.Tickets))
	}

	agentPage, err := f.svc.List(context.Background(), f.agentActor(), ListTicketsInput{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(agentPage.Tickets) != 2 {
		t.Errorf("AGENT listing should see the whole company, got %d tickets", len(agentPage.Tickets))
	}
}

func TestListTickets_UnknownSortFieldRejected(t *testing.T) {
	f := newTicketFixture(t)
	_, err := f.svc.List(context.Background(), f.agentActor(), ListTicketsInput{SortBy: "password_hash"})
	if err == nil {
		t.Fatal("List() with unknown sort field should fail")
	}
	if !strings.Contains(err.Error(), "sort") {
		t.Errorf("List() error = %q, want it to mention the sort field", err.Error())
	}
}

func TestListTickets_OwnerSentinels(t *testing.T) {
	f := newTicketFixture(t)
	assigned := f.createTicket(t)
	f.createTicket(t) // stays unassigned

	if _, err := f.svc.Assign(context.Background(), f.agentActor(), assigned.ID, f.agent.ID); err != nil {
		t.Fatalf("Assign() error: %v", err)
	}

	null := "null"
	page, err := f.svc.List(context.Background(), f.agentActor(), ListTicketsInput{OwnerAgentID: &null})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Tickets) != 1 {
		t.Errorf("owner=null should return the unassigned ticket only, got %d", len(page.Tickets))
	}

	me := "me"
	page, err = f.svc.List(context.Background(), f.agentActor(), ListTicketsInput{OwnerAgentID: &me})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(page.Tickets) != 1 || page.Tickets[0].ID != assigned.ID {
		t.Errorf("owner=me should return the ticket assigned to the caller")
	}
}

func TestUpdateTicket_CategoryRevalidated(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)
	inactive := f.db.addCategory(f.company.ID, "Retired", false)

	_, err := f.svc.Update(context.Background(), f.userActor(), ticket.ID, UpdateTicketInput{CategoryID: &inactive.ID})
	if err == nil || !strings.Contains(err.Error(), "category not found") {
		t.Fatalf("Update() error = %v, want category not found", err)
	}
	if got := f.db.tickets[ticket.ID]; got.CategoryID != f.category.ID {
		t.Errorf("category should be unchanged after rejected update")
	}
}

func TestTicketLifecycleTransitions(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	ticket := f.createTicket(t)

	resolved, err := f.svc.Resolve(ctx, f.agentActor(), ticket.ID)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if resolved.Status != domain.TicketStatusResolved || resolved.ResolvedAt == nil {
		t.Fatalf("Resolve() status=%s resolvedAt=%v", resolved.Status, resolved.ResolvedAt)
	}

	if _, err := f.svc.Resolve(ctx, f.agentActor(), ticket.ID); err == nil || !strings.Contains(err.Error(), "already resolved") {
		t.Errorf("second Resolve() = %v, want already resolved", err)
	}

	closed, err := f.svc.Close(ctx, f.agentActor(), ticket.ID)
	if err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if closed.Status != domain.TicketStatusClosed || closed.ClosedAt == nil {
		t.Fatalf("Close() status=%s closedAt=%v", closed.Status, closed.ClosedAt)
	}
	if _, err := f.svc.Close(ctx, f.agentActor(), ticket.ID); err == nil || !strings.Contains(err.Error(), "already closed") {
		t.Errorf("second Close() = %v, want already closed", err)
	}

	reopened, err := f.svc.Reopen(ctx, f.agentActor(), ticket.ID)
	if err != nil {
		t.Fatalf("Reopen() error: %v", err)
	}
	if reopened.Status != domain.TicketStatusPending {
		t.Errorf("Reopen() status = %s, want PENDING", reopened.Status)
	}
	if reopened.ResolvedAt != nil || reopened.ClosedAt != nil {
		t.Errorf("Reopen() should clear resolved/closed timestamps")
	}

	if _, err := f.svc.Reopen(ctx, f.agentActor(), ticket.ID); err == nil || !strings.Contains(err.Error(), "reopened") {
		t.Errorf("Reopen() on PENDING ticket = %v, want guard error", err)
	}
}

func TestAssignTicket_RequiresAgentRoleInCompany(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	// alice holds only USER in this company
	_, err := f.svc.Assign(context.Background(), f.agentActor(), ticket.ID, f.user.ID)
	if err == nil || !strings.Contains(err.Error(), "agent role") {
		t.Fatalf("Assign() to non-agent = %v, want agent role error", err)
	}

	updated, err := f.svc.Assign(context.Background(), f.agentActor(), ticket.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("Assign() error: %v", err)
	}
	if updated.OwnerAgentID == nil || *updated.OwnerAgentID != f.agent.ID {
		t.Errorf("Assign() owner = %v, want %s", updated.OwnerAgentID, f.agent.ID)
	}
}

func TestGetByCode_HidesForeignTickets(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.createTicket(t)

	other := f.db.addCompany("globex")
	stranger := f.db.addUser("mallory")
	foreignActor := domain.Actor{UserID: stranger.ID, Role: domain.RoleCompanyAdmin, CompanyID: other.ID}

	if _, err := f.svc.GetByCode(context.Background(), foreignActor, ticket.TicketCode); err == nil {
		t.Fatal("cross-tenant GetByCode() should report not found")
	}
	if _, err := f.svc.GetByCode(context.Background(), f.userActor(), ticket.TicketCode); err != nil {
		t.Fatalf("creator GetByCode() error: %v", err)
	}
}
