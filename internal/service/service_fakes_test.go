package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// memDB is the shared backing store for the in-memory repository fakes.
type memDB struct {
	seq         int
	companies   map[string]domain.Company
	users       map[string]domain.User
	grants      map[string][]grant
	areas       map[string]domain.Area
	categories  map[string]domain.Category
	tickets     map[string]domain.Ticket
	responses   map[string]domain.TicketResponse
	attachments map[string]domain.TicketAttachment
}

type grant struct {
	userID    string
	companyID string
	role      domain.Role
}

func newMemDB() *memDB {
	return &memDB{
		companies:   make(map[string]domain.Company),
		users:       make(map[string]domain.User),
		grants:      make(map[string][]grant),
		areas:       make(map[string]domain.Area),
		categories:  make(map[string]domain.Category),
		tickets:     make(map[string]domain.Ticket),
		responses:   make(map[string]domain.TicketResponse),
		attachments: make(map[string]domain.TicketAttachment),
	}
}

func (db *memDB) nextID() string {
	db.seq++
	return fmt.Sprintf("id-%04d", db.seq)
}

func (db *memDB) addCompany(name string) domain.Company {
	c := domain.Company{ID: db.nextID(), Name: name, IsActive: true}
	db.companies[c.ID] = c
	return c
}

func (db *memDB) addUser(name string) domain.User {
	u := domain.User{ID: db.nextID(), Name: name, Email: name + "@example.com", Status: domain.UserStatusActive}
	db.users[u.ID] = u
	return u
}

func (db *memDB) grantRole(userID string, role domain.Role, companyID string) {
	db.grants[userID] = append(db.grants[userID], grant{userID: userID, companyID: companyID, role: role})
}

func (db *memDB) addCategory(companyID, name string, active bool) domain.Category {
	c := domain.Category{ID: db.nextID(), CompanyID: companyID, Name: name, IsActive: active}
	db.categories[c.ID] = c
	return c
}

func (db *memDB) addArea(id, companyID, name, description string) domain.Area {
	if id == "" {
		id = db.nextID()
	}
	a := domain.Area{ID: id, CompanyID: companyID, Name: name, Description: description, IsActive: true}
	db.areas[a.ID] = a
	return a
}

// --- company repo ---

type memCompanyRepo struct{ db *memDB }

func (r *memCompanyRepo) Create(_ context.Context, company *domain.Company) error {
	company.ID = r.db.nextID()
	r.db.companies[company.ID] = *company
	return nil
}

func (r *memCompanyRepo) GetByID(_ context.Context, id string) (*domain.Company, error) {
	c, ok := r.db.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// --- user repo ---

type memUserRepo struct{ db *memDB }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) error {
	user.ID = r.db.nextID()
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user *domain.User) error {
	if _, ok := r.db.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range r.db.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) GrantRole(_ context.Context, userID string, role domain.Role, companyID string) error {
	r.db.grantRole(userID, role, companyID)
	return nil
}

func (r *memUserRepo) HasRoleInCompany(_ context.Context, userID string, role domain.Role, companyID string) (bool, error) {
	for _, g := range r.db.grants[userID] {
		if g.companyID == companyID && g.role == role {
			return true, nil
		}
	}
	return false, nil
}

func (r *memUserRepo) RolesInCompany(_ context.Context, userID, companyID string) ([]domain.Role, error) {
	var roles []domain.Role
	for _, g := range r.db.grants[userID] {
		if g.companyID == companyID {
			roles = append(roles, g.role)
		}
	}
	return roles, nil
}

// --- area repo ---

type memAreaRepo struct{ db *memDB }

func (r *memAreaRepo) Create(_ context.Context, area *domain.Area) error {
	area.ID = r.db.nextID()
	r.db.areas[area.ID] = *area
	return nil
}

func (r *memAreaRepo) Update(_ context.Context, area *domain.Area) error {
	if _, ok := r.db.areas[area.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.areas[area.ID] = *area
	return nil
}

func (r *memAreaRepo) GetByID(_ context.Context, id string) (*domain.Area, error) {
	a, ok := r.db.areas[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memAreaRepo) ListByCompany(_ context.Context, companyID string) ([]domain.Area, error) {
	return r.list(companyID, false), nil
}

func (r *memAreaRepo) ListActiveByCompany(_ context.Context, companyID string) ([]domain.Area, error) {
	return r.list(companyID, true), nil
}

func (r *memAreaRepo) list(companyID string, activeOnly bool) []domain.Area {
	var out []domain.Area
	for _, a := range r.db.areas {
		if a.CompanyID != companyID {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		out = append(out, a)
	}
	// stable order by name, insertion-independent
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Name < out[i].Name {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (r *memAreaRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.db.areas[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.areas, id)
	return nil
}

// --- category repo ---

type memCategoryRepo struct{ db *memDB }

func (r *memCategoryRepo) Create(_ context.Context, category *domain.Category) error {
	category.ID = r.db.nextID()
	r.db.categories[category.ID] = *category
	return nil
}

func (r *memCategoryRepo) Update(_ context.Context, category *domain.Category) error {
	if _, ok := r.db.categories[category.ID]; !ok {
		return repository.ErrNotFound
	}
	r.db.categories[category.ID] = *category
	return nil
}

func (r *memCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	c, ok := r.db.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *memCategoryRepo) ListByCompany(_ context.Context, companyID string, includeInactive bool) ([]domain.Category, error) {
	var out []domain.Category
	for _, c := range r.db.categories {
		if c.CompanyID != companyID {
			continue
		}
		if !includeInactive && !c.IsActive {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *memCategoryRepo) DeleteIfNoActiveTickets(_ context.Context, id string, blocking []domain.TicketStatus) (int64, error) {
	if _, ok := r.db.categories[id]; !ok {
		return 0, repository.ErrNotFound
	}
	var count int64
	for _, t := range r.db.tickets {
		if t.CategoryID != id {
			continue
		}
		for _, status := range blocking {
			if t.Status == status {
				count++
				break
			}
		}
	}
	if count == 0 {
		delete(r.db.categories, id)
	}
	return count, nil
}

// --- ticket repo ---

type memTicketRepo struct{ db *memDB }

func (r *memTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = r.db.nextID()
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := r.db.tickets[ticket.ID]; !ok {
		return repository.ErrNotFound
	}
	ticket.UpdatedAt = time.Now()
	r.db.tickets[ticket.ID] = *ticket
	return nil
}

func (r *memTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r *memTicketRepo) GetByCode(_ context.Context, code string) (*domain.Ticket, error) {
	for _, t := range r.db.tickets {
		if t.TicketCode == code {
			ticket := t
			return &ticket, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	var out []domain.Ticket
	for _, t := range r.db.tickets {
		if filter.CompanyID != nil && t.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.CreatedByUserID != nil && t.CreatedByUserID != *filter.CreatedByUserID {
			continue
		}
		if filter.CategoryID != nil && t.CategoryID != *filter.CategoryID {
			continue
		}
		if filter.Unassigned && t.OwnerAgentID != nil {
			continue
		}
		if !filter.Unassigned && filter.OwnerAgentID != nil {
			if t.OwnerAgentID == nil || *t.OwnerAgentID != *filter.OwnerAgentID {
				continue
			}
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	total := int64(len(out))
	return out, total, nil
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func (r *memTicketRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.db.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.tickets, id)
	return nil
}

// --- response repo ---

type memResponseRepo struct{ db *memDB }

func (r *memResponseRepo) Create(_ context.Context, resp *domain.TicketResponse) error {
	ticket, ok := r.db.tickets[resp.TicketID]
	if !ok {
		return repository.ErrNotFound
	}
	resp.ID = r.db.nextID()
	resp.CreatedAt = time.Now()
	resp.UpdatedAt = resp.CreatedAt
	r.db.responses[resp.ID] = *resp

	// mirrors the transactional bump the SQL implementation performs
	ticket.LastResponseAuthorType = resp.AuthorType
	ticket.UpdatedAt = time.Now()
	r.db.tickets[ticket.ID] = ticket
	return nil
}

func (r *memResponseRepo) GetByID(_ context.Context, id string) (*domain.TicketResponse, error) {
	resp, ok := r.db.responses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &resp, nil
}

func (r *memResponseRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketResponse, error) {
	var out []domain.TicketResponse
	for _, resp := range r.db.responses {
		if resp.TicketID == ticketID {
			out = append(out, resp)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.Before(out[i].CreatedAt) ||
				(out[j].CreatedAt.Equal(out[i].CreatedAt) && out[j].ID < out[i].ID) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *memResponseRepo) Update(_ context.Context, resp *domain.TicketResponse) error {
	if _, ok := r.db.responses[resp.ID]; !ok {
		return repository.ErrNotFound
	}
	resp.UpdatedAt = time.Now()
	r.db.responses[resp.ID] = *resp
	return nil
}

func (r *memResponseRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.db.responses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.responses, id)
	return nil
}

// --- attachment repo ---

type memAttachmentRepo struct{ db *memDB }

func (r *memAttachmentRepo) Create(_ context.Context, attachment *domain.TicketAttachment, maxPerTicket int) error {
	if _, ok := r.db.tickets[attachment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	count, _ := r.CountByTicket(context.Background(), attachment.TicketID)
	if count >= int64(maxPerTicket) {
		return repository.ErrAttachmentQuota
	}
	attachment.ID = r.db.nextID()
	attachment.CreatedAt = time.Now()
	r.db.attachments[attachment.ID] = *attachment
	return nil
}

func (r *memAttachmentRepo) GetByID(_ context.Context, id string) (*domain.TicketAttachment, error) {
	a, ok := r.db.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r *memAttachmentRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	var out []domain.TicketAttachment
	for _, a := range r.db.attachments {
		if a.TicketID == ticketID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memAttachmentRepo) CountByTicket(_ context.Context, ticketID string) (int64, error) {
	var count int64
	for _, a := range r.db.attachments {
		if a.TicketID == ticketID {
			count++
		}
	}
	return count, nil
}

func (r *memAttachmentRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.db.attachments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.attachments, id)
	return nil
}

// --- password reset repo ---

type memPasswordResetRepo struct {
	db     *memDB
	tokens map[string]repository.PasswordResetToken
}

func newMemPasswordResetRepo(db *memDB) *memPasswordResetRepo {
	return &memPasswordResetRepo{db: db, tokens: make(map[string]repository.PasswordResetToken)}
}

func (r *memPasswordResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	token.ID = r.db.nextID()
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = *token
	return nil
}

func (r *memPasswordResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	for _, t := range r.tokens {
		if t.Token == tokenStr {
			token := t
			return &token, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memPasswordResetRepo) MarkUsed(_ context.Context, id string) error {
	t, ok := r.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	t.UsedAt = &now
	r.tokens[id] = t
	return nil
}

// --- event recorder ---

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	var out []events.EventType
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
