package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CategoryService manages a company's ticket categories.
type CategoryService struct {
	categories repository.CategoryRepository
	companies  repository.CompanyRepository
	logger     *zap.Logger
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository, companies repository.CompanyRepository, logger *zap.Logger) *CategoryService {
	return &CategoryService{categories: categories, companies: companies, logger: logger}
}

// CategoryInput carries create/update fields.
type CategoryInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// Create adds a category to the actor's company. is_active defaults to true.
func (s *CategoryService) Create(ctx context.Context, actor domain.Actor, companyID string, input CategoryInput) (*domain.Category, error) {
	if !actor.CanAccessCompany(companyID) {
		return nil, util.NewForbidden("cannot manage categories of another company")
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, util.NewNotFound("company", nil)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, util.NewValidationError("category name must not be empty", nil)
	}

	category := &domain.Category{
		CompanyID:   companyID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Update edits an existing category.
func (s *CategoryService) Update(ctx context.Context, actor domain.Actor, categoryID string, input CategoryInput) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return nil, util.NewNotFound("category", nil)
	}
	if !actor.CanAccessCompany(category.CompanyID) {
		return nil, util.NewNotFound("category", nil)
	}

	if strings.TrimSpace(input.Name) != "" {
		category.Name = input.Name
	}
	if input.Description != "" {
		category.Description = input.Description
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// List returns a company's categories; inactive ones only for staff.
func (s *CategoryService) List(ctx context.Context, actor domain.Actor, companyID string, includeInactive bool) ([]domain.Category, error) {
	if !actor.CanAccessCompany(companyID) {
		return nil, util.NewForbidden("cannot list categories of another company")
	}
	if includeInactive && !actor.Role.IsStaff() && actor.Role != domain.RolePlatformAdmin {
		includeInactive = false
	}
	return s.categories.ListByCompany(ctx, companyID, includeInactive)
}

// Delete removes a category unless live tickets still reference it. Tickets
// in OPEN, PENDING or RESOLVED block the delete; CLOSED tickets never do. The
// count and the delete run in one transaction, and a missing ticket store is
// treated as zero references.
func (s *CategoryService) Delete(ctx context.Context, actor domain.Actor, categoryID string) error {
	category, err := s.categories.GetByID(ctx, categoryID)
	if err != nil {
		return util.NewNotFound("category", nil)
	}
	if !actor.CanAccessCompany(category.CompanyID) {
		return util.NewNotFound("category", nil)
	}

	blocking, err := s.categories.DeleteIfNoActiveTickets(ctx, categoryID, domain.ActiveTicketStatuses)
	if err != nil {
		return err
	}
	if blocking > 0 {
		return util.NewPolicyViolation(
			fmt.Sprintf("Cannot delete category: %d active ticket(s) still reference it.", blocking),
			map[string]any{"active_tickets": blocking},
		)
	}
	s.logger.Info("category deleted",
		zap.String("category_id", categoryID),
		zap.String("company_id", category.CompanyID))
	return nil
}
