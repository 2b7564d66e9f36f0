package service

import (
	"context"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	util "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AreaService manages a company's routing areas.
type AreaService struct {
	areas     repository.AreaRepository
	companies repository.CompanyRepository
}

// NewAreaService constructs the service.
func NewAreaService(areas repository.AreaRepository, companies repository.CompanyRepository) *AreaService {
	return &AreaService{areas: areas, companies: companies}
}

// AreaInput carries create/update fields.
type AreaInput struct {
	Name        string
	Description string
	IsActive    *bool
}

// Create adds an area to the company.
func (s *AreaService) Create(ctx context.Context, actor domain.Actor, companyID string, input AreaInput) (*domain.Area, error) {
	if !actor.CanAccessCompany(companyID) {
		return nil, util.NewForbidden("cannot manage areas of another company")
	}
	if _, err := s.companies.GetByID(ctx, companyID); err != nil {
		return nil, util.NewNotFound("company", nil)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, util.NewValidationError("area name must not be empty", nil)
	}

	area := &domain.Area{
		CompanyID:   companyID,
		Name:        input.Name,
		Description: input.Description,
		IsActive:    true,
	}
	if input.IsActive != nil {
		area.IsActive = *input.IsActive
	}
	if err := s.areas.Create(ctx, area); err != nil {
		return nil, err
	}
	return area, nil
}

// Update edits an existing area.
func (s *AreaService) Update(ctx context.Context, actor domain.Actor, areaID string, input AreaInput) (*domain.Area, error) {
	area, err := s.areas.GetByID(ctx, areaID)
	if err != nil {
		return nil, util.NewNotFound("area", nil)
	}
	if !actor.CanAccessCompany(area.CompanyID) {
		return nil, util.NewNotFound("area", nil)
	}

	if strings.TrimSpace(input.Name) != "" {
		area.Name = input.Name
	}
	if input.Description != "" {
		area.Description = input.Description
	}
	if input.IsActive != nil {
		area.IsActive = *input.IsActive
	}
	if err := s.areas.Update(ctx, area); err != nil {
		return nil, err
	}
	return area, nil
}

// List returns the company's areas ordered by name.
func (s *AreaService) List(ctx context.Context, actor domain.Actor, companyID string) ([]domain.Area, error) {
	if !actor.CanAccessCompany(companyID) {
		return nil, util.NewForbidden("cannot list areas of another company")
	}
	return s.areas.ListByCompany(ctx, companyID)
}

// Delete removes an area. Tickets keep their area_id as a historical hint.
func (s *AreaService) Delete(ctx context.Context, actor domain.Actor, areaID string) error {
	area, err := s.areas.GetByID(ctx, areaID)
	if err != nil {
		return util.NewNotFound("area", nil)
	}
	if !actor.CanAccessCompany(area.CompanyID) {
		return util.NewNotFound("area", nil)
	}
	return s.areas.Delete(ctx, areaID)
}
