package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	utils "taskmaster-backend/shared/utils/auth"
	"taskmaster-backend/shared/utils/rbac"
)

type OrganizationService struct {
	db *gorm.DB
}

func NewOrganizationService(db *gorm.DB) *OrganizationService {
	return &OrganizationService{db: db}
}

type CreateOrganizationInput struct {
	Name        string
	Description string
	ParentID    *uuid.UUID
}

type UpdateOrganizationInput struct {
	Name        *string
	Description *string
}

// Create inserts a new organization with a fresh API key. Non-admin
// callers may only create sub-organizations under their own tenant.
func (s *OrganizationService) Create(p *rbac.Principal, in CreateOrganizationInput) (*models.Organization, error) {
	if in.Name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}

	var existing models.Organization
	if err := s.db.Where("name = ?", in.Name).First(&existing).Error; err == nil {
		return nil, apperrors.Conflict("organization name already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Internal("failed to check organization name", err)
	}

	if in.ParentID != nil {
		parent, err := s.load(*in.ParentID)
		if err != nil {
			return nil, err
		}
		if !rbac.AuthorizeTenant(p, parent.ID) {
			return nil, apperrors.Forbidden("parent organization belongs to another tenant")
		}
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, apperrors.Internal("failed to generate API key", err)
	}

	org := models.Organization{
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
		IsActive:    true,
		APIKey:      apiKey,
	}
	if err := s.db.Create(&org).Error; err != nil {
		return nil, apperrors.Internal("failed to create organization", err)
	}
	return &org, nil
}

// List returns all active organizations for tenant-crossing roles, and
// only the caller's own organization otherwise
func (s *OrganizationService) List(p *rbac.Principal) ([]models.Organization, error) {
	dbQuery := s.db.Where("is_active = ?", true)
	if !p.Role.CrossesTenants() {
		dbQuery = dbQuery.Where("id = ?", p.OrganizationID)
	}

	var orgs []models.Organization
	if err := dbQuery.Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, apperrors.Internal("failed to list organizations", err)
	}
	return orgs, nil
}

// Get loads a single active organization, tenant-gated
func (s *OrganizationService) Get(p *rbac.Principal, id uuid.UUID) (*models.Organization, error) {
	org, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, org.ID) {
		return nil, apperrors.Forbidden("access denied")
	}
	return org, nil
}

// GetByAPIKey resolves an organization from its API key. This is the
// org-level programmatic credential path and carries no principal.
func (s *OrganizationService) GetByAPIKey(apiKey string) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Where("api_key = ? AND is_active = ?", apiKey, true).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("organization not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load organization", err)
	}
	return &org, nil
}

// Update modifies name/description, tenant-gated
func (s *OrganizationService) Update(p *rbac.Principal, id uuid.UUID, in UpdateOrganizationInput) (*models.Organization, error) {
	org, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, org.ID) {
		return nil, apperrors.Forbidden("access denied")
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperrors.InvalidInput("name cannot be empty")
		}
		var existing models.Organization
		if err := s.db.Where("name = ? AND id <> ?", *in.Name, id).First(&existing).Error; err == nil {
			return nil, apperrors.Conflict("organization name already exists")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Internal("failed to check organization name", err)
		}
		org.Name = *in.Name
	}
	if in.Description != nil {
		org.Description = *in.Description
	}

	if err := s.db.Save(org).Error; err != nil {
		return nil, apperrors.Internal("failed to update organization", err)
	}
	return org, nil
}

// Delete deactivates an organization. Rows are never hard-deleted so
// historical tasks and audit entries keep their references.
func (s *OrganizationService) Delete(p *rbac.Principal, id uuid.UUID) (*models.Organization, error) {
	org, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, org.ID) {
		return nil, apperrors.Forbidden("access denied")
	}

	org.IsActive = false
	if err := s.db.Save(org).Error; err != nil {
		return nil, apperrors.Internal("failed to deactivate organization", err)
	}
	return org, nil
}

// Users lists the users of an organization, tenant-gated
func (s *OrganizationService) Users(p *rbac.Principal, orgID uuid.UUID) ([]models.User, error) {
	org, err := s.load(orgID)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, org.ID) {
		return nil, apperrors.Forbidden("access denied")
	}

	var users []models.User
	if err := s.db.Where("organization_id = ?", org.ID).Order("name ASC").Find(&users).Error; err != nil {
		return nil, apperrors.Internal("failed to list organization users", err)
	}
	return users, nil
}

// Children returns the direct children of an organization, not the
// transitive descendants. The tenant check applies to the parent.
func (s *OrganizationService) Children(p *rbac.Principal, parentID uuid.UUID) ([]models.Organization, error) {
	parent, err := s.load(parentID)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, parent.ID) {
		return nil, apperrors.Forbidden("access denied")
	}

	var children []models.Organization
	if err := s.db.Where("parent_id = ? AND is_active = ?", parent.ID, true).
		Order("name ASC").Find(&children).Error; err != nil {
		return nil, apperrors.Internal("failed to list child organizations", err)
	}
	return children, nil
}

func (s *OrganizationService) load(id uuid.UUID) (*models.Organization, error) {
	var org models.Organization
	err := s.db.Where("id = ? AND is_active = ?", id, true).First(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("organization not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load organization", err)
	}
	return &org, nil
}
