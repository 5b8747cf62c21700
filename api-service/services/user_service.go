package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	"taskmaster-backend/shared/utils/query"
	"taskmaster-backend/shared/utils/rbac"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type UpdateUserInput struct {
	Name     *string
	Role     *models.Role
	IsActive *bool
}

// List returns the users visible to the principal, confined to their
// own organization unless their role crosses tenants
func (s *UserService) List(p *rbac.Principal, params query.ListParams) ([]models.User, int64, error) {
	dbQuery := s.db.Model(&models.User{})

	if p.Role.CrossesTenants() {
		if orgFilter, ok := params.Filters["organization_id"]; ok && orgFilter != "" {
			dbQuery = dbQuery.Where("organization_id = ?", orgFilter)
		}
	} else {
		dbQuery = dbQuery.Where("organization_id = ?", p.OrganizationID)
	}

	allowedFilters := map[string]string{
		"role":      "role",
		"is_active": "is_active",
	}
	allowedSortFields := map[string]string{
		"name":       "name",
		"email":      "email",
		"role":       "role",
		"created_at": "created_at",
	}

	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySearch(dbQuery, params.Search, []string{"name", "email"})

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count users", err)
	}

	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)
	dbQuery = query.ApplyPagination(dbQuery, params.Limit, params.Offset)

	var users []models.User
	if err := dbQuery.Find(&users).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to list users", err)
	}
	return users, total, nil
}

// Get loads a single user, tenant-gated
func (s *UserService) Get(p *rbac.Principal, id uuid.UUID) (*models.User, error) {
	user, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, user.OrganizationID) {
		return nil, apperrors.Forbidden("access denied")
	}
	return user, nil
}

// FindByEmail looks a user up by login identifier. Used by the
// credential validator; no tenant gate applies before authentication.
func (s *UserService) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load user", err)
	}
	return &user, nil
}

// Update changes profile fields and role. A caller can never grant a
// role above their own rank.
func (s *UserService) Update(p *rbac.Principal, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	user, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, user.OrganizationID) {
		return nil, apperrors.Forbidden("access denied")
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperrors.InvalidInput("name cannot be empty")
		}
		user.Name = *in.Name
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperrors.InvalidInput("invalid role")
		}
		if in.Role.Rank() > p.Role.Rank() {
			return nil, apperrors.Forbidden("cannot grant a role above your own")
		}
		user.Role = *in.Role
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}

	if err := s.db.Save(user).Error; err != nil {
		return nil, apperrors.Internal("failed to update user", err)
	}
	return user, nil
}

// Deactivate logically disables a user. The row survives so historical
// tasks and audit entries keep their references; any outstanding token
// fails validation on its next use.
func (s *UserService) Deactivate(p *rbac.Principal, id uuid.UUID) (*models.User, error) {
	user, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, user.OrganizationID) {
		return nil, apperrors.Forbidden("access denied")
	}
	if user.ID == p.ID {
		return nil, apperrors.InvalidInput("cannot deactivate your own account")
	}

	user.IsActive = false
	if err := s.db.Save(user).Error; err != nil {
		return nil, apperrors.Internal("failed to deactivate user", err)
	}
	return user, nil
}

func (s *UserService) load(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("user not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load user", err)
	}
	return &user, nil
}
