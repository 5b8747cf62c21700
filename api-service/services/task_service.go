package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/apperrors"
	"taskmaster-backend/shared/utils/query"
	"taskmaster-backend/shared/utils/rbac"
)

// taskRelations whitelists the preloads a caller may request through the
// `with` query parameter. Relations are never loaded implicitly.
var taskRelations = map[string]string{
	"creator":      "Creator",
	"assignee":     "Assignee",
	"organization": "Organization",
}

type TaskService struct {
	db *gorm.DB
}

func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{db: db}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Category    models.TaskCategory
	Priority    models.TaskPriority
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

type UpdateTaskInput struct {
	Title       *string
	Description *string
	Category    *models.TaskCategory
	Priority    *models.TaskPriority
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
}

// Create inserts a new task. OrganizationID and CreatedBy are always
// taken from the principal, never from the payload, so a client cannot
// plant a task into a foreign organization.
func (s *TaskService) Create(p *rbac.Principal, in CreateTaskInput) (*models.Task, error) {
	if in.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if in.Category == "" {
		in.Category = models.TaskCategoryWork
	}
	if !in.Category.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid category: %s", in.Category))
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid priority: %s", in.Priority))
	}

	assignee := p.ID
	if in.AssignedTo != nil {
		if err := s.checkAssignee(p, *in.AssignedTo); err != nil {
			return nil, err
		}
		assignee = *in.AssignedTo
	}

	task := models.Task{
		Title:          in.Title,
		Description:    in.Description,
		Category:       in.Category,
		Status:         models.TaskStatusTodo,
		Priority:       in.Priority,
		OrganizationID: p.OrganizationID,
		CreatedBy:      p.ID,
		AssignedTo:     &assignee,
		DueDate:        in.DueDate,
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, apperrors.Internal("failed to create task", err)
	}
	return &task, nil
}

// List returns the tasks visible to the principal. Non-admin callers are
// always confined to their own organization regardless of the filters
// they supply.
func (s *TaskService) List(p *rbac.Principal, params query.ListParams, withRelations []string) ([]models.Task, int64, error) {
	dbQuery := s.db.Model(&models.Task{}).Where("is_deleted = ?", false)

	if p.Role.CrossesTenants() {
		if orgFilter, ok := params.Filters["organization_id"]; ok && orgFilter != "" {
			dbQuery = dbQuery.Where("organization_id = ?", orgFilter)
		}
	} else {
		dbQuery = dbQuery.Where("organization_id = ?", p.OrganizationID)
	}

	allowedFilters := map[string]string{
		"status":      "status",
		"priority":    "priority",
		"category":    "category",
		"assigned_to": "assigned_to",
		"created_by":  "created_by",
	}
	allowedSortFields := map[string]string{
		"title":      "title",
		"status":     "status",
		"priority":   "priority",
		"due_date":   "due_date",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}

	dbQuery = query.ApplyFilters(dbQuery, params.Filters, allowedFilters)
	dbQuery = query.ApplySearch(dbQuery, params.Search, []string{"title", "description"})

	var total int64
	if err := dbQuery.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count tasks", err)
	}

	dbQuery = query.ApplySort(dbQuery, params.Sort, allowedSortFields)
	dbQuery = query.ApplyPagination(dbQuery, params.Limit, params.Offset)
	dbQuery = applyTaskRelations(dbQuery, withRelations)

	var tasks []models.Task
	if err := dbQuery.Find(&tasks).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to list tasks", err)
	}
	return tasks, total, nil
}

// MyTasks returns tasks the principal created or is assigned to within
// their own organization
func (s *TaskService) MyTasks(p *rbac.Principal, withRelations []string) ([]models.Task, error) {
	dbQuery := s.db.Model(&models.Task{}).
		Where("is_deleted = ?", false).
		Where("organization_id = ?", p.OrganizationID).
		Where("created_by = ? OR assigned_to = ?", p.ID, p.ID).
		Order("created_at DESC")
	dbQuery = applyTaskRelations(dbQuery, withRelations)

	var tasks []models.Task
	if err := dbQuery.Find(&tasks).Error; err != nil {
		return nil, apperrors.Internal("failed to list tasks", err)
	}
	return tasks, nil
}

// Get loads a single task. A task in a foreign organization yields
// Forbidden; the handler collapses that to 404 so callers cannot probe
// for the existence of foreign-tenant tasks.
func (s *TaskService) Get(p *rbac.Principal, id uuid.UUID, withRelations []string) (*models.Task, error) {
	task, err := s.load(id, withRelations)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, task.OrganizationID) {
		return nil, apperrors.Forbidden("task belongs to another organization")
	}
	return task, nil
}

// Update modifies title/description/assignment and similar fields. The
// organization, creator and status never change through this path.
func (s *TaskService) Update(p *rbac.Principal, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	task, err := s.load(id, nil)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, task.OrganizationID) {
		return nil, apperrors.Forbidden("task belongs to another organization")
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, apperrors.InvalidInput("title cannot be empty")
		}
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid category: %s", *in.Category))
		}
		task.Category = *in.Category
	}
	if in.Priority != nil {
		if !in.Priority.Valid() {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid priority: %s", *in.Priority))
		}
		task.Priority = *in.Priority
	}
	if in.AssignedTo != nil {
		if err := s.checkAssignee(p, *in.AssignedTo); err != nil {
			return nil, err
		}
		task.AssignedTo = in.AssignedTo
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}

	if err := s.db.Save(task).Error; err != nil {
		return nil, apperrors.Internal("failed to update task", err)
	}
	return task, nil
}

// UpdateStatus is the narrow-privilege transition operation: any
// authenticated member of the task's organization may call it, but the
// transition must be legal. Repeating the current status is a no-op
// success.
func (s *TaskService) UpdateStatus(p *rbac.Principal, id uuid.UUID, newStatus models.TaskStatus) (*models.Task, error) {
	if !newStatus.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status: %s", newStatus))
	}

	task, err := s.load(id, nil)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, task.OrganizationID) {
		return nil, apperrors.Forbidden("task belongs to another organization")
	}
	if !task.Status.CanTransitionTo(newStatus) {
		return nil, apperrors.InvalidTransition(
			fmt.Sprintf("cannot transition task from %s to %s", task.Status, newStatus))
	}

	if task.Status == newStatus {
		return task, nil
	}

	task.Status = newStatus
	if err := s.db.Save(task).Error; err != nil {
		return nil, apperrors.Internal("failed to update task status", err)
	}
	return task, nil
}

// Delete soft-deletes a task
func (s *TaskService) Delete(p *rbac.Principal, id uuid.UUID) (*models.Task, error) {
	task, err := s.load(id, nil)
	if err != nil {
		return nil, err
	}
	if !rbac.AuthorizeTenant(p, task.OrganizationID) {
		return nil, apperrors.Forbidden("task belongs to another organization")
	}

	task.IsDeleted = true
	if err := s.db.Save(task).Error; err != nil {
		return nil, apperrors.Internal("failed to delete task", err)
	}
	return task, nil
}

func (s *TaskService) load(id uuid.UUID, withRelations []string) (*models.Task, error) {
	dbQuery := applyTaskRelations(s.db, withRelations)

	var task models.Task
	err := dbQuery.Where("id = ? AND is_deleted = ?", id, false).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("task not found")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to load task", err)
	}
	return &task, nil
}

// checkAssignee ensures the assignee exists and belongs to the
// principal's organization
func (s *TaskService) checkAssignee(p *rbac.Principal, assigneeID uuid.UUID) error {
	var assignee models.User
	err := s.db.Where("id = ?", assigneeID).First(&assignee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.InvalidInput("assignee not found")
	}
	if err != nil {
		return apperrors.Internal("failed to load assignee", err)
	}
	if assignee.OrganizationID != p.OrganizationID {
		return apperrors.InvalidInput("assignee belongs to another organization")
	}
	return nil
}

func applyTaskRelations(dbQuery *gorm.DB, withRelations []string) *gorm.DB {
	for _, rel := range withRelations {
		if preload, ok := taskRelations[rel]; ok {
			dbQuery = dbQuery.Preload(preload)
		}
	}
	return dbQuery
}
