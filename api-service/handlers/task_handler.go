package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
	"taskmaster-backend/shared/utils/query"
)

type TaskHandler struct {
	taskService *services.TaskService
	audit       *services.AuditService
	events      *services.EventService
}

func NewTaskHandler(db *gorm.DB, audit *services.AuditService, events *services.EventService) *TaskHandler {
	return &TaskHandler{
		taskService: services.NewTaskService(db),
		audit:       audit,
		events:      events,
	}
}

type CreateTaskRequest struct {
	Title       string              `json:"title" binding:"required" example:"Deploy staging environment"`
	Description string              `json:"description" example:"Provision and configure the staging cluster"`
	Category    models.TaskCategory `json:"category" example:"work"`
	Priority    models.TaskPriority `json:"priority" example:"HIGH"`
	AssignedTo  *uuid.UUID          `json:"assigned_to"`
	DueDate     *time.Time          `json:"due_date"`
}

type UpdateTaskRequest struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Category    *models.TaskCategory `json:"category"`
	Priority    *models.TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID           `json:"assigned_to"`
	DueDate     *time.Time           `json:"due_date"`
}

type UpdateTaskStatusRequest struct {
	Status models.TaskStatus `json:"status" binding:"required" example:"IN_PROGRESS"`
}

// parseWithParam reads the explicit relation list from the `with` query
// parameter, e.g. ?with=creator,assignee. Relations never load unless
// asked for.
func parseWithParam(c *gin.Context) []string {
	raw := c.Query("with")
	if raw == "" {
		return nil
	}
	var relations []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			relations = append(relations, part)
		}
	}
	return relations
}

// POST /api/tasks
// @Summary Create task
// @Description Create a task in the caller's organization. Unassigned tasks default to the creator.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param task body CreateTaskRequest true "Task data"
// @Success 201 {object} models.Task
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 403 {object} map[string]string "Access denied"
// @Router /tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Create(principal, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.recordTaskEvent(c, "task.create", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"title": req.Title,
		})
		respondError(c, err)
		return
	}

	h.recordTaskEvent(c, "task.create", task, models.AuditOutcomeSuccess, map[string]interface{}{
		"title": task.Title,
	})
	h.events.BroadcastTaskEvent(services.TaskEventCreated, task, principal.ID)
	c.JSON(http.StatusCreated, task)
}

// GET /api/tasks
// @Summary List tasks
// @Description List tasks in the caller's organization with filtering, search, sorting and pagination
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param filters[status] query string false "Filter by status"
// @Param filters[priority] query string false "Filter by priority"
// @Param filters[category] query string false "Filter by category"
// @Param filters[assigned_to] query string false "Filter by assignee"
// @Param filters[created_by] query string false "Filter by creator"
// @Param search query string false "Search in title and description"
// @Param sort[field] query string false "Sort field" default(created_at)
// @Param sort[order] query string false "Sort order asc/desc" default(desc)
// @Param with query string false "Comma-separated relations: creator,assignee,organization"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {object} map[string]interface{} "List of tasks"
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	params := query.ParseListParams(c)

	tasks, total, err := h.taskService.List(principal, params, parseWithParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks":      tasks,
		"pagination": query.BuildPaginationResponse(params.Limit, params.Offset, total),
	})
}

// GET /api/tasks/my-tasks
// @Summary List own tasks
// @Description List tasks the caller created or is assigned to
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param with query string false "Comma-separated relations: creator,assignee,organization"
// @Success 200 {object} map[string]interface{} "List of tasks"
// @Router /tasks/my-tasks [get]
func (h *TaskHandler) MyTasks(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)

	tasks, err := h.taskService.MyTasks(principal, parseWithParam(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// GET /api/tasks/:id
// @Summary Get task
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param with query string false "Comma-separated relations: creator,assignee,organization"
// @Success 200 {object} models.Task
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id} [get]
func (h *TaskHandler) Get(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Get(principal, id, parseWithParam(c))
	if err != nil {
		// Foreign-tenant tasks read as 404 so ids cannot be probed
		respondReadError(c, err, "Task not found")
		return
	}

	c.JSON(http.StatusOK, task)
}

// PATCH /api/tasks/:id
// @Summary Update task
// @Description Update task fields. Status changes go through the status endpoint.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param task body UpdateTaskRequest true "Fields to update"
// @Success 200 {object} models.Task
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id} [patch]
func (h *TaskHandler) Update(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.Update(principal, id, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	})
	if err != nil {
		h.recordTaskEvent(c, "task.update", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"task_id": id,
		})
		respondReadError(c, err, "Task not found")
		return
	}

	h.recordTaskEvent(c, "task.update", task, models.AuditOutcomeSuccess, nil)
	h.events.BroadcastTaskEvent(services.TaskEventUpdated, task, principal.ID)
	c.JSON(http.StatusOK, task)
}

// PATCH /api/tasks/:id/status
// @Summary Update task status
// @Description Move a task through its status lifecycle. Invalid transitions are rejected.
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param status body UpdateTaskStatusRequest true "New status"
// @Success 200 {object} models.Task
// @Failure 400 {object} map[string]string "Invalid request format"
// @Failure 404 {object} map[string]string "Task not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /tasks/{id}/status [patch]
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskService.UpdateStatus(principal, id, req.Status)
	if err != nil {
		h.recordTaskEvent(c, "task.status_change", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"task_id":          id,
			"requested_status": req.Status,
		})
		respondReadError(c, err, "Task not found")
		return
	}

	h.recordTaskEvent(c, "task.status_change", task, models.AuditOutcomeSuccess, map[string]interface{}{
		"new_status": task.Status,
	})
	h.events.BroadcastTaskEvent(services.TaskEventStatusChanged, task, principal.ID)
	c.JSON(http.StatusOK, task)
}

// DELETE /api/tasks/:id
// @Summary Delete task
// @Description Soft delete a task. Deleted tasks disappear from all listings but stay in storage.
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]string "Task deleted"
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.Delete(principal, id)
	if err != nil {
		h.recordTaskEvent(c, "task.delete", nil, models.AuditOutcomeFailure, map[string]interface{}{
			"task_id": id,
		})
		respondReadError(c, err, "Task not found")
		return
	}

	h.recordTaskEvent(c, "task.delete", task, models.AuditOutcomeSuccess, nil)
	h.events.BroadcastTaskEvent(services.TaskEventDeleted, task, principal.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

func (h *TaskHandler) recordTaskEvent(c *gin.Context, action string, task *models.Task, outcome models.AuditOutcome, details map[string]interface{}) {
	principal := middleware.PrincipalFromContext(c)
	entry := services.AuditEntry{
		Action:       action,
		ResourceType: "task",
		Outcome:      outcome,
		Details:      details,
		Meta:         services.MetaFromContext(c),
	}
	if principal != nil {
		entry.ActorID = &principal.ID
		entry.OrganizationID = &principal.OrganizationID
	}
	if task != nil {
		entry.ResourceID = &task.ID
	}
	h.audit.Record(entry)
}
