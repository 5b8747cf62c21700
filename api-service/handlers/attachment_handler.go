package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskmaster-backend/api-service/middleware"
	"taskmaster-backend/api-service/services"
	"taskmaster-backend/shared/database/models"
)

type AttachmentHandler struct {
	taskService *services.TaskService
	attachments *services.AttachmentService
	audit       *services.AuditService
}

func NewAttachmentHandler(db *gorm.DB, attachments *services.AttachmentService, audit *services.AuditService) *AttachmentHandler {
	return &AttachmentHandler{
		taskService: services.NewTaskService(db),
		attachments: attachments,
		audit:       audit,
	}
}

// resolveTask checks object storage availability and the caller's access
// to the task before any attachment operation runs
func (h *AttachmentHandler) resolveTask(c *gin.Context) (*models.Task, bool) {
	if h.attachments == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Attachment storage is not available"})
		return nil, false
	}

	principal := middleware.PrincipalFromContext(c)
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	task, err := h.taskService.Get(principal, id, nil)
	if err != nil {
		respondReadError(c, err, "Task not found")
		return nil, false
	}
	return task, true
}

// POST /api/tasks/:id/attachments
// @Summary Upload task attachment
// @Description Upload a file attachment for a task via multipart form data
// @Tags attachments
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param file formData file true "File to attach"
// @Success 201 {object} services.AttachmentInfo
// @Failure 400 {object} map[string]string "Missing or oversized file"
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id}/attachments [post]
func (h *AttachmentHandler) Upload(c *gin.Context) {
	task, ok := h.resolveTask(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	info, err := h.attachments.Upload(c.Request.Context(), task.OrganizationID, task.ID,
		fileHeader.Filename, file, fileHeader.Size, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.recordAttachmentEvent(c, "task.attachment_upload", task, models.AuditOutcomeFailure, map[string]interface{}{
			"filename": fileHeader.Filename,
		})
		respondError(c, err)
		return
	}

	h.recordAttachmentEvent(c, "task.attachment_upload", task, models.AuditOutcomeSuccess, map[string]interface{}{
		"filename": info.Name,
		"size":     info.Size,
	})
	c.JSON(http.StatusCreated, info)
}

// GET /api/tasks/:id/attachments
// @Summary List task attachments
// @Tags attachments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Success 200 {object} map[string]interface{} "List of attachments"
// @Failure 404 {object} map[string]string "Task not found"
// @Router /tasks/{id}/attachments [get]
func (h *AttachmentHandler) List(c *gin.Context) {
	task, ok := h.resolveTask(c)
	if !ok {
		return
	}

	infos, err := h.attachments.List(c.Request.Context(), task.OrganizationID, task.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attachments": infos,
		"count":       len(infos),
	})
}

// GET /api/tasks/:id/attachments/:filename
// @Summary Download task attachment
// @Tags attachments
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param filename path string true "Attachment filename"
// @Success 200 {file} binary "Attachment content"
// @Failure 404 {object} map[string]string "Task or attachment not found"
// @Router /tasks/{id}/attachments/{filename} [get]
func (h *AttachmentHandler) Download(c *gin.Context) {
	task, ok := h.resolveTask(c)
	if !ok {
		return
	}

	reader, info, err := h.attachments.Download(c.Request.Context(), task.OrganizationID, task.ID, c.Param("filename"))
	if err != nil {
		respondError(c, err)
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", `attachment; filename="`+info.Name+`"`)
	c.Header("Content-Type", info.ContentType)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, reader); err != nil {
		// Headers already went out, nothing left to report to the client
		return
	}
}

// DELETE /api/tasks/:id/attachments/:filename
// @Summary Delete task attachment
// @Tags attachments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Task ID"
// @Param filename path string true "Attachment filename"
// @Success 200 {object} map[string]string "Attachment deleted"
// @Failure 404 {object} map[string]string "Task or attachment not found"
// @Router /tasks/{id}/attachments/{filename} [delete]
func (h *AttachmentHandler) Delete(c *gin.Context) {
	task, ok := h.resolveTask(c)
	if !ok {
		return
	}

	filename := c.Param("filename")
	if err := h.attachments.Delete(c.Request.Context(), task.OrganizationID, task.ID, filename); err != nil {
		h.recordAttachmentEvent(c, "task.attachment_delete", task, models.AuditOutcomeFailure, map[string]interface{}{
			"filename": filename,
		})
		respondError(c, err)
		return
	}

	h.recordAttachmentEvent(c, "task.attachment_delete", task, models.AuditOutcomeSuccess, map[string]interface{}{
		"filename": filename,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Attachment deleted successfully"})
}

func (h *AttachmentHandler) recordAttachmentEvent(c *gin.Context, action string, task *models.Task, outcome models.AuditOutcome, details map[string]interface{}) {
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
