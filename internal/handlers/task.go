package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/dto"
	apierrors "github.com/buildfolio/construction-portal-api/internal/errors"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/services"
)

// TaskHandler coordinates task HTTP handlers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask creates a task; billable tasks get a milestone counterpart.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		Title             string             `json:"title" binding:"required"`
		Description       string             `json:"description"`
		DueDate           *time.Time         `json:"due_date"`
		ProjectID         uint64             `json:"project_id" binding:"required"`
		IsBillable        bool               `json:"is_billable"`
		BillingType       models.BillingType `json:"billing_type"`
		BillingPercentage decimal.Decimal    `json:"billing_percentage"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           req.DueDate,
		ProjectID:         req.ProjectID,
		IsBillable:        req.IsBillable,
		BillingType:       req.BillingType,
		BillingPercentage: req.BillingPercentage,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns a task with its milestone counterpart
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(taskID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// ListTasks returns the project's tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tasks, err := h.taskService.ListTasks(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToTaskDTOs(tasks),
	})
}

// UpdateTask applies a partial task patch
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title             *string            `json:"title"`
		Description       *string            `json:"description"`
		Status            *models.TaskStatus `json:"status"`
		DueDate           *time.Time         `json:"due_date"`
		ClearDueDate      bool               `json:"clear_due_date"`
		IsBillable        *bool              `json:"is_billable"`
		BillingPercentage *decimal.Decimal   `json:"billing_percentage"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.UpdateTask(taskID, services.UpdateTaskInput{
		Title:             req.Title,
		Description:       req.Description,
		Status:            req.Status,
		DueDate:           req.DueDate,
		ClearDueDate:      req.ClearDueDate,
		IsBillable:        req.IsBillable,
		BillingPercentage: req.BillingPercentage,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(taskID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

func respondTaskError(c *gin.Context, err error) {
	var allocErr *billing.AllocationError
	switch {
	case errors.As(err, &allocErr):
		apierrors.BillingLimitExceeded(c, allocErr.Error(), gin.H{
			"current_total": allocErr.Total.StringFixed(2),
			"remaining":     allocErr.Remaining.StringFixed(2),
		})
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrPercentageOutOfRange):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

// parseIDParam parses a numeric path parameter, responding 400 on failure
func parseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid "+name+" parameter")
		return 0, false
	}
	return id, true
}
