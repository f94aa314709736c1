package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskTitleRequired    = errors.New("title is required")
	ErrPercentageOutOfRange = errors.New("billing percentage must be between 0 and 100")
	ErrProjectNotFound      = errors.New("project not found")
)

// TaskService handles task business logic, including the billing linkage
// between billable tasks and their auto-created milestones.
type TaskService struct {
	taskRepo      repository.TaskRepository
	milestoneRepo repository.MilestoneRepository
	projectRepo   repository.ProjectRepository
	logger        *zap.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	milestoneRepo repository.MilestoneRepository,
	projectRepo repository.ProjectRepository,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:      taskRepo,
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		logger:        logger,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title             string
	Description       string
	DueDate           *time.Time
	ProjectID         uint64
	IsBillable        bool
	BillingType       models.BillingType
	BillingPercentage decimal.Decimal
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title             *string
	Description       *string
	Status            *models.TaskStatus
	DueDate           *time.Time
	ClearDueDate      bool
	IsBillable        *bool
	BillingPercentage *decimal.Decimal
}

// CreateTask creates a task. The billing percentage is validated against the
// project ledger inside the same transaction as the insert; a billable task
// then gets its milestone counterpart, best-effort.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTaskTitleRequired
	}
	if err := validatePercentageRange(input.BillingPercentage); err != nil {
		return nil, err
	}

	if _, err := s.projectRepo.FindByID(input.ProjectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to verify project: %w", err)
	}

	if input.BillingType == "" {
		input.BillingType = models.BillingTypePercentage
	}

	task := &models.Task{
		Title:             input.Title,
		Description:       input.Description,
		Status:            models.TaskStatusTodo,
		DueDate:           input.DueDate,
		ProjectID:         input.ProjectID,
		IsBillable:        input.IsBillable,
		BillingType:       input.BillingType,
		BillingPercentage: input.BillingPercentage,
	}

	if err := s.taskRepo.CreateValidated(task); err != nil {
		var allocErr *billing.AllocationError
		if errors.As(err, &allocErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if task.IsBillable {
		s.createLinkedMilestone(task)
	}

	return s.taskRepo.FindByID(task.ID, "Milestone")
}

// UpdateTask updates an existing task. Billing changes are validated against
// the ledger excluding the task's own current value, and a linked milestone
// is kept in sync within the same unit of work.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTaskTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.IsBillable != nil {
		task.IsBillable = *input.IsBillable
	}
	if input.BillingPercentage != nil {
		if err := validatePercentageRange(*input.BillingPercentage); err != nil {
			return nil, err
		}
		task.BillingPercentage = *input.BillingPercentage
	}

	if err := s.taskRepo.UpdateValidated(task); err != nil {
		var allocErr *billing.AllocationError
		if errors.As(err, &allocErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	// A task that just became billable gets its milestone counterpart now.
	if task.IsBillable && task.MilestoneID == nil {
		s.createLinkedMilestone(task)
	}

	return s.taskRepo.FindByID(task.ID, "Milestone")
}

// GetTask returns a task with its milestone counterpart
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Milestone")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks returns the project's tasks
func (s *TaskService) ListTasks(projectID uint64) ([]models.Task, error) {
	tasks, err := s.taskRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask deletes a task, nulling out the milestone link
func (s *TaskService) DeleteTask(taskID uint64) error {
	if _, err := s.taskRepo.FindByID(taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// createLinkedMilestone synthesizes the billing counterpart of a billable
// task. Milestone creation is best-effort: the task's percentage already
// passed ledger validation, so a failure here is logged and the task stands.
func (s *TaskService) createLinkedMilestone(task *models.Task) {
	plannedDate := time.Now()
	if task.DueDate != nil {
		plannedDate = *task.DueDate
	}

	milestone := &models.Milestone{
		ProjectID:         task.ProjectID,
		Title:             task.Title,
		PlannedDate:       plannedDate,
		Status:            models.MilestoneStatusPending,
		IsBillable:        true,
		BillingPercentage: task.BillingPercentage,
	}

	if err := s.milestoneRepo.CreateForTask(milestone, task.ID); err != nil {
		s.logger.Warn("failed to create billing milestone for task",
			zap.Uint64("task_id", task.ID),
			zap.Uint64("project_id", task.ProjectID),
			zap.Error(err),
		)
		return
	}

	task.MilestoneID = &milestone.ID
}

// validatePercentageRange rejects percentages outside [0, 100]. The ledger
// check against the project total happens later, inside the write
// transaction.
func validatePercentageRange(p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(billing.FullAllocation) {
		return ErrPercentageOutOfRange
	}
	return nil
}
