package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    uint64          `json:"id"`
	Email string          `json:"email"`
	Name  string          `json:"name"`
	Role  models.UserRole `json:"role"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                uint64             `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Status            models.TaskStatus  `json:"status"`
	DueDate           *time.Time         `json:"due_date"`
	ProjectID         uint64             `json:"project_id"`
	IsBillable        bool               `json:"is_billable"`
	BillingType       models.BillingType `json:"billing_type"`
	BillingPercentage decimal.Decimal    `json:"billing_percentage"`
	MilestoneID       *uint64            `json:"milestone_id"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	Milestone         *MilestoneDTO      `json:"milestone,omitempty"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                task.ID,
		Title:             task.Title,
		Description:       task.Description,
		Status:            task.Status,
		DueDate:           task.DueDate,
		ProjectID:         task.ProjectID,
		IsBillable:        task.IsBillable,
		BillingType:       task.BillingType,
		BillingPercentage: task.BillingPercentage,
		MilestoneID:       task.MilestoneID,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}

	// Include milestone if preloaded
	if task.Milestone != nil {
		milestone := ToMilestoneDTO(*task.Milestone)
		dto.Milestone = &milestone
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}
