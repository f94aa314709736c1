package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

// MilestoneDTO represents a milestone in API responses
type MilestoneDTO struct {
	ID                uint64                   `json:"id"`
	ProjectID         uint64                   `json:"project_id"`
	Title             string                   `json:"title"`
	Description       string                   `json:"description"`
	PlannedDate       time.Time                `json:"planned_date"`
	Category          models.MilestoneCategory `json:"category"`
	Status            models.MilestoneStatus   `json:"status"`
	IsBillable        bool                     `json:"is_billable"`
	BillingPercentage decimal.Decimal          `json:"billing_percentage"`
	TaskID            *uint64                  `json:"task_id"`
	CompletedAt       *time.Time               `json:"completed_at"`
	BilledAt          *time.Time               `json:"billed_at"`
	CreatedAt         time.Time                `json:"created_at"`
	UpdatedAt         time.Time                `json:"updated_at"`
}

// ToMilestoneDTO converts a Milestone model to MilestoneDTO
func ToMilestoneDTO(milestone models.Milestone) MilestoneDTO {
	return MilestoneDTO{
		ID:                milestone.ID,
		ProjectID:         milestone.ProjectID,
		Title:             milestone.Title,
		Description:       milestone.Description,
		PlannedDate:       milestone.PlannedDate,
		Category:          milestone.Category,
		Status:            milestone.Status,
		IsBillable:        milestone.IsBillable,
		BillingPercentage: milestone.BillingPercentage,
		TaskID:            milestone.TaskID,
		CompletedAt:       milestone.CompletedAt,
		BilledAt:          milestone.BilledAt,
		CreatedAt:         milestone.CreatedAt,
		UpdatedAt:         milestone.UpdatedAt,
	}
}

// ToMilestoneDTOs converts a slice of milestones
func ToMilestoneDTOs(milestones []models.Milestone) []MilestoneDTO {
	items := make([]MilestoneDTO, len(milestones))
	for i, milestone := range milestones {
		items[i] = ToMilestoneDTO(milestone)
	}
	return items
}
