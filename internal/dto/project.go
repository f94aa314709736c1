package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	TotalBudget decimal.Decimal      `json:"total_budget"`
	Status      models.ProjectStatus `json:"status"`
	ClientID    uint64               `json:"client_id"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Description: project.Description,
		TotalBudget: project.TotalBudget,
		Status:      project.Status,
		ClientID:    project.ClientID,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
}

// BillingSummaryDTO represents a project's percentage ledger in API
// responses, with the items that consume the allocation.
type BillingSummaryDTO struct {
	FromTasks          decimal.Decimal `json:"from_tasks"`
	FromMilestones     decimal.Decimal `json:"from_milestones"`
	GrandTotal         decimal.Decimal `json:"grand_total"`
	Remaining          decimal.Decimal `json:"remaining"`
	HasPaidInvoice     bool            `json:"has_paid_invoice"`
	BillableTasks      []TaskDTO       `json:"billable_tasks"`
	BillableMilestones []MilestoneDTO  `json:"billable_milestones"`
}

// ToBillingSummaryDTO assembles the billing summary response
func ToBillingSummaryDTO(totals billing.Totals, hasPaidInvoice bool, tasks []models.Task, milestones []models.Milestone) BillingSummaryDTO {
	return BillingSummaryDTO{
		FromTasks:          totals.FromTasks,
		FromMilestones:     totals.FromMilestones,
		GrandTotal:         totals.GrandTotal,
		Remaining:          totals.Remaining,
		HasPaidInvoice:     hasPaidInvoice,
		BillableTasks:      ToTaskDTOs(tasks),
		BillableMilestones: ToMilestoneDTOs(milestones),
	}
}

// ToProjectDTOs converts a slice of Project models to ProjectDTOs
func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	dtos := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		dtos[i] = ToProjectDTO(project)
	}
	return dtos
}
