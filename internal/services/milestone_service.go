package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
)

var (
	ErrMilestoneNotFound      = errors.New("milestone not found")
	ErrMilestoneTitleRequired = errors.New("title is required")
	ErrMilestoneTaskOwned     = errors.New("billing percentage of a task-linked milestone is managed through the task")
	ErrMilestoneNotPending    = errors.New("milestone is not pending")
)

// MilestoneService handles milestone business logic
type MilestoneService struct {
	milestoneRepo repository.MilestoneRepository
	projectRepo   repository.ProjectRepository
}

// NewMilestoneService creates a new MilestoneService
func NewMilestoneService(milestoneRepo repository.MilestoneRepository, projectRepo repository.ProjectRepository) *MilestoneService {
	return &MilestoneService{
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
	}
}

// CreateMilestoneInput represents input for creating a milestone
type CreateMilestoneInput struct {
	ProjectID         uint64
	Title             string
	Description       string
	PlannedDate       time.Time
	Category          models.MilestoneCategory
	IsBillable        bool
	BillingPercentage decimal.Decimal
}

// UpdateMilestoneInput represents input for updating a milestone
type UpdateMilestoneInput struct {
	Title             *string
	Description       *string
	PlannedDate       *time.Time
	IsBillable        *bool
	BillingPercentage *decimal.Decimal
}

// CreateMilestone creates a standalone milestone, validating any billing
// percentage against the project ledger inside the write transaction.
func (s *MilestoneService) CreateMilestone(input CreateMilestoneInput) (*models.Milestone, error) {
	if input.Title == "" {
		return nil, ErrMilestoneTitleRequired
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

	if input.Category == "" {
		input.Category = models.MilestoneCategoryGeneral
	}
	if input.PlannedDate.IsZero() {
		input.PlannedDate = time.Now()
	}

	milestone := &models.Milestone{
		ProjectID:         input.ProjectID,
		Title:             input.Title,
		Description:       input.Description,
		PlannedDate:       input.PlannedDate,
		Category:          input.Category,
		Status:            models.MilestoneStatusPending,
		IsBillable:        input.IsBillable,
		BillingPercentage: input.BillingPercentage,
	}

	if err := s.milestoneRepo.CreateValidated(milestone); err != nil {
		var allocErr *billing.AllocationError
		if errors.As(err, &allocErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	return milestone, nil
}

// UpdateMilestone updates a milestone. Billing fields of a task-linked
// milestone are owned by the task and rejected here; everything else is a
// normal ledger-validated update.
func (s *MilestoneService) UpdateMilestone(milestoneID uint64, input UpdateMilestoneInput) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}

	if milestone.TaskID != nil && (input.BillingPercentage != nil || input.IsBillable != nil) {
		return nil, ErrMilestoneTaskOwned
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrMilestoneTitleRequired
		}
		milestone.Title = *input.Title
	}
	if input.Description != nil {
		milestone.Description = *input.Description
	}
	if input.PlannedDate != nil {
		milestone.PlannedDate = *input.PlannedDate
	}
	if input.IsBillable != nil {
		milestone.IsBillable = *input.IsBillable
	}
	if input.BillingPercentage != nil {
		if err := validatePercentageRange(*input.BillingPercentage); err != nil {
			return nil, err
		}
		milestone.BillingPercentage = *input.BillingPercentage
	}

	if err := s.milestoneRepo.UpdateValidated(milestone); err != nil {
		var allocErr *billing.AllocationError
		if errors.As(err, &allocErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	return milestone, nil
}

// GetMilestone returns a milestone with its task counterpart
func (s *MilestoneService) GetMilestone(milestoneID uint64) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(milestoneID, "Task")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}
	return milestone, nil
}

// ListMilestones returns the project's milestones
func (s *MilestoneService) ListMilestones(projectID uint64) ([]models.Milestone, error) {
	milestones, err := s.milestoneRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// CompleteMilestone advances a pending milestone to completed
func (s *MilestoneService) CompleteMilestone(milestoneID uint64) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.MarkCompleted(milestoneID)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrMilestoneNotFound
		case errors.Is(err, repository.ErrMilestoneNotPending):
			return nil, ErrMilestoneNotPending
		}
		return nil, fmt.Errorf("failed to complete milestone: %w", err)
	}
	return milestone, nil
}

// DeleteMilestone deletes a milestone, nulling out the task link
func (s *MilestoneService) DeleteMilestone(milestoneID uint64) error {
	if _, err := s.milestoneRepo.FindByID(milestoneID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMilestoneNotFound
		}
		return fmt.Errorf("failed to find milestone: %w", err)
	}

	if err := s.milestoneRepo.Delete(milestoneID); err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}

	return nil
}
