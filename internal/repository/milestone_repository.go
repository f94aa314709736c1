package repository

import (
	"errors"
	"time"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrMilestoneNotPending is returned when completing a milestone that
	// already left the pending state.
	ErrMilestoneNotPending = errors.New("milestone repository: milestone is not pending")
)

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

// CreateValidated creates a milestone after validating its billing percentage
// against the project ledger, in the same transaction as the insert.
func (r *GormMilestoneRepository) CreateValidated(milestone *models.Milestone) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if milestone.IsBillable && milestone.TaskID == nil {
			totals, err := lockedTotals(tx, milestone.ProjectID, billing.SumOptions{})
			if err != nil {
				return err
			}
			if err := billing.ValidateAllocation(totals, milestone.BillingPercentage); err != nil {
				return err
			}
		}

		return tx.Create(milestone).Error
	})
}

// CreateForTask creates the billing counterpart of a billable task and links
// the task back to it atomically. The task's percentage already passed ledger
// validation, so none is repeated here.
func (r *GormMilestoneRepository) CreateForTask(milestone *models.Milestone, taskID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		milestone.TaskID = &taskID
		milestone.Category = models.MilestoneCategoryBillableTask

		if err := tx.Create(milestone).Error; err != nil {
			return err
		}

		return tx.Model(&models.Task{}).
			Where("id = ?", taskID).
			Update("milestone_id", milestone.ID).Error
	})
}

// UpdateValidated persists milestone changes under ledger validation,
// excluding the milestone's own current value from the totals.
func (r *GormMilestoneRepository) UpdateValidated(milestone *models.Milestone) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if milestone.IsBillable && milestone.TaskID == nil {
			totals, err := lockedTotals(tx, milestone.ProjectID, billing.SumOptions{
				ExcludeMilestoneID: &milestone.ID,
			})
			if err != nil {
				return err
			}
			if err := billing.ValidateAllocation(totals, milestone.BillingPercentage); err != nil {
				return err
			}
		}

		return tx.Save(milestone).Error
	})
}

// FindByID finds a milestone by ID with optional preloading
func (r *GormMilestoneRepository) FindByID(id uint64, preload ...string) (*models.Milestone, error) {
	var milestone models.Milestone
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&milestone, id).Error; err != nil {
		return nil, err
	}

	return &milestone, nil
}

// ListByProject retrieves the project's milestones
func (r *GormMilestoneRepository) ListByProject(projectID uint64) ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := r.db.Where("project_id = ?", projectID).
		Order("planned_date ASC").
		Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// MarkCompleted advances a pending milestone to completed
func (r *GormMilestoneRepository) MarkCompleted(id uint64) (*models.Milestone, error) {
	var milestone models.Milestone

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&milestone, id).Error; err != nil {
			return err
		}

		if milestone.Status != models.MilestoneStatusPending {
			return ErrMilestoneNotPending
		}

		now := time.Now()
		milestone.Status = models.MilestoneStatusCompleted
		milestone.CompletedAt = &now

		return tx.Save(&milestone).Error
	})
	if err != nil {
		return nil, err
	}

	return &milestone, nil
}

// MarkBilled stamps a milestone as billed. Called when the invoice tied to
// the milestone is fully paid; already-billed milestones are left alone.
func (r *GormMilestoneRepository) MarkBilled(id uint64) error {
	return r.db.Model(&models.Milestone{}).
		Where("id = ? AND status <> ?", id, models.MilestoneStatusBilled).
		Updates(map[string]interface{}{
			"status":    models.MilestoneStatusBilled,
			"billed_at": time.Now(),
		}).Error
}

// Delete soft deletes a milestone and nulls out the task side of the link
func (r *GormMilestoneRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("milestone_id = ?", id).
			Update("milestone_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Milestone{}, id).Error
	})
}
