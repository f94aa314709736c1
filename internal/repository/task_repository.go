package repository

import (
	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// CreateValidated creates a task after validating its billing percentage
// against the project ledger. Validation and insert share one transaction so
// a concurrent allocation cannot slip between the read and the write.
func (r *GormTaskRepository) CreateValidated(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if task.CountsTowardLedger() {
			totals, err := lockedTotals(tx, task.ProjectID, billing.SumOptions{})
			if err != nil {
				return err
			}
			if err := billing.ValidateAllocation(totals, task.BillingPercentage); err != nil {
				return err
			}
		}

		return tx.Create(task).Error
	})
}

// UpdateValidated persists task changes under ledger validation, excluding
// the task's own current value from the totals. A linked milestone receives
// the new billing percentage in the same transaction.
func (r *GormTaskRepository) UpdateValidated(task *models.Task) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if task.CountsTowardLedger() {
			totals, err := lockedTotals(tx, task.ProjectID, billing.SumOptions{
				ExcludeTaskID: &task.ID,
			})
			if err != nil {
				return err
			}
			if err := billing.ValidateAllocation(totals, task.BillingPercentage); err != nil {
				return err
			}
		}

		if err := tx.Save(task).Error; err != nil {
			return err
		}

		if task.MilestoneID != nil {
			if err := tx.Model(&models.Milestone{}).
				Where("id = ?", *task.MilestoneID).
				Updates(map[string]interface{}{
					"billing_percentage": task.BillingPercentage,
					"is_billable":        task.IsBillable,
				}).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// ListByProject retrieves the project's tasks
func (r *GormTaskRepository) ListByProject(projectID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Delete soft deletes a task. The milestone side of the link is nulled out;
// the milestone itself survives.
func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Milestone{}).
			Where("task_id = ?", id).
			Update("task_id", nil).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Task{}, id).Error
	})
}
