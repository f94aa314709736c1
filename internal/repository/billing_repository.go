package repository

import (
	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/database"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillingRepository is a GORM implementation of BillingRepository
type GormBillingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new BillingRepository
func NewBillingRepository(db *gorm.DB) BillingRepository {
	return &GormBillingRepository{db: db}
}

// lockForUpdate applies a row lock to the query. SQLite has no FOR UPDATE in
// its grammar and serializes writers anyway, so the clause is skipped there
// (test databases).
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// billableItems reads the project's billable tasks and milestones. When
// locked is true the rows are read FOR UPDATE, which closes the race where
// two concurrent writers both see enough remaining allocation.
//
// Each read chains fresh from tx. A chained gorm instance is not reusable
// after Find: the second query would keep the first statement's model and
// scan task rows into the milestone slice.
func billableItems(tx *gorm.DB, projectID uint64, locked bool) ([]models.Task, []models.Milestone, error) {
	taskQuery := tx.Scopes(database.Billable(projectID))
	if locked {
		taskQuery = lockForUpdate(taskQuery)
	}
	var tasks []models.Task
	if err := taskQuery.Find(&tasks).Error; err != nil {
		return nil, nil, err
	}

	milestoneQuery := tx.Scopes(database.Billable(projectID))
	if locked {
		milestoneQuery = lockForUpdate(milestoneQuery)
	}
	var milestones []models.Milestone
	if err := milestoneQuery.Find(&milestones).Error; err != nil {
		return nil, nil, err
	}

	return tasks, milestones, nil
}

// lockedTotals recomputes the ledger under row locks. Must be called inside
// the transaction that performs the subsequent write.
func lockedTotals(tx *gorm.DB, projectID uint64, opts billing.SumOptions) (billing.Totals, error) {
	tasks, milestones, err := billableItems(tx, projectID, true)
	if err != nil {
		return billing.Totals{}, err
	}
	return billing.SumItems(tasks, milestones, opts), nil
}

// ListBillable returns the project's billable tasks and milestones
func (r *GormBillingRepository) ListBillable(projectID uint64) ([]models.Task, []models.Milestone, error) {
	return billableItems(r.db, projectID, false)
}
