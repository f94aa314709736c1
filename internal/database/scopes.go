package database

import (
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/utils"
)

// Paginate applies pagination to a GORM query
func Paginate(params utils.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(params.Offset).Limit(params.Limit)
	}
}

// Billable restricts a tasks or milestones query to the rows that count
// against a project's percentage allocation.
func Billable(projectID uint64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("project_id = ? AND is_billable = ?", projectID, true)
	}
}
