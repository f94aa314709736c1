package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to the database
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Billable-item reads for the percentage ledger
		{"tasks", "idx_tasks_project_id", "project_id"},
		{"tasks", "idx_tasks_project_billable", "project_id, is_billable"},
		{"milestones", "idx_milestones_project_id", "project_id"},
		{"milestones", "idx_milestones_project_billable", "project_id, is_billable"},
		{"milestones", "idx_milestones_task_id", "task_id"},

		// Invoice lookups
		{"invoices", "idx_invoices_project_id", "project_id"},
		{"invoices", "idx_invoices_status", "status"},
		{"invoices", "idx_invoices_due_date", "due_date"},

		// Payment history per invoice
		{"payments", "idx_payments_invoice_id", "invoice_id"},
	}

	for _, idx := range indexes {
		// Check if index already exists
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			log.Debug("index already exists", zap.String("index", idx.name))
			continue
		}

		// Create index
		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("created index",
			zap.String("index", idx.name),
			zap.String("table", idx.table),
			zap.String("columns", idx.columns),
		)
	}

	return nil
}

// MigrateDatabase runs all database migrations
func MigrateDatabase(db *gorm.DB, log *zap.Logger) error {
	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
