package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "TODO"
	TaskStatusDone TaskStatus = "DONE"
)

type BillingType string

const (
	// BillingTypePercentage tasks consume part of the project's 100%
	// billing allocation.
	BillingTypePercentage BillingType = "percentage"
	// BillingTypeFixed tasks are billed at a flat amount and stay outside
	// the percentage ledger.
	BillingTypeFixed BillingType = "fixed"
)

type Task struct {
	ID                uint64          `gorm:"primarykey" json:"id"`
	Title             string          `gorm:"not null" json:"title"`
	Description       string          `gorm:"type:text" json:"description"`
	Status            TaskStatus      `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	DueDate           *time.Time      `json:"due_date"`
	ProjectID         uint64          `gorm:"not null" json:"project_id"`
	IsBillable        bool            `gorm:"not null;default:false" json:"is_billable"`
	BillingType       BillingType     `gorm:"type:varchar(20);not null;default:'percentage'" json:"billing_type"`
	BillingPercentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"billing_percentage"`
	MilestoneID       *uint64         `json:"milestone_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Project   Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Milestone *Milestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
}

// CountsTowardLedger reports whether the task consumes a share of the
// project's percentage allocation.
func (t *Task) CountsTowardLedger() bool {
	return t.IsBillable && t.BillingType == BillingTypePercentage
}
