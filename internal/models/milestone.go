package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
	MilestoneStatusBilled    MilestoneStatus = "billed"
	MilestoneStatusCancelled MilestoneStatus = "cancelled"
)

type MilestoneCategory string

const (
	MilestoneCategoryGeneral MilestoneCategory = "general"
	// MilestoneCategoryBillableTask marks milestones auto-created as the
	// billing counterpart of a billable task.
	MilestoneCategoryBillableTask MilestoneCategory = "billable_task"
)

type Milestone struct {
	ID                uint64            `gorm:"primarykey" json:"id"`
	ProjectID         uint64            `gorm:"not null" json:"project_id"`
	Title             string            `gorm:"not null" json:"title"`
	Description       string            `gorm:"type:text" json:"description"`
	PlannedDate       time.Time         `gorm:"not null" json:"planned_date"`
	Category          MilestoneCategory `gorm:"type:varchar(30);not null;default:'general'" json:"category"`
	Status            MilestoneStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	IsBillable        bool              `gorm:"not null;default:false" json:"is_billable"`
	BillingPercentage decimal.Decimal   `gorm:"type:decimal(5,2);not null;default:0" json:"billing_percentage"`
	TaskID            *uint64           `json:"task_id"`
	CompletedAt       *time.Time        `json:"completed_at"`
	BilledAt          *time.Time        `json:"billed_at"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `gorm:"index" json:"-"`

	// Relations
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Task    *Task   `gorm:"foreignKey:TaskID" json:"task,omitempty"`
}
