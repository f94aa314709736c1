package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning   ProjectStatus = "planning"
	ProjectStatusInProgress ProjectStatus = "in_progress"
	ProjectStatusOnHold     ProjectStatus = "on_hold"
	ProjectStatusCompleted  ProjectStatus = "completed"
)

type Project struct {
	ID          uint64          `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	TotalBudget decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_budget"`
	Status      ProjectStatus   `gorm:"type:varchar(20);not null;default:'planning'" json:"status"`
	ClientID    uint64          `gorm:"not null" json:"client_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Client     User        `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	Tasks      []Task      `gorm:"foreignKey:ProjectID" json:"tasks,omitempty"`
	Milestones []Milestone `gorm:"foreignKey:ProjectID" json:"milestones,omitempty"`
	Invoices   []Invoice   `gorm:"foreignKey:ProjectID" json:"invoices,omitempty"`
}
