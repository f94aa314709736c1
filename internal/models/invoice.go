package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusCancelled     InvoiceStatus = "cancelled"
)

type Invoice struct {
	ID                    uint64          `gorm:"primarykey" json:"id"`
	ProjectID             uint64          `gorm:"not null" json:"project_id"`
	MilestoneID           *uint64         `json:"milestone_id"`
	QuoteID               *uint64         `json:"quote_id"`
	InvoiceNumber         string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"invoice_number"`
	Amount                decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status                InvoiceStatus   `gorm:"type:varchar(20);not null;default:'draft'" json:"status"`
	DueDate               *time.Time      `json:"due_date"`
	StripePaymentIntentID *string         `gorm:"type:varchar(255);uniqueIndex" json:"stripe_payment_intent_id"`
	CustomerName          string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail         string          `gorm:"type:varchar(255)" json:"customer_email"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
	DeletedAt             gorm.DeletedAt  `gorm:"index" json:"-"`

	// Relations
	Project   Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Milestone *Milestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	Payments  []Payment  `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// TotalPaid sums the loaded payments. Callers must preload Payments first.
func (i *Invoice) TotalPaid() decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Payments {
		total = total.Add(p.Amount)
	}
	return total
}
