package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment rows are append-only. Corrections are made by recording a
// compensating payment, never by editing history.
type Payment struct {
	ID            uint64          `gorm:"primarykey" json:"id"`
	InvoiceID     uint64          `gorm:"not null;index" json:"invoice_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`
	PaymentMethod string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	// RecordedBy is nil for payments created by webhook reconciliation,
	// where no human actor exists.
	RecordedBy *uint64 `json:"recorded_by"`
	// WebhookEventID links a reconciled payment to the delivery that
	// produced it. The event record is marked processed in the same
	// transaction that inserts the payment.
	WebhookEventID *uint64   `gorm:"index" json:"webhook_event_id"`
	CreatedAt      time.Time `json:"created_at"`

	// Relations
	Invoice  Invoice `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	Recorder *User   `gorm:"foreignKey:RecordedBy" json:"recorder,omitempty"`
}
