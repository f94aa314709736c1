package models

import "time"

type WebhookEventStatus string

const (
	// WebhookEventReceived marks a delivery whose payment has not been
	// applied yet. A redelivery may take the record over; it only becomes
	// processed inside the payment transaction.
	WebhookEventReceived  WebhookEventStatus = "received"
	WebhookEventProcessed WebhookEventStatus = "processed"
	WebhookEventSkipped   WebhookEventStatus = "skipped"
	WebhookEventFailed    WebhookEventStatus = "failed"
)

// WebhookEvent keeps a durable record of every payment-processor delivery.
// The unique index on StripeEventID is the authoritative dedup for
// redelivered events.
type WebhookEvent struct {
	ID              uint64             `gorm:"primarykey" json:"id"`
	StripeEventID   string             `gorm:"type:varchar(255);uniqueIndex;not null" json:"stripe_event_id"`
	EventType       string             `gorm:"type:varchar(100);not null" json:"event_type"`
	PaymentIntentID string             `gorm:"type:varchar(255);index" json:"payment_intent_id"`
	InvoiceID       *uint64            `json:"invoice_id"`
	Status          WebhookEventStatus `gorm:"type:varchar(20);not null" json:"status"`
	Message         string             `gorm:"type:text" json:"message"`
	CreatedAt       time.Time          `json:"created_at"`
}
