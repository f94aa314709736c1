package repository

import (
	"errors"

	"github.com/buildfolio/construction-portal-api/internal/models"
	"gorm.io/gorm"
)

// ErrDuplicateEvent is returned when a processor event ID was already recorded.
var ErrDuplicateEvent = errors.New("webhook event repository: event already recorded")

// ErrEventSettled is returned when a payment's webhook event was already
// moved past received by another delivery.
var ErrEventSettled = errors.New("webhook event repository: event already settled")

// GormWebhookEventRepository is a GORM implementation of WebhookEventRepository
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new WebhookEventRepository
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Record inserts the event. A failed record for the same event ID is taken
// over in place so the processor's redelivery can retry it, and so is a
// received one, which means an earlier delivery died before its payment was
// applied. A processed or skipped record means the delivery is a duplicate.
// The unique index on stripe_event_id backs the check against concurrent
// redeliveries.
func (r *GormWebhookEventRepository) Record(event *models.WebhookEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.WebhookEvent
		err := lockForUpdate(tx).
			Where("stripe_event_id = ?", event.StripeEventID).
			First(&existing).Error
		switch {
		case err == nil:
			if existing.Status != models.WebhookEventFailed &&
				existing.Status != models.WebhookEventReceived {
				return ErrDuplicateEvent
			}
			event.ID = existing.ID
			event.CreatedAt = existing.CreatedAt
			return tx.Save(event).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(event).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost the insert race to a concurrent delivery.
					return ErrDuplicateEvent
				}
				return err
			}
			return nil
		default:
			return err
		}
	})
}

// MarkFailed flags a recorded event so a later redelivery can retry it.
func (r *GormWebhookEventRepository) MarkFailed(id uint64, message string) error {
	return r.db.Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.WebhookEventFailed,
			"message": message,
		}).Error
}
