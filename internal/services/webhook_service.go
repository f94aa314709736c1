package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/constants"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
	"github.com/buildfolio/construction-portal-api/internal/utils"
)

// WebhookService reconciles payment-processor events into invoice, payment,
// milestone and project state. The processor delivers at least once and in no
// particular order, so every path here has to tolerate replays: the redis
// deduper is a fast path, the webhook_events unique index is the authority,
// and the invoice-state check catches anything that slips past both.
type WebhookService struct {
	invoiceRepo repository.InvoiceRepository
	eventRepo   repository.WebhookEventRepository
	invoiceSvc  *InvoiceService
	deduper     *utils.Deduper
	logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService. The deduper may be nil
// when redis is not configured.
func NewWebhookService(
	invoiceRepo repository.InvoiceRepository,
	eventRepo repository.WebhookEventRepository,
	invoiceSvc *InvoiceService,
	deduper *utils.Deduper,
	logger *zap.Logger,
) *WebhookService {
	return &WebhookService{
		invoiceRepo: invoiceRepo,
		eventRepo:   eventRepo,
		invoiceSvc:  invoiceSvc,
		deduper:     deduper,
		logger:      logger,
	}
}

// HandlePaymentConfirmed applies a confirmed payment to its invoice. A nil
// return acknowledges the event; an error tells the processor to redeliver.
func (s *WebhookService) HandlePaymentConfirmed(ctx context.Context, eventID, paymentIntentID string, amount decimal.Decimal) error {
	if s.deduper != nil && !s.deduper.AcquireOnce(ctx, eventID) {
		s.logger.Info("duplicate webhook event short-circuited",
			zap.String("event_id", eventID),
		)
		return nil
	}

	record := &models.WebhookEvent{
		StripeEventID:   eventID,
		EventType:       "payment_intent.succeeded",
		PaymentIntentID: paymentIntentID,
		Status:          models.WebhookEventReceived,
	}

	invoice, err := s.invoiceRepo.FindByPaymentIntentID(paymentIntentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not ours. Down-payment and quote invoices from other
			// workflows carry intents this engine never sees.
			s.logger.Info("no invoice for payment intent, acknowledging",
				zap.String("event_id", eventID),
				zap.String("payment_intent_id", paymentIntentID),
			)
			record.Status = models.WebhookEventSkipped
			record.Message = "no invoice for payment intent"
			s.recordEvent(record)
			return nil
		}
		s.releaseDedup(ctx, eventID)
		return fmt.Errorf("failed to look up invoice: %w", err)
	}
	record.InvoiceID = &invoice.ID

	// Replay of an already-settled payment: acknowledge without a new
	// payment row, but re-run settlement in case a side effect was missed.
	if invoice.Status == models.InvoiceStatusPaid && amount.LessThanOrEqual(invoice.TotalPaid()) {
		s.logger.Info("invoice already paid, skipping duplicate confirmation",
			zap.String("event_id", eventID),
			zap.Uint64("invoice_id", invoice.ID),
		)
		s.invoiceSvc.FinalizePaid(invoice)
		record.Status = models.WebhookEventSkipped
		record.Message = "invoice already paid"
		s.recordEvent(record)
		return nil
	}

	// Durable dedup before money moves: a redelivery that raced past the
	// cache stops here. The record starts as received and only becomes
	// processed inside the payment transaction, so a crash between the two
	// leaves a row the next redelivery takes over and retries.
	if err := s.eventRepo.Record(record); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			s.logger.Info("webhook event already recorded, acknowledging",
				zap.String("event_id", eventID),
			)
			return nil
		}
		s.releaseDedup(ctx, eventID)
		return fmt.Errorf("failed to record webhook event: %w", err)
	}

	if _, err := s.invoiceSvc.RecordPayment(RecordPaymentInput{
		InvoiceID:      invoice.ID,
		Amount:         amount,
		PaymentMethod:  constants.DefaultPaymentMethod,
		WebhookEventID: &record.ID,
	}); err != nil {
		if errors.Is(err, repository.ErrEventSettled) {
			s.logger.Info("webhook event settled by a concurrent delivery",
				zap.String("event_id", eventID),
			)
			return nil
		}
		if markErr := s.eventRepo.MarkFailed(record.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to flag webhook event for retry",
				zap.String("event_id", eventID),
				zap.Error(markErr),
			)
		}
		s.releaseDedup(ctx, eventID)
		return fmt.Errorf("failed to apply confirmed payment: %w", err)
	}

	s.logger.Info("payment confirmation reconciled",
		zap.String("event_id", eventID),
		zap.Uint64("invoice_id", invoice.ID),
		zap.String("amount", amount.StringFixed(2)),
	)
	return nil
}

// HandlePaymentFailed records a failed payment attempt. The event is never
// discarded: a durable row exists for support even when no invoice matches.
// A sent invoice is moved to overdue so the failure is visible to the client.
func (s *WebhookService) HandlePaymentFailed(ctx context.Context, eventID, paymentIntentID, reason string) error {
	if s.deduper != nil && !s.deduper.AcquireOnce(ctx, eventID) {
		return nil
	}

	record := &models.WebhookEvent{
		StripeEventID:   eventID,
		EventType:       "payment_intent.payment_failed",
		PaymentIntentID: paymentIntentID,
		Status:          models.WebhookEventProcessed,
		Message:         reason,
	}

	invoice, err := s.invoiceRepo.FindByPaymentIntentID(paymentIntentID)
	switch {
	case err == nil:
		record.InvoiceID = &invoice.ID
		s.logger.Warn("payment failed for invoice",
			zap.String("event_id", eventID),
			zap.Uint64("invoice_id", invoice.ID),
			zap.String("reason", reason),
		)
		if invoice.Status == models.InvoiceStatusSent {
			invoice.Status = models.InvoiceStatusOverdue
			if err := s.invoiceRepo.Save(invoice); err != nil {
				s.releaseDedup(ctx, eventID)
				return fmt.Errorf("failed to mark invoice overdue: %w", err)
			}
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn("payment failed for unknown payment intent",
			zap.String("event_id", eventID),
			zap.String("payment_intent_id", paymentIntentID),
			zap.String("reason", reason),
		)
	default:
		s.releaseDedup(ctx, eventID)
		return fmt.Errorf("failed to look up invoice: %w", err)
	}

	s.recordEvent(record)
	return nil
}

// recordEvent persists the delivery record best-effort. Acknowledged events
// are not worth a redelivery loop over a bookkeeping insert; duplicates are
// expected on replays.
func (s *WebhookService) recordEvent(record *models.WebhookEvent) {
	if err := s.eventRepo.Record(record); err != nil && !errors.Is(err, repository.ErrDuplicateEvent) {
		s.logger.Error("failed to record webhook event",
			zap.String("event_id", record.StripeEventID),
			zap.Error(err),
		)
	}
}

// releaseDedup drops the fast-path lock so the processor's redelivery is not
// swallowed by the cache after a transient failure.
func (s *WebhookService) releaseDedup(ctx context.Context, eventID string) {
	if s.deduper != nil {
		s.deduper.Release(ctx, eventID)
	}
}
