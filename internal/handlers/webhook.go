package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/buildfolio/construction-portal-api/internal/services"
)

// WebhookHandler receives Stripe webhook deliveries. Stripe retries any
// delivery that does not get a 2xx, so only transient failures may
// return a non-2xx status.
type WebhookHandler struct {
	webhookService *services.WebhookService
	signingSecret  string
	logger         *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookService *services.WebhookService, signingSecret string, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		signingSecret:  signingSecret,
		logger:         logger,
	}
}

// HandleStripe verifies the delivery signature against the raw body and
// dispatches payment intent events.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), h.signingSecret)
	if err != nil {
		h.logger.Warn("rejected webhook with invalid signature", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.logger.Error("malformed payment_intent.succeeded payload",
				zap.String("event_id", event.ID), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}

		// Stripe amounts are integer cents.
		amount := decimal.NewFromInt(intent.AmountReceived).Div(decimal.NewFromInt(100))
		if err := h.webhookService.HandlePaymentConfirmed(c.Request.Context(), event.ID, intent.ID, amount); err != nil {
			h.logger.Error("failed to process payment confirmation",
				zap.String("event_id", event.ID),
				zap.String("payment_intent_id", intent.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			h.logger.Error("malformed payment_intent.payment_failed payload",
				zap.String("event_id", event.ID), zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event payload"})
			return
		}

		reason := ""
		if intent.LastPaymentError != nil {
			reason = intent.LastPaymentError.Msg
		}
		if err := h.webhookService.HandlePaymentFailed(c.Request.Context(), event.ID, intent.ID, reason); err != nil {
			h.logger.Error("failed to process payment failure",
				zap.String("event_id", event.ID),
				zap.String("payment_intent_id", intent.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
			return
		}

	default:
		// Acknowledge everything else so Stripe stops redelivering.
		h.logger.Debug("ignoring webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
