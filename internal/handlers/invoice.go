package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/dto"
	apierrors "github.com/buildfolio/construction-portal-api/internal/errors"
	"github.com/buildfolio/construction-portal-api/internal/middleware"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
	"github.com/buildfolio/construction-portal-api/internal/services"
	"github.com/buildfolio/construction-portal-api/internal/utils"
)

// InvoiceHandler coordinates invoice and payment HTTP handlers.
type InvoiceHandler struct {
	invoiceService *services.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
	}
}

// CreateInvoice creates a draft invoice for a project.
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	type CreateInvoiceRequest struct {
		ProjectID             uint64          `json:"project_id" binding:"required"`
		MilestoneID           *uint64         `json:"milestone_id"`
		QuoteID               *uint64         `json:"quote_id"`
		InvoiceNumber         string          `json:"invoice_number"`
		Amount                decimal.Decimal `json:"amount" binding:"required"`
		DueDate               *time.Time      `json:"due_date"`
		StripePaymentIntentID *string         `json:"stripe_payment_intent_id"`
		CustomerName          string          `json:"customer_name"`
		CustomerEmail         string          `json:"customer_email"`
	}

	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(services.CreateInvoiceInput{
		ProjectID:             req.ProjectID,
		MilestoneID:           req.MilestoneID,
		QuoteID:               req.QuoteID,
		InvoiceNumber:         req.InvoiceNumber,
		Amount:                req.Amount,
		DueDate:               req.DueDate,
		StripePaymentIntentID: req.StripePaymentIntentID,
		CustomerName:          req.CustomerName,
		CustomerEmail:         req.CustomerEmail,
	})
	if err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceDTO(*invoice))
}

// GetInvoice returns an invoice with its payment history
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(invoiceID)
	if err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceDTO(*invoice))
}

// ListInvoices returns a paginated invoice listing, optionally filtered
// by project and status.
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.InvoiceFilter{
		Page:     params.Page,
		PageSize: params.Limit,
	}

	if raw := c.Query("project_id"); raw != "" {
		projectID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project ID")
			return
		}
		filter.ProjectID = &projectID
	}
	if raw := c.Query("status"); raw != "" {
		status := models.InvoiceStatus(raw)
		filter.Status = &status
	}

	invoices, total, err := h.invoiceService.ListInvoices(filter)
	if err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceListResponse(invoices, params.Page, params.Limit, total))
}

// UpdateInvoice applies a partial update, including status transitions.
func (h *InvoiceHandler) UpdateInvoice(c *gin.Context) {
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateInvoiceRequest struct {
		Status                *models.InvoiceStatus `json:"status"`
		DueDate               *time.Time            `json:"due_date"`
		StripePaymentIntentID *string               `json:"stripe_payment_intent_id"`
		CustomerName          *string               `json:"customer_name"`
		CustomerEmail         *string               `json:"customer_email"`
	}

	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	invoice, err := h.invoiceService.UpdateInvoice(invoiceID, services.UpdateInvoiceInput{
		Status:                req.Status,
		DueDate:               req.DueDate,
		StripePaymentIntentID: req.StripePaymentIntentID,
		CustomerName:          req.CustomerName,
		CustomerEmail:         req.CustomerEmail,
	})
	if err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToInvoiceDTO(*invoice))
}

// DeleteInvoice removes an invoice that has no recorded payments
func (h *InvoiceHandler) DeleteInvoice(c *gin.Context) {
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.invoiceService.DeleteInvoice(invoiceID); err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invoice deleted successfully"})
}

// RecordPayment appends a manual payment to an invoice and returns the
// invoice with its recomputed status.
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	invoiceID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type RecordPaymentRequest struct {
		Amount        decimal.Decimal `json:"amount" binding:"required"`
		PaymentDate   *time.Time      `json:"payment_date"`
		PaymentMethod string          `json:"payment_method"`
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.RecordPaymentInput{
		InvoiceID:     invoiceID,
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate,
		PaymentMethod: req.PaymentMethod,
	}
	if userID, exists := middleware.GetUserID(c); exists {
		input.RecordedBy = &userID
	}

	invoice, err := h.invoiceService.RecordPayment(input)
	if err != nil {
		respondInvoiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceDTO(*invoice))
}

func respondInvoiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvoiceNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrInvalidProject),
		errors.Is(err, services.ErrNonPositiveAmount),
		errors.Is(err, services.ErrInvalidStatusChange):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvoiceHasPayments),
		errors.Is(err, services.ErrInvoiceNotPayable),
		errors.Is(err, services.ErrPaymentIntentInUse):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
