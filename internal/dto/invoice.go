package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

// PaymentDTO represents a payment in API responses
type PaymentDTO struct {
	ID            uint64          `json:"id"`
	InvoiceID     uint64          `json:"invoice_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentMethod string          `json:"payment_method"`
	RecordedBy    *uint64         `json:"recorded_by"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InvoiceDTO represents an invoice in API responses
type InvoiceDTO struct {
	ID                    uint64               `json:"id"`
	ProjectID             uint64               `json:"project_id"`
	MilestoneID           *uint64              `json:"milestone_id,omitempty"`
	QuoteID               *uint64              `json:"quote_id,omitempty"`
	InvoiceNumber         string               `json:"invoice_number"`
	Amount                decimal.Decimal      `json:"amount"`
	TotalPaid             decimal.Decimal      `json:"total_paid"`
	Status                models.InvoiceStatus `json:"status"`
	DueDate               *time.Time           `json:"due_date"`
	StripePaymentIntentID *string              `json:"stripe_payment_intent_id,omitempty"`
	CustomerName          string               `json:"customer_name"`
	CustomerEmail         string               `json:"customer_email"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
	Payments              []PaymentDTO         `json:"payments,omitempty"`
}

// InvoiceListResponse represents a paginated list of invoices
type InvoiceListResponse struct {
	Invoices   []InvoiceDTO `json:"invoices"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
}

// ToPaymentDTO converts a Payment model to PaymentDTO
func ToPaymentDTO(payment models.Payment) PaymentDTO {
	return PaymentDTO{
		ID:            payment.ID,
		InvoiceID:     payment.InvoiceID,
		Amount:        payment.Amount,
		PaymentDate:   payment.PaymentDate,
		PaymentMethod: payment.PaymentMethod,
		RecordedBy:    payment.RecordedBy,
		CreatedAt:     payment.CreatedAt,
	}
}

// ToInvoiceDTO converts an Invoice model to InvoiceDTO
func ToInvoiceDTO(invoice models.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:                    invoice.ID,
		ProjectID:             invoice.ProjectID,
		MilestoneID:           invoice.MilestoneID,
		QuoteID:               invoice.QuoteID,
		InvoiceNumber:         invoice.InvoiceNumber,
		Amount:                invoice.Amount,
		TotalPaid:             invoice.TotalPaid(),
		Status:                invoice.Status,
		DueDate:               invoice.DueDate,
		StripePaymentIntentID: invoice.StripePaymentIntentID,
		CustomerName:          invoice.CustomerName,
		CustomerEmail:         invoice.CustomerEmail,
		CreatedAt:             invoice.CreatedAt,
		UpdatedAt:             invoice.UpdatedAt,
	}

	// Include payments if preloaded
	if len(invoice.Payments) > 0 {
		dto.Payments = make([]PaymentDTO, len(invoice.Payments))
		for i, payment := range invoice.Payments {
			dto.Payments[i] = ToPaymentDTO(payment)
		}
	}

	return dto
}

// ToInvoiceListResponse converts a slice of invoices to InvoiceListResponse
func ToInvoiceListResponse(invoices []models.Invoice, page, pageSize int, totalCount int64) InvoiceListResponse {
	items := make([]InvoiceDTO, len(invoices))
	for i, invoice := range invoices {
		items[i] = ToInvoiceDTO(invoice)
	}

	return InvoiceListResponse{
		Invoices:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
	}
}
