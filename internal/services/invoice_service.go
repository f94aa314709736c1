package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
	"github.com/buildfolio/construction-portal-api/internal/utils"
)

var (
	ErrInvoiceNotFound          = errors.New("invoice not found")
	ErrInvalidProject           = errors.New("invalid project")
	ErrNonPositiveAmount        = errors.New("amount must be greater than zero")
	ErrInvoiceHasPayments       = errors.New("invoice has recorded payments and cannot be deleted")
	ErrInvalidStatusChange      = errors.New("invoice status change is not allowed")
	ErrInvoiceNotPayable        = errors.New("payments cannot be recorded against a cancelled invoice")
	ErrMilestoneNotBillable     = errors.New("milestone is not billable")
	ErrMilestoneNotCompleted    = errors.New("milestone must be completed before invoicing")
	ErrMilestoneAlreadyInvoiced = errors.New("milestone has already been billed")
	ErrPaymentIntentInUse       = errors.New("payment intent is already linked to another invoice")
)

// InvoiceService handles invoice and payment business logic
type InvoiceService struct {
	invoiceRepo   repository.InvoiceRepository
	milestoneRepo repository.MilestoneRepository
	projectRepo   repository.ProjectRepository
	logger        *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	milestoneRepo repository.MilestoneRepository,
	projectRepo repository.ProjectRepository,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoiceRepo:   invoiceRepo,
		milestoneRepo: milestoneRepo,
		projectRepo:   projectRepo,
		logger:        logger,
	}
}

// CreateInvoiceInput represents input for creating an invoice
type CreateInvoiceInput struct {
	ProjectID             uint64
	MilestoneID           *uint64
	QuoteID               *uint64
	InvoiceNumber         string
	Amount                decimal.Decimal
	DueDate               *time.Time
	StripePaymentIntentID *string
	CustomerName          string
	CustomerEmail         string
}

// UpdateInvoiceInput represents a partial invoice patch
type UpdateInvoiceInput struct {
	Status                *models.InvoiceStatus
	DueDate               *time.Time
	StripePaymentIntentID *string
	CustomerName          *string
	CustomerEmail         *string
}

// RecordPaymentInput represents input for recording a payment
type RecordPaymentInput struct {
	InvoiceID     uint64
	Amount        decimal.Decimal
	PaymentDate   *time.Time
	PaymentMethod string
	RecordedBy    *uint64
	// WebhookEventID ties a reconciled payment to its delivery record,
	// which is settled in the same transaction as the payment insert.
	WebhookEventID *uint64
}

// CreateInvoice creates an invoice. Invoices always start as drafts
// regardless of what the caller supplies.
func (s *InvoiceService) CreateInvoice(input CreateInvoiceInput) (*models.Invoice, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	number := input.InvoiceNumber
	if number == "" {
		var err error
		number, err = utils.GenerateInvoiceNumber(time.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to generate invoice number: %w", err)
		}
	}

	invoice := &models.Invoice{
		ProjectID:             input.ProjectID,
		MilestoneID:           input.MilestoneID,
		QuoteID:               input.QuoteID,
		InvoiceNumber:         number,
		Amount:                input.Amount.Round(2),
		Status:                models.InvoiceStatusDraft,
		DueDate:               input.DueDate,
		StripePaymentIntentID: input.StripePaymentIntentID,
		CustomerName:          input.CustomerName,
		CustomerEmail:         input.CustomerEmail,
	}

	if err := s.invoiceRepo.Create(invoice); err != nil {
		switch {
		case errors.Is(err, repository.ErrProjectMissing):
			return nil, ErrInvalidProject
		case errors.Is(err, gorm.ErrDuplicatedKey) && input.StripePaymentIntentID != nil:
			return nil, ErrPaymentIntentInUse
		}
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	return invoice, nil
}

// CreateDraftFromMilestone derives a draft invoice from a completed billable
// milestone: amount = billing percentage of the project's total budget.
func (s *InvoiceService) CreateDraftFromMilestone(milestoneID uint64, dueDate *time.Time) (*models.Invoice, error) {
	milestone, err := s.milestoneRepo.FindByID(milestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}

	if !milestone.IsBillable {
		return nil, ErrMilestoneNotBillable
	}
	switch milestone.Status {
	case models.MilestoneStatusBilled:
		return nil, ErrMilestoneAlreadyInvoiced
	case models.MilestoneStatusCompleted:
	default:
		return nil, ErrMilestoneNotCompleted
	}

	project, err := s.projectRepo.FindByID(milestone.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	amount := project.TotalBudget.
		Mul(milestone.BillingPercentage).
		Div(billing.FullAllocation).
		Round(2)

	return s.CreateInvoice(CreateInvoiceInput{
		ProjectID:   milestone.ProjectID,
		MilestoneID: &milestone.ID,
		Amount:      amount,
		DueDate:     dueDate,
	})
}

// UpdateInvoice applies a partial patch. An empty patch returns the current
// state unchanged. Explicit status changes go through the transition table.
func (s *InvoiceService) UpdateInvoice(invoiceID uint64, input UpdateInvoiceInput) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(invoiceID, "Payments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}

	changed := false

	if input.Status != nil && *input.Status != invoice.Status {
		if !billing.CanTransition(invoice.Status, *input.Status) {
			return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusChange, invoice.Status, *input.Status)
		}
		invoice.Status = *input.Status
		changed = true
	}
	if input.DueDate != nil {
		invoice.DueDate = input.DueDate
		changed = true
	}
	if input.StripePaymentIntentID != nil {
		invoice.StripePaymentIntentID = input.StripePaymentIntentID
		changed = true
	}
	if input.CustomerName != nil {
		invoice.CustomerName = *input.CustomerName
		changed = true
	}
	if input.CustomerEmail != nil {
		invoice.CustomerEmail = *input.CustomerEmail
		changed = true
	}

	if !changed {
		return invoice, nil
	}

	if err := s.invoiceRepo.Save(invoice); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) && input.StripePaymentIntentID != nil {
			return nil, ErrPaymentIntentInUse
		}
		return nil, fmt.Errorf("failed to update invoice: %w", err)
	}

	return invoice, nil
}

// GetInvoice returns an invoice with its payment history
func (s *InvoiceService) GetInvoice(invoiceID uint64) (*models.Invoice, error) {
	invoice, err := s.invoiceRepo.FindByID(invoiceID, "Payments", "Milestone")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return invoice, nil
}

// ListInvoices retrieves invoices with filtering and pagination
func (s *InvoiceService) ListInvoices(filter repository.InvoiceFilter) ([]models.Invoice, int64, error) {
	invoices, total, err := s.invoiceRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, total, nil
}

// DeleteInvoice removes an invoice, refusing when payments exist
func (s *InvoiceService) DeleteInvoice(invoiceID uint64) error {
	if _, err := s.invoiceRepo.FindByID(invoiceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvoiceNotFound
		}
		return fmt.Errorf("failed to find invoice: %w", err)
	}

	if err := s.invoiceRepo.Delete(invoiceID); err != nil {
		if errors.Is(err, repository.ErrInvoiceHasPayments) {
			return ErrInvoiceHasPayments
		}
		return fmt.Errorf("failed to delete invoice: %w", err)
	}

	return nil
}

// RecordPayment appends a payment and rederives the invoice status. When the
// invoice becomes fully paid, settlement side effects run: the linked
// milestone is marked billed, and the project moves out of planning.
func (s *InvoiceService) RecordPayment(input RecordPaymentInput) (*models.Invoice, error) {
	if !input.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	paymentDate := time.Now()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = "manual"
	}

	payment := &models.Payment{
		InvoiceID:      input.InvoiceID,
		Amount:         input.Amount.Round(2),
		PaymentDate:    paymentDate,
		PaymentMethod:  input.PaymentMethod,
		RecordedBy:     input.RecordedBy,
		WebhookEventID: input.WebhookEventID,
	}

	invoice, err := s.invoiceRepo.RecordPayment(payment)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, ErrInvoiceNotFound
		case errors.Is(err, repository.ErrInvoiceNotPayable):
			return nil, ErrInvoiceNotPayable
		}
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if invoice.Status == models.InvoiceStatusPaid {
		s.FinalizePaid(invoice)
	}

	return invoice, nil
}

// FinalizePaid applies the settlement side effects of a fully paid invoice.
// Every step is idempotent, so the reconciler can call it again on
// redelivered events until all effects have stuck. Failures are logged, not
// returned: the recorded payment is the durable truth, and the next delivery
// or manual sweep retries the rest.
func (s *InvoiceService) FinalizePaid(invoice *models.Invoice) {
	if invoice.MilestoneID != nil {
		if err := s.milestoneRepo.MarkBilled(*invoice.MilestoneID); err != nil {
			s.logger.Error("failed to mark milestone billed",
				zap.Uint64("invoice_id", invoice.ID),
				zap.Uint64("milestone_id", *invoice.MilestoneID),
				zap.Error(err),
			)
		}
	}

	// A project's first fully paid invoice (typically the down payment)
	// moves it from planning to in_progress.
	if err := s.projectRepo.MarkInProgressIfPlanning(invoice.ProjectID); err != nil {
		s.logger.Error("failed to advance project status",
			zap.Uint64("invoice_id", invoice.ID),
			zap.Uint64("project_id", invoice.ProjectID),
			zap.Error(err),
		)
	}
}
