package repository

import (
	"errors"
	"fmt"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/database"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrProjectMissing is returned when an invoice references a project
	// that does not exist.
	ErrProjectMissing = errors.New("invoice repository: project does not exist")
	// ErrInvoiceHasPayments is returned when deleting an invoice with
	// recorded payments.
	ErrInvoiceHasPayments = errors.New("invoice repository: invoice has recorded payments")
	// ErrInvoiceNotPayable is returned when recording a payment against a
	// cancelled invoice.
	ErrInvoiceNotPayable = errors.New("invoice repository: invoice is cancelled")
)

// GormInvoiceRepository is a GORM implementation of InvoiceRepository
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewInvoiceRepository creates a new InvoiceRepository
func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// Create creates an invoice. The project reference is verified inside the
// transaction so a missing project surfaces as ErrProjectMissing instead of
// a driver-specific integrity error.
func (r *GormInvoiceRepository) Create(invoice *models.Invoice) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id").First(&project, invoice.ProjectID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectMissing
			}
			return err
		}

		return tx.Create(invoice).Error
	})
}

// Save persists invoice field changes
func (r *GormInvoiceRepository) Save(invoice *models.Invoice) error {
	return r.db.Save(invoice).Error
}

// Delete removes an invoice. Invoices with recorded payments are refused:
// payment history is append-only and must never be cascaded away.
func (r *GormInvoiceRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Payment{}).
			Where("invoice_id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrInvoiceHasPayments
		}

		return tx.Delete(&models.Invoice{}, id).Error
	})
}

// FindByID finds an invoice by ID with optional preloading
func (r *GormInvoiceRepository) FindByID(id uint64, preload ...string) (*models.Invoice, error) {
	var invoice models.Invoice
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&invoice, id).Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

// FindByPaymentIntentID maps a payment-processor reference to an invoice
func (r *GormInvoiceRepository) FindByPaymentIntentID(paymentIntentID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.Preload("Payments").
		Where("stripe_payment_intent_id = ?", paymentIntentID).
		First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

// List retrieves invoices with filtering and pagination
func (r *GormInvoiceRepository) List(filter InvoiceFilter) ([]models.Invoice, int64, error) {
	query := r.db.Model(&models.Invoice{})

	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	var invoices []models.Invoice
	if err := listQuery.Preload("Payments").Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

// RecordPayment appends a payment to its invoice and rederives the invoice
// status from the complete post-insert payment set, all inside one
// transaction. Any failure after the insert rolls the payment back.
func (r *GormInvoiceRepository) RecordPayment(payment *models.Payment) (*models.Invoice, error) {
	var invoice models.Invoice

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Lock the invoice row so concurrent payments serialize and each
		// one recomputes from the full payment set.
		if err := lockForUpdate(tx).First(&invoice, payment.InvoiceID).Error; err != nil {
			return err
		}

		if invoice.Status == models.InvoiceStatusCancelled {
			return ErrInvoiceNotPayable
		}

		if err := tx.Create(payment).Error; err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		// A reconciled payment settles its webhook event in the same
		// transaction, so the event is processed if and only if the
		// payment row exists. Zero rows affected means a concurrent
		// delivery already applied this event; roll the insert back.
		if payment.WebhookEventID != nil {
			res := tx.Model(&models.WebhookEvent{}).
				Where("id = ? AND status = ?", *payment.WebhookEventID, models.WebhookEventReceived).
				Update("status", models.WebhookEventProcessed)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrEventSettled
			}
		}

		var payments []models.Payment
		if err := tx.Where("invoice_id = ?", invoice.ID).
			Order("payment_date ASC, id ASC").
			Find(&payments).Error; err != nil {
			return err
		}
		invoice.Payments = payments

		newStatus := billing.StatusForPayments(invoice.Status, invoice.Amount, invoice.TotalPaid())
		if newStatus != invoice.Status {
			invoice.Status = newStatus
			if err := tx.Model(&models.Invoice{}).
				Where("id = ?", invoice.ID).
				Update("status", newStatus).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &invoice, nil
}
