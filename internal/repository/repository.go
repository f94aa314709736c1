package repository

import (
	"github.com/buildfolio/construction-portal-api/internal/models"
)

// BillingRepository reads a project's percentage ledger.
type BillingRepository interface {
	// ListBillable returns the project's billable tasks and milestones.
	// Plain read for display; guarded writes re-read the same rows under
	// row locks inside their own transactions.
	ListBillable(projectID uint64) ([]models.Task, []models.Milestone, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// CreateValidated creates a task after validating its billing
	// percentage against the project ledger, in one transaction holding
	// row locks on the project's billable items.
	CreateValidated(task *models.Task) error

	// UpdateValidated persists task changes under the same ledger
	// validation, and propagates the billing percentage to the linked
	// milestone in the same transaction.
	UpdateValidated(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// ListByProject retrieves the project's tasks
	ListByProject(projectID uint64) ([]models.Task, error)

	// Delete soft deletes a task and nulls out the milestone link
	Delete(id uint64) error
}

// MilestoneRepository defines the interface for milestone data access
type MilestoneRepository interface {
	// CreateValidated creates a milestone after ledger validation, under
	// the same transaction discipline as TaskRepository.CreateValidated.
	CreateValidated(milestone *models.Milestone) error

	// CreateForTask creates the billing counterpart of a billable task and
	// links the task to it, atomically.
	CreateForTask(milestone *models.Milestone, taskID uint64) error

	// UpdateValidated persists milestone changes under ledger validation.
	UpdateValidated(milestone *models.Milestone) error

	// FindByID finds a milestone by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Milestone, error)

	// ListByProject retrieves the project's milestones
	ListByProject(projectID uint64) ([]models.Milestone, error)

	// MarkCompleted advances a pending milestone to completed
	MarkCompleted(id uint64) (*models.Milestone, error)

	// MarkBilled stamps a milestone as billed
	MarkBilled(id uint64) error

	// Delete soft deletes a milestone and nulls out the task link
	Delete(id uint64) error
}

// InvoiceFilter holds filtering options for listing invoices
type InvoiceFilter struct {
	ProjectID *uint64
	Status    *models.InvoiceStatus
	Page      int
	PageSize  int
}

// InvoiceRepository defines the interface for invoice and payment data access
type InvoiceRepository interface {
	// Create creates an invoice; the referenced project must exist
	Create(invoice *models.Invoice) error

	// Save persists invoice field changes
	Save(invoice *models.Invoice) error

	// Delete removes an invoice, refusing when payments exist
	Delete(id uint64) error

	// FindByID finds an invoice by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Invoice, error)

	// FindByPaymentIntentID maps a payment-processor reference to an invoice
	FindByPaymentIntentID(paymentIntentID string) (*models.Invoice, error)

	// List retrieves invoices with filtering and pagination
	List(filter InvoiceFilter) ([]models.Invoice, int64, error)

	// RecordPayment appends a payment and rederives the invoice status from
	// the full payment set, all in one transaction. Returns the invoice as
	// of after the payment, with payments loaded.
	RecordPayment(payment *models.Payment) (*models.Invoice, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// ListByClient lists the client's projects
	ListByClient(clientID uint64) ([]models.Project, error)

	// HasPaidInvoice reports whether the project has at least one fully
	// paid invoice
	HasPaidInvoice(projectID uint64) (bool, error)

	// MarkInProgressIfPlanning flips a planning project to in_progress.
	// No-op for any other status.
	MarkInProgressIfPlanning(projectID uint64) error
}

// WebhookEventRepository persists the durable record of processor deliveries.
type WebhookEventRepository interface {
	// Record inserts the event, returning ErrDuplicateEvent when the
	// processor event ID was already recorded. A failed record for the
	// same event ID is taken over instead, so redeliveries can retry it.
	Record(event *models.WebhookEvent) error

	// MarkFailed flags a recorded event for retry on redelivery
	MarkFailed(id uint64, message string) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(email string) (*models.User, error)
}
