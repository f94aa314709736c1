package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
)

var ErrBudgetRequired = errors.New("total budget must be greater than zero")

// ProjectService handles project business logic. Projects themselves are
// mostly managed by the upstream quote-acceptance workflow; this service
// covers what the billing engine and the portal UI need.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	billingRepo repository.BillingRepository
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo repository.ProjectRepository, billingRepo repository.BillingRepository) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		billingRepo: billingRepo,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
	TotalBudget decimal.Decimal
	ClientID    uint64
}

// CreateProject creates a new project in planning
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, errors.New("name is required")
	}
	if !input.TotalBudget.IsPositive() {
		return nil, ErrBudgetRequired
	}

	project := &models.Project{
		Name:        input.Name,
		Description: input.Description,
		TotalBudget: input.TotalBudget.Round(2),
		Status:      models.ProjectStatusPlanning,
		ClientID:    input.ClientID,
	}

	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	return project, nil
}

// GetProject returns a project by ID
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// ListProjects returns the client's projects
func (s *ProjectService) ListProjects(clientID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListByClient(clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// BillingSummary is the ledger, its contributing items, and settlement state
// for portal display.
type BillingSummary struct {
	Totals billing.Totals
	// HasPaidInvoice reports whether any invoice on the project has been
	// settled in full, typically the down payment.
	HasPaidInvoice     bool
	BillableTasks      []models.Task
	BillableMilestones []models.Milestone
}

// GetBillingSummary returns the project's percentage ledger for display
func (s *ProjectService) GetBillingSummary(projectID uint64) (*BillingSummary, error) {
	if _, err := s.projectRepo.FindByID(projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	tasks, milestones, err := s.billingRepo.ListBillable(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list billable items: %w", err)
	}

	hasPaid, err := s.projectRepo.HasPaidInvoice(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to check settled invoices: %w", err)
	}

	return &BillingSummary{
		Totals:             billing.SumItems(tasks, milestones, billing.SumOptions{}),
		HasPaidInvoice:     hasPaid,
		BillableTasks:      tasks,
		BillableMilestones: milestones,
	}, nil
}
