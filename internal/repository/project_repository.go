package repository

import (
	"github.com/buildfolio/construction-portal-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// ListByClient lists the client's projects
func (r *GormProjectRepository) ListByClient(clientID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// HasPaidInvoice reports whether the project has at least one fully paid invoice
func (r *GormProjectRepository) HasPaidInvoice(projectID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.Invoice{}).
		Where("project_id = ? AND status = ?", projectID, models.InvoiceStatusPaid).
		Count(&count).Error
	return count > 0, err
}

// MarkInProgressIfPlanning flips a planning project to in_progress. The
// status guard in the WHERE clause makes the call safe to repeat.
func (r *GormProjectRepository) MarkInProgressIfPlanning(projectID uint64) error {
	return r.db.Model(&models.Project{}).
		Where("id = ? AND status = ?", projectID, models.ProjectStatusPlanning).
		Update("status", models.ProjectStatusInProgress).Error
}
