package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/dto"
	apierrors "github.com/buildfolio/construction-portal-api/internal/errors"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/services"
)

// MilestoneHandler coordinates milestone HTTP handlers.
type MilestoneHandler struct {
	milestoneService *services.MilestoneService
	invoiceService   *services.InvoiceService
}

// NewMilestoneHandler creates a new MilestoneHandler.
func NewMilestoneHandler(milestoneService *services.MilestoneService, invoiceService *services.InvoiceService) *MilestoneHandler {
	return &MilestoneHandler{
		milestoneService: milestoneService,
		invoiceService:   invoiceService,
	}
}

// CreateMilestone creates a standalone milestone
func (h *MilestoneHandler) CreateMilestone(c *gin.Context) {
	type CreateMilestoneRequest struct {
		ProjectID         uint64                   `json:"project_id" binding:"required"`
		Title             string                   `json:"title" binding:"required"`
		Description       string                   `json:"description"`
		PlannedDate       *time.Time               `json:"planned_date"`
		Category          models.MilestoneCategory `json:"category"`
		IsBillable        bool                     `json:"is_billable"`
		BillingPercentage decimal.Decimal          `json:"billing_percentage"`
	}

	var req CreateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateMilestoneInput{
		ProjectID:         req.ProjectID,
		Title:             req.Title,
		Description:       req.Description,
		Category:          req.Category,
		IsBillable:        req.IsBillable,
		BillingPercentage: req.BillingPercentage,
	}
	if req.PlannedDate != nil {
		input.PlannedDate = *req.PlannedDate
	}

	milestone, err := h.milestoneService.CreateMilestone(input)
	if err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToMilestoneDTO(*milestone))
}

// GetMilestone returns a milestone with its task counterpart
func (h *MilestoneHandler) GetMilestone(c *gin.Context) {
	milestoneID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	milestone, err := h.milestoneService.GetMilestone(milestoneID)
	if err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// ListMilestones returns the project's milestones
func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	projectID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	milestones, err := h.milestoneService.ListMilestones(projectID)
	if err != nil {
		apierrors.InternalError(c, "Failed to fetch milestones")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"milestones": dto.ToMilestoneDTOs(milestones),
	})
}

// UpdateMilestone applies a partial milestone patch
func (h *MilestoneHandler) UpdateMilestone(c *gin.Context) {
	milestoneID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type UpdateMilestoneRequest struct {
		Title             *string          `json:"title"`
		Description       *string          `json:"description"`
		PlannedDate       *time.Time       `json:"planned_date"`
		IsBillable        *bool            `json:"is_billable"`
		BillingPercentage *decimal.Decimal `json:"billing_percentage"`
	}

	var req UpdateMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	milestone, err := h.milestoneService.UpdateMilestone(milestoneID, services.UpdateMilestoneInput{
		Title:             req.Title,
		Description:       req.Description,
		PlannedDate:       req.PlannedDate,
		IsBillable:        req.IsBillable,
		BillingPercentage: req.BillingPercentage,
	})
	if err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// CompleteMilestone advances a pending milestone to completed
func (h *MilestoneHandler) CompleteMilestone(c *gin.Context) {
	milestoneID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	milestone, err := h.milestoneService.CompleteMilestone(milestoneID)
	if err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToMilestoneDTO(*milestone))
}

// CreateInvoice derives a draft invoice from a completed billable milestone
func (h *MilestoneHandler) CreateInvoice(c *gin.Context) {
	milestoneID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	type CreateInvoiceRequest struct {
		DueDate *time.Time `json:"due_date"`
	}

	// The body is optional; an empty one means no due date.
	var req CreateInvoiceRequest
	_ = c.ShouldBindJSON(&req)

	invoice, err := h.invoiceService.CreateDraftFromMilestone(milestoneID, req.DueDate)
	if err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToInvoiceDTO(*invoice))
}

// DeleteMilestone deletes a milestone
func (h *MilestoneHandler) DeleteMilestone(c *gin.Context) {
	milestoneID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.milestoneService.DeleteMilestone(milestoneID); err != nil {
		respondMilestoneError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Milestone deleted successfully",
	})
}

func respondMilestoneError(c *gin.Context, err error) {
	var allocErr *billing.AllocationError
	switch {
	case errors.As(err, &allocErr):
		apierrors.BillingLimitExceeded(c, allocErr.Error(), gin.H{
			"current_total": allocErr.Total.StringFixed(2),
			"remaining":     allocErr.Remaining.StringFixed(2),
		})
	case errors.Is(err, services.ErrMilestoneNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrMilestoneTitleRequired),
		errors.Is(err, services.ErrPercentageOutOfRange),
		errors.Is(err, services.ErrMilestoneNotCompleted),
		errors.Is(err, services.ErrMilestoneNotBillable):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrMilestoneTaskOwned),
		errors.Is(err, services.ErrMilestoneNotPending),
		errors.Is(err, services.ErrMilestoneAlreadyInvoiced):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
