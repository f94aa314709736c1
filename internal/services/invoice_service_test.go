package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
)

// InvoiceServiceTestSuite defines the test suite for InvoiceService
type InvoiceServiceTestSuite struct {
	suite.Suite
	db               *gorm.DB
	service          *InvoiceService
	milestoneService *MilestoneService
}

// SetupTest runs before each test
func (suite *InvoiceServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.Task{},
		&models.Milestone{},
		&models.Invoice{},
		&models.Payment{},
		&models.WebhookEvent{},
	)
	suite.Require().NoError(err)

	milestoneRepo := repository.NewMilestoneRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)

	suite.service = NewInvoiceService(repository.NewInvoiceRepository(suite.db), milestoneRepo, projectRepo, zap.NewNop())
	suite.milestoneService = NewMilestoneService(milestoneRepo, projectRepo)
}

// TearDownTest runs after each test
func (suite *InvoiceServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *InvoiceServiceTestSuite) createTestProject(budget string) *models.Project {
	project := &models.Project{
		Name:        "Test Project",
		TotalBudget: decimal.RequireFromString(budget),
		Status:      models.ProjectStatusPlanning,
		ClientID:    1,
	}
	suite.db.Create(project)
	return project
}

func (suite *InvoiceServiceTestSuite) createSentInvoice(projectID uint64, amount string) *models.Invoice {
	invoice, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: projectID,
		Amount:    decimal.RequireFromString(amount),
	})
	suite.Require().NoError(err)

	sent := models.InvoiceStatusSent
	invoice, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &sent})
	suite.Require().NoError(err)
	return invoice
}

// TestCreateInvoice_AlwaysStartsDraft verifies creation defaults
func (suite *InvoiceServiceTestSuite) TestCreateInvoice_AlwaysStartsDraft() {
	project := suite.createTestProject("50000")

	invoice, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("1000.555"),
	})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.InvoiceStatusDraft, invoice.Status)
	assert.True(suite.T(), invoice.Amount.Equal(decimal.RequireFromString("1000.56")))
	assert.Regexp(suite.T(), `^INV-\d{6}-[0-9A-Z]+$`, invoice.InvoiceNumber)
}

// TestCreateInvoice_RejectsUnknownProject verifies the project check
func (suite *InvoiceServiceTestSuite) TestCreateInvoice_RejectsUnknownProject() {
	_, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: 999,
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(suite.T(), err, ErrInvalidProject)
}

// TestCreateInvoice_RejectsNonPositiveAmount verifies amount validation
func (suite *InvoiceServiceTestSuite) TestCreateInvoice_RejectsNonPositiveAmount() {
	project := suite.createTestProject("50000")

	_, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: project.ID,
		Amount:    decimal.Zero,
	})
	assert.ErrorIs(suite.T(), err, ErrNonPositiveAmount)
}

// TestUpdateInvoice_StatusTransitions verifies the transition table is
// enforced on explicit changes.
func (suite *InvoiceServiceTestSuite) TestUpdateInvoice_StatusTransitions() {
	project := suite.createTestProject("50000")

	invoice, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: project.ID,
		Amount:    decimal.NewFromInt(1000),
	})
	suite.Require().NoError(err)

	// draft -> paid skips the lifecycle and is rejected.
	paid := models.InvoiceStatusPaid
	_, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &paid})
	assert.ErrorIs(suite.T(), err, ErrInvalidStatusChange)

	// draft -> sent -> cancelled is a legal path.
	sent := models.InvoiceStatusSent
	invoice, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &sent})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.InvoiceStatusSent, invoice.Status)

	cancelled := models.InvoiceStatusCancelled
	invoice, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &cancelled})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.InvoiceStatusCancelled, invoice.Status)

	// Cancelled is terminal.
	_, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &sent})
	assert.ErrorIs(suite.T(), err, ErrInvalidStatusChange)
}

// TestUpdateInvoice_PaymentIntentTaken verifies a payment intent already
// linked to another invoice is refused as a conflict, not a raw DB error.
func (suite *InvoiceServiceTestSuite) TestUpdateInvoice_PaymentIntentTaken() {
	project := suite.createTestProject("50000")
	intent := "pi_taken"

	_, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID:             project.ID,
		Amount:                decimal.RequireFromString("1000"),
		StripePaymentIntentID: &intent,
	})
	suite.Require().NoError(err)

	second, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: project.ID,
		Amount:    decimal.RequireFromString("2000"),
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateInvoice(second.ID, UpdateInvoiceInput{StripePaymentIntentID: &intent})
	assert.ErrorIs(suite.T(), err, ErrPaymentIntentInUse)

	_, err = suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID:             project.ID,
		Amount:                decimal.RequireFromString("3000"),
		StripePaymentIntentID: &intent,
	})
	assert.ErrorIs(suite.T(), err, ErrPaymentIntentInUse)
}

// TestRecordPayment_PartialThenFull walks an invoice from sent through
// partially_paid to paid.
func (suite *InvoiceServiceTestSuite) TestRecordPayment_PartialThenFull() {
	project := suite.createTestProject("50000")
	invoice := suite.createSentInvoice(project.ID, "1000")

	recordedBy := uint64(7)
	updated, err := suite.service.RecordPayment(RecordPaymentInput{
		InvoiceID:  invoice.ID,
		Amount:     decimal.RequireFromString("400"),
		RecordedBy: &recordedBy,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.InvoiceStatusPartiallyPaid, updated.Status)
	assert.True(suite.T(), updated.TotalPaid().Equal(decimal.RequireFromString("400")))

	updated, err = suite.service.RecordPayment(RecordPaymentInput{
		InvoiceID:  invoice.ID,
		Amount:     decimal.RequireFromString("600"),
		RecordedBy: &recordedBy,
	})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.InvoiceStatusPaid, updated.Status)
	assert.True(suite.T(), updated.TotalPaid().Equal(decimal.RequireFromString("1000")))

	// Both payment rows survive untouched.
	var payments []models.Payment
	suite.db.Where("invoice_id = ?", invoice.ID).Order("id").Find(&payments)
	suite.Require().Len(payments, 2)
	assert.Equal(suite.T(), "manual", payments[0].PaymentMethod)
	assert.Equal(suite.T(), recordedBy, *payments[0].RecordedBy)
}

// TestRecordPayment_SettlementSideEffects verifies paying in full marks the
// linked milestone billed and moves the project out of planning.
func (suite *InvoiceServiceTestSuite) TestRecordPayment_SettlementSideEffects() {
	project := suite.createTestProject("50000")

	milestone, err := suite.milestoneService.CreateMilestone(CreateMilestoneInput{
		ProjectID:         project.ID,
		Title:             "Down payment",
		IsBillable:        true,
		BillingPercentage: decimal.RequireFromString("20"),
	})
	suite.Require().NoError(err)

	_, err = suite.milestoneService.CompleteMilestone(milestone.ID)
	suite.Require().NoError(err)

	invoice, err := suite.service.CreateDraftFromMilestone(milestone.ID, nil)
	suite.Require().NoError(err)

	sent := models.InvoiceStatusSent
	_, err = suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &sent})
	suite.Require().NoError(err)

	_, err = suite.service.RecordPayment(RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    invoice.Amount,
	})
	suite.Require().NoError(err)

	var reloadedMilestone models.Milestone
	suite.Require().NoError(suite.db.First(&reloadedMilestone, milestone.ID).Error)
	assert.Equal(suite.T(), models.MilestoneStatusBilled, reloadedMilestone.Status)
	assert.NotNil(suite.T(), reloadedMilestone.BilledAt)

	var reloadedProject models.Project
	suite.Require().NoError(suite.db.First(&reloadedProject, project.ID).Error)
	assert.Equal(suite.T(), models.ProjectStatusInProgress, reloadedProject.Status)
}

// TestRecordPayment_CancelledInvoiceRefused verifies payments cannot land on
// a cancelled invoice.
func (suite *InvoiceServiceTestSuite) TestRecordPayment_CancelledInvoiceRefused() {
	project := suite.createTestProject("50000")
	invoice := suite.createSentInvoice(project.ID, "1000")

	cancelled := models.InvoiceStatusCancelled
	_, err := suite.service.UpdateInvoice(invoice.ID, UpdateInvoiceInput{Status: &cancelled})
	suite.Require().NoError(err)

	_, err = suite.service.RecordPayment(RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(suite.T(), err, ErrInvoiceNotPayable)
}

// TestCreateDraftFromMilestone_AmountDerivation verifies the percentage of
// the project budget becomes the invoice amount, rounded to cents.
func (suite *InvoiceServiceTestSuite) TestCreateDraftFromMilestone_AmountDerivation() {
	project := suite.createTestProject("50000")

	milestone, err := suite.milestoneService.CreateMilestone(CreateMilestoneInput{
		ProjectID:         project.ID,
		Title:             "Framing complete",
		IsBillable:        true,
		BillingPercentage: decimal.RequireFromString("12.5"),
	})
	suite.Require().NoError(err)

	// Not completed yet.
	_, err = suite.service.CreateDraftFromMilestone(milestone.ID, nil)
	assert.ErrorIs(suite.T(), err, ErrMilestoneNotCompleted)

	_, err = suite.milestoneService.CompleteMilestone(milestone.ID)
	suite.Require().NoError(err)

	invoice, err := suite.service.CreateDraftFromMilestone(milestone.ID, nil)
	suite.Require().NoError(err)

	// 12.5% of 50000.
	assert.True(suite.T(), invoice.Amount.Equal(decimal.RequireFromString("6250.00")))
	assert.Equal(suite.T(), models.InvoiceStatusDraft, invoice.Status)
	suite.Require().NotNil(invoice.MilestoneID)
	assert.Equal(suite.T(), milestone.ID, *invoice.MilestoneID)
}

// TestCreateDraftFromMilestone_NotBillable verifies non-billable milestones
// cannot be invoiced.
func (suite *InvoiceServiceTestSuite) TestCreateDraftFromMilestone_NotBillable() {
	project := suite.createTestProject("50000")

	milestone, err := suite.milestoneService.CreateMilestone(CreateMilestoneInput{
		ProjectID: project.ID,
		Title:     "Permit approval",
	})
	suite.Require().NoError(err)

	_, err = suite.service.CreateDraftFromMilestone(milestone.ID, nil)
	assert.ErrorIs(suite.T(), err, ErrMilestoneNotBillable)
}

// TestDeleteInvoice_RefusedWithPayments verifies financial history cannot be
// deleted out from under recorded payments.
func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_RefusedWithPayments() {
	project := suite.createTestProject("50000")
	invoice := suite.createSentInvoice(project.ID, "1000")

	_, err := suite.service.RecordPayment(RecordPaymentInput{
		InvoiceID: invoice.ID,
		Amount:    decimal.NewFromInt(400),
	})
	suite.Require().NoError(err)

	err = suite.service.DeleteInvoice(invoice.ID)
	assert.ErrorIs(suite.T(), err, ErrInvoiceHasPayments)

	// Invoice and payment rows are intact.
	var invoiceCount, paymentCount int64
	suite.db.Model(&models.Invoice{}).Count(&invoiceCount)
	suite.db.Model(&models.Payment{}).Count(&paymentCount)
	assert.Equal(suite.T(), int64(1), invoiceCount)
	assert.Equal(suite.T(), int64(1), paymentCount)
}

// TestDeleteInvoice_DraftWithoutPayments verifies clean drafts are deletable
func (suite *InvoiceServiceTestSuite) TestDeleteInvoice_DraftWithoutPayments() {
	project := suite.createTestProject("50000")

	invoice, err := suite.service.CreateInvoice(CreateInvoiceInput{
		ProjectID: project.ID,
		Amount:    decimal.NewFromInt(1000),
	})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.DeleteInvoice(invoice.ID))

	_, err = suite.service.GetInvoice(invoice.ID)
	assert.ErrorIs(suite.T(), err, ErrInvoiceNotFound)
}

func TestInvoiceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceServiceTestSuite))
}
