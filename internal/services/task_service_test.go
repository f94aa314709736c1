package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/buildfolio/construction-portal-api/internal/billing"
	"github.com/buildfolio/construction-portal-api/internal/models"
	"github.com/buildfolio/construction-portal-api/internal/repository"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	var err error

	// Create in-memory SQLite database
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

	suite.service = NewTaskService(
		repository.NewTaskRepository(suite.db),
		repository.NewMilestoneRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		zap.NewNop(),
	)
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTestProject(budget string) *models.Project {
	project := &models.Project{
		Name:        "Test Project",
		TotalBudget: decimal.RequireFromString(budget),
		Status:      models.ProjectStatusPlanning,
		ClientID:    1,
	}
	suite.db.Create(project)
	return project
}

func (suite *TaskServiceTestSuite) createBillableTask(projectID uint64, title, percentage string) *models.Task {
	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:             title,
		ProjectID:         projectID,
		IsBillable:        true,
		BillingType:       models.BillingTypePercentage,
		BillingPercentage: decimal.RequireFromString(percentage),
	})
	suite.Require().NoError(err)
	return task
}

// TestCreateTask_BillableGetsMilestoneCounterpart verifies that a billable
// task is created together with its billing milestone, linked both ways.
func (suite *TaskServiceTestSuite) TestCreateTask_BillableGetsMilestoneCounterpart() {
	project := suite.createTestProject("50000")

	task := suite.createBillableTask(project.ID, "Foundation work", "25")

	suite.Require().NotNil(task.MilestoneID)
	suite.Require().NotNil(task.Milestone)
	assert.Equal(suite.T(), task.ID, *task.Milestone.TaskID)
	assert.Equal(suite.T(), models.MilestoneCategoryBillableTask, task.Milestone.Category)
	assert.Equal(suite.T(), models.MilestoneStatusPending, task.Milestone.Status)
	assert.True(suite.T(), task.Milestone.IsBillable)
	assert.True(suite.T(), task.Milestone.BillingPercentage.Equal(decimal.RequireFromString("25")))
	assert.Equal(suite.T(), task.Title, task.Milestone.Title)
}

// TestCreateTask_NonBillableHasNoMilestone verifies plain tasks stay unlinked
func (suite *TaskServiceTestSuite) TestCreateTask_NonBillableHasNoMilestone() {
	project := suite.createTestProject("50000")

	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:     "Site survey",
		ProjectID: project.ID,
	})
	suite.Require().NoError(err)

	assert.Nil(suite.T(), task.MilestoneID)

	var count int64
	suite.db.Model(&models.Milestone{}).Count(&count)
	assert.Equal(suite.T(), int64(0), count)
}

// TestCreateTask_MirrorMilestoneDoesNotDoubleCount verifies the auto-created
// milestone does not consume allocation on top of its task.
func (suite *TaskServiceTestSuite) TestCreateTask_MirrorMilestoneDoesNotDoubleCount() {
	project := suite.createTestProject("50000")

	suite.createBillableTask(project.ID, "Foundation", "40")
	suite.createBillableTask(project.ID, "Framing", "40")

	// 80% of the allocation is consumed by tasks; their mirror milestones
	// must not count again, so another 20% still fits.
	suite.createBillableTask(project.ID, "Roofing", "20")
}

// TestCreateTask_AllocationExceeded verifies the ledger rejects overflow
func (suite *TaskServiceTestSuite) TestCreateTask_AllocationExceeded() {
	project := suite.createTestProject("50000")

	suite.createBillableTask(project.ID, "Foundation", "40")
	suite.createBillableTask(project.ID, "Framing", "50")

	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:             "Roofing",
		ProjectID:         project.ID,
		IsBillable:        true,
		BillingPercentage: decimal.RequireFromString("15"),
	})
	suite.Require().Error(err)

	var allocErr *billing.AllocationError
	suite.Require().ErrorAs(err, &allocErr)
	assert.Contains(suite.T(), err.Error(), "remaining: 10.00%")

	// The rejected task must not exist.
	var count int64
	suite.db.Model(&models.Task{}).Count(&count)
	assert.Equal(suite.T(), int64(2), count)
}

// TestCreateTask_PercentageOutOfRange verifies range validation
func (suite *TaskServiceTestSuite) TestCreateTask_PercentageOutOfRange() {
	project := suite.createTestProject("50000")

	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:             "Foundation",
		ProjectID:         project.ID,
		IsBillable:        true,
		BillingPercentage: decimal.RequireFromString("120"),
	})
	assert.ErrorIs(suite.T(), err, ErrPercentageOutOfRange)
}

// TestCreateTask_ProjectNotFound verifies the project must exist
func (suite *TaskServiceTestSuite) TestCreateTask_ProjectNotFound() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		Title:     "Orphan",
		ProjectID: 999,
	})
	assert.ErrorIs(suite.T(), err, ErrProjectNotFound)
}

// TestUpdateTask_RaisePercentageWithinRemaining verifies an update is checked
// against the ledger without counting the task's own current value.
func (suite *TaskServiceTestSuite) TestUpdateTask_RaisePercentageWithinRemaining() {
	project := suite.createTestProject("50000")

	first := suite.createBillableTask(project.ID, "Foundation", "30")
	suite.createBillableTask(project.ID, "Framing", "40")

	// 30 -> 45 leaves 40 + 45 = 85, which fits.
	newPct := decimal.RequireFromString("45")
	updated, err := suite.service.UpdateTask(first.ID, UpdateTaskInput{
		BillingPercentage: &newPct,
	})
	suite.Require().NoError(err)
	assert.True(suite.T(), updated.BillingPercentage.Equal(newPct))

	// The mirror milestone follows the task.
	suite.Require().NotNil(updated.Milestone)
	assert.True(suite.T(), updated.Milestone.BillingPercentage.Equal(newPct))
}

// TestUpdateTask_RaisePercentageBeyondRemaining verifies overflow is rejected
// and nothing changes.
func (suite *TaskServiceTestSuite) TestUpdateTask_RaisePercentageBeyondRemaining() {
	project := suite.createTestProject("50000")

	first := suite.createBillableTask(project.ID, "Foundation", "30")
	suite.createBillableTask(project.ID, "Framing", "40")

	newPct := decimal.RequireFromString("65")
	_, err := suite.service.UpdateTask(first.ID, UpdateTaskInput{
		BillingPercentage: &newPct,
	})
	suite.Require().Error(err)

	var allocErr *billing.AllocationError
	assert.ErrorAs(suite.T(), err, &allocErr)

	// Task and mirror milestone keep their old values.
	var task models.Task
	suite.db.First(&task, first.ID)
	assert.True(suite.T(), task.BillingPercentage.Equal(decimal.RequireFromString("30")))

	var milestone models.Milestone
	suite.db.Where("task_id = ?", first.ID).First(&milestone)
	assert.True(suite.T(), milestone.BillingPercentage.Equal(decimal.RequireFromString("30")))
}

// TestUpdateTask_BecomesBillable verifies a milestone appears when an
// existing task turns billable.
func (suite *TaskServiceTestSuite) TestUpdateTask_BecomesBillable() {
	project := suite.createTestProject("50000")

	task, err := suite.service.CreateTask(CreateTaskInput{
		Title:     "Inspection",
		ProjectID: project.ID,
	})
	suite.Require().NoError(err)
	suite.Require().Nil(task.MilestoneID)

	billable := true
	pct := decimal.RequireFromString("10")
	updated, err := suite.service.UpdateTask(task.ID, UpdateTaskInput{
		IsBillable:        &billable,
		BillingPercentage: &pct,
	})
	suite.Require().NoError(err)

	suite.Require().NotNil(updated.MilestoneID)
	assert.Equal(suite.T(), models.MilestoneCategoryBillableTask, updated.Milestone.Category)
}

// TestDeleteTask_UnlinksMilestone verifies the milestone survives with the
// task reference cleared.
func (suite *TaskServiceTestSuite) TestDeleteTask_UnlinksMilestone() {
	project := suite.createTestProject("50000")
	task := suite.createBillableTask(project.ID, "Foundation", "25")

	err := suite.service.DeleteTask(task.ID)
	suite.Require().NoError(err)

	var milestone models.Milestone
	suite.Require().NoError(suite.db.First(&milestone, *task.MilestoneID).Error)
	assert.Nil(suite.T(), milestone.TaskID)

	_, err = suite.service.GetTask(task.ID)
	assert.ErrorIs(suite.T(), err, ErrTaskNotFound)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
