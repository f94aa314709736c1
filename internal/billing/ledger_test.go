package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

func pct(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}

func billableTask(id uint64, percentage string) models.Task {
	return models.Task{
		ID:                id,
		IsBillable:        true,
		BillingType:       models.BillingTypePercentage,
		BillingPercentage: pct(percentage),
	}
}

func standaloneMilestone(id uint64, percentage string) models.Milestone {
	return models.Milestone{
		ID:                id,
		IsBillable:        true,
		BillingPercentage: pct(percentage),
	}
}

func TestSumItems(t *testing.T) {
	tests := []struct {
		name       string
		tasks      []models.Task
		milestones []models.Milestone
		opts       SumOptions
		wantTasks  string
		wantMiles  string
		wantTotal  string
		wantRemain string
	}{
		{
			name:       "empty project",
			wantTasks:  "0",
			wantMiles:  "0",
			wantTotal:  "0",
			wantRemain: "100",
		},
		{
			name: "tasks and standalone milestones combine",
			tasks: []models.Task{
				billableTask(1, "40"),
				billableTask(2, "25.5"),
			},
			milestones: []models.Milestone{
				standaloneMilestone(10, "14.5"),
			},
			wantTasks:  "65.5",
			wantMiles:  "14.5",
			wantTotal:  "80",
			wantRemain: "20",
		},
		{
			name: "non-billable and fixed-fee tasks are ignored",
			tasks: []models.Task{
				billableTask(1, "40"),
				{ID: 2, IsBillable: false, BillingType: models.BillingTypePercentage, BillingPercentage: pct("30")},
				{ID: 3, IsBillable: true, BillingType: models.BillingTypeFixed, BillingPercentage: pct("30")},
			},
			wantTasks:  "40",
			wantMiles:  "0",
			wantTotal:  "40",
			wantRemain: "60",
		},
		{
			name: "task-linked milestones never count on the milestone side",
			tasks: []models.Task{
				billableTask(1, "30"),
			},
			milestones: []models.Milestone{
				{ID: 10, IsBillable: true, TaskID: uint64Ptr(1), BillingPercentage: pct("30")},
				standaloneMilestone(11, "20"),
			},
			wantTasks:  "30",
			wantMiles:  "20",
			wantTotal:  "50",
			wantRemain: "50",
		},
		{
			name: "excluding a task also leaves its mirror milestone out",
			tasks: []models.Task{
				billableTask(1, "30"),
				billableTask(2, "40"),
			},
			milestones: []models.Milestone{
				{ID: 10, IsBillable: true, TaskID: uint64Ptr(1), BillingPercentage: pct("30")},
			},
			opts:       SumOptions{ExcludeTaskID: uint64Ptr(1)},
			wantTasks:  "40",
			wantMiles:  "0",
			wantTotal:  "40",
			wantRemain: "60",
		},
		{
			name: "excluding a standalone milestone",
			milestones: []models.Milestone{
				standaloneMilestone(10, "30"),
				standaloneMilestone(11, "20"),
			},
			opts:       SumOptions{ExcludeMilestoneID: uint64Ptr(11)},
			wantTasks:  "0",
			wantMiles:  "30",
			wantTotal:  "30",
			wantRemain: "70",
		},
		{
			name: "remaining is clamped at zero when over-allocated",
			tasks: []models.Task{
				billableTask(1, "70"),
				billableTask(2, "40"),
			},
			wantTasks:  "110",
			wantMiles:  "0",
			wantTotal:  "110",
			wantRemain: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := SumItems(tt.tasks, tt.milestones, tt.opts)
			assert.True(t, totals.FromTasks.Equal(pct(tt.wantTasks)), "FromTasks = %s", totals.FromTasks)
			assert.True(t, totals.FromMilestones.Equal(pct(tt.wantMiles)), "FromMilestones = %s", totals.FromMilestones)
			assert.True(t, totals.GrandTotal.Equal(pct(tt.wantTotal)), "GrandTotal = %s", totals.GrandTotal)
			assert.True(t, totals.Remaining.Equal(pct(tt.wantRemain)), "Remaining = %s", totals.Remaining)
		})
	}
}

func TestValidateAllocation(t *testing.T) {
	tests := []struct {
		name     string
		tasks    []models.Task
		proposed string
		wantErr  bool
	}{
		{
			name:     "fits exactly",
			tasks:    []models.Task{billableTask(1, "40"), billableTask(2, "50")},
			proposed: "10",
			wantErr:  false,
		},
		{
			name:     "exceeds remaining",
			tasks:    []models.Task{billableTask(1, "40"), billableTask(2, "50")},
			proposed: "15",
			wantErr:  true,
		},
		{
			name:     "zero is always valid",
			tasks:    []models.Task{billableTask(1, "100")},
			proposed: "0",
			wantErr:  false,
		},
		{
			name:     "fractional percentages compare at two decimals",
			tasks:    []models.Task{billableTask(1, "99.99")},
			proposed: "0.01",
			wantErr:  false,
		},
		{
			name:     "fractional overflow is caught",
			tasks:    []models.Task{billableTask(1, "99.99")},
			proposed: "0.02",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := SumItems(tt.tasks, nil, SumOptions{})
			err := ValidateAllocation(totals, pct(tt.proposed))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAllocationError_Message(t *testing.T) {
	totals := SumItems([]models.Task{billableTask(1, "40"), billableTask(2, "50")}, nil, SumOptions{})

	err := ValidateAllocation(totals, pct("15"))
	assert.Error(t, err)

	var allocErr *AllocationError
	assert.ErrorAs(t, err, &allocErr)
	assert.Equal(t,
		"billing percentage 15.00% exceeds the project allocation (current total: 90.00%, remaining: 10.00%)",
		allocErr.Error(),
	)
}

func TestValidateAllocation_ExcludesOwnValueOnUpdate(t *testing.T) {
	// A task at 30% with a 30% mirror milestone, next to a 40% task. Raising
	// the first task to 45% must only be checked against the other 40%.
	tasks := []models.Task{
		billableTask(1, "30"),
		billableTask(2, "40"),
	}
	milestones := []models.Milestone{
		{ID: 10, IsBillable: true, TaskID: uint64Ptr(1), BillingPercentage: pct("30")},
	}

	totals := SumItems(tasks, milestones, SumOptions{ExcludeTaskID: uint64Ptr(1)})
	assert.True(t, totals.GrandTotal.Equal(pct("40")))

	assert.NoError(t, ValidateAllocation(totals, pct("45")))
	assert.Error(t, ValidateAllocation(totals, pct("65")))
}
