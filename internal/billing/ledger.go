// Package billing holds the pure billing-allocation and invoice-state logic.
// Nothing in this package touches the database; repositories feed it rows
// read under the appropriate locks.
package billing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

// FullAllocation is the percentage budget every project shares between its
// billable tasks and milestones.
var FullAllocation = decimal.NewFromInt(100)

// Totals is the per-project percentage ledger, recomputed from scratch on
// every check so it can never drift from the underlying rows.
type Totals struct {
	FromTasks      decimal.Decimal `json:"from_tasks"`
	FromMilestones decimal.Decimal `json:"from_milestones"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	Remaining      decimal.Decimal `json:"remaining"`
}

// SumOptions excludes the entity currently being updated so it is not
// double-counted against its own proposed value.
type SumOptions struct {
	ExcludeTaskID      *uint64
	ExcludeMilestoneID *uint64
}

// SumItems computes the ledger totals from a project's tasks and milestones.
// Only billable percentage-type tasks and billable milestones count. A
// milestone that is the billing counterpart of a task is always skipped on
// the milestone side: the owning task carries that percentage, and the mirror
// must follow the task through exclusions too.
func SumItems(tasks []models.Task, milestones []models.Milestone, opts SumOptions) Totals {
	fromTasks := decimal.Zero
	for _, t := range tasks {
		if opts.ExcludeTaskID != nil && t.ID == *opts.ExcludeTaskID {
			continue
		}
		if !t.CountsTowardLedger() {
			continue
		}
		fromTasks = fromTasks.Add(t.BillingPercentage)
	}

	fromMilestones := decimal.Zero
	for _, m := range milestones {
		if opts.ExcludeMilestoneID != nil && m.ID == *opts.ExcludeMilestoneID {
			continue
		}
		if !m.IsBillable || m.TaskID != nil {
			continue
		}
		fromMilestones = fromMilestones.Add(m.BillingPercentage)
	}

	grand := fromTasks.Add(fromMilestones)
	remaining := FullAllocation.Sub(grand)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Totals{
		FromTasks:      fromTasks,
		FromMilestones: fromMilestones,
		GrandTotal:     grand,
		Remaining:      remaining,
	}
}

// AllocationError is returned when a proposed billing percentage would push a
// project past its full allocation. It carries the current total and the
// remaining allowance so the caller can self-correct.
type AllocationError struct {
	Proposed  decimal.Decimal
	Total     decimal.Decimal
	Remaining decimal.Decimal
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf(
		"billing percentage %s%% exceeds the project allocation (current total: %s%%, remaining: %s%%)",
		e.Proposed.StringFixed(2), e.Total.StringFixed(2), e.Remaining.StringFixed(2),
	)
}

// ValidateAllocation accepts or rejects a proposed billing percentage against
// the current ledger totals. Non-positive proposals are always valid.
// Comparison happens at two decimal places, matching the stored precision of
// the percentage columns.
func ValidateAllocation(totals Totals, proposed decimal.Decimal) error {
	if proposed.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	total := totals.GrandTotal.Round(2)
	if total.Add(proposed.Round(2)).GreaterThan(FullAllocation) {
		return &AllocationError{
			Proposed:  proposed.Round(2),
			Total:     total,
			Remaining: totals.Remaining.Round(2),
		}
	}

	return nil
}
