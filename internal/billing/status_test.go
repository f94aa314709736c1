package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from models.InvoiceStatus
		to   models.InvoiceStatus
		want bool
	}{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid, true},
		{models.InvoiceStatusSent, models.InvoiceStatusOverdue, true},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusOverdue, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusOverdue, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusPartiallyPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusCancelled, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusDraft, false},
		// Self-transitions are no-ops, not violations.
		{models.InvoiceStatusPaid, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusDraft, true},
	}

	for _, tt := range tests {
		got := CanTransition(tt.from, tt.to)
		assert.Equal(t, tt.want, got, "%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.InvoiceStatusPaid))
	assert.True(t, IsTerminal(models.InvoiceStatusCancelled))
	assert.False(t, IsTerminal(models.InvoiceStatusDraft))
	assert.False(t, IsTerminal(models.InvoiceStatusSent))
	assert.False(t, IsTerminal(models.InvoiceStatusOverdue))
	assert.False(t, IsTerminal(models.InvoiceStatusPartiallyPaid))
}

func TestStatusForPayments(t *testing.T) {
	amount := decimal.NewFromInt(1000)

	tests := []struct {
		name    string
		current models.InvoiceStatus
		paid    string
		want    models.InvoiceStatus
	}{
		{"no payments leaves status alone", models.InvoiceStatusSent, "0", models.InvoiceStatusSent},
		{"partial payment advances sent", models.InvoiceStatusSent, "400", models.InvoiceStatusPartiallyPaid},
		{"full payment settles", models.InvoiceStatusPartiallyPaid, "1000", models.InvoiceStatusPaid},
		{"overpayment still settles", models.InvoiceStatusSent, "1200", models.InvoiceStatusPaid},
		{"overdue advances through payments", models.InvoiceStatusOverdue, "400", models.InvoiceStatusPartiallyPaid},
		{"paid never regresses to partially paid", models.InvoiceStatusPaid, "400", models.InvoiceStatusPaid},
		{"cancelled is frozen", models.InvoiceStatusCancelled, "1000", models.InvoiceStatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StatusForPayments(tt.current, amount, decimal.RequireFromString(tt.paid))
			assert.Equal(t, tt.want, got)
		})
	}
}
