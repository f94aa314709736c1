package billing

import (
	"github.com/shopspring/decimal"

	"github.com/buildfolio/construction-portal-api/internal/models"
)

// statusRank orders the forward-only invoice lifecycle. Overdue sits beside
// sent: an overdue invoice can still move forward through payments.
var statusRank = map[models.InvoiceStatus]int{
	models.InvoiceStatusDraft:         0,
	models.InvoiceStatusSent:          1,
	models.InvoiceStatusOverdue:       1,
	models.InvoiceStatusPartiallyPaid: 2,
	models.InvoiceStatusPaid:          3,
}

// allowedTransitions is the closed transition table for explicit status
// changes. Payment-driven advancement goes through StatusForPayments instead.
var allowedTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:         {models.InvoiceStatusSent, models.InvoiceStatusCancelled},
	models.InvoiceStatusSent:          {models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPaid, models.InvoiceStatusOverdue, models.InvoiceStatusCancelled},
	models.InvoiceStatusOverdue:       {models.InvoiceStatusPartiallyPaid, models.InvoiceStatusPaid, models.InvoiceStatusCancelled},
	models.InvoiceStatusPartiallyPaid: {models.InvoiceStatusPaid, models.InvoiceStatusCancelled},
	models.InvoiceStatusPaid:          {},
	models.InvoiceStatusCancelled:     {},
}

// CanTransition reports whether an explicit status change is permitted.
func CanTransition(from, to models.InvoiceStatus) bool {
	if from == to {
		return true
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further status changes are permitted.
func IsTerminal(status models.InvoiceStatus) bool {
	return len(allowedTransitions[status]) == 0
}

// StatusForPayments derives the invoice status from the full payment set.
// The result never moves backward: a status is only returned when it ranks at
// or above the current one, so replayed or out-of-order payment events cannot
// regress a paid invoice.
func StatusForPayments(current models.InvoiceStatus, invoiceAmount, totalPaid decimal.Decimal) models.InvoiceStatus {
	if current == models.InvoiceStatusCancelled {
		return current
	}

	var derived models.InvoiceStatus
	switch {
	case totalPaid.GreaterThanOrEqual(invoiceAmount):
		derived = models.InvoiceStatusPaid
	case totalPaid.IsPositive():
		derived = models.InvoiceStatusPartiallyPaid
	default:
		return current
	}

	if statusRank[derived] > statusRank[current] {
		return derived
	}
	return current
}
