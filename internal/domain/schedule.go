package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ScheduledPeriod is one expected payment of a loan.
type ScheduledPeriod struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         uuid.UUID       `json:"loan_id" db:"loan_id"`
	PeriodNumber   int             `json:"period_number" db:"period_number"`
	DueDate        time.Time       `json:"due_date" db:"due_date"`
	ExpectedAmount decimal.Decimal `json:"expected_amount" db:"expected_amount"`
	IsPaid         bool            `json:"is_paid" db:"is_paid"`
	PaidAmount     decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	InterestPaid   decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	CapitalPaid    decimal.Decimal `json:"capital_paid" db:"capital_paid"`
	PaymentDate    *time.Time      `json:"payment_date,omitempty" db:"payment_date"`
	PaymentID      *uuid.UUID      `json:"payment_id,omitempty" db:"payment_id"`
}

// IsOverdue reports whether the period is unpaid and its due date is strictly before today.
func (p *ScheduledPeriod) IsOverdue(today time.Time) bool {
	return !p.IsPaid && p.DueDate.Before(today)
}

// MarkPaid records the split of a payment against the period.
func (p *ScheduledPeriod) MarkPaid(paymentID uuid.UUID, date time.Time, interest, capital decimal.Decimal) {
	id := paymentID
	d := date
	p.IsPaid = true
	p.PaidAmount = interest.Add(capital)
	p.InterestPaid = interest
	p.CapitalPaid = capital
	p.PaymentDate = &d
	p.PaymentID = &id
}

// Reset returns the period to its unpaid state.
func (p *ScheduledPeriod) Reset() {
	p.IsPaid = false
	p.PaidAmount = decimal.Zero
	p.InterestPaid = decimal.Zero
	p.CapitalPaid = decimal.Zero
	p.PaymentDate = nil
	p.PaymentID = nil
}

// OverdueSummary sums the unpaid expected amounts whose due date has passed.
func OverdueSummary(periods []*ScheduledPeriod, today time.Time) (decimal.Decimal, int) {
	total := decimal.Zero
	count := 0
	for _, p := range periods {
		if p.IsOverdue(today) {
			total = total.Add(p.ExpectedAmount)
			count++
		}
	}
	return total, count
}

// FirstUnpaid returns the earliest unpaid period, or nil.
func FirstUnpaid(periods []*ScheduledPeriod) *ScheduledPeriod {
	for _, p := range periods {
		if !p.IsPaid {
			return p
		}
	}
	return nil
}

type ScheduleResponse struct {
	LoanID   uuid.UUID          `json:"loan_id"`
	Schedule []*ScheduledPeriod `json:"schedule"`
}
