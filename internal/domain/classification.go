package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type HealthState string

const (
	HealthCurrent    HealthState = "CURRENT"
	HealthDueSoon    HealthState = "DUE_SOON"
	HealthDelinquent HealthState = "DELINQUENT"
)

// LoanHealth is the payment-health view of one open loan.
type LoanHealth struct {
	LoanID          uuid.UUID       `json:"loan_id"`
	CustomerRef     string          `json:"customer_ref"`
	ProductType     ProductType     `json:"product_type"`
	Status          LoanStatus      `json:"status"`
	State           HealthState     `json:"state"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	LastPaymentDate *time.Time      `json:"last_payment_date,omitempty"`
	Deadline        *time.Time      `json:"deadline,omitempty"`
	DaysRemaining   int             `json:"days_remaining,omitempty"`
	DaysOverdue     int             `json:"days_overdue,omitempty"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
	MissedCycles    int             `json:"missed_cycles,omitempty"`
}

// LoanClassification is the three-bucket dashboard semaphore.
// Delinquent is sorted by DaysOverdue descending, DueSoon by DaysRemaining ascending.
type LoanClassification struct {
	Current     []*LoanHealth `json:"current"`
	DueSoon     []*LoanHealth `json:"due_soon"`
	Delinquent  []*LoanHealth `json:"delinquent"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ReconcileResult reports what an overdue reconciliation pass did.
type ReconcileResult struct {
	Checked int         `json:"checked"`
	Flagged int         `json:"flagged"`
	LoanIDs []uuid.UUID `json:"loan_ids,omitempty"`
}
