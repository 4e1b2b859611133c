package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementLoanDisbursed   MovementType = "LOAN_DISBURSED"
	MovementPaymentReceived MovementType = "PAYMENT_RECEIVED"
	MovementExpense         MovementType = "EXPENSE"
	MovementDeposit         MovementType = "DEPOSIT"
)

const (
	ReferenceLoan    = "loan"
	ReferencePayment = "payment"
)

// IsInflow reports whether the movement adds cash.
func (t MovementType) IsInflow() bool {
	return t == MovementDeposit || t == MovementPaymentReceived
}

// IsValid reports whether t is a known movement type.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementLoanDisbursed, MovementPaymentReceived, MovementExpense, MovementDeposit:
		return true
	}
	return false
}

// Signed returns amount with the sign the movement type applies to the balance.
func (t MovementType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t.IsInflow() {
		return amount
	}
	return amount.Neg()
}

// CashMovement is one append-only ledger entry. ID is the insertion sequence and
// the only ordering that defines the current balance.
type CashMovement struct {
	ID            int64           `json:"id" db:"id"`
	MovementDate  time.Time       `json:"movement_date" db:"movement_date"`
	Type          MovementType    `json:"type" db:"movement_type"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after" db:"balance_after"`
	ReferenceType string          `json:"reference_type,omitempty" db:"reference_type"`
	ReferenceID   string          `json:"reference_id,omitempty" db:"reference_id"`
	Description   string          `json:"description" db:"description"`
	CreatedBy     string          `json:"created_by" db:"created_by"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type RecordMovementRequest struct {
	Type         MovementType    `json:"type" validate:"required,oneof=EXPENSE DEPOSIT"`
	Amount       decimal.Decimal `json:"amount" validate:"decimal_gt=0,decimal_scale=2"`
	Description  string          `json:"description" validate:"required,max=255"`
	MovementDate string          `json:"movement_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

type CashBalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}
