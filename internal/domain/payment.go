package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentMode string

const (
	// PaymentModeAmount splits a single total between interest and capital.
	PaymentModeAmount PaymentMode = "AMOUNT"
	// PaymentModeSplit takes capital and interest exactly as given.
	PaymentModeSplit PaymentMode = "SPLIT"
	// PaymentModeOverdue settles a number of overdue periods at once.
	PaymentModeOverdue PaymentMode = "OVERDUE"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodDeposit  = "deposit"
	PaymentMethodCard     = "card"
	PaymentMethodCheck    = "check"
)

// Payment is the immutable record of one money receipt.
type Payment struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	LoanID         uuid.UUID       `json:"loan_id" db:"loan_id"`
	PaymentDate    time.Time       `json:"payment_date" db:"payment_date"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	InterestPaid   decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	CapitalPaid    decimal.Decimal `json:"capital_paid" db:"capital_paid"`
	LateInterest   decimal.Decimal `json:"late_interest" db:"late_interest"`
	BalanceApplied decimal.Decimal `json:"balance_applied" db:"balance_applied"`
	PeriodsCovered int             `json:"periods_covered" db:"periods_covered"`
	PriorStatus    LoanStatus      `json:"-" db:"prior_status"`
	Mode           PaymentMode     `json:"mode" db:"mode"`
	Method         string          `json:"method" db:"method"`
	Notes          string          `json:"notes,omitempty" db:"notes"`
	ReceiptNumber  string          `json:"receipt_number" db:"receipt_number"`
	CreatedBy      string          `json:"created_by" db:"created_by"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// MakePaymentRequest carries exactly one of the three payment modes:
// Amount, CapitalAmount/InterestAmount, or OverduePeriods.
type MakePaymentRequest struct {
	Amount         *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,decimal_gt=0,decimal_scale=2"`
	CapitalAmount  *decimal.Decimal `json:"capital_amount,omitempty" validate:"omitempty,decimal_gte=0,decimal_scale=2"`
	InterestAmount *decimal.Decimal `json:"interest_amount,omitempty" validate:"omitempty,decimal_gte=0,decimal_scale=2"`
	OverduePeriods int              `json:"overdue_periods,omitempty" validate:"gte=0"`
	LateInterest   decimal.Decimal  `json:"late_interest,omitempty" validate:"decimal_gte=0,decimal_scale=2"`
	PaymentDate    string           `json:"payment_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Method         string           `json:"method,omitempty" validate:"omitempty,oneof=cash transfer deposit card check"`
	Notes          string           `json:"notes,omitempty" validate:"max=500"`
}

// Mode resolves which payment mode the request selects. ok is false when zero or
// more than one mode is present.
func (r *MakePaymentRequest) Mode() (mode PaymentMode, ok bool) {
	selected := 0
	if r.Amount != nil {
		mode = PaymentModeAmount
		selected++
	}
	if r.CapitalAmount != nil || r.InterestAmount != nil {
		mode = PaymentModeSplit
		selected++
	}
	if r.OverduePeriods > 0 {
		mode = PaymentModeOverdue
		selected++
	}
	return mode, selected == 1
}
