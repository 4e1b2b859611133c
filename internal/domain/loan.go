package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductFixedTerm ProductType = "FIXED_TERM"
	ProductOpenEnded ProductType = "OPEN_ENDED"
)

type Modality string

const (
	ModalityMonthly     Modality = "monthly"
	ModalitySemiMonthly Modality = "semi-monthly"
)

type LoanStatus string

const (
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusOverdue   LoanStatus = "OVERDUE"
	LoanStatusPaid      LoanStatus = "PAID"
	LoanStatusCancelled LoanStatus = "CANCELLED"
)

// Loan represents a loan entity
type Loan struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CustomerRef       string          `json:"customer_ref" db:"customer_ref"`
	Principal         decimal.Decimal `json:"principal" db:"principal"`
	OriginationDate   time.Time       `json:"origination_date" db:"origination_date"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"`
	ProductType       ProductType     `json:"product_type" db:"product_type"`
	Modality          Modality        `json:"modality,omitempty" db:"modality"`
	Term              int             `json:"term,omitempty" db:"term"`
	TotalToRepay      decimal.Decimal `json:"total_to_repay" db:"total_to_repay"`
	PeriodAmount      decimal.Decimal `json:"period_amount" db:"period_amount"`
	CurrentBalance    decimal.Decimal `json:"current_balance" db:"current_balance"`
	TotalInterestPaid decimal.Decimal `json:"total_interest_paid" db:"total_interest_paid"`
	TotalCapitalPaid  decimal.Decimal `json:"total_capital_paid" db:"total_capital_paid"`
	PeriodsPaid       int             `json:"periods_paid" db:"periods_paid"`
	LastPaymentDate   *time.Time      `json:"last_payment_date,omitempty" db:"last_payment_date"`
	Status            LoanStatus      `json:"status" db:"status"`
	Notes             string          `json:"notes,omitempty" db:"notes"`
	CreatedBy         string          `json:"created_by" db:"created_by"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// Product returns the product variant governing this loan.
func (l *Loan) Product() (Product, error) {
	return ProductFor(l.ProductType, l.Modality)
}

// IsPayable reports whether the loan accepts payments in its current status.
func (l *Loan) IsPayable() bool {
	return l.Status == LoanStatusActive || l.Status == LoanStatusOverdue
}

// IsOpen reports whether the loan still carries a balance the lender expects back.
func (l *Loan) IsOpen() bool {
	return l.IsPayable() && l.CurrentBalance.IsPositive()
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	CustomerRef     string          `json:"customer_ref" validate:"required,max=64"`
	Principal       decimal.Decimal `json:"principal" validate:"decimal_gt=0,decimal_scale=2"`
	InterestRate    decimal.Decimal `json:"interest_rate" validate:"decimal_gte=0,decimal_scale=4"`
	ProductType     ProductType     `json:"product_type" validate:"required,oneof=FIXED_TERM OPEN_ENDED"`
	Modality        Modality        `json:"modality,omitempty" validate:"omitempty,oneof=monthly semi-monthly"`
	Term            int             `json:"term,omitempty" validate:"gte=0,lte=600"`
	OriginationDate string          `json:"origination_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes           string          `json:"notes,omitempty" validate:"max=500"`
}

type CreateLoanResponse struct {
	Loan     *Loan              `json:"loan"`
	Schedule []*ScheduledPeriod `json:"schedule"`
}

// LoanDetail is a loan with its schedule, payments and overdue summary.
type LoanDetail struct {
	*Loan
	Schedule           []*ScheduledPeriod `json:"schedule"`
	Payments           []*Payment         `json:"payments"`
	OverdueAmount      decimal.Decimal    `json:"overdue_amount"`
	OverduePeriodCount int                `json:"overdue_period_count"`
}
