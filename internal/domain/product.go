package domain

import (
	"time"

	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/shopspring/decimal"
)

// OpenEndedHorizon is the number of monthly interest periods projected for an
// open-ended loan.
const OpenEndedHorizon = 60

// LoanTerms are the inputs to schedule generation.
type LoanTerms struct {
	Principal       decimal.Decimal
	InterestRate    decimal.Decimal
	Term            int
	OriginationDate time.Time
}

// ScheduleEntry is one generated due date and its expected amount.
type ScheduleEntry struct {
	DueDate        time.Time
	ExpectedAmount decimal.Decimal
}

// Schedule is the result of generating a loan's payment plan.
type Schedule struct {
	Entries        []ScheduleEntry
	TotalToRepay   decimal.Decimal
	PeriodAmount   decimal.Decimal
	InitialBalance decimal.Decimal
}

// Product captures everything that differs between loan products. It is selected
// once from the loan and used by origination, allocation and classification.
type Product interface {
	Type() ProductType
	// GenerateSchedule produces the ordered expected payments for new terms.
	GenerateSchedule(terms LoanTerms) (*Schedule, error)
	// InterestDue is the interest owed by one regular payment on the loan.
	InterestDue(loan *Loan) decimal.Decimal
	// BalanceReduction is how much a payment lowers the outstanding balance.
	BalanceReduction(amount, capital decimal.Decimal) decimal.Decimal
	// MinimumPayment is the smallest single-amount payment accepted.
	MinimumPayment(loan *Loan, next *ScheduledPeriod) decimal.Decimal
	// GraceDeadline is the last day a payment is "due soon" rather than delinquent.
	GraceDeadline(loan *Loan, oldestUnpaid *ScheduledPeriod) time.Time
}

// ProductFor selects the product variant. FixedTerm defaults to monthly modality.
func ProductFor(productType ProductType, modality Modality) (Product, error) {
	switch productType {
	case ProductFixedTerm:
		switch modality {
		case "", ModalityMonthly:
			return fixedTerm{modality: ModalityMonthly}, nil
		case ModalitySemiMonthly:
			return fixedTerm{modality: ModalitySemiMonthly}, nil
		default:
			return nil, customError.WrapUnsupportedModality(string(modality))
		}
	case ProductOpenEnded:
		return openEnded{}, nil
	default:
		return nil, customError.WrapUnsupportedProduct(string(productType))
	}
}

func validateTerms(terms LoanTerms) error {
	if !terms.Principal.IsPositive() || !utils.FitsScale(terms.Principal, utils.MoneyScale) {
		return customError.WrapInvalidLoanAmount(terms.Principal.String())
	}
	if terms.InterestRate.IsNegative() || !utils.FitsScale(terms.InterestRate, utils.RateScale) {
		return customError.WrapInvalidInterestRate(terms.InterestRate.String())
	}
	return nil
}

type fixedTerm struct {
	modality Modality
}

func (f fixedTerm) Type() ProductType { return ProductFixedTerm }

// periodRate is the per-period rate; semi-monthly periods carry half the monthly rate.
func (f fixedTerm) periodRate(percent decimal.Decimal) decimal.Decimal {
	rate := utils.RateFromPercent(percent)
	if f.modality == ModalitySemiMonthly {
		return rate.Div(decimal.NewFromInt(2))
	}
	return rate
}

func (f fixedTerm) GenerateSchedule(terms LoanTerms) (*Schedule, error) {
	if terms.Term <= 0 {
		return nil, customError.WrapTermRequired()
	}
	if err := validateTerms(terms); err != nil {
		return nil, err
	}

	term := decimal.NewFromInt(int64(terms.Term))
	totalInterest := utils.CeilUnit(terms.Principal.Mul(f.periodRate(terms.InterestRate)).Mul(term))
	totalToRepay := terms.Principal.Add(totalInterest)
	periodAmount := utils.CeilUnit(totalToRepay.Div(term))

	entries := make([]ScheduleEntry, 0, terms.Term)
	var due time.Time
	for i := 1; i <= terms.Term; i++ {
		switch {
		case f.modality == ModalityMonthly:
			due = utils.MonthlyDueDate(terms.OriginationDate, i)
		case i == 1:
			due = utils.FirstSemiMonthlyDue(terms.OriginationDate)
		default:
			due = utils.NextSemiMonthlyDue(due)
		}
		entries = append(entries, ScheduleEntry{DueDate: due, ExpectedAmount: periodAmount})
	}

	return &Schedule{
		Entries:        entries,
		TotalToRepay:   totalToRepay,
		PeriodAmount:   periodAmount,
		InitialBalance: totalToRepay,
	}, nil
}

// InterestDue is computed on the original principal, not the balance.
func (f fixedTerm) InterestDue(loan *Loan) decimal.Decimal {
	return utils.CeilUnit(loan.Principal.Mul(f.periodRate(loan.InterestRate)))
}

// BalanceReduction is the full amount: the balance already bundles future interest.
func (f fixedTerm) BalanceReduction(amount, _ decimal.Decimal) decimal.Decimal {
	return amount
}

func (f fixedTerm) MinimumPayment(loan *Loan, next *ScheduledPeriod) decimal.Decimal {
	if next == nil {
		return loan.CurrentBalance
	}
	return utils.MinDecimal(next.ExpectedAmount, loan.CurrentBalance)
}

// GraceDeadline is one period length past the oldest unpaid due date.
func (f fixedTerm) GraceDeadline(_ *Loan, oldestUnpaid *ScheduledPeriod) time.Time {
	if oldestUnpaid == nil {
		return time.Time{}
	}
	if f.modality == ModalitySemiMonthly {
		return utils.NextSemiMonthlyDue(oldestUnpaid.DueDate)
	}
	return utils.EndOfMonth(utils.AddMonthsClamped(oldestUnpaid.DueDate, 1))
}

type openEnded struct{}

func (o openEnded) Type() ProductType { return ProductOpenEnded }

func (o openEnded) GenerateSchedule(terms LoanTerms) (*Schedule, error) {
	if err := validateTerms(terms); err != nil {
		return nil, err
	}

	interest := utils.CeilUnit(terms.Principal.Mul(utils.RateFromPercent(terms.InterestRate)))
	entries := make([]ScheduleEntry, 0, OpenEndedHorizon)
	for i := 1; i <= OpenEndedHorizon; i++ {
		entries = append(entries, ScheduleEntry{
			DueDate:        utils.AddMonthsClamped(terms.OriginationDate, i),
			ExpectedAmount: interest,
		})
	}

	return &Schedule{
		Entries:        entries,
		TotalToRepay:   decimal.Zero,
		PeriodAmount:   interest,
		InitialBalance: terms.Principal,
	}, nil
}

// InterestDue is computed on the current balance.
func (o openEnded) InterestDue(loan *Loan) decimal.Decimal {
	return utils.CeilUnit(loan.CurrentBalance.Mul(utils.RateFromPercent(loan.InterestRate)))
}

// BalanceReduction is the capital portion only; interest never enters the balance.
func (o openEnded) BalanceReduction(_, capital decimal.Decimal) decimal.Decimal {
	return capital
}

func (o openEnded) MinimumPayment(*Loan, *ScheduledPeriod) decimal.Decimal {
	return decimal.Zero
}

// GraceDeadline is one month past the last payment, or past origination if none.
func (o openEnded) GraceDeadline(loan *Loan, _ *ScheduledPeriod) time.Time {
	reference := loan.OriginationDate
	if loan.LastPaymentDate != nil {
		reference = *loan.LastPaymentDate
	}
	return utils.AddMonthsClamped(reference, 1)
}
