package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// allocation is the effect of one payment before it is persisted.
type allocation struct {
	amount    decimal.Decimal
	interest  decimal.Decimal
	capital   decimal.Decimal
	reduction decimal.Decimal
	periods   []periodSplit
}

type periodSplit struct {
	period   *domain.ScheduledPeriod
	interest decimal.Decimal
	capital  decimal.Decimal
}

// ApplyPayment allocates one payment against a loan. The loan row is locked for
// the whole transaction; the ledger tail lock is taken after it.
func (s *BillingService) ApplyPayment(ctx context.Context, loanID uuid.UUID, request *domain.MakePaymentRequest, actor string) (*domain.Payment, error) {
	mode, ok := request.Mode()
	if !ok {
		return nil, customError.WrapInvalidPaymentInput("exactly one of amount, capital_amount/interest_amount or overdue_periods is required")
	}
	if request.LateInterest.IsNegative() {
		return nil, customError.WrapInvalidPaymentAmount(request.LateInterest.String())
	}
	for _, amount := range []*decimal.Decimal{request.Amount, request.CapitalAmount, request.InterestAmount, &request.LateInterest} {
		if amount != nil && !utils.FitsScale(*amount, utils.MoneyScale) {
			return nil, customError.WrapInvalidPaymentAmount(amount.String())
		}
	}

	today := s.today()
	paymentDate := today
	if request.PaymentDate != "" {
		var err error
		if paymentDate, err = utils.ParseDate(request.PaymentDate); err != nil {
			return nil, customError.WrapValidation(err)
		}
	}

	method := request.Method
	if method == "" {
		method = domain.PaymentMethodCash
	}

	payment := &domain.Payment{
		ID:           uuid.New(),
		LoanID:       loanID,
		PaymentDate:  paymentDate,
		LateInterest: request.LateInterest,
		Mode:         mode,
		Method:       method,
		Notes:        request.Notes,
		CreatedBy:    actor,
		CreatedAt:    s.now(),
	}

	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if loan, err = lockLoan(ctx, tx, loanID); err != nil {
			return err
		}
		if !loan.IsPayable() {
			return customError.WrapLoanNotPayable(loanID.String(), string(loan.Status))
		}
		if !loan.CurrentBalance.IsPositive() {
			return customError.WrapNoOutstandingBalance(loanID.String())
		}

		product, err := loan.Product()
		if err != nil {
			return err
		}

		periods, err := tx.Loans().GetScheduleByLoanID(ctx, loanID)
		if err != nil {
			return err
		}

		alloc, err := allocate(mode, loan, product, periods, request, today)
		if err != nil {
			return err
		}

		_, err = s.recordMovementTx(ctx, tx, &domain.CashMovement{
			MovementDate:  paymentDate,
			Type:          domain.MovementPaymentReceived,
			Amount:        alloc.amount.Add(request.LateInterest),
			ReferenceType: domain.ReferencePayment,
			ReferenceID:   payment.ID.String(),
			Description:   fmt.Sprintf("Payment received for loan %s", loan.CustomerRef),
			CreatedBy:     actor,
		})
		if err != nil {
			return err
		}

		if payment.ReceiptNumber, err = s.nextReceiptNumber(ctx, tx, today); err != nil {
			return err
		}

		payment.Amount = alloc.amount
		payment.InterestPaid = alloc.interest
		payment.CapitalPaid = alloc.capital
		payment.BalanceApplied = alloc.reduction
		payment.PeriodsCovered = len(alloc.periods)
		payment.PriorStatus = loan.Status
		if err := tx.Payments().Create(ctx, payment); err != nil {
			return err
		}

		for _, split := range alloc.periods {
			split.period.MarkPaid(payment.ID, paymentDate, split.interest, split.capital)
			if err := tx.Loans().UpdatePeriod(ctx, split.period); err != nil {
				return err
			}
		}

		applyToLoan(loan, alloc, paymentDate)
		return tx.Loans().Update(ctx, loan)
	})
	if err != nil {
		return nil, s.fail(ctx, "apply_payment", err, "loan_id", loanID.String(), "payment_id", payment.ID.String())
	}

	s.invalidateDashboard(ctx)
	s.log(ctx).Info().
		Str("loan_id", loanID.String()).
		Str("payment_id", payment.ID.String()).
		Str("receipt", payment.ReceiptNumber).
		Str("mode", string(mode)).
		Str("amount", payment.Amount.String()).
		Str("balance", loan.CurrentBalance.String()).
		Msg("payment applied")

	return payment, nil
}

func allocate(
	mode domain.PaymentMode,
	loan *domain.Loan,
	product domain.Product,
	periods []*domain.ScheduledPeriod,
	request *domain.MakePaymentRequest,
	today time.Time,
) (*allocation, error) {
	switch mode {
	case domain.PaymentModeAmount:
		return allocateAmount(loan, product, periods, *request.Amount)
	case domain.PaymentModeSplit:
		return allocateSplit(loan, request.CapitalAmount, request.InterestAmount)
	case domain.PaymentModeOverdue:
		return allocateOverdue(loan, product, periods, request.OverduePeriods, today)
	default:
		return nil, customError.WrapInvalidPaymentInput("unknown payment mode " + string(mode))
	}
}

// allocateAmount splits a single total: interest first, the rest to capital.
func allocateAmount(loan *domain.Loan, product domain.Product, periods []*domain.ScheduledPeriod, amount decimal.Decimal) (*allocation, error) {
	if !amount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(amount.String())
	}

	next := domain.FirstUnpaid(periods)
	if minimum := product.MinimumPayment(loan, next); amount.LessThan(minimum) {
		return nil, customError.WrapBelowMinimumPayment(minimum.String(), amount.String())
	}

	interestDue := product.InterestDue(loan)
	alloc := &allocation{amount: amount, interest: amount, capital: decimal.Zero}
	if amount.GreaterThan(interestDue) {
		alloc.interest = interestDue
		alloc.capital = utils.MinDecimal(amount.Sub(interestDue), loan.CurrentBalance)
	}
	alloc.reduction = utils.MinDecimal(product.BalanceReduction(amount, alloc.capital), loan.CurrentBalance)

	if next != nil {
		alloc.periods = []periodSplit{{period: next, interest: alloc.interest, capital: alloc.capital}}
	}

	return alloc, nil
}

// allocateSplit takes capital and interest as given. Only capital touches the
// balance and the schedule is left alone.
func allocateSplit(loan *domain.Loan, capitalAmount, interestAmount *decimal.Decimal) (*allocation, error) {
	capital, interest := decimal.Zero, decimal.Zero
	if capitalAmount != nil {
		capital = *capitalAmount
	}
	if interestAmount != nil {
		interest = *interestAmount
	}
	if capital.IsNegative() || interest.IsNegative() {
		return nil, customError.WrapInvalidPaymentAmount(capital.Add(interest).String())
	}
	if !capital.Add(interest).IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(capital.Add(interest).String())
	}

	capital = utils.MinDecimal(capital, loan.CurrentBalance)

	return &allocation{
		amount:    capital.Add(interest),
		interest:  interest,
		capital:   capital,
		reduction: capital,
	}, nil
}

// allocateOverdue settles the n oldest overdue periods of a fixed term loan.
func allocateOverdue(loan *domain.Loan, product domain.Product, periods []*domain.ScheduledPeriod, n int, today time.Time) (*allocation, error) {
	if product.Type() != domain.ProductFixedTerm {
		return nil, customError.WrapOverdueNotSupported(loan.ID.String())
	}

	var overdue []*domain.ScheduledPeriod
	for _, period := range periods {
		if period.IsOverdue(today) {
			overdue = append(overdue, period)
		}
	}
	if n > len(overdue) {
		return nil, customError.WrapTooManyOverduePeriods(n, len(overdue))
	}

	interestDue := product.InterestDue(loan)
	remaining := loan.CurrentBalance
	alloc := &allocation{amount: decimal.Zero, interest: decimal.Zero, capital: decimal.Zero}
	for _, period := range overdue[:n] {
		interest := utils.MinDecimal(interestDue, period.ExpectedAmount)
		capital := utils.MinDecimal(period.ExpectedAmount.Sub(interest), remaining)
		remaining = remaining.Sub(capital)

		alloc.amount = alloc.amount.Add(period.ExpectedAmount)
		alloc.interest = alloc.interest.Add(interest)
		alloc.capital = alloc.capital.Add(capital)
		alloc.periods = append(alloc.periods, periodSplit{period: period, interest: interest, capital: capital})
	}
	alloc.reduction = utils.MinDecimal(product.BalanceReduction(alloc.amount, alloc.capital), loan.CurrentBalance)

	return alloc, nil
}

func applyToLoan(loan *domain.Loan, alloc *allocation, paymentDate time.Time) {
	date := paymentDate
	loan.CurrentBalance = loan.CurrentBalance.Sub(alloc.reduction)
	loan.TotalInterestPaid = loan.TotalInterestPaid.Add(alloc.interest)
	loan.TotalCapitalPaid = loan.TotalCapitalPaid.Add(alloc.capital)
	loan.PeriodsPaid += len(alloc.periods)
	loan.LastPaymentDate = &date

	switch {
	case !loan.CurrentBalance.IsPositive():
		loan.CurrentBalance = decimal.Zero
		loan.Status = domain.LoanStatusPaid
	case loan.Status == domain.LoanStatusOverdue:
		loan.Status = domain.LoanStatusActive
	}
}

// nextReceiptNumber issues PREFIX-YYYYMM-#### for the month of today. The ledger
// tail lock held by the caller serializes issuers.
func (s *BillingService) nextReceiptNumber(ctx context.Context, tx repository.Store, today time.Time) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", s.config.Business.ReceiptPrefix, today.Format("200601"))

	latest, err := tx.Payments().GetLatestReceiptNumber(ctx, prefix)
	if err != nil {
		return "", err
	}

	seq := 0
	if latest != "" {
		if seq, err = strconv.Atoi(strings.TrimPrefix(latest, prefix)); err != nil {
			return "", fmt.Errorf("malformed receipt number %q: %w", latest, err)
		}
	}

	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// ReversePayment deletes a payment and undoes its effect on the loan, the
// schedule and the ledger.
func (s *BillingService) ReversePayment(ctx context.Context, paymentID uuid.UUID, actor string) error {
	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		payment, err := findPayment(ctx, tx, paymentID)
		if err != nil {
			return err
		}

		if loan, err = lockLoan(ctx, tx, payment.LoanID); err != nil {
			return err
		}
		// Re-read under the lock; a concurrent reversal may have removed it.
		if payment, err = findPayment(ctx, tx, paymentID); err != nil {
			return err
		}

		if err := s.revertMovementTx(ctx, tx, domain.ReferencePayment, paymentID.String()); err != nil {
			return err
		}

		periods, err := tx.Loans().GetPeriodsByPaymentID(ctx, paymentID)
		if err != nil {
			return err
		}
		for _, period := range periods {
			period.Reset()
			if err := tx.Loans().UpdatePeriod(ctx, period); err != nil {
				return err
			}
		}

		if err := tx.Payments().Delete(ctx, paymentID); err != nil {
			return err
		}

		loan.CurrentBalance = loan.CurrentBalance.Add(payment.BalanceApplied)
		loan.TotalInterestPaid = loan.TotalInterestPaid.Sub(payment.InterestPaid)
		loan.TotalCapitalPaid = loan.TotalCapitalPaid.Sub(payment.CapitalPaid)
		loan.PeriodsPaid -= len(periods)
		if loan.Status == domain.LoanStatusPaid || loan.Status == domain.LoanStatusActive {
			loan.Status = domain.LoanStatusActive
			if payment.PriorStatus == domain.LoanStatusOverdue {
				loan.Status = domain.LoanStatusOverdue
			}
		}

		if loan.LastPaymentDate, err = tx.Payments().GetLatestPaymentDate(ctx, loan.ID); err != nil {
			return err
		}

		return tx.Loans().Update(ctx, loan)
	})
	if err != nil {
		return s.fail(ctx, "reverse_payment", err, "payment_id", paymentID.String())
	}

	s.invalidateDashboard(ctx)
	s.log(ctx).Info().
		Str("payment_id", paymentID.String()).
		Str("loan_id", loan.ID.String()).
		Str("actor", actor).
		Str("balance", loan.CurrentBalance.String()).
		Msg("payment reversed")

	return nil
}

func findPayment(ctx context.Context, tx repository.Store, paymentID uuid.UUID) (*domain.Payment, error) {
	payment, err := tx.Payments().GetByID(ctx, paymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapPaymentNotFound(paymentID.String())
	}
	return payment, err
}
