package repository

import (
	"context"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const loanColumns = `id, customer_ref, principal, origination_date, interest_rate, product_type, modality, term,
		total_to_repay, period_amount, current_balance, total_interest_paid, total_capital_paid, periods_paid,
		last_payment_date, status, notes, created_by, created_at, updated_at`

const periodColumns = `id, loan_id, period_number, due_date, expected_amount, is_paid, paid_amount,
		interest_paid, capital_paid, payment_date, payment_id`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.CustomerRef,
		loan.Principal,
		loan.OriginationDate,
		loan.InterestRate,
		loan.ProductType,
		loan.Modality,
		loan.Term,
		loan.TotalToRepay,
		loan.PeriodAmount,
		loan.CurrentBalance,
		loan.TotalInterestPaid,
		loan.TotalCapitalPaid,
		loan.PeriodsPaid,
		loan.LastPaymentDate,
		loan.Status,
		loan.Notes,
		loan.CreatedBy,
		loan.CreatedAt,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.db, &loan, query, id); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET current_balance = $2, total_interest_paid = $3, total_capital_paid = $4, periods_paid = $5,
			last_payment_date = $6, status = $7, notes = $8, updated_at = $9
		WHERE id = $1
	`

	loan.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		loan.ID,
		loan.CurrentBalance,
		loan.TotalInterestPaid,
		loan.TotalCapitalPaid,
		loan.PeriodsPaid,
		loan.LastPaymentDate,
		loan.Status,
		loan.Notes,
		loan.UpdatedAt,
	)

	return err
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans ORDER BY created_at DESC`

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = ANY($1) ORDER BY created_at DESC`

	values := make([]string, 0, len(statuses))
	for _, status := range statuses {
		values = append(values, string(status))
	}

	var loans []*domain.Loan
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, pq.Array(values)); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) MarkOverdue(ctx context.Context, ids []uuid.UUID, today time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE loans
		SET status = $2, updated_at = $3
		WHERE id = ANY($1::uuid[]) AND status = $4
		  AND EXISTS (
			SELECT 1 FROM scheduled_periods sp
			WHERE sp.loan_id = loans.id AND NOT sp.is_paid AND sp.due_date < $5::date
		  )
	`

	result, err := r.db.ExecContext(ctx, query,
		pq.Array(uuidStrings(ids)),
		domain.LoanStatusOverdue,
		time.Now(),
		domain.LoanStatusActive,
		utils.FormatDate(today),
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *loanRepository) CreateSchedule(ctx context.Context, periods []*domain.ScheduledPeriod) error {
	query := `
		INSERT INTO scheduled_periods (` + periodColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	for _, period := range periods {
		_, err := r.db.ExecContext(ctx, query,
			period.ID,
			period.LoanID,
			period.PeriodNumber,
			period.DueDate,
			period.ExpectedAmount,
			period.IsPaid,
			period.PaidAmount,
			period.InterestPaid,
			period.CapitalPaid,
			period.PaymentDate,
			period.PaymentID,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM scheduled_periods
		WHERE loan_id = $1
		ORDER BY period_number
	`

	var periods []*domain.ScheduledPeriod
	if err := sqlx.SelectContext(ctx, r.db, &periods, query, loanID); err != nil {
		return nil, err
	}

	return periods, nil
}

func (r *loanRepository) GetSchedulesByLoanIDs(ctx context.Context, loanIDs []uuid.UUID) (map[uuid.UUID][]*domain.ScheduledPeriod, error) {
	schedules := make(map[uuid.UUID][]*domain.ScheduledPeriod, len(loanIDs))
	if len(loanIDs) == 0 {
		return schedules, nil
	}

	query := `
		SELECT ` + periodColumns + `
		FROM scheduled_periods
		WHERE loan_id = ANY($1::uuid[])
		ORDER BY loan_id, period_number
	`

	var periods []*domain.ScheduledPeriod
	if err := sqlx.SelectContext(ctx, r.db, &periods, query, pq.Array(uuidStrings(loanIDs))); err != nil {
		return nil, err
	}

	for _, period := range periods {
		schedules[period.LoanID] = append(schedules[period.LoanID], period)
	}

	return schedules, nil
}

func (r *loanRepository) GetPeriodsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	query := `
		SELECT ` + periodColumns + `
		FROM scheduled_periods
		WHERE payment_id = $1
		ORDER BY period_number
	`

	var periods []*domain.ScheduledPeriod
	if err := sqlx.SelectContext(ctx, r.db, &periods, query, paymentID); err != nil {
		return nil, err
	}

	return periods, nil
}

func (r *loanRepository) UpdatePeriod(ctx context.Context, period *domain.ScheduledPeriod) error {
	query := `
		UPDATE scheduled_periods
		SET is_paid = $2, paid_amount = $3, interest_paid = $4, capital_paid = $5, payment_date = $6, payment_id = $7
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		period.ID,
		period.IsPaid,
		period.PaidAmount,
		period.InterestPaid,
		period.CapitalPaid,
		period.PaymentDate,
		period.PaymentID,
	)

	return err
}

func uuidStrings(ids []uuid.UUID) []string {
	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, id.String())
	}
	return values
}
