package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const paymentColumns = `id, loan_id, payment_date, amount, interest_paid, capital_paid, late_interest,
		balance_applied, periods_covered, prior_status, mode, method, notes, receipt_number, created_by, created_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.PaymentDate,
		payment.Amount,
		payment.InterestPaid,
		payment.CapitalPaid,
		payment.LateInterest,
		payment.BalanceApplied,
		payment.PeriodsCovered,
		payment.PriorStatus,
		payment.Mode,
		payment.Method,
		payment.Notes,
		payment.ReceiptNumber,
		payment.CreatedBy,
		payment.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("receipt %s already issued: %w", payment.ReceiptNumber, err)
	}

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var payment domain.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, id); err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = $1
		ORDER BY payment_date, created_at
	`

	var payments []*domain.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM payments WHERE loan_id = $1`, loanID)
	return count, err
}

func (r *paymentRepository) GetLatestPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	var latest sql.NullTime
	err := sqlx.GetContext(ctx, r.db, &latest, `SELECT MAX(payment_date) FROM payments WHERE loan_id = $1`, loanID)
	if err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}

	return &latest.Time, nil
}

func (r *paymentRepository) GetLatestReceiptNumber(ctx context.Context, prefix string) (string, error) {
	query := `
		SELECT receipt_number
		FROM payments
		WHERE receipt_number LIKE $1
		ORDER BY LENGTH(receipt_number) DESC, receipt_number DESC
		LIMIT 1
	`

	var receipt string
	err := sqlx.GetContext(ctx, r.db, &receipt, query, prefix+"%")
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	return receipt, err
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	return nil
}
