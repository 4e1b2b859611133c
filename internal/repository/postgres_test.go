package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL, applies scripts/init.sql and
// empties every table. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) (repository.Store, *sqlx.DB) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	schema, err := os.ReadFile(filepath.Join("..", "..", "scripts", "init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)

	_, err = db.Exec(`TRUNCATE cash_movements, scheduled_periods, payments, loans RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return repository.NewPostgresStore(db), db
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newLoan(status domain.LoanStatus) *domain.Loan {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Loan{
		ID:                uuid.New(),
		CustomerRef:       "CUST-1",
		Principal:         decimal.NewFromInt(10000),
		OriginationDate:   date("2025-01-15"),
		InterestRate:      decimal.NewFromInt(5),
		ProductType:       domain.ProductFixedTerm,
		Modality:          domain.ModalityMonthly,
		Term:              3,
		TotalToRepay:      decimal.NewFromInt(11500),
		PeriodAmount:      decimal.NewFromInt(3834),
		CurrentBalance:    decimal.NewFromInt(11500),
		TotalInterestPaid: decimal.Zero,
		TotalCapitalPaid:  decimal.Zero,
		Status:            status,
		CreatedBy:         "tester",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func newSchedule(loan *domain.Loan) []*domain.ScheduledPeriod {
	dues := []string{"2025-01-31", "2025-02-28", "2025-03-31"}
	periods := make([]*domain.ScheduledPeriod, 0, len(dues))
	for i, due := range dues {
		periods = append(periods, &domain.ScheduledPeriod{
			ID:             uuid.New(),
			LoanID:         loan.ID,
			PeriodNumber:   i + 1,
			DueDate:        date(due),
			ExpectedAmount: loan.PeriodAmount,
			PaidAmount:     decimal.Zero,
			InterestPaid:   decimal.Zero,
			CapitalPaid:    decimal.Zero,
		})
	}
	return periods
}

func newPayment(loanID uuid.UUID, receipt, day string) *domain.Payment {
	return &domain.Payment{
		ID:             uuid.New(),
		LoanID:         loanID,
		PaymentDate:    date(day),
		Amount:         decimal.NewFromInt(3834),
		InterestPaid:   decimal.NewFromInt(500),
		CapitalPaid:    decimal.NewFromInt(3334),
		LateInterest:   decimal.Zero,
		BalanceApplied: decimal.NewFromInt(3834),
		PeriodsCovered: 1,
		PriorStatus:    domain.LoanStatusActive,
		Mode:           domain.PaymentModeAmount,
		Method:         domain.PaymentMethodCash,
		ReceiptNumber:  receipt,
		CreatedBy:      "tester",
		CreatedAt:      time.Now().UTC(),
	}
}

func TestPostgresLoanRepository(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	loan := newLoan(domain.LoanStatusActive)
	require.NoError(t, store.Loans().Create(ctx, loan))
	require.NoError(t, store.Loans().CreateSchedule(ctx, newSchedule(loan)))

	got, err := store.Loans().GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, got.Principal.Equal(loan.Principal))
	assert.Equal(t, loan.OriginationDate, got.OriginationDate.UTC())
	assert.Equal(t, domain.ModalityMonthly, got.Modality)
	assert.Nil(t, got.LastPaymentDate)

	_, err = store.Loans().GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	periods, err := store.Loans().GetScheduleByLoanID(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, 1, periods[0].PeriodNumber)
	assert.Nil(t, periods[0].PaymentID)

	other := newLoan(domain.LoanStatusPaid)
	require.NoError(t, store.Loans().Create(ctx, other))

	open, err := store.Loans().ListByStatus(ctx, domain.LoanStatusActive, domain.LoanStatusOverdue)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, loan.ID, open[0].ID)

	byLoan, err := store.Loans().GetSchedulesByLoanIDs(ctx, []uuid.UUID{loan.ID, other.ID})
	require.NoError(t, err)
	assert.Len(t, byLoan[loan.ID], 3)
	assert.Empty(t, byLoan[other.ID])

	flipped, err := store.Loans().MarkOverdue(ctx, []uuid.UUID{loan.ID, other.ID}, date("2025-01-31"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), flipped, "first period is due on the 31st, not before it")

	flipped, err = store.Loans().MarkOverdue(ctx, []uuid.UUID{loan.ID, other.ID}, date("2025-02-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), flipped)

	got, err = store.Loans().GetByID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusOverdue, got.Status)
}

func TestPostgresPaymentsAndPeriods(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	loan := newLoan(domain.LoanStatusActive)
	require.NoError(t, store.Loans().Create(ctx, loan))
	schedule := newSchedule(loan)
	require.NoError(t, store.Loans().CreateSchedule(ctx, schedule))

	first := newPayment(loan.ID, "REC-202502-9999", "2025-02-01")
	second := newPayment(loan.ID, "REC-202502-10000", "2025-02-20")
	require.NoError(t, store.Payments().Create(ctx, first))
	require.NoError(t, store.Payments().Create(ctx, second))

	duplicate := newPayment(loan.ID, "REC-202502-9999", "2025-02-21")
	assert.Error(t, store.Payments().Create(ctx, duplicate))

	latest, err := store.Payments().GetLatestReceiptNumber(ctx, "REC-202502-")
	require.NoError(t, err)
	assert.Equal(t, "REC-202502-10000", latest)

	none, err := store.Payments().GetLatestReceiptNumber(ctx, "REC-202503-")
	require.NoError(t, err)
	assert.Empty(t, none)

	count, err := store.Payments().CountByLoanID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	lastDate, err := store.Payments().GetLatestPaymentDate(ctx, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, lastDate)
	assert.Equal(t, date("2025-02-20"), lastDate.UTC())

	got, err := store.Payments().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, got.PriorStatus)
	assert.True(t, got.BalanceApplied.Equal(first.BalanceApplied))

	period := schedule[0]
	period.MarkPaid(first.ID, first.PaymentDate, first.InterestPaid, first.CapitalPaid)
	require.NoError(t, store.Loans().UpdatePeriod(ctx, period))

	settled, err := store.Loans().GetPeriodsByPaymentID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, settled, 1)
	assert.True(t, settled[0].IsPaid)
	assert.True(t, settled[0].PaidAmount.Equal(decimal.NewFromInt(3834)))

	require.NoError(t, store.Payments().Delete(ctx, second.ID))
	_, err = store.Payments().GetByID(ctx, second.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func movement(kind domain.MovementType, amount int64, balance int64, refType, refID string) *domain.CashMovement {
	return &domain.CashMovement{
		MovementDate:  date("2025-03-01"),
		Type:          kind,
		Amount:        decimal.NewFromInt(amount),
		BalanceAfter:  decimal.NewFromInt(balance),
		ReferenceType: refType,
		ReferenceID:   refID,
		Description:   string(kind),
		CreatedBy:     "tester",
		CreatedAt:     time.Now().UTC(),
	}
}

func TestPostgresMovementRepository(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		tail, err := tx.Movements().LockTail(ctx)
		require.NoError(t, err)
		assert.Nil(t, tail)

		for _, m := range []*domain.CashMovement{
			movement(domain.MovementDeposit, 5000, 5000, "", ""),
			movement(domain.MovementLoanDisbursed, 1000, 4000, domain.ReferenceLoan, "loan-1"),
			movement(domain.MovementPaymentReceived, 300, 4300, domain.ReferencePayment, "pay-1"),
		} {
			if err := tx.Movements().Insert(ctx, m); err != nil {
				return err
			}
			assert.NotZero(t, m.ID)
		}
		return nil
	})
	require.NoError(t, err)

	disbursed, err := store.Movements().FindByReference(ctx, domain.ReferenceLoan, "loan-1")
	require.NoError(t, err)
	require.NotNil(t, disbursed)

	missing, err := store.Movements().FindByReference(ctx, domain.ReferencePayment, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = store.WithinTx(ctx, func(tx repository.Store) error {
		if _, err := tx.Movements().LockTail(ctx); err != nil {
			return err
		}
		if err := tx.Movements().Delete(ctx, disbursed.ID); err != nil {
			return err
		}
		shifted, err := tx.Movements().ShiftBalancesAfter(ctx, disbursed.ID, decimal.NewFromInt(1000))
		assert.Equal(t, int64(1), shifted)
		return err
	})
	require.NoError(t, err)

	latest, err := store.Movements().Latest(ctx)
	require.NoError(t, err)
	assert.True(t, latest.BalanceAfter.Equal(decimal.NewFromInt(5300)))

	page, err := store.Movements().List(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, domain.MovementPaymentReceived, page[0].Type)
}

func TestPostgresWithinTxRollsBack(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	loan := newLoan(domain.LoanStatusActive)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Loans().GetByID(ctx, loan.ID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, store.Ping(ctx))
}
