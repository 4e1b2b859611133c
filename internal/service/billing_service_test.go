package service

import (
	"context"
	"testing"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository/memory"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testToday is the business day every service test runs on.
var testToday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*BillingService, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	svc := NewBillingService(store, nil, config.Default(), zerolog.Nop())
	svc.location = time.UTC
	svc.SetClock(func() time.Time { return testToday.Add(15 * time.Hour) })

	return svc, store
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func createFixedTerm(t *testing.T, svc *BillingService, modality domain.Modality, term int, origination string) *domain.Loan {
	t.Helper()

	resp, err := svc.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		CustomerRef:     "CUST-001",
		Principal:       dec(10000),
		InterestRate:    dec(5),
		ProductType:     domain.ProductFixedTerm,
		Modality:        modality,
		Term:            term,
		OriginationDate: origination,
	}, "tester")
	require.NoError(t, err)

	return resp.Loan
}

func createOpenEnded(t *testing.T, svc *BillingService, origination string) *domain.Loan {
	t.Helper()

	resp, err := svc.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		CustomerRef:     "CUST-002",
		Principal:       dec(10000),
		InterestRate:    dec(5),
		ProductType:     domain.ProductOpenEnded,
		OriginationDate: origination,
	}, "tester")
	require.NoError(t, err)

	return resp.Loan
}

// assertLedgerConsistent walks the ledger oldest first and checks every running balance.
func assertLedgerConsistent(t *testing.T, store *memory.Store) []*domain.CashMovement {
	t.Helper()

	newestFirst, err := store.Movements().List(context.Background(), 10000, 0)
	require.NoError(t, err)

	balance := decimal.Zero
	var oldestFirst []*domain.CashMovement
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		balance = balance.Add(m.Type.Signed(m.Amount))
		assert.True(t, m.BalanceAfter.Equal(balance), "movement %d: balance_after %s, want %s", m.ID, m.BalanceAfter, balance)
		oldestFirst = append(oldestFirst, m)
	}

	return oldestFirst
}

func TestCreateLoan_FixedTermMonthly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	resp, err := svc.CreateLoan(ctx, &domain.CreateLoanRequest{
		CustomerRef:     "CUST-001",
		Principal:       dec(10000),
		InterestRate:    dec(5),
		ProductType:     domain.ProductFixedTerm,
		Term:            6,
		OriginationDate: "2025-01-10",
	}, "tester")
	require.NoError(t, err)

	loan := resp.Loan
	assert.Equal(t, domain.ModalityMonthly, loan.Modality)
	assert.True(t, loan.TotalToRepay.Equal(dec(13000)))
	assert.True(t, loan.CurrentBalance.Equal(dec(13000)))
	assert.True(t, loan.PeriodAmount.Equal(dec(2167)))
	assert.Equal(t, domain.LoanStatusActive, loan.Status)

	require.Len(t, resp.Schedule, 6)
	for _, p := range resp.Schedule {
		assert.True(t, p.ExpectedAmount.Equal(dec(2167)))
		assert.False(t, p.IsPaid)
	}
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), resp.Schedule[0].DueDate)
	assert.Equal(t, time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), resp.Schedule[5].DueDate)

	stored, err := store.Loans().GetScheduleByLoanID(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 6)

	movements := assertLedgerConsistent(t, store)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementLoanDisbursed, movements[0].Type)
	assert.Equal(t, loan.ID.String(), movements[0].ReferenceID)
	assert.True(t, movements[0].BalanceAfter.Equal(dec(-10000)))
}

func TestCreateLoan_SemiMonthly(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		CustomerRef:     "CUST-003",
		Principal:       dec(10000),
		InterestRate:    dec(5),
		ProductType:     domain.ProductFixedTerm,
		Modality:        domain.ModalitySemiMonthly,
		Term:            4,
		OriginationDate: "2025-03-10",
	}, "tester")
	require.NoError(t, err)

	assert.True(t, resp.Loan.TotalToRepay.Equal(dec(11000)))
	want := []time.Time{
		time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC),
	}
	for i, p := range resp.Schedule {
		assert.Equal(t, want[i], p.DueDate)
		assert.True(t, p.ExpectedAmount.Equal(dec(2750)))
	}
}

func TestCreateLoan_OpenEnded(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.CreateLoan(context.Background(), &domain.CreateLoanRequest{
		CustomerRef:  "CUST-002",
		Principal:    dec(10000),
		InterestRate: dec(5),
		ProductType:  domain.ProductOpenEnded,
		Modality:     domain.ModalitySemiMonthly,
		Term:         12,
	}, "tester")
	require.NoError(t, err)

	loan := resp.Loan
	assert.True(t, loan.CurrentBalance.Equal(dec(10000)))
	assert.True(t, loan.TotalToRepay.IsZero())
	assert.Empty(t, loan.Modality)
	assert.Zero(t, loan.Term)
	assert.Equal(t, testToday, loan.OriginationDate)
	require.Len(t, resp.Schedule, domain.OpenEndedHorizon)
	assert.True(t, resp.Schedule[0].ExpectedAmount.Equal(dec(500)))
	assert.Equal(t, time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC), resp.Schedule[0].DueDate)
}

func TestCreateLoan_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		request domain.CreateLoanRequest
		want    error
	}{
		{
			name:    "fixed term without term",
			request: domain.CreateLoanRequest{CustomerRef: "C", Principal: dec(1000), InterestRate: dec(5), ProductType: domain.ProductFixedTerm},
			want:    customError.ErrTermRequired,
		},
		{
			name:    "unknown product",
			request: domain.CreateLoanRequest{CustomerRef: "C", Principal: dec(1000), InterestRate: dec(5), ProductType: "WEEKLY"},
			want:    customError.ErrUnsupportedProduct,
		},
		{
			name:    "non positive principal",
			request: domain.CreateLoanRequest{CustomerRef: "C", Principal: dec(0), InterestRate: dec(5), ProductType: domain.ProductOpenEnded},
			want:    customError.ErrInvalidLoanAmount,
		},
		{
			name:    "principal with a fraction of a cent",
			request: domain.CreateLoanRequest{CustomerRef: "C", Principal: decimal.RequireFromString("100.005"), InterestRate: dec(5), ProductType: domain.ProductOpenEnded},
			want:    customError.ErrInvalidLoanAmount,
		},
		{
			name:    "rate past four places",
			request: domain.CreateLoanRequest{CustomerRef: "C", Principal: dec(1000), InterestRate: decimal.RequireFromString("5.00001"), ProductType: domain.ProductOpenEnded},
			want:    customError.ErrInvalidInterestRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)

			_, err := svc.CreateLoan(context.Background(), &tt.request, "tester")

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, customError.KindValidation, customError.KindOf(err))
			loans, _ := store.Loans().List(context.Background())
			assert.Empty(t, loans)
		})
	}
}

func TestGetLoanDetail(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	loan := createFixedTerm(t, svc, domain.ModalityMonthly, 6, "2024-11-15")

	_, err := svc.ApplyPayment(ctx, loan.ID, &domain.MakePaymentRequest{Amount: decPtr(2167)}, "tester")
	require.NoError(t, err)

	detail, err := svc.GetLoanDetail(ctx, loan.ID)
	require.NoError(t, err)

	assert.Len(t, detail.Schedule, 6)
	assert.Len(t, detail.Payments, 1)
	// Jan 31 and Feb 28 remain unpaid and past due.
	assert.Equal(t, 2, detail.OverduePeriodCount)
	assert.True(t, detail.OverdueAmount.Equal(dec(4334)))
	assert.Equal(t, domain.LoanStatusOverdue, detail.Status)

	_, err = svc.GetLoanDetail(ctx, uuid.New())
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestListLoansWithStatus_SurfacesOverdueWithoutWriting(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	late := createFixedTerm(t, svc, domain.ModalityMonthly, 6, "2024-11-15")
	onTime := createFixedTerm(t, svc, domain.ModalityMonthly, 6, "2025-02-20")

	loans, err := svc.ListLoansWithStatus(ctx)
	require.NoError(t, err)
	require.Len(t, loans, 2)

	statuses := map[uuid.UUID]domain.LoanStatus{}
	for _, l := range loans {
		statuses[l.ID] = l.Status
	}
	assert.Equal(t, domain.LoanStatusOverdue, statuses[late.ID])
	assert.Equal(t, domain.LoanStatusActive, statuses[onTime.ID])

	stored, err := store.Loans().GetByID(ctx, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, stored.Status)
}

func TestCancelLoan(t *testing.T) {
	t.Run("without payments", func(t *testing.T) {
		svc, store := newTestService(t)
		ctx := context.Background()
		loan := createOpenEnded(t, svc, "")

		cancelled, err := svc.CancelLoan(ctx, loan.ID, "admin")
		require.NoError(t, err)
		assert.Equal(t, domain.LoanStatusCancelled, cancelled.Status)

		balance, err := svc.CurrentCashBalance(ctx)
		require.NoError(t, err)
		assert.True(t, balance.IsZero())
		assert.Empty(t, assertLedgerConsistent(t, store))

		_, err = svc.CancelLoan(ctx, loan.ID, "admin")
		assert.ErrorIs(t, err, customError.ErrLoanNotCancellable)
	})

	t.Run("with payments", func(t *testing.T) {
		svc, _ := newTestService(t)
		ctx := context.Background()
		loan := createOpenEnded(t, svc, "")
		_, err := svc.ApplyPayment(ctx, loan.ID, &domain.MakePaymentRequest{Amount: decPtr(500)}, "tester")
		require.NoError(t, err)

		_, err = svc.CancelLoan(ctx, loan.ID, "admin")
		assert.ErrorIs(t, err, customError.ErrLoanNotCancellable)
		assert.Equal(t, customError.KindInvalidState, customError.KindOf(err))
	})

	t.Run("unknown loan", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.CancelLoan(context.Background(), uuid.New(), "admin")
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})
}
