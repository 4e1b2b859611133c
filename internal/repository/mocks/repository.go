// Package mocks provides testify mocks of the repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockStore runs transactions inline against the same mocked repositories.
type MockStore struct {
	mock.Mock
	LoanRepo     *MockLoanRepository
	PaymentRepo  *MockPaymentRepository
	MovementRepo *MockCashMovementRepository
}

func NewMockStore() *MockStore {
	return &MockStore{
		LoanRepo:     &MockLoanRepository{},
		PaymentRepo:  &MockPaymentRepository{},
		MovementRepo: &MockCashMovementRepository{},
	}
}

func (m *MockStore) Loans() repository.LoanRepository {
	return m.LoanRepo
}

func (m *MockStore) Payments() repository.PaymentRepository {
	return m.PaymentRepo
}

func (m *MockStore) Movements() repository.CashMovementRepository {
	return m.MovementRepo
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return fn(m)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error) {
	args := m.Called(ctx, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) MarkOverdue(ctx context.Context, ids []uuid.UUID, today time.Time) (int64, error) {
	args := m.Called(ctx, ids, today)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) CreateSchedule(ctx context.Context, periods []*domain.ScheduledPeriod) error {
	args := m.Called(ctx, periods)
	return args.Error(0)
}

func (m *MockLoanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledPeriod), args.Error(1)
}

func (m *MockLoanRepository) GetSchedulesByLoanIDs(ctx context.Context, loanIDs []uuid.UUID) (map[uuid.UUID][]*domain.ScheduledPeriod, error) {
	args := m.Called(ctx, loanIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]*domain.ScheduledPeriod), args.Error(1)
}

func (m *MockLoanRepository) GetPeriodsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledPeriod), args.Error(1)
}

func (m *MockLoanRepository) UpdatePeriod(ctx context.Context, period *domain.ScheduledPeriod) error {
	args := m.Called(ctx, period)
	return args.Error(0)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error) {
	args := m.Called(ctx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockPaymentRepository) GetLatestReceiptNumber(ctx context.Context, prefix string) (string, error) {
	args := m.Called(ctx, prefix)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCashMovementRepository struct {
	mock.Mock
}

func (m *MockCashMovementRepository) LockTail(ctx context.Context) (*domain.CashMovement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashMovement), args.Error(1)
}

func (m *MockCashMovementRepository) Latest(ctx context.Context) (*domain.CashMovement, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashMovement), args.Error(1)
}

func (m *MockCashMovementRepository) Insert(ctx context.Context, movement *domain.CashMovement) error {
	args := m.Called(ctx, movement)
	return args.Error(0)
}

func (m *MockCashMovementRepository) FindByReference(ctx context.Context, referenceType, referenceID string) (*domain.CashMovement, error) {
	args := m.Called(ctx, referenceType, referenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashMovement), args.Error(1)
}

func (m *MockCashMovementRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCashMovementRepository) ShiftBalancesAfter(ctx context.Context, id int64, delta decimal.Decimal) (int64, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCashMovementRepository) List(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CashMovement), args.Error(1)
}
