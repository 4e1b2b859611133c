package repository

import (
	"context"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoanRepository defines the interface for loan data operations.
// Lookups of missing rows return sql.ErrNoRows.
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and holds an exclusive lock on it until the
	// surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Update updates a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// List retrieves all loans, newest first
	List(ctx context.Context) ([]*domain.Loan, error)

	// ListByStatus retrieves loans in any of the given statuses
	ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error)

	// MarkOverdue flips the given ACTIVE loans to OVERDUE and returns how many changed.
	// A loan changes only if it still has an unpaid period due before today when the write runs.
	MarkOverdue(ctx context.Context, ids []uuid.UUID, today time.Time) (int64, error)

	// CreateSchedule creates loan schedule entries
	CreateSchedule(ctx context.Context, periods []*domain.ScheduledPeriod) error

	// GetScheduleByLoanID retrieves loan schedule by loan ID, ordered by period number
	GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledPeriod, error)

	// GetSchedulesByLoanIDs retrieves the schedules of several loans at once
	GetSchedulesByLoanIDs(ctx context.Context, loanIDs []uuid.UUID) (map[uuid.UUID][]*domain.ScheduledPeriod, error)

	// GetPeriodsByPaymentID retrieves the periods a payment settled
	GetPeriodsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.ScheduledPeriod, error)

	// UpdatePeriod persists the payment fields of a period
	UpdatePeriod(ctx context.Context, period *domain.ScheduledPeriod) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create creates a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByLoanID retrieves all payments for a loan, oldest first
	GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error)

	// CountByLoanID counts the payments recorded against a loan
	CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error)

	// GetLatestPaymentDate returns the most recent payment date of a loan, or nil
	GetLatestPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error)

	// GetLatestReceiptNumber returns the highest receipt number with the given prefix, or ""
	GetLatestReceiptNumber(ctx context.Context, prefix string) (string, error)

	// Delete removes a payment record
	Delete(ctx context.Context, id uuid.UUID) error
}

// CashMovementRepository defines the interface for the cash ledger
type CashMovementRepository interface {
	// LockTail locks the most recent movement until the surrounding transaction ends
	// and returns it, or nil when the ledger is empty
	LockTail(ctx context.Context) (*domain.CashMovement, error)

	// Latest returns the most recent movement without locking, or nil
	Latest(ctx context.Context) (*domain.CashMovement, error)

	// Insert appends a movement and sets its ID
	Insert(ctx context.Context, movement *domain.CashMovement) error

	// FindByReference returns the movement caused by the referenced entity, or nil
	FindByReference(ctx context.Context, referenceType, referenceID string) (*domain.CashMovement, error)

	// Delete removes a movement
	Delete(ctx context.Context, id int64) error

	// ShiftBalancesAfter adds delta to balance_after of every movement newer than id
	ShiftBalancesAfter(ctx context.Context, id int64, delta decimal.Decimal) (int64, error)

	// List returns movements newest first
	List(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error)
}

// Store groups the repositories that must change together.
type Store interface {
	Loans() LoanRepository
	Payments() PaymentRepository
	Movements() CashMovementRepository

	// WithinTx runs fn against a Store bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	// Ping checks connectivity
	Ping(ctx context.Context) error
}
