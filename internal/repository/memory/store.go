// Package memory is an in-process implementation of repository.Store.
// A single mutex serializes transactions, which stands in for the row locks the
// Postgres store takes. Data is lost on restart.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type state struct {
	loans          map[uuid.UUID]*domain.Loan
	periods        map[uuid.UUID][]*domain.ScheduledPeriod
	payments       map[uuid.UUID]*domain.Payment
	movements      []*domain.CashMovement
	nextMovementID int64
}

func newState() *state {
	return &state{
		loans:          make(map[uuid.UUID]*domain.Loan),
		periods:        make(map[uuid.UUID][]*domain.ScheduledPeriod),
		payments:       make(map[uuid.UUID]*domain.Payment),
		nextMovementID: 1,
	}
}

func (st *state) clone() *state {
	c := &state{
		loans:          make(map[uuid.UUID]*domain.Loan, len(st.loans)),
		periods:        make(map[uuid.UUID][]*domain.ScheduledPeriod, len(st.periods)),
		payments:       make(map[uuid.UUID]*domain.Payment, len(st.payments)),
		movements:      make([]*domain.CashMovement, 0, len(st.movements)),
		nextMovementID: st.nextMovementID,
	}
	for id, loan := range st.loans {
		c.loans[id] = copyLoan(loan)
	}
	for id, periods := range st.periods {
		c.periods[id] = copyPeriods(periods)
	}
	for id, payment := range st.payments {
		p := *payment
		c.payments[id] = &p
	}
	for _, movement := range st.movements {
		m := *movement
		c.movements = append(c.movements, &m)
	}
	return c
}

// Store is safe for concurrent use.
type Store struct {
	mu   *sync.RWMutex
	data *state
	inTx bool
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		mu:   &sync.RWMutex{},
		data: newState(),
	}
}

func (s *Store) Loans() repository.LoanRepository {
	return &loanRepository{s: s}
}

func (s *Store) Payments() repository.PaymentRepository {
	return &paymentRepository{s: s}
}

func (s *Store) Movements() repository.CashMovementRepository {
	return &movementRepository{s: s}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&Store{mu: s.mu, data: s.data, inTx: true}); err != nil {
		*s.data = *snapshot
		return err
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return nil
}

func (s *Store) read(fn func(st *state)) {
	if !s.inTx {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	fn(s.data)
}

func (s *Store) write(fn func(st *state)) {
	if !s.inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn(s.data)
}

func copyLoan(loan *domain.Loan) *domain.Loan {
	c := *loan
	if loan.LastPaymentDate != nil {
		d := *loan.LastPaymentDate
		c.LastPaymentDate = &d
	}
	return &c
}

func copyPeriods(periods []*domain.ScheduledPeriod) []*domain.ScheduledPeriod {
	out := make([]*domain.ScheduledPeriod, 0, len(periods))
	for _, period := range periods {
		p := *period
		out = append(out, &p)
	}
	return out
}

type loanRepository struct {
	s *Store
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	r.s.write(func(st *state) {
		st.loans[loan.ID] = copyLoan(loan)
	})
	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	var loan *domain.Loan
	r.s.read(func(st *state) {
		if found, ok := st.loans[id]; ok {
			loan = copyLoan(found)
		}
	})
	if loan == nil {
		return nil, sql.ErrNoRows
	}
	return loan, nil
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	return r.GetByID(ctx, id)
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	var err error
	r.s.write(func(st *state) {
		if _, ok := st.loans[loan.ID]; !ok {
			err = sql.ErrNoRows
			return
		}
		loan.UpdatedAt = time.Now()
		st.loans[loan.ID] = copyLoan(loan)
	})
	return err
}

func (r *loanRepository) List(ctx context.Context) ([]*domain.Loan, error) {
	return r.ListByStatus(ctx)
}

// ListByStatus with no statuses lists every loan.
func (r *loanRepository) ListByStatus(ctx context.Context, statuses ...domain.LoanStatus) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	r.s.read(func(st *state) {
		for _, loan := range st.loans {
			if len(statuses) > 0 && !containsStatus(statuses, loan.Status) {
				continue
			}
			loans = append(loans, copyLoan(loan))
		}
	})
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].CreatedAt.After(loans[j].CreatedAt)
	})
	return loans, nil
}

func (r *loanRepository) MarkOverdue(ctx context.Context, ids []uuid.UUID, today time.Time) (int64, error) {
	var changed int64
	r.s.write(func(st *state) {
		for _, id := range ids {
			loan, ok := st.loans[id]
			if !ok || loan.Status != domain.LoanStatusActive {
				continue
			}
			if _, overdue := domain.OverdueSummary(st.periods[id], today); overdue > 0 {
				loan.Status = domain.LoanStatusOverdue
				loan.UpdatedAt = time.Now()
				changed++
			}
		}
	})
	return changed, nil
}

func (r *loanRepository) CreateSchedule(ctx context.Context, periods []*domain.ScheduledPeriod) error {
	r.s.write(func(st *state) {
		for _, period := range copyPeriods(periods) {
			st.periods[period.LoanID] = append(st.periods[period.LoanID], period)
		}
		for loanID := range st.periods {
			sortPeriods(st.periods[loanID])
		}
	})
	return nil
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	var periods []*domain.ScheduledPeriod
	r.s.read(func(st *state) {
		periods = copyPeriods(st.periods[loanID])
	})
	return periods, nil
}

func (r *loanRepository) GetSchedulesByLoanIDs(ctx context.Context, loanIDs []uuid.UUID) (map[uuid.UUID][]*domain.ScheduledPeriod, error) {
	schedules := make(map[uuid.UUID][]*domain.ScheduledPeriod, len(loanIDs))
	r.s.read(func(st *state) {
		for _, id := range loanIDs {
			if periods, ok := st.periods[id]; ok {
				schedules[id] = copyPeriods(periods)
			}
		}
	})
	return schedules, nil
}

func (r *loanRepository) GetPeriodsByPaymentID(ctx context.Context, paymentID uuid.UUID) ([]*domain.ScheduledPeriod, error) {
	var periods []*domain.ScheduledPeriod
	r.s.read(func(st *state) {
		for _, schedule := range st.periods {
			for _, period := range schedule {
				if period.PaymentID != nil && *period.PaymentID == paymentID {
					p := *period
					periods = append(periods, &p)
				}
			}
		}
	})
	sortPeriods(periods)
	return periods, nil
}

func (r *loanRepository) UpdatePeriod(ctx context.Context, period *domain.ScheduledPeriod) error {
	err := sql.ErrNoRows
	r.s.write(func(st *state) {
		for i, existing := range st.periods[period.LoanID] {
			if existing.ID == period.ID {
				p := *period
				st.periods[period.LoanID][i] = &p
				err = nil
				return
			}
		}
	})
	return err
}

func containsStatus(statuses []domain.LoanStatus, status domain.LoanStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortPeriods(periods []*domain.ScheduledPeriod) {
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].PeriodNumber < periods[j].PeriodNumber
	})
}

type paymentRepository struct {
	s *Store
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	r.s.write(func(st *state) {
		p := *payment
		st.payments[payment.ID] = &p
	})
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment *domain.Payment
	r.s.read(func(st *state) {
		if found, ok := st.payments[id]; ok {
			p := *found
			payment = &p
		}
	})
	if payment == nil {
		return nil, sql.ErrNoRows
	}
	return payment, nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	var payments []*domain.Payment
	r.s.read(func(st *state) {
		for _, payment := range st.payments {
			if payment.LoanID == loanID {
				p := *payment
				payments = append(payments, &p)
			}
		}
	})
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].PaymentDate.Equal(payments[j].PaymentDate) {
			return payments[i].CreatedAt.Before(payments[j].CreatedAt)
		}
		return payments[i].PaymentDate.Before(payments[j].PaymentDate)
	})
	return payments, nil
}

func (r *paymentRepository) CountByLoanID(ctx context.Context, loanID uuid.UUID) (int, error) {
	payments, err := r.GetByLoanID(ctx, loanID)
	return len(payments), err
}

func (r *paymentRepository) GetLatestPaymentDate(ctx context.Context, loanID uuid.UUID) (*time.Time, error) {
	payments, err := r.GetByLoanID(ctx, loanID)
	if err != nil || len(payments) == 0 {
		return nil, err
	}
	latest := payments[len(payments)-1].PaymentDate
	return &latest, nil
}

func (r *paymentRepository) GetLatestReceiptNumber(ctx context.Context, prefix string) (string, error) {
	var latest string
	r.s.read(func(st *state) {
		for _, payment := range st.payments {
			if strings.HasPrefix(payment.ReceiptNumber, prefix) && receiptAfter(payment.ReceiptNumber, latest) {
				latest = payment.ReceiptNumber
			}
		}
	})
	return latest, nil
}

func receiptAfter(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := sql.ErrNoRows
	r.s.write(func(st *state) {
		if _, ok := st.payments[id]; ok {
			delete(st.payments, id)
			err = nil
		}
	})
	return err
}

type movementRepository struct {
	s *Store
}

func (r *movementRepository) LockTail(ctx context.Context) (*domain.CashMovement, error) {
	return r.Latest(ctx)
}

func (r *movementRepository) Latest(ctx context.Context) (*domain.CashMovement, error) {
	var latest *domain.CashMovement
	r.s.read(func(st *state) {
		if n := len(st.movements); n > 0 {
			m := *st.movements[n-1]
			latest = &m
		}
	})
	return latest, nil
}

func (r *movementRepository) Insert(ctx context.Context, movement *domain.CashMovement) error {
	r.s.write(func(st *state) {
		movement.ID = st.nextMovementID
		movement.CreatedAt = time.Now()
		st.nextMovementID++
		m := *movement
		st.movements = append(st.movements, &m)
	})
	return nil
}

func (r *movementRepository) FindByReference(ctx context.Context, referenceType, referenceID string) (*domain.CashMovement, error) {
	var found *domain.CashMovement
	r.s.read(func(st *state) {
		for i := len(st.movements) - 1; i >= 0; i-- {
			m := st.movements[i]
			if m.ReferenceType == referenceType && m.ReferenceID == referenceID {
				c := *m
				found = &c
				return
			}
		}
	})
	return found, nil
}

func (r *movementRepository) Delete(ctx context.Context, id int64) error {
	r.s.write(func(st *state) {
		for i, m := range st.movements {
			if m.ID == id {
				st.movements = append(st.movements[:i], st.movements[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (r *movementRepository) ShiftBalancesAfter(ctx context.Context, id int64, delta decimal.Decimal) (int64, error) {
	var changed int64
	r.s.write(func(st *state) {
		for _, m := range st.movements {
			if m.ID > id {
				m.BalanceAfter = m.BalanceAfter.Add(delta)
				changed++
			}
		}
	})
	return changed, nil
}

func (r *movementRepository) List(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error) {
	var movements []*domain.CashMovement
	r.s.read(func(st *state) {
		for i := len(st.movements) - 1 - offset; i >= 0 && len(movements) < limit; i-- {
			m := *st.movements[i]
			movements = append(movements, &m)
		}
	})
	return movements, nil
}
