package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/cache"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/config"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/logger"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type BillingService struct {
	store    repository.Store
	cache    cache.DashboardCache
	config   *config.Config
	logger   zerolog.Logger
	location *time.Location
	now      func() time.Time
}

func NewBillingService(
	store repository.Store,
	dashboardCache cache.DashboardCache,
	config *config.Config,
	logger zerolog.Logger,
) *BillingService {
	if dashboardCache == nil {
		dashboardCache = cache.NoopCache{}
	}
	return &BillingService{
		store:    store,
		cache:    dashboardCache,
		config:   config,
		logger:   logger,
		location: config.BusinessLocation(),
		now:      time.Now,
	}
}

// SetClock replaces the wall clock used to decide "today".
func (s *BillingService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *BillingService) today() time.Time {
	return utils.Today(s.now(), s.location)
}

func (s *BillingService) log(ctx context.Context) *zerolog.Logger {
	l := logger.FromContext(ctx, s.logger)
	return &l
}

// fail passes client errors through untouched. Everything else is logged with
// its context and surfaced as a generic processing failure.
func (s *BillingService) fail(ctx context.Context, op string, err error, kv ...string) error {
	if customError.IsClientError(err) {
		return err
	}

	event := s.log(ctx).Error().Err(err).Str("op", op).Str("kind", string(customError.KindOf(err)))
	for i := 0; i+1 < len(kv); i += 2 {
		event = event.Str(kv[i], kv[i+1])
	}
	event.Msg("operation failed")

	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapProcessingFailed(err)
}

func (s *BillingService) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.log(ctx).Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}

// lockLoan loads a loan under an exclusive lock for the rest of the transaction.
func lockLoan(ctx context.Context, tx repository.Store, loanID uuid.UUID) (*domain.Loan, error) {
	loan, err := tx.Loans().GetByIDForUpdate(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	return loan, err
}

// CreateLoan originates a loan: it generates the schedule and records the
// disbursement in the cash ledger in one transaction.
func (s *BillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest, actor string) (*domain.CreateLoanResponse, error) {
	product, err := domain.ProductFor(request.ProductType, request.Modality)
	if err != nil {
		return nil, err
	}

	origination := s.today()
	if request.OriginationDate != "" {
		if origination, err = utils.ParseDate(request.OriginationDate); err != nil {
			return nil, customError.WrapValidation(err)
		}
	}

	schedule, err := product.GenerateSchedule(domain.LoanTerms{
		Principal:       request.Principal,
		InterestRate:    request.InterestRate,
		Term:            request.Term,
		OriginationDate: origination,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan := &domain.Loan{
		ID:                uuid.New(),
		CustomerRef:       request.CustomerRef,
		Principal:         request.Principal,
		OriginationDate:   origination,
		InterestRate:      request.InterestRate,
		ProductType:       product.Type(),
		TotalToRepay:      schedule.TotalToRepay,
		PeriodAmount:      schedule.PeriodAmount,
		CurrentBalance:    schedule.InitialBalance,
		TotalInterestPaid: decimal.Zero,
		TotalCapitalPaid:  decimal.Zero,
		Status:            domain.LoanStatusActive,
		Notes:             request.Notes,
		CreatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if product.Type() == domain.ProductFixedTerm {
		loan.Modality = request.Modality
		if loan.Modality == "" {
			loan.Modality = domain.ModalityMonthly
		}
		loan.Term = request.Term
	}

	periods := make([]*domain.ScheduledPeriod, 0, len(schedule.Entries))
	for i, entry := range schedule.Entries {
		periods = append(periods, &domain.ScheduledPeriod{
			ID:             uuid.New(),
			LoanID:         loan.ID,
			PeriodNumber:   i + 1,
			DueDate:        entry.DueDate,
			ExpectedAmount: entry.ExpectedAmount,
			PaidAmount:     decimal.Zero,
			InterestPaid:   decimal.Zero,
			CapitalPaid:    decimal.Zero,
		})
	}

	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Loans().Create(ctx, loan); err != nil {
			return err
		}
		if err := tx.Loans().CreateSchedule(ctx, periods); err != nil {
			return err
		}
		_, err := s.recordMovementTx(ctx, tx, &domain.CashMovement{
			MovementDate:  origination,
			Type:          domain.MovementLoanDisbursed,
			Amount:        loan.Principal,
			ReferenceType: domain.ReferenceLoan,
			ReferenceID:   loan.ID.String(),
			Description:   fmt.Sprintf("Loan disbursed to %s", loan.CustomerRef),
			CreatedBy:     actor,
		})
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "create_loan", err, "loan_id", loan.ID.String())
	}

	s.invalidateDashboard(ctx)
	s.log(ctx).Info().
		Str("loan_id", loan.ID.String()).
		Str("product", string(loan.ProductType)).
		Str("principal", loan.Principal.String()).
		Int("periods", len(periods)).
		Msg("loan created")

	return &domain.CreateLoanResponse{Loan: loan, Schedule: periods}, nil
}

// GetLoanDetail returns a loan with its schedule, payment history and overdue summary.
func (s *BillingService) GetLoanDetail(ctx context.Context, loanID uuid.UUID) (*domain.LoanDetail, error) {
	loan, err := s.store.Loans().GetByID(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, s.fail(ctx, "get_loan_detail", customError.WrapDatabaseError(err), "loan_id", loanID.String())
	}

	schedule, err := s.store.Loans().GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, s.fail(ctx, "get_loan_detail", customError.WrapDatabaseError(err), "loan_id", loanID.String())
	}

	payments, err := s.store.Payments().GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, s.fail(ctx, "get_loan_detail", customError.WrapDatabaseError(err), "loan_id", loanID.String())
	}

	overdueAmount, overdueCount := domain.OverdueSummary(schedule, s.today())
	surfaceOverdue(loan, overdueCount)

	return &domain.LoanDetail{
		Loan:               loan,
		Schedule:           schedule,
		Payments:           payments,
		OverdueAmount:      overdueAmount,
		OverduePeriodCount: overdueCount,
	}, nil
}

// ListLoansWithStatus lists every loan. ACTIVE loans with an unpaid period past
// due are reported as OVERDUE; nothing is written.
func (s *BillingService) ListLoansWithStatus(ctx context.Context) ([]*domain.Loan, error) {
	loans, err := s.store.Loans().List(ctx)
	if err != nil {
		return nil, s.fail(ctx, "list_loans", customError.WrapDatabaseError(err))
	}

	var active []uuid.UUID
	for _, loan := range loans {
		if loan.Status == domain.LoanStatusActive {
			active = append(active, loan.ID)
		}
	}
	if len(active) == 0 {
		return loans, nil
	}

	schedules, err := s.store.Loans().GetSchedulesByLoanIDs(ctx, active)
	if err != nil {
		return nil, s.fail(ctx, "list_loans", customError.WrapDatabaseError(err))
	}

	today := s.today()
	for _, loan := range loans {
		if periods, ok := schedules[loan.ID]; ok {
			_, overdue := domain.OverdueSummary(periods, today)
			surfaceOverdue(loan, overdue)
		}
	}

	return loans, nil
}

func surfaceOverdue(loan *domain.Loan, overduePeriods int) {
	if loan.Status == domain.LoanStatusActive && overduePeriods > 0 {
		loan.Status = domain.LoanStatusOverdue
	}
}

// CancelLoan removes a loan that never received a payment and takes its
// disbursement back out of the ledger.
func (s *BillingService) CancelLoan(ctx context.Context, loanID uuid.UUID, actor string) (*domain.Loan, error) {
	var loan *domain.Loan
	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if loan, err = lockLoan(ctx, tx, loanID); err != nil {
			return err
		}
		if !loan.IsPayable() {
			return customError.WrapLoanNotCancellable(loanID.String(), fmt.Sprintf("status is %s", loan.Status))
		}

		count, err := tx.Payments().CountByLoanID(ctx, loanID)
		if err != nil {
			return err
		}
		if count > 0 {
			return customError.WrapLoanNotCancellable(loanID.String(), fmt.Sprintf("%d payments recorded", count))
		}

		if err := s.revertMovementTx(ctx, tx, domain.ReferenceLoan, loanID.String()); err != nil {
			return err
		}

		loan.Status = domain.LoanStatusCancelled
		return tx.Loans().Update(ctx, loan)
	})
	if err != nil {
		return nil, s.fail(ctx, "cancel_loan", err, "loan_id", loanID.String())
	}

	s.invalidateDashboard(ctx)
	s.log(ctx).Info().Str("loan_id", loanID.String()).Str("actor", actor).Msg("loan cancelled")

	return loan, nil
}
