package service

import (
	"context"
	"sort"
	"time"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/google/uuid"
)

// Classify sorts every open loan into current, due-soon and delinquent. Results
// are cached until a write invalidates them or the business day changes.
func (s *BillingService) Classify(ctx context.Context) (*domain.LoanClassification, error) {
	today := s.today()

	// Read before the loans so a write committed during this run makes the result stale.
	version, versionErr := s.cache.Version(ctx)
	if versionErr != nil {
		s.log(ctx).Warn().Err(versionErr).Msg("dashboard cache version read failed")
	}

	cached, err := s.cache.Get(ctx)
	if err != nil {
		s.log(ctx).Warn().Err(err).Msg("dashboard cache read failed")
	}
	if cached != nil && utils.Today(cached.GeneratedAt, s.location).Equal(today) {
		return cached, nil
	}

	loans, err := s.store.Loans().ListByStatus(ctx, domain.LoanStatusActive, domain.LoanStatusOverdue)
	if err != nil {
		return nil, s.fail(ctx, "classify", customError.WrapDatabaseError(err))
	}

	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}
	schedules, err := s.store.Loans().GetSchedulesByLoanIDs(ctx, ids)
	if err != nil {
		return nil, s.fail(ctx, "classify", customError.WrapDatabaseError(err))
	}

	result := &domain.LoanClassification{
		Current:     []*domain.LoanHealth{},
		DueSoon:     []*domain.LoanHealth{},
		Delinquent:  []*domain.LoanHealth{},
		GeneratedAt: s.now(),
	}
	for _, loan := range loans {
		if !loan.IsOpen() {
			continue
		}
		product, err := loan.Product()
		if err != nil {
			s.log(ctx).Warn().Err(err).Str("loan_id", loan.ID.String()).Msg("skipping loan with unknown product")
			continue
		}

		health := classifyLoan(loan, product, schedules[loan.ID], today)
		switch health.State {
		case domain.HealthCurrent:
			result.Current = append(result.Current, health)
		case domain.HealthDueSoon:
			result.DueSoon = append(result.DueSoon, health)
		case domain.HealthDelinquent:
			result.Delinquent = append(result.Delinquent, health)
		}
	}

	sort.SliceStable(result.Delinquent, func(i, j int) bool {
		return result.Delinquent[i].DaysOverdue > result.Delinquent[j].DaysOverdue
	})
	sort.SliceStable(result.DueSoon, func(i, j int) bool {
		return result.DueSoon[i].DaysRemaining < result.DueSoon[j].DaysRemaining
	})

	if versionErr == nil {
		if err := s.cache.Set(ctx, result, version); err != nil {
			s.log(ctx).Warn().Err(err).Msg("dashboard cache write failed")
		}
	}

	return result, nil
}

func classifyLoan(loan *domain.Loan, product domain.Product, periods []*domain.ScheduledPeriod, today time.Time) *domain.LoanHealth {
	health := &domain.LoanHealth{
		LoanID:          loan.ID,
		CustomerRef:     loan.CustomerRef,
		ProductType:     loan.ProductType,
		Status:          loan.Status,
		CurrentBalance:  loan.CurrentBalance,
		LastPaymentDate: loan.LastPaymentDate,
	}

	var overdueCount int
	health.OverdueAmount, overdueCount = domain.OverdueSummary(periods, today)

	var deadline time.Time
	var missed int
	switch product.Type() {
	case domain.ProductFixedTerm:
		if overdueCount == 0 {
			health.State = domain.HealthCurrent
			return health
		}
		oldest := oldestOverdue(periods, today)
		deadline = product.GraceDeadline(loan, oldest)
		missed = overdueCount

	default:
		if loan.LastPaymentDate != nil && utils.SameMonth(*loan.LastPaymentDate, today) {
			health.State = domain.HealthCurrent
			return health
		}
		reference := loan.OriginationDate
		if loan.LastPaymentDate != nil {
			reference = *loan.LastPaymentDate
		}
		deadline = product.GraceDeadline(loan, nil)
		missed = utils.MonthsBetween(reference, today)
		if missed < 1 {
			missed = 1
		}
	}

	health.Deadline = &deadline
	if !today.After(deadline) {
		health.State = domain.HealthDueSoon
		health.DaysRemaining = utils.DaysBetween(today, deadline)
		return health
	}

	// Days overdue count from the grace deadline for both products.
	health.State = domain.HealthDelinquent
	health.DaysOverdue = utils.DaysBetween(deadline, today)
	health.MissedCycles = missed
	return health
}

func oldestOverdue(periods []*domain.ScheduledPeriod, today time.Time) *domain.ScheduledPeriod {
	for _, period := range periods {
		if period.IsOverdue(today) {
			return period
		}
	}
	return nil
}

// ReconcileOverdue persists the OVERDUE status of every ACTIVE loan that has an
// unpaid period past due.
func (s *BillingService) ReconcileOverdue(ctx context.Context) (*domain.ReconcileResult, error) {
	loans, err := s.store.Loans().ListByStatus(ctx, domain.LoanStatusActive)
	if err != nil {
		return nil, s.fail(ctx, "reconcile_overdue", customError.WrapDatabaseError(err))
	}

	result := &domain.ReconcileResult{Checked: len(loans)}
	if len(loans) == 0 {
		return result, nil
	}

	ids := make([]uuid.UUID, 0, len(loans))
	for _, loan := range loans {
		ids = append(ids, loan.ID)
	}
	schedules, err := s.store.Loans().GetSchedulesByLoanIDs(ctx, ids)
	if err != nil {
		return nil, s.fail(ctx, "reconcile_overdue", customError.WrapDatabaseError(err))
	}

	today := s.today()
	var overdue []uuid.UUID
	for _, loan := range loans {
		if _, count := domain.OverdueSummary(schedules[loan.ID], today); count > 0 {
			overdue = append(overdue, loan.ID)
		}
	}
	if len(overdue) == 0 {
		return result, nil
	}

	flagged, err := s.store.Loans().MarkOverdue(ctx, overdue, today)
	if err != nil {
		return nil, s.fail(ctx, "reconcile_overdue", customError.WrapDatabaseError(err))
	}
	result.Flagged = int(flagged)
	result.LoanIDs = overdue

	s.invalidateDashboard(ctx)
	s.log(ctx).Info().Int("checked", result.Checked).Int("flagged", result.Flagged).Msg("overdue reconciliation finished")

	return result, nil
}
