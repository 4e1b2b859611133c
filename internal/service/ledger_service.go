package service

import (
	"context"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"
	"github.com/VictoRios99/prestamos-backend-sub000/internal/repository"
	customError "github.com/VictoRios99/prestamos-backend-sub000/pkg/errors"
	"github.com/VictoRios99/prestamos-backend-sub000/pkg/utils"

	"github.com/shopspring/decimal"
)

const (
	defaultMovementPage = 50
	maxMovementPage     = 500
)

// recordMovementTx appends a movement to the ledger. It must run inside tx, and
// after any loan lock the caller takes.
func (s *BillingService) recordMovementTx(ctx context.Context, tx repository.Store, movement *domain.CashMovement) (*domain.CashMovement, error) {
	if !movement.Type.IsValid() {
		return nil, customError.WrapInvalidMovement("unknown movement type " + string(movement.Type))
	}
	if !movement.Amount.IsPositive() {
		return nil, customError.WrapInvalidMovement("movement amount must be positive")
	}

	tail, err := tx.Movements().LockTail(ctx)
	if err != nil {
		return nil, err
	}

	previous := decimal.Zero
	if tail != nil {
		previous = tail.BalanceAfter
	}
	movement.BalanceAfter = previous.Add(movement.Type.Signed(movement.Amount))

	if err := tx.Movements().Insert(ctx, movement); err != nil {
		return nil, err
	}

	return movement, nil
}

// revertMovementTx removes the movement caused by the referenced entity and
// shifts every later balance so the running totals stay exact.
func (s *BillingService) revertMovementTx(ctx context.Context, tx repository.Store, referenceType, referenceID string) error {
	if _, err := tx.Movements().LockTail(ctx); err != nil {
		return err
	}

	movement, err := tx.Movements().FindByReference(ctx, referenceType, referenceID)
	if err != nil {
		return err
	}
	if movement == nil {
		return customError.WrapLedgerEntryMissing(referenceType, referenceID)
	}

	if err := tx.Movements().Delete(ctx, movement.ID); err != nil {
		return err
	}

	shifted, err := tx.Movements().ShiftBalancesAfter(ctx, movement.ID, movement.Type.Signed(movement.Amount).Neg())
	if err != nil {
		return err
	}
	if shifted > 0 {
		s.log(ctx).Info().
			Int64("movement_id", movement.ID).
			Int64("shifted", shifted).
			Msg("recomputed balances after reverted movement")
	}

	return nil
}

// RecordMovement records a manual expense or deposit.
func (s *BillingService) RecordMovement(ctx context.Context, request *domain.RecordMovementRequest, actor string) (*domain.CashMovement, error) {
	if request.Type != domain.MovementExpense && request.Type != domain.MovementDeposit {
		return nil, customError.WrapInvalidMovement("only EXPENSE and DEPOSIT movements can be recorded manually")
	}
	if !utils.FitsScale(request.Amount, utils.MoneyScale) {
		return nil, customError.WrapInvalidMovement("movement amount cannot have fractions of a cent")
	}

	date := s.today()
	if request.MovementDate != "" {
		var err error
		if date, err = utils.ParseDate(request.MovementDate); err != nil {
			return nil, customError.WrapValidation(err)
		}
	}

	movement := &domain.CashMovement{
		MovementDate: date,
		Type:         request.Type,
		Amount:       request.Amount,
		Description:  request.Description,
		CreatedBy:    actor,
	}

	err := s.store.WithinTx(ctx, func(tx repository.Store) error {
		_, err := s.recordMovementTx(ctx, tx, movement)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "record_movement", err, "type", string(request.Type))
	}

	s.log(ctx).Info().
		Int64("movement_id", movement.ID).
		Str("type", string(movement.Type)).
		Str("amount", movement.Amount.String()).
		Str("balance_after", movement.BalanceAfter.String()).
		Msg("cash movement recorded")

	return movement, nil
}

// CurrentCashBalance is the balance after the last inserted movement, or zero.
func (s *BillingService) CurrentCashBalance(ctx context.Context) (decimal.Decimal, error) {
	latest, err := s.store.Movements().Latest(ctx)
	if err != nil {
		return decimal.Zero, s.fail(ctx, "current_cash_balance", customError.WrapDatabaseError(err))
	}
	if latest == nil {
		return decimal.Zero, nil
	}
	return latest.BalanceAfter, nil
}

// ListMovements pages through the ledger newest first.
func (s *BillingService) ListMovements(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error) {
	if limit <= 0 {
		limit = defaultMovementPage
	}
	if limit > maxMovementPage {
		limit = maxMovementPage
	}
	if offset < 0 {
		offset = 0
	}

	movements, err := s.store.Movements().List(ctx, limit, offset)
	if err != nil {
		return nil, s.fail(ctx, "list_movements", customError.WrapDatabaseError(err))
	}
	return movements, nil
}
