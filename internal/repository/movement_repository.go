package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/VictoRios99/prestamos-backend-sub000/internal/domain"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

const movementColumns = `id, movement_date, movement_type, amount, balance_after, reference_type,
		reference_id, description, created_by, created_at`

// ledgerLockKey guards the first append to an empty ledger, where there is no
// tail row to lock.
const ledgerLockKey = 74_110_500

type movementRepository struct {
	db sqlx.ExtContext
}

func NewCashMovementRepository(db sqlx.ExtContext) CashMovementRepository {
	return &movementRepository{db: db}
}

func (r *movementRepository) LockTail(ctx context.Context) (*domain.CashMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM cash_movements ORDER BY id DESC LIMIT 1 FOR UPDATE`

	for {
		var tail domain.CashMovement
		err := sqlx.GetContext(ctx, r.db, &tail, query)
		if errors.Is(err, sql.ErrNoRows) {
			if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerLockKey); err != nil {
				return nil, err
			}
			latest, err := r.Latest(ctx)
			if err != nil {
				return nil, err
			}
			if latest == nil {
				return nil, nil
			}
			continue
		}
		if err != nil {
			return nil, err
		}

		// A writer we waited on may have appended a newer row before releasing
		// the lock; only a lock on the true tail serializes us.
		var latestID int64
		if err := sqlx.GetContext(ctx, r.db, &latestID, `SELECT COALESCE(MAX(id), 0) FROM cash_movements`); err != nil {
			return nil, err
		}
		if latestID == tail.ID {
			return &tail, nil
		}
	}
}

func (r *movementRepository) Latest(ctx context.Context) (*domain.CashMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM cash_movements ORDER BY id DESC LIMIT 1`

	var movement domain.CashMovement
	err := sqlx.GetContext(ctx, r.db, &movement, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &movement, nil
}

func (r *movementRepository) Insert(ctx context.Context, movement *domain.CashMovement) error {
	query := `
		INSERT INTO cash_movements (movement_date, movement_type, amount, balance_after, reference_type,
			reference_id, description, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		movement.MovementDate,
		movement.Type,
		movement.Amount,
		movement.BalanceAfter,
		movement.ReferenceType,
		movement.ReferenceID,
		movement.Description,
		movement.CreatedBy,
	).Scan(&movement.ID, &movement.CreatedAt)
}

func (r *movementRepository) FindByReference(ctx context.Context, referenceType, referenceID string) (*domain.CashMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM cash_movements
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY id DESC
		LIMIT 1
	`

	var movement domain.CashMovement
	err := sqlx.GetContext(ctx, r.db, &movement, query, referenceType, referenceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &movement, nil
}

func (r *movementRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cash_movements WHERE id = $1`, id)
	return err
}

func (r *movementRepository) ShiftBalancesAfter(ctx context.Context, id int64, delta decimal.Decimal) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cash_movements SET balance_after = balance_after + $2 WHERE id > $1`,
		id, delta,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *movementRepository) List(ctx context.Context, limit, offset int) ([]*domain.CashMovement, error) {
	query := `
		SELECT ` + movementColumns + `
		FROM cash_movements
		ORDER BY id DESC
		LIMIT $1 OFFSET $2
	`

	var movements []*domain.CashMovement
	if err := sqlx.SelectContext(ctx, r.db, &movements, query, limit, offset); err != nil {
		return nil, err
	}

	return movements, nil
}
