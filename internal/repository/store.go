package repository

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresStore struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// NewPostgresStore returns a Store backed by Postgres.
func NewPostgresStore(db *sqlx.DB) Store {
	return &postgresStore{db: db, ext: db}
}

func (s *postgresStore) Loans() LoanRepository {
	return NewLoanRepository(s.ext)
}

func (s *postgresStore) Payments() PaymentRepository {
	return NewPaymentRepository(s.ext)
}

func (s *postgresStore) Movements() CashMovementRepository {
	return NewCashMovementRepository(s.ext)
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	// Already inside a transaction: join it.
	if _, ok := s.ext.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&postgresStore{db: s.db, ext: tx}); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
