package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// txConn est le sous-ensemble de pgx.Tx utilisé par les repositories.
type txConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

var ErrUnitOfWorkClosed = errors.New("unit of work already committed or rolled back")

// PostgresUnitOfWorkFactory ouvre une transaction par UnitOfWork.
// Le pool est partagé, la session (connexion + tx) ne l'est jamais.
type PostgresUnitOfWorkFactory struct {
	pool *pgxpool.Pool
}

func NewUnitOfWorkFactory(pool *pgxpool.Pool) *PostgresUnitOfWorkFactory {
	return &PostgresUnitOfWorkFactory{pool: pool}
}

func (f *PostgresUnitOfWorkFactory) Begin(ctx context.Context) (ports.UnitOfWork, error) {
	tx, err := f.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return newUnitOfWork(tx), nil
}

// unitOfWork compte les lignes affectées par les écritures d'entités (posts, users).
// Les écritures outbox ne comptent pas : ce sont des effets de bord de l'écriture métier.
type unitOfWork struct {
	tx       txConn
	affected int64
	closed   bool
}

func newUnitOfWork(tx txConn) *unitOfWork {
	return &unitOfWork{tx: tx}
}

func (u *unitOfWork) Posts() ports.PostRepository    { return &PostRepo{uow: u} }
func (u *unitOfWork) Users() ports.UserRepository    { return &UserRepo{uow: u} }
func (u *unitOfWork) Events() ports.OutboxRepository { return &OutboxRepo{uow: u} }

// execCounted exécute une écriture d'entité et cumule RowsAffected.
func (u *unitOfWork) execCounted(ctx context.Context, sql string, args ...any) error {
	if u.closed {
		return ErrUnitOfWorkClosed
	}
	tag, err := u.tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	u.affected += tag.RowsAffected()
	return nil
}

func (u *unitOfWork) exec(ctx context.Context, sql string, args ...any) error {
	if u.closed {
		return ErrUnitOfWorkClosed
	}
	_, err := u.tx.Exec(ctx, sql, args...)
	return err
}

func (u *unitOfWork) Commit(ctx context.Context) (int64, error) {
	if u.closed {
		return 0, ErrUnitOfWorkClosed
	}
	u.closed = true
	if err := u.tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return u.affected, nil
}

// Rollback libère la session. Sans effet si la UnitOfWork est déjà fermée.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.closed {
		return nil
	}
	u.closed = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}
