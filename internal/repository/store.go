package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/service"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store bundles the MySQL repositories over one pool and runs
// transactional units of work.
type Store struct {
	DB          *sql.DB
	Users       *UserRepo
	Roles       *RoleRepo
	Permissions *PermissionRepo
	Profiles    *ProfileRepo
	Tokens      *TokenRepo

	bcryptCost int
}

func NewStore(db *sql.DB, bcryptCost int) *Store {
	return &Store{
		DB:          db,
		Users:       NewUserRepo(db, bcryptCost),
		Roles:       NewRoleRepo(db),
		Permissions: NewPermissionRepo(db),
		Profiles:    NewProfileRepo(db),
		Tokens:      NewTokenRepo(db),
		bcryptCost:  bcryptCost,
	}
}

// Stores returns the non-transactional store set.
func (s *Store) Stores() service.Stores {
	return service.Stores{Users: s.Users, Roles: s.Roles, Tokens: s.Tokens}
}

// InTx runs fn against repositories bound to a single transaction.  The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, st service.Stores) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.ErrTransaction, err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	st := service.Stores{
		Users:  NewUserRepo(tx, s.bcryptCost),
		Roles:  NewRoleRepo(tx),
		Tokens: NewTokenRepo(tx),
	}
	if err = fn(ctx, st); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return apperr.Wrap(apperr.ErrTransaction, fmt.Errorf("commit: %w", err))
	}
	return nil
}
