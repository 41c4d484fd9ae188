package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, bcrypt.MinCost)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (")).
		WillReturnError(&mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry"})

	u := &model.User{ID: model.NewID(model.TableUser), Email: "a@example.com", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	err := repo.Create(context.Background(), u, "pw-123456")
	require.ErrorIs(t, err, apperr.ErrUserAlreadyExists)
	require.Empty(t, u.PasswordHash)
}

func TestUserFindByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, bcrypt.MinCost)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id=? AND is_active=1")).
		WithArgs("k1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByID(context.Background(), model.IDFrom(model.TableUser, "k1"))
	require.ErrorIs(t, err, apperr.ErrUserNotFound)
}

func TestDriverFailureIsDatabaseError(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, bcrypt.MinCost)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := repo.FindByEmail(context.Background(), "a@example.com")
	require.ErrorIs(t, err, apperr.ErrDatabase)
	require.Equal(t, "Database error", apperr.Body(err).Message)
}

func TestTokenFindByHash(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "access_token_hash", "expires_at", "created_at", "used", "invalidated"}).
			AddRow("t1", "u1", "h1", "ah1", exp, exp.Add(-time.Hour), false, false))
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	tok, err := repo.FindByHash(context.Background(), "h1")
	require.NoError(t, err)
	require.Equal(t, model.IDFrom(model.TableUser, "u1"), tok.UserID)
	require.Equal(t, model.TableRefreshToken, tok.ID.Table)
	require.True(t, tok.Usable(exp.Add(-time.Minute)))

	_, err = repo.FindByHash(context.Background(), "missing")
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestTokenConsumeIsCompareAndSet(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	id := model.IDFrom(model.TableRefreshToken, "t1")

	consume := regexp.QuoteMeta("UPDATE refresh_tokens SET used=1, invalidated=1 WHERE id=? AND used=0 AND invalidated=0")
	mock.ExpectExec(consume).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(consume).WithArgs("t1").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Consume(context.Background(), id))
	require.ErrorIs(t, repo.Consume(context.Background(), id), apperr.ErrInvalidToken)
}

func TestTokenDeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTokenRepo(db)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens WHERE expires_at < ?")).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := service.CleanupExpiredTokens(context.Background(), repo, now)
	require.NoError(t, err)
	require.EqualValues(t, 3, n)
}

func TestRoleRemoveFromUserWithoutEdge(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRoleRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM user_roles")).
		WithArgs("u1", "r1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RemoveFromUser(context.Background(), model.IDFrom(model.TableUser, "u1"), model.IDFrom(model.TableRole, "r1"))
	require.ErrorIs(t, err, apperr.ErrInvalidOperation)
}

func TestInTxRollsBackOnError(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, bcrypt.MinCost)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET invalidated=1")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	err := store.InTx(context.Background(), func(ctx context.Context, st service.Stores) error {
		if _, err := st.Tokens.InvalidateAllForUser(ctx, model.IDFrom(model.TableUser, "u1")); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
}

func TestInTxCommits(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, bcrypt.MinCost)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.InTx(context.Background(), func(ctx context.Context, st service.Stores) error {
		return st.Tokens.Create(ctx, &model.RefreshToken{
			ID:        model.NewID(model.TableRefreshToken),
			UserID:    model.IDFrom(model.TableUser, "u1"),
			TokenHash: "h",
			ExpiresAt: time.Now().Add(time.Hour),
			CreatedAt: time.Now(),
		})
	})
	require.NoError(t, err)
}

func TestInTxBeginFailure(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, bcrypt.MinCost)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	err := store.InTx(context.Background(), func(context.Context, service.Stores) error {
		t.Fatal("fn must not run")
		return nil
	})
	require.ErrorIs(t, err, apperr.ErrTransaction)
}

func TestProfileCreateSecondActiveProfile(t *testing.T) {
	db, mock := newMock(t)
	repo := NewProfileRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO profiles (")).
		WillReturnError(&mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry 'u1' for key 'uq_profiles_active_user'"})

	err := repo.Create(context.Background(), &model.Profile{
		ID:        model.NewID(model.TableProfile),
		UserID:    model.IDFrom(model.TableUser, "u1"),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	})
	require.ErrorIs(t, err, apperr.ErrProfileAlreadyExists)
}

func TestDeletesAreSoft(t *testing.T) {
	db, mock := newMock(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE roles SET is_active=0, updated_at=? WHERE id=? AND is_active=1")).
		WithArgs(sqlmock.AnyArg(), "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE permissions SET is_active=0, updated_at=? WHERE id=? AND is_active=1")).
		WithArgs(sqlmock.AnyArg(), "p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET is_active=0, updated_at=? WHERE id=? AND is_active=1")).
		WithArgs(sqlmock.AnyArg(), "pr1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewRoleRepo(db).Delete(ctx, model.IDFrom(model.TableRole, "r1")))
	require.NoError(t, NewPermissionRepo(db).Delete(ctx, model.IDFrom(model.TablePermission, "p1")))
	require.ErrorIs(t, NewProfileRepo(db).Delete(ctx, model.IDFrom(model.TableProfile, "pr1")), apperr.ErrProfileNotFound)
}

func TestRecordLoginFailureRestartsExpiredLockout(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db, bcrypt.MinCost)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SET failed_login_attempts = IF(locked_until IS NOT NULL AND locked_until <= ?, 0, failed_login_attempts) + 1")).
		WithArgs(at, 5, at.Add(15*time.Minute), at, at, "jane@example.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.RecordLoginFailure(context.Background(), "Jane@Example.com", at, 5, 15*time.Minute))
}
