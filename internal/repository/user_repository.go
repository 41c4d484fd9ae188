package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/utils"
)

const userColumns = "id,email,password_hash,status,user_type,is_verified,is_active," +
	"failed_login_attempts,last_login,locked_until,created_by,created_at,updated_at"

// UserRepo persists the 'users' table and resolves each user's roles and
// permissions through user_roles and role_permissions.
type UserRepo struct {
	db   DBTX
	cost int
}

func NewUserRepo(db DBTX, bcryptCost int) *UserRepo { return &UserRepo{db: db, cost: bcryptCost} }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                   model.User
		id                  string
		lastLogin, lockedTo sql.NullTime
		createdBy           sql.NullString
	)
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.Status, &u.Type, &u.IsVerified, &u.IsActive,
		&u.FailedLoginAttempts, &lastLogin, &lockedTo, &createdBy, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.ID = model.IDFrom(model.TableUser, id)
	u.LastLogin = timePtr(lastLogin)
	u.LockedUntil = timePtr(lockedTo)
	if createdBy.Valid {
		cb := model.IDFrom(model.TableUser, createdBy.String)
		u.CreatedBy = &cb
	}
	return &u, nil
}

// Create hashes password and inserts u.  A taken e-mail yields
// apperr.ErrUserAlreadyExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string) error {
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	var createdBy sql.NullString
	if u.CreatedBy != nil {
		createdBy = sql.NullString{String: u.CreatedBy.Key, Valid: true}
	}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)",
		u.ID.Key, u.Email, hash, u.Status, u.Type, u.IsVerified, u.IsActive,
		u.FailedLoginAttempts, nullTime(u.LastLogin), nullTime(u.LockedUntil), createdBy,
		u.CreatedAt.UTC(), u.UpdatedAt.UTC())
	if err != nil {
		return classify(err, nil, apperr.ErrUserAlreadyExists)
	}
	u.PasswordHash = hash
	return nil
}

// FindByID fetches an active user with roles and permissions.
func (r *UserRepo) FindByID(ctx context.Context, id model.ID) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND is_active=1 LIMIT 1", id.Key))
	if err != nil {
		return nil, classify(err, apperr.ErrUserNotFound, nil)
	}
	if err := r.loadAccess(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// FindByEmail fetches a user by normalized e-mail, active or not.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", model.NormalizeEmail(email)))
	if err != nil {
		return nil, classify(err, apperr.ErrUserNotFound, nil)
	}
	return u, nil
}

// FindAll lists active users, oldest first.
func (r *UserRepo) FindAll(ctx context.Context) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE is_active=1 ORDER BY created_at, id")
	if err != nil {
		return nil, apperr.Database(err)
	}
	var out []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			rows.Close()
			return nil, apperr.Database(err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, apperr.Database(err)
	}
	rows.Close()

	for _, u := range out {
		if err := r.loadAccess(ctx, u); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Authenticate checks email and password of an active user.  An unknown
// e-mail still pays for one bcrypt comparison.
func (r *UserRepo) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_active=1 LIMIT 1", model.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			utils.BurnPasswordCheck(password, r.cost)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Database(err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, apperr.ErrInvalidCredentials
	}
	if err := r.loadAccess(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// RecordLoginFailure increments the failure counter and starts a lockout
// when the counter reaches maxAttempts.  An expired lockout resets the
// counter first.  MySQL evaluates SET clauses left to right, so locked_until
// sees the new counter.
func (r *UserRepo) RecordLoginFailure(ctx context.Context, email string, at time.Time, maxAttempts int, lockFor time.Duration) error {
	now := at.UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		    SET failed_login_attempts = IF(locked_until IS NOT NULL AND locked_until <= ?, 0, failed_login_attempts) + 1,
		        locked_until = CASE
		            WHEN failed_login_attempts >= ? THEN ?
		            WHEN locked_until <= ? THEN NULL
		            ELSE locked_until END,
		        updated_at = ?
		  WHERE email=? AND is_active=1`,
		now, maxAttempts, now.Add(lockFor), now, now, model.NormalizeEmail(email))
	return apperr.Database(err)
}

// RecordLoginSuccess clears the failure counter and stamps last_login.
func (r *UserRepo) RecordLoginSuccess(ctx context.Context, id model.ID, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET failed_login_attempts=0, locked_until=NULL, last_login=?, updated_at=? WHERE id=?",
		at.UTC(), at.UTC(), id.Key)
	return apperr.Database(err)
}

func (r *UserRepo) ChangePassword(ctx context.Context, id model.ID, password string) error {
	hash, err := utils.HashPassword(password, r.cost)
	if err != nil {
		return apperr.Wrap(apperr.ErrInternal, err)
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=? AND is_active=1",
		hash, time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrUserNotFound)
}

// SetVerificationStatus flips is_verified; verifying also activates the
// account.
func (r *UserRepo) SetVerificationStatus(ctx context.Context, id model.ID, verified bool) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_verified=?, status=IF(?, ?, status), updated_at=? WHERE id=? AND is_active=1",
		verified, verified, model.StatusActive, time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrUserNotFound)
}

// UpdateFailedLoginAttempts sets the counter; zero also lifts a lockout.
func (r *UserRepo) UpdateFailedLoginAttempts(ctx context.Context, id model.ID, attempts int) error {
	q := "UPDATE users SET failed_login_attempts=?, updated_at=? WHERE id=? AND is_active=1"
	if attempts == 0 {
		q = "UPDATE users SET failed_login_attempts=?, locked_until=NULL, updated_at=? WHERE id=? AND is_active=1"
	}
	res, err := r.db.ExecContext(ctx, q, attempts, time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrUserNotFound)
}

// Delete soft-deletes the user.  The row keeps its e-mail reserved.
func (r *UserRepo) Delete(ctx context.Context, id model.ID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_active=0, status=?, updated_at=? WHERE id=? AND is_active=1",
		model.StatusInactive, time.Now().UTC(), id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrUserNotFound)
}

// loadAccess resolves the active roles of u and the active permissions those
// roles grant.
func (r *UserRepo) loadAccess(ctx context.Context, u *model.User) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumnsR+`
		   FROM roles r JOIN user_roles ur ON ur.role_id = r.id
		  WHERE ur.user_id=? AND r.is_active=1
		  ORDER BY r.hierarchy_level DESC, r.name`, u.ID.Key)
	if err != nil {
		return apperr.Database(err)
	}
	roles, err := collectRoles(rows)
	if err != nil {
		return err
	}
	u.Roles = make([]model.Role, 0, len(roles))
	for _, ro := range roles {
		u.Roles = append(u.Roles, *ro)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT DISTINCT `+permissionColumnsP+`
		   FROM permissions p
		   JOIN role_permissions rp ON rp.permission_id = p.id
		   JOIN user_roles ur ON ur.role_id = rp.role_id
		   JOIN roles r ON r.id = ur.role_id
		  WHERE ur.user_id=? AND p.is_active=1 AND r.is_active=1
		  ORDER BY p.name`, u.ID.Key)
	if err != nil {
		return apperr.Database(err)
	}
	perms, err := collectPermissions(rows)
	if err != nil {
		return err
	}
	u.Permissions = nil
	for _, p := range perms {
		u.Permissions = append(u.Permissions, *p)
	}
	return nil
}
