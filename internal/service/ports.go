// Package service holds the use cases of the identity service: token
// issuance and verification, authentication, authorization and the CRUD
// flows for users, roles, permissions and profiles.  Storage and messaging
// are reached only through the interfaces declared in this file.
package service

import (
	"context"
	"time"

	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/queue"
)

// UserStore persists accounts.  Create hashes the plain password; nothing
// above the store ever sees a hash being produced.
//
// FindByID and FindAll only return active users and resolve Roles and
// Permissions.  FindByEmail ignores the active flag because e-mails stay
// reserved after a soft delete.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string) error
	FindByID(ctx context.Context, id model.ID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindAll(ctx context.Context) ([]*model.User, error)
	// Authenticate returns the active user matching email and password, or
	// apperr.ErrInvalidCredentials.  It does the same amount of hashing work
	// whether or not the e-mail exists.
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	// RecordLoginFailure bumps the failure counter of email, if such a user
	// exists, and locks the account for lockFor once maxAttempts is reached.
	// A lockout that has run out by at starts the count again from zero.
	RecordLoginFailure(ctx context.Context, email string, at time.Time, maxAttempts int, lockFor time.Duration) error
	RecordLoginSuccess(ctx context.Context, id model.ID, at time.Time) error
	ChangePassword(ctx context.Context, id model.ID, password string) error
	SetVerificationStatus(ctx context.Context, id model.ID, verified bool) error
	UpdateFailedLoginAttempts(ctx context.Context, id model.ID, attempts int) error
	// Delete is a soft delete.
	Delete(ctx context.Context, id model.ID) error
}

// RoleStore persists roles and the user_roles edge.  Reads are active-only.
type RoleStore interface {
	Create(ctx context.Context, r *model.Role) error
	FindByID(ctx context.Context, id model.ID) (*model.Role, error)
	FindByName(ctx context.Context, name string) (*model.Role, error)
	FindAll(ctx context.Context) ([]*model.Role, error)
	Update(ctx context.Context, r *model.Role) error
	Delete(ctx context.Context, id model.ID) error
	AssignToUser(ctx context.Context, userID, roleID, assignedBy model.ID) error
	RemoveFromUser(ctx context.Context, userID, roleID model.ID) error
}

// PermissionStore persists permissions and the role_permissions edge.
type PermissionStore interface {
	Create(ctx context.Context, p *model.Permission) error
	FindByID(ctx context.Context, id model.ID) (*model.Permission, error)
	FindAll(ctx context.Context) ([]*model.Permission, error)
	Update(ctx context.Context, p *model.Permission) error
	Delete(ctx context.Context, id model.ID) error
	FindRolePermissions(ctx context.Context, roleID model.ID) ([]*model.Permission, error)
	AssignToRole(ctx context.Context, roleID, permissionID, assignedBy model.ID) error
	RemoveFromRole(ctx context.Context, roleID, permissionID model.ID) error
}

// ProfileStore persists profiles.  Reads are active-only.
type ProfileStore interface {
	Create(ctx context.Context, p *model.Profile) error
	Update(ctx context.Context, p *model.Profile) error
	Delete(ctx context.Context, id model.ID) error
	FindByID(ctx context.Context, id model.ID) (*model.Profile, error)
	FindByUserID(ctx context.Context, userID model.ID) (*model.Profile, error)
}

// TokenStore persists refresh tokens by their digest.
type TokenStore interface {
	Create(ctx context.Context, t *model.RefreshToken) error
	// FindByHash returns apperr.ErrInvalidToken when no record matches.
	FindByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	// Consume flips a usable token to used+invalidated.  It fails with
	// apperr.ErrInvalidToken when the token was already consumed, so two
	// concurrent refreshes cannot both succeed.
	Consume(ctx context.Context, id model.ID) error
	// InvalidateAllForUser returns how many tokens changed state.
	InvalidateAllForUser(ctx context.Context, userID model.ID) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Stores is the set of stores bound to one atomic unit of work.
type Stores struct {
	Users  UserStore
	Roles  RoleStore
	Tokens TokenStore
}

// TxRunner runs fn so that every write made through the given Stores
// commits together or not at all.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// EventPublisher delivers auth events.  Publishing is best effort: callers
// log failures and carry on.  Publish runs on the request path and must not
// wait on the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.AuthEvent) error
}
