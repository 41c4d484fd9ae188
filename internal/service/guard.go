package service

import (
	"context"
	"errors"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

// Predicate decides whether an authenticated actor may proceed.
type Predicate func(actor *model.User) bool

// AnyUser admits every active, authenticated user.
func AnyUser(*model.User) bool { return true }

// RequireTypes admits actors whose user type is one of types.
func RequireTypes(types ...model.UserType) Predicate {
	allowed := make(map[model.UserType]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(actor *model.User) bool { return allowed[actor.Type] }
}

// Admins admits admin and super_admin actors.
var Admins = RequireTypes(model.TypeAdmin, model.TypeSuperAdmin)

// Authorizer is the single guard in front of every privileged use case: it
// decodes the bearer token, re-checks its expiry, loads the acting user and
// applies a predicate to it.
type Authorizer struct {
	tokens *TokenService
	users  UserStore
}

func NewAuthorizer(tokens *TokenService, users UserStore) *Authorizer {
	return &Authorizer{tokens: tokens, users: users}
}

// Authorize returns the acting user or an error: ErrInvalidToken or
// ErrTokenExpired for a bad token, ErrUnauthorizedAccess when the subject no
// longer exists, is inactive, or fails allow.  A nil allow means AnyUser.
func (a *Authorizer) Authorize(ctx context.Context, token string, allow Predicate) (*model.User, error) {
	_, uid, err := a.tokens.Authenticate(token)
	if err != nil {
		return nil, err
	}
	actor, err := a.users.FindByID(ctx, uid)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrUnauthorizedAccess
		}
		return nil, err
	}
	if !actor.IsActive {
		return nil, apperr.ErrUnauthorizedAccess
	}
	if allow != nil && !allow(actor) {
		return nil, apperr.ErrUnauthorizedAccess
	}
	return actor, nil
}
