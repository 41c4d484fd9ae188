package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/queue"
)

// UserWithProfile pairs an account with its active profile, if any.
type UserWithProfile struct {
	User    *model.User
	Profile *model.Profile
}

// UserService manages existing accounts.
type UserService struct {
	auth     *Authorizer
	users    UserStore
	profiles ProfileStore
	tokens   TokenStore
	events   notifier
	log      *zap.Logger
}

func NewUserService(auth *Authorizer, users UserStore, profiles ProfileStore, tokens TokenStore, ep EventPublisher, log *zap.Logger) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		auth:     auth,
		users:    users,
		profiles: profiles,
		tokens:   tokens,
		events:   newNotifier(ep, log),
		log:      log,
	}
}

// GetAll lists every active user with its profile.  Only super_admins may
// call it.
func (s *UserService) GetAll(ctx context.Context, token string) ([]UserWithProfile, error) {
	if _, err := s.auth.Authorize(ctx, token, RequireTypes(model.TypeSuperAdmin)); err != nil {
		return nil, err
	}
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UserWithProfile, 0, len(users))
	for _, u := range users {
		item := UserWithProfile{User: u}
		p, err := s.profiles.FindByUserID(ctx, u.ID)
		switch {
		case err == nil:
			item.Profile = p
		case !errors.Is(err, apperr.ErrProfileNotFound):
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

// SetVerification marks a user verified or unverified.  An empty userID
// targets the caller.  Verifying also moves the account to active.
func (s *UserService) SetVerification(ctx context.Context, token, userID string, verified bool) (*model.User, error) {
	actor, err := s.auth.Authorize(ctx, token, Admins)
	if err != nil {
		return nil, err
	}
	target, err := s.resolveTarget(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetVerificationStatus(ctx, target.ID, verified); err != nil {
		return nil, err
	}
	s.events.emit(ctx, queue.EventUserVerification, target, actor, boolDetail(verified))
	return s.users.FindByID(ctx, target.ID)
}

type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangePassword replaces the caller's password and ends all of the
// caller's sessions.
func (s *UserService) ChangePassword(ctx context.Context, token string, in ChangePasswordInput) error {
	actor, err := s.auth.Authorize(ctx, token, AnyUser)
	if err != nil {
		return err
	}
	if in.CurrentPassword == "" {
		return apperr.Validation("current_password is required")
	}
	if err := validatePassword(in.NewPassword); err != nil {
		return err
	}
	if _, err := s.users.Authenticate(ctx, actor.Email, in.CurrentPassword); err != nil {
		return err
	}
	if err := s.users.ChangePassword(ctx, actor.ID, in.NewPassword); err != nil {
		return err
	}
	if _, err := s.tokens.InvalidateAllForUser(ctx, actor.ID); err != nil {
		return err
	}
	s.events.emit(ctx, queue.EventPasswordChanged, actor, actor, "")
	return nil
}

// Disable soft-deletes a user and revokes its sessions.  An empty userID
// disables the caller; anyone may do that.  Disabling someone else needs an
// admin, and a super_admin can only be disabled by another super_admin.
func (s *UserService) Disable(ctx context.Context, token, userID string) error {
	actor, err := s.auth.Authorize(ctx, token, AnyUser)
	if err != nil {
		return err
	}
	target := actor
	if strings.TrimSpace(userID) != "" {
		if target, err = s.resolveTarget(ctx, actor, userID); err != nil {
			return err
		}
	}
	if !target.ID.Equal(actor.ID) {
		if !actor.Type.IsAdmin() {
			return apperr.ErrUnauthorizedOperation
		}
		if target.Type == model.TypeSuperAdmin && actor.Type != model.TypeSuperAdmin {
			return apperr.ErrUnauthorizedOperation
		}
	}

	if err := s.users.UpdateFailedLoginAttempts(ctx, target.ID, 0); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return err
	}
	if _, err := s.tokens.InvalidateAllForUser(ctx, target.ID); err != nil {
		s.log.Warn("disabled user kept refresh tokens", zap.String("user_id", target.ID.String()), zap.Error(err))
	}
	s.events.emit(ctx, queue.EventUserDisabled, target, actor, "")
	return nil
}

func (s *UserService) resolveTarget(ctx context.Context, actor *model.User, userID string) (*model.User, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return actor, nil
	}
	id, err := model.ParseID(model.TableUser, userID)
	if err != nil {
		return nil, apperr.InvalidInput("malformed user_id")
	}
	if id.Equal(actor.ID) {
		return actor, nil
	}
	return s.users.FindByID(ctx, id)
}

func boolDetail(b bool) string {
	if b {
		return "verified"
	}
	return "unverified"
}
