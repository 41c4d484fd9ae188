package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/queue"
	"github.com/iliyamo/identity-service/internal/utils"
)

const (
	DefaultMaxFailedLogins      = 5
	DefaultLockoutDuration      = 15 * time.Minute
	DefaultRegisterFailureDelay = 500 * time.Millisecond

	minPasswordLength = 8
)

// AuthOptions tunes login lockout and registration timing.
// MaxFailedLogins <= 0 disables lockout.
type AuthOptions struct {
	MaxFailedLogins      int
	LockoutDuration      time.Duration
	RegisterFailureDelay time.Duration
}

// AuthService implements login, registration, logout and refresh-token
// rotation.
type AuthService struct {
	users  UserStore
	roles  RoleStore
	tokens TokenStore
	tx     TxRunner
	issuer *TokenService
	events notifier
	log    *zap.Logger
	opts   AuthOptions
	now    func() time.Time
}

func NewAuthService(st Stores, tx TxRunner, issuer *TokenService, ep EventPublisher, log *zap.Logger, opts AuthOptions) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.LockoutDuration <= 0 {
		opts.LockoutDuration = DefaultLockoutDuration
	}
	if opts.RegisterFailureDelay < 0 {
		opts.RegisterFailureDelay = 0
	}
	return &AuthService{
		users:  st.Users,
		roles:  st.Roles,
		tokens: st.Tokens,
		tx:     tx,
		issuer: issuer,
		events: newNotifier(ep, log),
		log:    log,
		opts:   opts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned by Login and Refresh.
type LoginResult struct {
	UserID                string
	Email                 string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

func newLoginResult(u *model.User, pair *TokenPair) *LoginResult {
	return &LoginResult{
		UserID:                u.ID.Key,
		Email:                 u.Email,
		AccessToken:           pair.Access.Token,
		AccessTokenExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:          pair.Refresh.Token,
		RefreshTokenExpiresAt: pair.Refresh.ExpiresAt,
	}
}

// Login authenticates e-mail and password and issues a token pair.  An
// unknown e-mail and a wrong password both fail with ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperr.ErrInvalidCredentials
	}

	u, err := s.users.Authenticate(ctx, email, in.Password)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCredentials) {
			s.recordFailure(ctx, email)
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if u.IsLocked(now) {
		s.events.emit(ctx, queue.EventAccountLocked, u, nil, "login refused while locked")
		return nil, apperr.ErrAccountLocked
	}
	if !mayHoldSession(u) {
		return nil, apperr.ErrInvalidCredentials
	}

	pair, err := s.issuer.GenerateTokenPair(u)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.Create(ctx, pair.Refresh); err != nil {
		return nil, err
	}
	if err := s.users.RecordLoginSuccess(ctx, u.ID, now); err != nil {
		s.log.Warn("login bookkeeping failed", zap.String("user_id", u.ID.String()), zap.Error(err))
	}

	s.events.emit(ctx, queue.EventUserLoggedIn, u, nil, "")
	return newLoginResult(u, pair), nil
}

func (s *AuthService) recordFailure(ctx context.Context, email string) {
	if s.opts.MaxFailedLogins <= 0 {
		return
	}
	if err := s.users.RecordLoginFailure(ctx, email, s.now(), s.opts.MaxFailedLogins, s.opts.LockoutDuration); err != nil {
		s.log.Warn("failed login not recorded", zap.Error(err))
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	UserType  model.UserType
	CreatedBy string
}

type RegisterResult struct {
	User          *model.User
	AccessToken   AccessToken
	RefreshToken  *model.RefreshToken
	ProfileStatus model.ProfileStatus
}

// Register creates an account.  Customers sign themselves up; every other
// type must be created by an active admin or super_admin named in
// CreatedBy.  Creating the user, assigning its default role and storing its
// refresh token happen in one transaction.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := model.NormalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	userType, ok := model.ParseUserType(string(in.UserType))
	if !ok {
		return nil, apperr.InvalidInput("unknown user_type %q", in.UserType)
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		// Roughly the cost of a successful registration, so the response
		// time does not reveal that the e-mail is taken.
		s.sleep(ctx, s.opts.RegisterFailureDelay)
		return nil, apperr.ErrRegistrationFailed
	} else if !errors.Is(err, apperr.ErrUserNotFound) {
		return nil, err
	}

	creator, err := s.authorizeCreator(ctx, userType, strings.TrimSpace(in.CreatedBy))
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &model.User{
		ID:        model.NewID(model.TableUser),
		Email:     email,
		Status:    model.StatusPendingVerification,
		Type:      userType,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	assignedBy := u.ID
	if creator != nil {
		u.CreatedBy = &creator.ID
		assignedBy = creator.ID
	}

	var (
		created *model.User
		pair    *TokenPair
	)
	err = s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		if err := st.Users.Create(ctx, u, in.Password); err != nil {
			return err
		}
		if err := assignDefaultRole(ctx, st.Roles, u, assignedBy); err != nil {
			return err
		}
		var err error
		if created, err = st.Users.FindByID(ctx, u.ID); err != nil {
			return err
		}
		if pair, err = s.issuer.GenerateTokenPair(created); err != nil {
			return err
		}
		return st.Tokens.Create(ctx, pair.Refresh)
	})
	if err != nil {
		s.log.Warn("registration rolled back", zap.String("email", email), zap.Error(err))
		return nil, apperr.Wrap(apperr.ErrRegistrationFailed, err)
	}

	s.events.emit(ctx, queue.EventUserRegistered, created, creator, string(created.Type))
	return &RegisterResult{
		User:          created,
		AccessToken:   pair.Access,
		RefreshToken:  pair.Refresh,
		ProfileStatus: model.ProfileStatusFor(created.Type),
	}, nil
}

// authorizeCreator enforces who may register which user type.
func (s *AuthService) authorizeCreator(ctx context.Context, t model.UserType, createdBy string) (*model.User, error) {
	if t == model.TypeCustomer {
		if createdBy != "" {
			return nil, apperr.ErrInvalidOperation
		}
		return nil, nil
	}
	if createdBy == "" {
		return nil, apperr.ErrUnauthorizedOperation
	}
	id, err := model.ParseID(model.TableUser, createdBy)
	if err != nil {
		return nil, apperr.ErrUnauthorizedOperation
	}
	creator, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrUnauthorizedOperation
		}
		return nil, err
	}
	if !creator.IsActive || !creator.Type.IsAdmin() {
		return nil, apperr.ErrUnauthorizedOperation
	}
	return creator, nil
}

// assignDefaultRole links u to the role named after its user type, when such
// a role exists.
func assignDefaultRole(ctx context.Context, roles RoleStore, u *model.User, by model.ID) error {
	role, err := roles.FindByName(ctx, string(u.Type))
	if err != nil {
		if errors.Is(err, apperr.ErrRoleNotFound) {
			return nil
		}
		return err
	}
	return roles.AssignToUser(ctx, u.ID, role.ID, by)
}

// Logout invalidates every refresh token of the token's subject.  Finding
// nothing left to invalidate means the user is already logged out, which is
// not an error.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	_, uid, err := s.issuer.Authenticate(accessToken)
	if err != nil {
		return err
	}
	n, err := s.tokens.InvalidateAllForUser(ctx, uid)
	if err != nil {
		return err
	}
	if n == 0 {
		s.log.Debug("logout: no active refresh tokens", zap.String("user_id", uid.String()))
		return nil
	}
	s.events.emit(ctx, queue.EventUserLoggedOut, &model.User{ID: uid}, nil, "")
	return nil
}

// Refresh exchanges a refresh token for a new pair.  The presented token is
// consumed; presenting a consumed token again revokes every session of its
// owner.
func (s *AuthService) Refresh(ctx context.Context, raw string) (*LoginResult, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.ErrInvalidToken
	}
	rt, err := s.tokens.FindByHash(ctx, s.issuer.HashRefreshToken(raw))
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case rt.Used:
		if _, err := s.tokens.InvalidateAllForUser(ctx, rt.UserID); err != nil {
			return nil, err
		}
		s.events.emit(ctx, queue.EventTokenReuse, &model.User{ID: rt.UserID}, nil, "refresh token presented twice")
		return nil, apperr.ErrInvalidToken
	case rt.Invalidated:
		return nil, apperr.ErrInvalidToken
	case !now.Before(rt.ExpiresAt):
		return nil, apperr.ErrTokenExpired
	}

	u, err := s.users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, apperr.ErrUserNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	if u.IsLocked(now) {
		return nil, apperr.ErrAccountLocked
	}
	if !mayHoldSession(u) {
		return nil, apperr.ErrUnauthorizedAccess
	}

	var pair *TokenPair
	err = s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
		if err := st.Tokens.Consume(ctx, rt.ID); err != nil {
			return err
		}
		var err error
		if pair, err = s.issuer.GenerateTokenPair(u); err != nil {
			return err
		}
		return st.Tokens.Create(ctx, pair.Refresh)
	})
	if err != nil {
		return nil, err
	}

	s.events.emit(ctx, queue.EventTokenRefreshed, u, nil, "")
	return newLoginResult(u, pair), nil
}

// mayHoldSession reports whether u's status still allows signing in or
// keeping a session alive.
func mayHoldSession(u *model.User) bool {
	return u.Status != model.StatusSuspended && u.Status != model.StatusInactive
}

func (s *AuthService) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func validateEmail(email string) error {
	if email == "" {
		return apperr.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.IndexByte(email, '@')+1:], ".") {
		return apperr.ErrInvalidEmail
	}
	return nil
}

func validatePassword(pw string) error {
	if len(pw) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	if len(pw) > utils.MaxPasswordBytes {
		return apperr.Validation("password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	return nil
}
