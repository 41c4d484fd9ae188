package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/utils"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	refreshTokenBytes = 32
)

// TokenConfig is the immutable configuration of a TokenService.
// AccessSecret signs JWTs; RefreshSecret keys the digests under which
// refresh tokens are stored.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Claims is the payload of an access token.
type Claims struct {
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenPair is what a successful login hands out.
type TokenPair struct {
	Access  AccessToken
	Refresh *model.RefreshToken
}

// TokenService mints and validates access and refresh tokens.  It holds no
// state besides its configuration, so one instance is shared by every
// request.
type TokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) *TokenService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	return &TokenService{cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock returns a copy of s that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	c := *s
	c.now = now
	return &c
}

func (s *TokenService) AccessTTL() time.Duration  { return s.cfg.AccessTTL }
func (s *TokenService) RefreshTTL() time.Duration { return s.cfg.RefreshTTL }

// GenerateAccessToken builds and signs an HS256 JWT for u.  The subject is
// the user's key; roles and permissions come from what the store resolved.
func (s *TokenService) GenerateAccessToken(u *model.User) (AccessToken, error) {
	if u == nil || u.ID.IsZero() {
		return AccessToken{}, apperr.Wrap(apperr.ErrTokenGeneration, errors.New("user without id"))
	}
	now := s.now()
	exp := now.Add(s.cfg.AccessTTL)
	claims := Claims{
		Email:       u.Email,
		Roles:       u.RoleNames(),
		Permissions: u.PermissionNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.Key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AccessSecret))
	if err != nil {
		return AccessToken{}, apperr.Wrap(apperr.ErrTokenGeneration, err)
	}
	return AccessToken{Token: signed, ExpiresAt: exp}, nil
}

// GenerateRefreshToken returns a fresh, unsaved refresh token for u.  The
// access-token marker is random; GenerateTokenPair replaces it with the
// digest of the paired access token.
func (s *TokenService) GenerateRefreshToken(u *model.User) (*model.RefreshToken, error) {
	if u == nil || u.ID.IsZero() {
		return nil, apperr.Wrap(apperr.ErrTokenGeneration, errors.New("user without id"))
	}
	raw, err := utils.RandomHex(refreshTokenBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTokenGeneration, err)
	}
	marker, err := utils.RandomHex(refreshTokenBytes)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrTokenGeneration, err)
	}
	now := s.now()
	return &model.RefreshToken{
		ID:              model.NewID(model.TableRefreshToken),
		UserID:          u.ID,
		Token:           raw,
		TokenHash:       s.HashRefreshToken(raw),
		AccessTokenHash: marker,
		ExpiresAt:       now.Add(s.cfg.RefreshTTL),
		CreatedAt:       now,
	}, nil
}

// GenerateTokenPair issues an access token and a refresh token bound to it.
func (s *TokenService) GenerateTokenPair(u *model.User) (*TokenPair, error) {
	access, err := s.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	refresh, err := s.GenerateRefreshToken(u)
	if err != nil {
		return nil, err
	}
	refresh.AccessTokenHash = s.HashRefreshToken(access.Token)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// HashRefreshToken is the digest under which raw is stored.
func (s *TokenService) HashRefreshToken(raw string) string {
	return utils.HashToken(s.cfg.RefreshSecret, raw)
}

// VerifyAccessToken checks signature, algorithm and expiry and returns the
// claims.  Expiry yields apperr.ErrTokenExpired; any other failure
// apperr.ErrInvalidToken.
func (s *TokenService) VerifyAccessToken(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.ErrInvalidToken
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.AccessSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.Wrap(apperr.ErrInvalidToken, err)
	}
	if !tok.Valid || claims.Subject == "" {
		return nil, apperr.ErrInvalidToken
	}
	return claims, nil
}

// IsTokenExpired compares the claims' expiry with the current time.  Parsing
// already enforces this; callers still check it after a successful decode.
func (s *TokenService) IsTokenExpired(c *Claims) bool {
	if c == nil || c.ExpiresAt == nil {
		return true
	}
	return !s.now().Before(c.ExpiresAt.Time)
}

// Authenticate verifies token, re-checks expiry and returns the claims with
// the subject as a user ID.
func (s *TokenService) Authenticate(token string) (*Claims, model.ID, error) {
	claims, err := s.VerifyAccessToken(token)
	if err != nil {
		return nil, model.ID{}, err
	}
	if s.IsTokenExpired(claims) {
		return nil, model.ID{}, apperr.ErrTokenExpired
	}
	return claims, model.IDFrom(model.TableUser, claims.Subject), nil
}
