package service_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
	"github.com/iliyamo/identity-service/internal/service"
)

func testUser() *model.User {
	return &model.User{
		ID:    model.NewID(model.TableUser),
		Email: "jane@example.com",
		Roles: []model.Role{{Name: "customer"}},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	ts := service.NewTokenService(service.TokenConfig{AccessSecret: "s3cret"})
	u := testUser()

	tok, err := ts.GenerateAccessToken(u)
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(service.DefaultAccessTTL), tok.ExpiresAt, 5*time.Second)

	claims, err := ts.VerifyAccessToken(tok.Token)
	require.NoError(t, err)
	require.Equal(t, u.ID.Key, claims.Subject)
	require.Equal(t, u.Email, claims.Email)
	require.Equal(t, []string{"customer"}, claims.Roles)
	require.Empty(t, claims.Permissions)
	require.NotEmpty(t, claims.ID)
	require.False(t, ts.IsTokenExpired(claims))

	_, uid, err := ts.Authenticate(tok.Token)
	require.NoError(t, err)
	require.True(t, uid.Equal(u.ID))
}

func TestAccessTokenWrongSecret(t *testing.T) {
	a := service.NewTokenService(service.TokenConfig{AccessSecret: "one"})
	b := service.NewTokenService(service.TokenConfig{AccessSecret: "two"})

	tok, err := a.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = b.VerifyAccessToken(tok.Token)
	require.ErrorIs(t, err, apperr.ErrInvalidToken)
}

func TestAccessTokenExpired(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	issuer := service.NewTokenService(service.TokenConfig{AccessSecret: "s", AccessTTL: time.Minute}).
		WithClock(func() time.Time { return past })

	tok, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	verifier := service.NewTokenService(service.TokenConfig{AccessSecret: "s"})
	_, err = verifier.VerifyAccessToken(tok.Token)
	require.ErrorIs(t, err, apperr.ErrTokenExpired)
	_, _, err = verifier.Authenticate(tok.Token)
	require.ErrorIs(t, err, apperr.ErrTokenExpired)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	ts := service.NewTokenService(service.TokenConfig{AccessSecret: "s"})
	for _, tok := range []string{"", "   ", "not-a-jwt", "a.b.c"} {
		_, err := ts.VerifyAccessToken(tok)
		require.ErrorIs(t, err, apperr.ErrInvalidToken, tok)
	}
}

func TestIsTokenExpiredBoundary(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	ts := service.NewTokenService(service.TokenConfig{AccessSecret: "s"}).WithClock(func() time.Time { return now })

	require.True(t, ts.IsTokenExpired(nil))
	c := &service.Claims{}
	require.True(t, ts.IsTokenExpired(c))
	c.ExpiresAt = jwt.NewNumericDate(now)
	require.True(t, ts.IsTokenExpired(c))
	c.ExpiresAt = jwt.NewNumericDate(now.Add(time.Second))
	require.False(t, ts.IsTokenExpired(c))
}

func TestTokenPairBinding(t *testing.T) {
	ts := service.NewTokenService(service.TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	pair, err := ts.GenerateTokenPair(testUser())
	require.NoError(t, err)

	require.Len(t, pair.Refresh.Token, 64)
	require.Equal(t, ts.HashRefreshToken(pair.Refresh.Token), pair.Refresh.TokenHash)
	require.NotEqual(t, pair.Refresh.Token, pair.Refresh.TokenHash)
	require.Equal(t, ts.HashRefreshToken(pair.Access.Token), pair.Refresh.AccessTokenHash)
	require.True(t, pair.Refresh.Usable(time.Now()))
	require.WithinDuration(t, time.Now().Add(service.DefaultRefreshTTL), pair.Refresh.ExpiresAt, 5*time.Second)
}

func TestGenerateRequiresUserID(t *testing.T) {
	ts := service.NewTokenService(service.TokenConfig{AccessSecret: "s"})
	_, err := ts.GenerateAccessToken(&model.User{Email: "x@example.com"})
	require.ErrorIs(t, err, apperr.ErrTokenGeneration)
}
