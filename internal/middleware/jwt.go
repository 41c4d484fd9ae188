package middleware // reusable HTTP middleware for the identity service

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/service"
)

// Context keys set by BearerAuth.
const (
	ContextToken  = "access_token"
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// ExtractBearer returns the token of an "Authorization: Bearer <token>"
// header.  The scheme is matched case-insensitively.
func ExtractBearer(c echo.Context) (string, error) {
	auth := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	scheme, raw, ok := strings.Cut(auth, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", apperr.ErrInvalidToken.WithMessage("Missing bearer token")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", apperr.ErrInvalidToken.WithMessage("Missing bearer token")
	}
	return raw, nil
}

// BearerAuth validates the access token of protected routes and stores the
// raw token, its subject and its claims in the context.  The use cases
// re-authorize with the raw token, so this only turns away requests that
// cannot possibly succeed.  Failures go to the HTTP error handler.
func BearerAuth(tokens *service.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := ExtractBearer(c)
			if err != nil {
				return err
			}
			claims, uid, err := tokens.Authenticate(raw)
			if err != nil {
				return err
			}
			c.Set(ContextToken, raw)
			c.Set(ContextUserID, uid.Key)
			c.Set(ContextClaims, claims)
			return next(c)
		}
	}
}

// Token returns the access token stored by BearerAuth, falling back to the
// request header for routes that do not use the middleware.
func Token(c echo.Context) string {
	if v, ok := c.Get(ContextToken).(string); ok {
		return v
	}
	raw, _ := ExtractBearer(c)
	return raw
}
