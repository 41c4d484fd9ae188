package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"token expired", ErrTokenExpired, http.StatusUnauthorized},
		{"unauthorized access", ErrUnauthorizedAccess, http.StatusForbidden},
		{"role not found", ErrRoleNotFound, http.StatusNotFound},
		{"user exists", ErrUserAlreadyExists, http.StatusConflict},
		{"validation detail", Validation("name is required"), http.StatusBadRequest},
		{"connection", ErrConnection, http.StatusServiceUnavailable},
		{"wrapped kind", fmt.Errorf("login: %w", ErrInvalidToken), http.StatusUnauthorized},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestDetailedErrorMatchesKind(t *testing.T) {
	err := Validation("email is required")
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrInvalidInput)
	require.Equal(t, "Validation error: email is required", Body(err).Message)
}

func TestDatabaseHidesCause(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.5:3306: connection refused")
	err := Database(cause)

	require.ErrorIs(t, err, ErrDatabase)
	require.ErrorIs(t, err, cause)

	body := Body(err)
	require.Equal(t, http.StatusInternalServerError, body.Code)
	require.Equal(t, "Database error", body.Message)
}

func TestDatabaseKeepsExistingKind(t *testing.T) {
	err := Database(ErrUserAlreadyExists)
	require.ErrorIs(t, err, ErrUserAlreadyExists)
	require.NotErrorIs(t, err, ErrDatabase)
	require.Nil(t, Database(nil))
}
