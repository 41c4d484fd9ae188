package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/identity-service/internal/apperr"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Response
	}{
		{"kind", apperr.ErrRoleNotFound, apperr.Response{Code: 404, Message: "Role not found"}},
		{"wrapped kind", fmt.Errorf("load: %w", apperr.ErrAccountLocked), apperr.Response{Code: 403, Message: "Account temporarily locked"}},
		{"plain", errors.New("sql: connection reset"), apperr.Response{Code: 500, Message: "Internal server error"}},
		{"echo 405", echo.ErrMethodNotAllowed, apperr.Response{Code: 405, Message: "Method Not Allowed"}},
		{"echo 5xx hides message", echo.NewHTTPError(http.StatusBadGateway, "upstream 10.0.0.5 down"), apperr.Response{Code: 502, Message: "Bad Gateway"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, render(tt.err))
		})
	}
}

func TestErrorHandlerSkipsCommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, c.String(http.StatusOK, "done"))

	ErrorHandler(nil)(apperr.ErrInternal, c)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "done", rec.Body.String())
}

func TestParseBirthDate(t *testing.T) {
	d, err := parseBirthDate(" 1990-05-17 ")
	require.NoError(t, err)
	require.Equal(t, 1990, d.Year())

	_, err = parseBirthDate("")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = parseBirthDate("May 17")
	require.ErrorIs(t, err, apperr.ErrValidation)
}
