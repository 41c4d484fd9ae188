package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/identity-service/internal/apperr"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// bind decodes the request body into dst.  Decoding failures are the
// client's fault and never expose the decoder's message.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperr.InvalidInput("malformed request body")
	}
	return nil
}

// ErrorHandler renders every error returned by a handler or middleware as
// {code, message}.  Classified errors use their kind's status and public
// message; echo's own errors (unknown route, wrong method) keep their status.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		body := render(err)
		if body.Code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(body.Code)
		} else {
			werr = c.JSON(body.Code, body)
		}
		if werr != nil {
			log.Warn("error response not written", zap.Error(werr))
		}
	}
}

func render(err error) apperr.Response {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" && he.Code < http.StatusInternalServerError {
			msg = m
		}
		return apperr.Response{Code: he.Code, Message: msg}
	}
	return apperr.Body(err)
}
