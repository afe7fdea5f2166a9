package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/tournevent/tradepost/pkg/shipping"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps shipping
// errors to status codes and renders {"error": "<message>"}. Causes are
// logged, never rendered.
func NewHTTPErrorHandler(logger *otelzap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err)
		if code >= http.StatusInternalServerError {
			logger.Ctx(c.Request().Context()).Error("Request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error) (int, string) {
	var se *shipping.Error
	if errors.As(err, &se) {
		return statusForKind(se), se.Message
	}

	// Echo's own errors (bind failures, 404 from router, auth, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	return http.StatusInternalServerError, "internal server error"
}

func statusForKind(e *shipping.Error) int {
	switch e.Kind {
	case shipping.KindValidation:
		return http.StatusUnprocessableEntity
	case shipping.KindUnauthorizedOrNotFound, shipping.KindTrackingNotFound:
		return http.StatusNotFound
	case shipping.KindRateRetrievalFailed, shipping.KindNoValidRate:
		return http.StatusBadRequest
	case shipping.KindLabelInProgress:
		return http.StatusConflict
	case shipping.KindLabelPurchaseFailed, shipping.KindTrackingRetrievalFailed:
		if e.Upstream {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
