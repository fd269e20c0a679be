package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/context"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// ErrorCode is the coarse taxonomy returned to callers alongside the message.
type ErrorCode string

const (
	ErrorCodeOK               ErrorCode = "OK"
	ErrorCodeClientError      ErrorCode = "CLIENT_ERROR"
	ErrorCodeLoginRequired    ErrorCode = "LOGIN_REQUIRED"
	ErrorCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
)

// CodeForStatus maps an HTTP status to the engine's error taxonomy.
func CodeForStatus(status int) ErrorCode {
	switch {
	case status < 400:
		return ErrorCodeOK
	case status == http.StatusUnauthorized:
		return ErrorCodeLoginRequired
	case status == http.StatusForbidden:
		return ErrorCodePermissionDenied
	case status == http.StatusNotFound:
		return ErrorCodeNotFound
	case status < 500:
		return ErrorCodeClientError
	default:
		return ErrorCodeInternalError
	}
}

type ErrorResponse struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal Server Error"
		meta := map[string]any{}

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		}

		if ok := httperror.IsHTTPError(err); ok {
			httperr := httperror.ToHTTPError(err)
			code = httperror.GetStatusCode(err)
			message = httperr.Error()
			meta = httperr.Meta
		}

		_ = c.JSON(code, ErrorResponse{
			Code:      CodeForStatus(code),
			Message:   message,
			RequestID: context.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}
