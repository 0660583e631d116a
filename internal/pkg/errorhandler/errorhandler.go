package errorhandler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nailbook/booking-api/internal/pkg/logger"
	"github.com/nailbook/booking-api/internal/pkg/response"
)

// HandleError logs err with the request-scoped logger and writes the error envelope.
// Server-side failures (5xx) log at error level, client rejections at warn.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	l := logger.FromContext(ctx)
	event := l.Warn()
	if status >= http.StatusInternalServerError {
		event = l.Error()
	}

	event = event.
		Str("error_code", code).
		Int("status_code", status)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(message)

	response.Error(w, status, code, message)
}

// HandlePanic logs a recovered panic and writes a generic 500.
func HandlePanic(ctx context.Context, w http.ResponseWriter, recovered interface{}, stack string) {
	logger.FromContext(ctx).Error().
		Interface("panic", recovered).
		Str("stack", stack).
		Msg("request panic")

	response.InternalError(w)
}

// LogValidationError logs validation failures as a single JSON field.
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	raw, _ := json.Marshal(fieldErrors)
	logger.FromContext(ctx).Warn().
		RawJSON("validation_errors", raw).
		Msg("validation error")
}
