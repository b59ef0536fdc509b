package http

import (
	"context"
	"errors"
	"net/http"

	"riskdash/internal/analytics"
	"riskdash/internal/core"
	"riskdash/internal/dataset"
	"riskdash/internal/dataset/csvfile"
	"riskdash/internal/export"
	"riskdash/internal/filter"
	applog "riskdash/internal/log"
	"riskdash/internal/render"
	"riskdash/internal/services"
	"riskdash/internal/storage"
)

// statusFor maps domain errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dataset.ErrUnknownDataset), errors.Is(err, render.ErrUnknownChart):
		return http.StatusNotFound
	case errors.Is(err, core.ErrMissingColumn), errors.Is(err, core.ErrNonNumericColumn):
		return http.StatusUnprocessableEntity
	case errors.Is(err, filter.ErrInvalidSelector),
		errors.Is(err, filter.ErrInvalidRange),
		errors.Is(err, filter.ErrInvalidBasis),
		errors.Is(err, analytics.ErrUnknownAgeVariant),
		errors.Is(err, export.ErrUnsupportedFormat),
		errors.Is(err, ErrInvalidParam),
		errors.Is(err, csvfile.ErrBinaryContent),
		errors.Is(err, csvfile.ErrEmptyUpload),
		errors.Is(err, dataset.ErrEmptyHeader):
		return http.StatusBadRequest
	case errors.Is(err, csvfile.ErrContentType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, services.ErrKPIUnavailable), errors.Is(err, storage.ErrNoImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes its JSON error body. Internal errors get
// a generic message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	msg := err.Error()
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		msg = http.StatusText(status)
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, op, nil)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			applog.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
	ErrorResponse(status, msg).Write(w)
}

func writeJSON(w http.ResponseWriter, v any) {
	NewResponse().JSON(v).Write(w)
}
