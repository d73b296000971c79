// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"

	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// statusForError maps a typed service failure to its HTTP status code.
// Untyped errors are treated as internal.
func statusForError(err error) int {
	var (
		validation   errs.Validation
		unauthorized errs.Unauthorized
		forbidden    errs.Forbidden
		notFound     errs.NotFound
		conflict     errs.Conflict
		unavailable  errs.ServiceUnavailable
	)

	switch {
	case stderrors.As(err, &validation):
		return http.StatusBadRequest
	case stderrors.As(err, &unauthorized):
		return http.StatusUnauthorized
	case stderrors.As(err, &forbidden):
		return http.StatusForbidden
	case stderrors.As(err, &notFound):
		return http.StatusNotFound
	case stderrors.As(err, &conflict):
		return http.StatusConflict
	case stderrors.As(err, &unavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a failure as the {"error": message} body with its
// mapped status. Server-side failures are logged at error level, expected
// client failures at debug.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "request failed", "error", err, "status", status)
	} else {
		slog.DebugContext(ctx, "request rejected", "error", err, "status", status)
	}
	encodeJSON(ctx, w, status, map[string]string{"error": err.Error()})
}
