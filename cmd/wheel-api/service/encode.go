// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// encodeJSON writes v as the JSON response body with the given status.
func encodeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response body", "error", err)
	}
}

// decodeJSON parses the request body into v, rejecting unparseable bodies
// as validation failures.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewValidation("request body is not valid JSON", err)
	}
	return nil
}
