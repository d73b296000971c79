// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package middleware provides HTTP middleware for the unfair wheel service.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/unfairwheel/unfair-wheel-service/pkg/constants"
	"github.com/unfairwheel/unfair-wheel-service/pkg/log"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

// RequestIDMiddleware ensures every request carries a request ID, reusing the
// X-Request-Id header when the caller sent one and generating an ID otherwise.
// The ID is echoed on the response and attached to the request context so all
// log records for the request include it.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(constants.RequestIDHeader)
			if requestID == "" {
				requestID = utils.NewID()
			}

			ctx := context.WithValue(r.Context(), constants.RequestIDContextKey, requestID)
			ctx = log.AppendCtx(ctx, slog.String("request_id", requestID))
			w.Header().Set(constants.RequestIDHeader, requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
