// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/pkg/constants"
)

// RequireAuthMiddleware resolves the caller's identity from the request
// credential and rejects the request with 401 when the credential is missing
// or invalid. The identity is stored in the request context.
func RequireAuthMiddleware(resolver port.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := resolver.ParsePrincipal(r.Context(), bearerToken(r))
			if err != nil {
				writeUnauthorized(r.Context(), w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuthMiddleware resolves the caller's identity when a credential is
// present and lets the request through anonymously otherwise. A credential
// that fails to parse is also treated as anonymous, so public reads keep
// working for callers holding a stale token.
func OptionalAuthMiddleware(resolver port.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			identity, err := resolver.ParsePrincipal(r.Context(), token)
			if err != nil {
				slog.DebugContext(r.Context(), "ignoring invalid credential on public route", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a context carrying the authenticated identity.
func WithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, constants.PrincipalContextID, identity)
}

// IdentityFromContext returns the authenticated identity, or nil when the
// request is anonymous.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(constants.PrincipalContextID).(*model.Identity)
	return identity
}

// bearerToken extracts the credential from the Authorization header, falling
// back to the token query parameter used by WebSocket clients, which cannot
// set custom headers from browsers.
func bearerToken(r *http.Request) string {
	const bearerPrefix = "Bearer "
	header := r.Header.Get(constants.AuthorizationHeader)
	if strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	}
	return r.URL.Query().Get(constants.TokenQueryParam)
}

func writeUnauthorized(ctx context.Context, w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	if encodeErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encodeErr != nil {
		slog.ErrorContext(ctx, "failed to write unauthorized response", "error", encodeErr)
	}
}
