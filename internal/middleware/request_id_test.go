// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/unfairwheel/unfair-wheel-service/pkg/constants"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("generates an id when the caller sends none", func(t *testing.T) {
		var contextID string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contextID, _ = r.Context().Value(constants.RequestIDContextKey).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/groups/grp-1", nil)
		rec := httptest.NewRecorder()

		RequestIDMiddleware()(handler).ServeHTTP(rec, req)

		echoed := rec.Header().Get(constants.RequestIDHeader)
		assert.NotEmpty(t, echoed)
		assert.Equal(t, echoed, contextID)
	})

	t.Run("reuses the caller's id", func(t *testing.T) {
		var contextID string
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contextID, _ = r.Context().Value(constants.RequestIDContextKey).(string)
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/groups/grp-1", nil)
		req.Header.Set(constants.RequestIDHeader, "req-abc")
		rec := httptest.NewRecorder()

		RequestIDMiddleware()(handler).ServeHTTP(rec, req)

		assert.Equal(t, "req-abc", rec.Header().Get(constants.RequestIDHeader))
		assert.Equal(t, "req-abc", contextID)
	})

	t.Run("distinct requests get distinct ids", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		wrapped := RequestIDMiddleware()(handler)

		first := httptest.NewRecorder()
		wrapped.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/groups/grp-1", nil))
		second := httptest.NewRecorder()
		wrapped.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/groups/grp-1", nil))

		assert.NotEqual(t,
			first.Header().Get(constants.RequestIDHeader),
			second.Header().Get(constants.RequestIDHeader),
		)
	})
}
