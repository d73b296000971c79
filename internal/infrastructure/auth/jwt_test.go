// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewJWTAuth(t *testing.T) {
	_, err := NewJWTAuth(JWTAuthConfig{})
	require.Error(t, err)

	resolver, err := NewJWTAuth(JWTAuthConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.NotNil(t, resolver)
}

func TestParsePrincipal(t *testing.T) {
	resolver, err := NewJWTAuth(JWTAuthConfig{Secret: testSecret})
	require.NoError(t, err)

	testCases := []struct {
		name        string
		token       func(t *testing.T) string
		expectError bool
		validate    func(t *testing.T, identity *model.Identity)
	}{
		{
			name: "full claims",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, identityClaims{
					UserID:       "user-1",
					Emails:       []string{"One@Example.com", "two@example.com"},
					PrimaryEmail: "one@example.com",
					Name:         "One Person",
				})
			},
			validate: func(t *testing.T, identity *model.Identity) {
				assert.Equal(t, "user-1", identity.UserID)
				assert.Equal(t, []string{"one@example.com", "two@example.com"}, identity.VerifiedEmails)
				assert.Equal(t, "one@example.com", identity.PrimaryEmail)
				assert.Equal(t, "One Person", identity.DisplayName)
			},
		},
		{
			name: "invalid and duplicate emails dropped",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, identityClaims{
					UserID: "user-2",
					Emails: []string{"good@example.com", "not-an-email", "GOOD@example.com"},
				})
			},
			validate: func(t *testing.T, identity *model.Identity) {
				assert.Equal(t, []string{"good@example.com"}, identity.VerifiedEmails)
				assert.Equal(t, "good@example.com", identity.PrimaryEmail, "primary falls back to first verified")
			},
		},
		{
			name: "user id falls back to subject",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, identityClaims{
					RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-3"},
					Emails:           []string{"three@example.com"},
				})
			},
			validate: func(t *testing.T, identity *model.Identity) {
				assert.Equal(t, "sub-3", identity.UserID)
			},
		},
		{
			name: "expired token",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, identityClaims{
					UserID: "user-4",
					RegisteredClaims: jwt.RegisteredClaims{
						ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
					},
				})
			},
			expectError: true,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signToken(t, "other-secret", identityClaims{UserID: "user-5"})
			},
			expectError: true,
		},
		{
			name: "garbage token",
			token: func(t *testing.T) string {
				return "not.a.token"
			},
			expectError: true,
		},
		{
			name: "empty token",
			token: func(t *testing.T) string {
				return ""
			},
			expectError: true,
		},
		{
			name: "no usable identity",
			token: func(t *testing.T) string {
				return signToken(t, testSecret, identityClaims{
					Emails: []string{"not-an-email"},
				})
			},
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := resolver.ParsePrincipal(context.Background(), tc.token(t))

			if tc.expectError {
				require.Error(t, err)
				assert.IsType(t, errs.Unauthorized{}, err)
				return
			}
			require.NoError(t, err)
			if tc.validate != nil {
				tc.validate(t, identity)
			}
		})
	}
}
