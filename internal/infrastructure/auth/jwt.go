// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package auth provides the JWT implementation of the identity resolver.
package auth

import (
	"context"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// JWTAuthConfig holds the JWT validation settings.
type JWTAuthConfig struct {
	// Secret is the shared HMAC signing secret.
	Secret string
}

// identityClaims is the expected token payload. The emails claim lists the
// bearer's verified email addresses.
type identityClaims struct {
	UserID       string   `json:"userId"`
	Emails       []string `json:"emails"`
	PrimaryEmail string   `json:"primaryEmail"`
	Name         string   `json:"name"`
	jwt.RegisteredClaims
}

type jwtAuth struct {
	secret []byte
}

// NewJWTAuth creates a JWT identity resolver with the given configuration.
func NewJWTAuth(config JWTAuthConfig) (port.IdentityResolver, error) {
	if config.Secret == "" {
		return nil, errors.NewUnexpected("JWT secret is required")
	}
	return &jwtAuth{
		secret: []byte(config.Secret),
	}, nil
}

// ParsePrincipal validates the bearer token and builds the identity it
// asserts. Emails are normalized and unparseable ones dropped, so role
// matching downstream only ever sees canonical addresses.
func (a *jwtAuth) ParsePrincipal(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, errors.NewUnauthorized("authentication required")
	}

	parsed, err := jwt.ParseWithClaims(token, &identityClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.NewUnauthorized("unexpected token signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		slog.DebugContext(ctx, "token validation failed", "error", err)
		return nil, errors.NewUnauthorized("invalid or expired token", err)
	}
	claims, ok := parsed.Claims.(*identityClaims)
	if !ok || !parsed.Valid {
		return nil, errors.NewUnauthorized("invalid token claims")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}

	verified := make([]string, 0, len(claims.Emails))
	seen := make(map[string]struct{}, len(claims.Emails))
	for _, email := range claims.Emails {
		normalized, err := model.NormalizeEmail(email)
		if err != nil {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		verified = append(verified, normalized)
	}

	primary := ""
	if normalized, err := model.NormalizeEmail(claims.PrimaryEmail); err == nil {
		primary = normalized
	} else if len(verified) > 0 {
		primary = verified[0]
	}

	if userID == "" && len(verified) == 0 {
		return nil, errors.NewUnauthorized("token carries no usable identity")
	}

	identity := &model.Identity{
		UserID:         userID,
		VerifiedEmails: verified,
		PrimaryEmail:   primary,
		DisplayName:    claims.Name,
	}

	slog.DebugContext(ctx, "principal parsed",
		"user_id", identity.UserID,
		"verified_emails", len(identity.VerifiedEmails),
	)
	return identity, nil
}
