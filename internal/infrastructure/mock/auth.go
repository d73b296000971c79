// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package mock

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// MockIdentityResolver provides a mock implementation of the identity
// resolver for local development without real tokens.
type MockIdentityResolver struct{}

// ParsePrincipal ignores the presented token and returns the identity
// configured through JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL, formatted as
// "userID:email[,email...]" with the first email acting as primary.
func (m *MockIdentityResolver) ParsePrincipal(ctx context.Context, _ string) (*model.Identity, error) {
	principal := os.Getenv("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL")
	if principal == "" {
		return nil, errors.NewValidation("JWT_AUTH_DISABLED_MOCK_LOCAL_PRINCIPAL environment variable not set")
	}

	userID := principal
	var emails []string
	if colon := strings.IndexByte(principal, ':'); colon >= 0 {
		userID = principal[:colon]
		for _, email := range strings.Split(principal[colon+1:], ",") {
			if normalized, err := model.NormalizeEmail(email); err == nil {
				emails = append(emails, normalized)
			}
		}
	}

	identity := &model.Identity{
		UserID:         userID,
		VerifiedEmails: emails,
	}
	if len(emails) > 0 {
		identity.PrimaryEmail = emails[0]
	}

	slog.DebugContext(ctx, "parsed mock principal",
		"user_id", userID,
		"verified_emails", len(emails),
	)
	return identity, nil
}

// NewMockIdentityResolver creates a new mock identity resolver.
func NewMockIdentityResolver() port.IdentityResolver {
	return &MockIdentityResolver{}
}
