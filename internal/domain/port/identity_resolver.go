// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

// IdentityResolver translates a bearer credential into a verified identity.
type IdentityResolver interface {
	// ParsePrincipal validates the credential and returns the identity it
	// asserts, or an Unauthorized error.
	ParsePrincipal(ctx context.Context, token string) (*model.Identity, error)
}
