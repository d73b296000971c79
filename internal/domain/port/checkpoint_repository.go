// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package port

import (
	"context"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

// CheckpointRepository persists group actor state between restarts.
// Checkpointing is best-effort: a failed save must never fail the mutation
// that produced it.
type CheckpointRepository interface {
	// LoadGroupState retrieves the checkpoint for a group, or a NotFound
	// error when the group has never been checkpointed.
	LoadGroupState(ctx context.Context, groupID string) (*model.GroupState, error)

	// SaveGroupState writes the checkpoint for a group.
	SaveGroupState(ctx context.Context, state *model.GroupState) error
}
