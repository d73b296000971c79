// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package port defines the interfaces for external dependencies and adapters.
package port

import (
	"context"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

// MetadataRepository defines the flat KV operations backing cross-group
// lookups: group summaries, ownership and membership indices, and per-user
// bookmarks. Writes are last-write-wins; the store is an eventually
// consistent index, never the source of truth.
//
// This interface follows the Repository pattern and should be implemented by:
//   - NATS KV storage layer (production)
//   - Mock storage layer (testing)
type MetadataRepository interface {
	// GetGroupSummary retrieves the summary record for a group, or a
	// NotFound error when the group has no record.
	GetGroupSummary(ctx context.Context, groupID string) (*model.GroupSummary, error)

	// PutGroupSummary writes the summary record for a group.
	PutGroupSummary(ctx context.Context, summary *model.GroupSummary) error

	// PutOwnerGroup marks a group as owned by the hashed user key.
	PutOwnerGroup(ctx context.Context, userKey, groupID string) error

	// ListOwnerGroups returns the IDs of all groups owned by the hashed
	// user key. A user with no groups yields an empty slice.
	ListOwnerGroups(ctx context.Context, userKey string) ([]string, error)

	// PutParticipantGroup marks a group as containing the hashed email.
	PutParticipantGroup(ctx context.Context, emailKey, groupID string) error

	// DeleteParticipantGroup removes a membership marker. Deleting a
	// missing marker is not an error.
	DeleteParticipantGroup(ctx context.Context, emailKey, groupID string) error

	// ListParticipantGroups returns the IDs of all groups containing the
	// hashed email. An unknown email yields an empty slice.
	ListParticipantGroups(ctx context.Context, emailKey string) ([]string, error)

	// GetParticipantIndex retrieves the authoritative sorted email set for
	// a group. A group without an index yields an empty slice.
	GetParticipantIndex(ctx context.Context, groupID string) ([]string, error)

	// PutParticipantIndex replaces the authoritative sorted email set for
	// a group.
	PutParticipantIndex(ctx context.Context, groupID string, emails []string) error

	// GetBookmarks retrieves a user's bookmarked group IDs. A user without
	// bookmarks yields an empty slice.
	GetBookmarks(ctx context.Context, userKey string) ([]string, error)

	// PutBookmarks replaces a user's bookmarked group IDs.
	PutBookmarks(ctx context.Context, userKey string, groupIDs []string) error

	// IsReady checks whether the underlying store is reachable.
	IsReady(ctx context.Context) error
}
