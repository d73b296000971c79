// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sort"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// GroupReader defines the interface for group read operations
type GroupReader interface {
	// GetGroup returns the group record. Public.
	GetGroup(ctx context.Context, groupID string) (*model.Group, error)

	// GetParticipants returns the roster in insertion order. Public.
	GetParticipants(ctx context.Context, groupID string) ([]model.Participant, error)

	// GetHistory returns the retained spin history, newest first.
	// Participant gate: the caller must be the owner or a roster
	// participant.
	GetHistory(ctx context.Context, identity *model.Identity, groupID string) ([]model.SpinHistoryItem, error)

	// ListMyGroups returns summaries of every group the caller owns or
	// participates in through a verified email, ordered by creation time.
	ListMyGroups(ctx context.Context, identity *model.Identity) ([]model.GroupSummary, error)

	// GetBookmarks returns the caller's bookmarked group IDs.
	GetBookmarks(ctx context.Context, identity *model.Identity) ([]string, error)

	// Subscribe attaches a realtime consumer to the group's event stream.
	// Public; the stream opens with a snapshot. The cancel function
	// detaches the consumer.
	Subscribe(ctx context.Context, groupID string) (<-chan model.Event, func(), error)

	// IsReady reports whether the service dependencies are reachable.
	IsReady(ctx context.Context) error
}

// groupReaderOrchestrator orchestrates read operations across the actor
// registry and the metadata store.
type groupReaderOrchestrator struct {
	registry *ActorRegistry
	metadata port.MetadataRepository
}

// groupReaderOrchestratorOption defines a function type for setting options on the orchestrator
type groupReaderOrchestratorOption func(*groupReaderOrchestrator)

// WithReaderActorRegistry sets the actor registry.
func WithReaderActorRegistry(registry *ActorRegistry) groupReaderOrchestratorOption {
	return func(o *groupReaderOrchestrator) {
		o.registry = registry
	}
}

// WithReaderMetadata sets the metadata repository.
func WithReaderMetadata(metadata port.MetadataRepository) groupReaderOrchestratorOption {
	return func(o *groupReaderOrchestrator) {
		o.metadata = metadata
	}
}

// NewGroupReaderOrchestrator creates a new reader orchestrator with the
// given options.
func NewGroupReaderOrchestrator(opts ...groupReaderOrchestratorOption) GroupReader {
	o := &groupReaderOrchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// GetGroup returns the group record.
func (o *groupReaderOrchestrator) GetGroup(ctx context.Context, groupID string) (*model.Group, error) {
	actor, err := o.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group, _, err := actor.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return group, nil
}

// GetParticipants returns the roster in insertion order.
func (o *groupReaderOrchestrator) GetParticipants(ctx context.Context, groupID string) ([]model.Participant, error) {
	actor, err := o.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	_, participants, err := actor.Describe(ctx)
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// GetHistory returns the retained spin history, newest first.
func (o *groupReaderOrchestrator) GetHistory(ctx context.Context, identity *model.Identity, groupID string) ([]model.SpinHistoryItem, error) {
	if identity == nil {
		return nil, errs.NewUnauthorized("authentication required")
	}
	actor, err := o.registry.Get(ctx, groupID)
	if err != nil {
		return nil, err
	}
	group, participants, err := actor.Describe(ctx)
	if err != nil {
		return nil, err
	}
	if roles := ResolveRoles(identity, group, participants); !roles.CanParticipate() {
		return nil, errs.NewForbidden("participant role required")
	}
	return actor.History(ctx)
}

// ListMyGroups returns summaries of the caller's owned and joined groups.
func (o *groupReaderOrchestrator) ListMyGroups(ctx context.Context, identity *model.Identity) ([]model.GroupSummary, error) {
	if identity == nil {
		return nil, errs.NewUnauthorized("authentication required")
	}

	seen := make(map[string]struct{})
	var ids []string
	appendIDs := func(groupIDs []string) {
		for _, id := range groupIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	owned, err := o.metadata.ListOwnerGroups(ctx, model.IndexKey(identity.UserID))
	if err != nil {
		return nil, err
	}
	appendIDs(owned)

	for _, email := range identity.VerifiedEmails {
		normalized, err := model.NormalizeEmail(email)
		if err != nil {
			continue
		}
		member, err := o.metadata.ListParticipantGroups(ctx, model.IndexKey(normalized))
		if err != nil {
			return nil, err
		}
		appendIDs(member)
	}

	summaries := make([]model.GroupSummary, 0, len(ids))
	for _, id := range ids {
		summary, err := o.metadata.GetGroupSummary(ctx, id)
		if err != nil {
			var notFound errs.NotFound
			if stderrors.As(err, &notFound) {
				slog.DebugContext(ctx, "skipping indexed group without summary", "group_id", id)
				continue
			}
			return nil, err
		}
		summaries = append(summaries, *summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries, nil
}

// GetBookmarks returns the caller's bookmarked group IDs.
func (o *groupReaderOrchestrator) GetBookmarks(ctx context.Context, identity *model.Identity) ([]string, error) {
	if identity == nil {
		return nil, errs.NewUnauthorized("authentication required")
	}
	return o.metadata.GetBookmarks(ctx, model.IndexKey(identity.UserID))
}

// Subscribe attaches a realtime consumer to the group's event stream.
func (o *groupReaderOrchestrator) Subscribe(ctx context.Context, groupID string) (<-chan model.Event, func(), error) {
	actor, err := o.registry.Get(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	return actor.Subscribe(ctx)
}

// IsReady reports whether the service dependencies are reachable.
func (o *groupReaderOrchestrator) IsReady(ctx context.Context) error {
	return o.metadata.IsReady(ctx)
}
