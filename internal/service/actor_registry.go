// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
	"github.com/unfairwheel/unfair-wheel-service/pkg/log"
)

// ActorRegistry owns the live group actors. Each group has at most one
// actor per process; actors for groups not yet in memory are restored from
// their latest checkpoint on first access.
type ActorRegistry struct {
	mu     sync.Mutex
	actors map[string]*GroupActor

	checkpoints port.CheckpointRepository
	actorOpts   []groupActorOption
}

// actorRegistryOption defines a function type for setting options on the registry
type actorRegistryOption func(*ActorRegistry)

// WithRegistryCheckpoints sets the checkpoint repository used both for
// restoring groups and for the actors' own checkpointing.
func WithRegistryCheckpoints(repo port.CheckpointRepository) actorRegistryOption {
	return func(r *ActorRegistry) {
		r.checkpoints = repo
	}
}

// WithRegistryActorOptions forwards extra options to every actor the
// registry creates, such as a test clock or scheduler.
func WithRegistryActorOptions(opts ...groupActorOption) actorRegistryOption {
	return func(r *ActorRegistry) {
		r.actorOpts = opts
	}
}

// NewActorRegistry creates a new registry with the given options.
func NewActorRegistry(opts ...actorRegistryOption) *ActorRegistry {
	r := &ActorRegistry{
		actors: make(map[string]*GroupActor),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create brings a brand-new group to life with its owner as the first
// participant. Creating a group whose actor already exists returns the
// existing actor unchanged. The initial state is checkpointed before the
// actor starts so the group survives an immediate restart.
func (r *ActorRegistry) Create(ctx context.Context, group model.Group, owner model.Participant) (*GroupActor, error) {
	r.mu.Lock()
	if existing, ok := r.actors[group.ID]; ok {
		r.mu.Unlock()
		return existing, nil
	}
	r.mu.Unlock()

	state := &model.GroupState{
		Group:        group,
		Participants: []model.Participant{owner},
		Spin:         model.SpinState{Status: model.SpinStatusIdle},
		Version:      1,
	}
	if r.checkpoints != nil {
		if err := r.checkpoints.SaveGroupState(ctx, state); err != nil {
			slog.ErrorContext(ctx, "initial group checkpoint failed",
				"error", err,
				"group_id", group.ID,
				log.PriorityCritical(),
			)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.actors[group.ID]; ok {
		return existing, nil
	}
	actor := NewGroupActor(state, r.actorOptions()...)
	r.actors[group.ID] = actor

	slog.DebugContext(ctx, "group actor created",
		"group_id", group.ID,
		"owner_participant_id", group.OwnerParticipantID,
	)
	return actor, nil
}

// Get returns the live actor for a group, restoring it from the latest
// checkpoint when the group is not in memory. Returns NotFound for groups
// that were never created.
func (r *ActorRegistry) Get(ctx context.Context, groupID string) (*GroupActor, error) {
	r.mu.Lock()
	if actor, ok := r.actors[groupID]; ok {
		r.mu.Unlock()
		return actor, nil
	}
	r.mu.Unlock()

	if r.checkpoints == nil {
		return nil, errs.NewNotFound("group not found")
	}
	state, err := r.checkpoints.LoadGroupState(ctx, groupID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if actor, ok := r.actors[groupID]; ok {
		// Another request finished the restore first.
		return actor, nil
	}
	actor := NewGroupActor(state, r.actorOptions()...)
	r.actors[groupID] = actor

	slog.DebugContext(ctx, "group restored from checkpoint",
		"group_id", groupID,
		"version", state.Version,
	)
	return actor, nil
}

// Shutdown stops every live actor, letting queued operations finish. New
// lookups after Shutdown start fresh actors, so it should only run once
// request traffic has stopped.
func (r *ActorRegistry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	actors := make([]*GroupActor, 0, len(r.actors))
	for _, actor := range r.actors {
		actors = append(actors, actor)
	}
	r.actors = make(map[string]*GroupActor)
	r.mu.Unlock()

	for _, actor := range actors {
		if err := actor.Stop(ctx); err != nil {
			slog.WarnContext(ctx, "group actor stop interrupted",
				"error", err,
				"group_id", actor.GroupID(),
			)
		}
	}
}

func (r *ActorRegistry) actorOptions() []groupActorOption {
	opts := make([]groupActorOption, 0, len(r.actorOpts)+1)
	opts = append(opts, WithCheckpointRepository(r.checkpoints))
	return append(opts, r.actorOpts...)
}
