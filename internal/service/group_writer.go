// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	stderrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

// GroupWriter defines the interface for group write operations
type GroupWriter interface {
	// CreateGroup creates a new group owned by the caller, seeding the
	// roster with the caller as its first participant and manager.
	CreateGroup(ctx context.Context, identity *model.Identity, name string) (*model.Group, error)

	// RenameGroup replaces the group's name. Manager gate.
	RenameGroup(ctx context.Context, identity *model.Identity, groupID, name string) (*model.Group, error)

	// AddParticipant appends one participant to the roster. Manager gate.
	AddParticipant(ctx context.Context, identity *model.Identity, groupID string, add model.ParticipantAdd) (*model.Participant, error)

	// UpdateParticipant partially updates one participant. Manager gate.
	UpdateParticipant(ctx context.Context, identity *model.Identity, groupID, participantID string, update model.ParticipantUpdate) (*model.Participant, error)

	// RemoveParticipant deletes one participant. Manager gate.
	RemoveParticipant(ctx context.Context, identity *model.Identity, groupID, participantID string) error

	// CommitParticipants atomically applies a batch of roster changes and
	// returns the resulting roster. Manager gate.
	CommitParticipants(ctx context.Context, identity *model.Identity, groupID string, commit model.ParticipantCommit) ([]model.Participant, error)

	// RequestSpin starts a spin and returns its animation state.
	// Participant gate.
	RequestSpin(ctx context.Context, identity *model.Identity, groupID string) (*model.SpinState, error)

	// SaveSpinResult accepts a resolved spin's outcome. Participant gate.
	SaveSpinResult(ctx context.Context, identity *model.Identity, groupID, spinID string) error

	// DiscardSpinResult undoes a resolved spin while its compensation
	// window is open, or deletes its history entry afterwards.
	// Participant gate.
	DiscardSpinResult(ctx context.Context, identity *model.Identity, groupID, spinID string) error

	// UpdateBookmarks replaces the caller's bookmarked group IDs,
	// deduplicated and filtered to groups that exist, and returns the
	// stored list.
	UpdateBookmarks(ctx context.Context, identity *model.Identity, groupIDs []string) ([]string, error)
}

// groupWriterOrchestrator orchestrates write operations across the actor
// registry and the metadata store.
type groupWriterOrchestrator struct {
	registry *ActorRegistry
	metadata port.MetadataRepository
	retry    utils.RetryConfig
	now      func() time.Time
}

// groupWriterOrchestratorOption defines a function type for setting options on the orchestrator
type groupWriterOrchestratorOption func(*groupWriterOrchestrator)

// WithWriterActorRegistry sets the actor registry.
func WithWriterActorRegistry(registry *ActorRegistry) groupWriterOrchestratorOption {
	return func(o *groupWriterOrchestrator) {
		o.registry = registry
	}
}

// WithWriterMetadata sets the metadata repository.
func WithWriterMetadata(metadata port.MetadataRepository) groupWriterOrchestratorOption {
	return func(o *groupWriterOrchestrator) {
		o.metadata = metadata
	}
}

// WithWriterClock overrides the orchestrator's time source.
func WithWriterClock(now func() time.Time) groupWriterOrchestratorOption {
	return func(o *groupWriterOrchestrator) {
		o.now = now
	}
}

// NewGroupWriterOrchestrator creates a new writer orchestrator with the
// given options.
func NewGroupWriterOrchestrator(opts ...groupWriterOrchestratorOption) GroupWriter {
	o := &groupWriterOrchestrator{
		retry: utils.NewRetryConfig(3, 100*time.Millisecond, 2*time.Second),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateGroup creates a new group owned by the caller.
func (o *groupWriterOrchestrator) CreateGroup(ctx context.Context, identity *model.Identity, name string) (*model.Group, error) {
	if identity == nil {
		return nil, errs.NewUnauthorized("authentication required")
	}
	normalized, err := model.NormalizeName(name)
	if err != nil {
		return nil, err
	}
	email, err := ownerEmail(identity)
	if err != nil {
		return nil, err
	}

	owner := model.Participant{
		ID:      utils.NewID(),
		Name:    ownerName(identity, email),
		Active:  true,
		EmailID: &email,
		Manager: true,
	}
	group := model.Group{
		ID:                 utils.NewID(),
		Name:               normalized,
		CreatedAt:          o.now(),
		OwnerUserID:        identity.UserID,
		OwnerEmail:         email,
		OwnerParticipantID: owner.ID,
	}

	if _, err := o.registry.Create(ctx, group, owner); err != nil {
		return nil, err
	}

	o.syncGroupSummary(ctx, &group)
	o.syncOwnership(ctx, identity.UserID, group.ID)
	o.syncMembership(ctx, group.ID, []string{email})

	slog.DebugContext(ctx, "group created",
		"group_id", group.ID,
		"owner_participant_id", owner.ID,
	)
	return &group, nil
}

// ownerEmail selects the email that anchors group ownership: the primary
// verified email when present, otherwise the first verified email that
// normalizes cleanly.
func ownerEmail(identity *model.Identity) (string, error) {
	candidates := make([]string, 0, len(identity.VerifiedEmails)+1)
	if identity.PrimaryEmail != "" {
		candidates = append(candidates, identity.PrimaryEmail)
	}
	candidates = append(candidates, identity.VerifiedEmails...)
	for _, candidate := range candidates {
		if normalized, err := model.NormalizeEmail(candidate); err == nil {
			return normalized, nil
		}
	}
	return "", errs.NewValidation("a verified email is required to create a group")
}

// ownerName derives the owner's roster name from the identity, falling
// back to the email's local part when no usable display name exists.
func ownerName(identity *model.Identity, email string) string {
	if name, err := model.NormalizeName(identity.DisplayName); err == nil {
		return name
	}
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	if name, err := model.NormalizeName(local); err == nil {
		return name
	}
	return "Owner"
}

// RenameGroup replaces the group's name.
func (o *groupWriterOrchestrator) RenameGroup(ctx context.Context, identity *model.Identity, groupID, name string) (*model.Group, error) {
	actor, err := o.managedActor(ctx, identity, groupID)
	if err != nil {
		return nil, err
	}
	group, err := actor.Rename(ctx, name)
	if err != nil {
		return nil, err
	}
	o.syncGroupSummary(ctx, group)
	return group, nil
}

// AddParticipant appends one participant to the roster.
func (o *groupWriterOrchestrator) AddParticipant(ctx context.Context, identity *model.Identity, groupID string, add model.ParticipantAdd) (*model.Participant, error) {
	actor, err := o.managedActor(ctx, identity, groupID)
	if err != nil {
		return nil, err
	}
	participant, err := actor.AddParticipant(ctx, add)
	if err != nil {
		return nil, err
	}
	o.refreshMembership(ctx, actor)
	return participant, nil
}

// UpdateParticipant partially updates one participant.
func (o *groupWriterOrchestrator) UpdateParticipant(ctx context.Context, identity *model.Identity, groupID, participantID string, update model.ParticipantUpdate) (*model.Participant, error) {
	actor, err := o.managedActor(ctx, identity, groupID)
	if err != nil {
		return nil, err
	}
	participant, err := actor.UpdateParticipant(ctx, participantID, update)
	if err != nil {
		return nil, err
	}
	o.refreshMembership(ctx, actor)
	return participant, nil
}

// RemoveParticipant deletes one participant from the roster.
func (o *groupWriterOrchestrator) RemoveParticipant(ctx context.Context, identity *model.Identity, groupID, participantID string) error {
	actor, err := o.managedActor(ctx, identity, groupID)
	if err != nil {
		return err
	}
	if err := actor.RemoveParticipant(ctx, participantID); err != nil {
		return err
	}
	o.refreshMembership(ctx, actor)
	return nil
}

// CommitParticipants atomically applies a batch of roster changes.
func (o *groupWriterOrchestrator) CommitParticipants(ctx context.Context, identity *model.Identity, groupID string, commit model.ParticipantCommit) ([]model.Participant, error) {
	actor, err := o.managedActor(ctx, identity, groupID)
	if err != nil {
		return nil, err
	}
	participants, err := actor.CommitParticipants(ctx, commit)
	if err != nil {
		return nil, err
	}
	o.syncMembership(ctx, groupID, model.ParticipantEmails(participants))
	return participants, nil
}

// RequestSpin starts a spin on the group's wheel.
func (o *groupWriterOrchestrator) RequestSpin(ctx context.Context, identity *model.Identity, groupID string) (*model.SpinState, error) {
	actor, err := o.participantActor(ctx, identity, groupID)
	if err != nil {
		return nil, err
	}
	return actor.RequestSpin(ctx)
}

// SaveSpinResult accepts a resolved spin's outcome.
func (o *groupWriterOrchestrator) SaveSpinResult(ctx context.Context, identity *model.Identity, groupID, spinID string) error {
	actor, err := o.participantActor(ctx, identity, groupID)
	if err != nil {
		return err
	}
	return actor.SaveSpin(ctx, spinID)
}

// DiscardSpinResult undoes a resolved spin or deletes its history entry.
func (o *groupWriterOrchestrator) DiscardSpinResult(ctx context.Context, identity *model.Identity, groupID, spinID string) error {
	actor, err := o.participantActor(ctx, identity, groupID)
	if err != nil {
		return err
	}
	return actor.DiscardSpin(ctx, spinID)
}

// UpdateBookmarks replaces the caller's bookmark list.
func (o *groupWriterOrchestrator) UpdateBookmarks(ctx context.Context, identity *model.Identity, groupIDs []string) ([]string, error) {
	if identity == nil {
		return nil, errs.NewUnauthorized("authentication required")
	}

	seen := make(map[string]struct{}, len(groupIDs))
	kept := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, err := o.metadata.GetGroupSummary(ctx, id); err != nil {
			var notFound errs.NotFound
			if stderrors.As(err, &notFound) {
				slog.DebugContext(ctx, "dropping bookmark for unknown group", "group_id", id)
				continue
			}
			return nil, err
		}
		kept = append(kept, id)
	}

	if err := o.metadata.PutBookmarks(ctx, model.IndexKey(identity.UserID), kept); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "bookmarks updated", "count", len(kept))
	return kept, nil
}

// managedActor resolves the group's actor and enforces the manager gate:
// the caller must be the owner or a roster participant with the manager
// flag.
func (o *groupWriterOrchestrator) managedActor(ctx context.Context, identity *model.Identity, groupID string) (*GroupActor, error) {
	return o.gatedActor(ctx, identity, groupID, GroupRoles.CanManage, "manager role required")
}

// participantActor resolves the group's actor and enforces the
// participant gate: the caller must be the owner or match a roster entry
// by verified email.
func (o *groupWriterOrchestrator) participantActor(ctx context.Context, identity *model.Identity, groupID string) (*GroupActor, error) {
	return o.gatedActor(ctx, identity, groupID, GroupRoles.CanParticipate, "participant role required")
}

// gatedActor resolves the group's actor and rejects callers whose
// resolved roles fail the allow predicate.
func (o *groupWriterOrchestrator) gatedActor(ctx context.Context, identity *model.Identity, groupID string, allow func(GroupRoles) bool, denied string) (*GroupActor, error) {
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
	if roles := ResolveRoles(identity, group, participants); !allow(roles) {
		return nil, errs.NewForbidden(denied)
	}
	return actor, nil
}

// syncGroupSummary mirrors the group record into the metadata store,
// best-effort with retries.
func (o *groupWriterOrchestrator) syncGroupSummary(ctx context.Context, group *model.Group) {
	summary := group.Summary()
	err := utils.RetryWithExponentialBackoff(ctx, o.retry, func() error {
		return o.metadata.PutGroupSummary(ctx, &summary)
	})
	if err != nil {
		slog.ErrorContext(ctx, "group summary sync failed",
			"error", err,
			"group_id", group.ID,
		)
	}
}

// syncOwnership records the owner-to-group edge, best-effort with retries.
func (o *groupWriterOrchestrator) syncOwnership(ctx context.Context, userID, groupID string) {
	err := utils.RetryWithExponentialBackoff(ctx, o.retry, func() error {
		return o.metadata.PutOwnerGroup(ctx, model.IndexKey(userID), groupID)
	})
	if err != nil {
		slog.ErrorContext(ctx, "owner index sync failed",
			"error", err,
			"group_id", groupID,
		)
	}
}

// refreshMembership re-reads the roster and reconciles the membership
// index from it.
func (o *groupWriterOrchestrator) refreshMembership(ctx context.Context, actor *GroupActor) {
	_, participants, err := actor.Describe(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "membership refresh skipped: roster read failed",
			"error", err,
			"group_id", actor.GroupID(),
		)
		return
	}
	o.syncMembership(ctx, actor.GroupID(), model.ParticipantEmails(participants))
}

// syncMembership reconciles the email-to-group edges and the stored email
// index with the given authoritative email set, best-effort with retries.
func (o *groupWriterOrchestrator) syncMembership(ctx context.Context, groupID string, emails []string) {
	err := utils.RetryWithExponentialBackoff(ctx, o.retry, func() error {
		previous, err := o.metadata.GetParticipantIndex(ctx, groupID)
		if err != nil {
			return err
		}

		current := make(map[string]struct{}, len(emails))
		for _, email := range emails {
			current[email] = struct{}{}
		}
		known := make(map[string]struct{}, len(previous))
		for _, email := range previous {
			known[email] = struct{}{}
		}

		for _, email := range emails {
			if _, ok := known[email]; ok {
				continue
			}
			if err := o.metadata.PutParticipantGroup(ctx, model.IndexKey(email), groupID); err != nil {
				return err
			}
		}
		for _, email := range previous {
			if _, ok := current[email]; ok {
				continue
			}
			if err := o.metadata.DeleteParticipantGroup(ctx, model.IndexKey(email), groupID); err != nil {
				return err
			}
		}
		return o.metadata.PutParticipantIndex(ctx, groupID, emails)
	})
	if err != nil {
		slog.ErrorContext(ctx, "membership index sync failed",
			"error", err,
			"group_id", groupID,
		)
	}
}
