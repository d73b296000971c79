// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

// AddParticipant appends a new participant to the roster. New participants
// start active with a zeroed counter.
func (a *GroupActor) AddParticipant(ctx context.Context, add model.ParticipantAdd) (*model.Participant, error) {
	var (
		participant model.Participant
		opErr       error
	)
	err := a.run(ctx, func() {
		participant, opErr = a.addParticipant(ctx, add)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return &participant, nil
}

func (a *GroupActor) addParticipant(ctx context.Context, add model.ParticipantAdd) (model.Participant, error) {
	participant, err := a.buildParticipant(add, nil, nil)
	if err != nil {
		return model.Participant{}, err
	}

	a.state.Participants = append(a.state.Participants, participant)
	a.commit(ctx, a.newEvent(model.EventTypeParticipantAdded, model.ParticipantPayload{Participant: participant}))

	slog.DebugContext(ctx, "participant added",
		"group_id", a.state.Group.ID,
		"participant_id", participant.ID,
		"manager", participant.Manager,
	)
	return participant, nil
}

// buildParticipant validates one add request and materializes the new
// participant. Name uniqueness is judged case-insensitively against the
// roster, ignoring participants in removeSet (the batch path removes them
// first) and counting names in claimed (taken by earlier adds of the same
// batch). Both sets may be nil for a single add.
func (a *GroupActor) buildParticipant(add model.ParticipantAdd, removeSet, claimed map[string]struct{}) (model.Participant, error) {
	name, err := model.NormalizeName(add.Name)
	if err != nil {
		return model.Participant{}, err
	}
	if _, taken := claimed[model.NameKey(name)]; taken {
		return model.Participant{}, errs.NewConflict("Participant with this name already exists.")
	}
	if existing := a.state.FindParticipantByName(name); existing != nil {
		if _, removed := removeSet[existing.ID]; !removed {
			return model.Participant{}, errs.NewConflict("Participant with this name already exists.")
		}
	}

	var emailID *string
	if add.EmailID != nil {
		normalized, err := model.NormalizeEmail(*add.EmailID)
		if err != nil {
			return model.Participant{}, err
		}
		emailID = &normalized
	}
	if add.Manager && emailID == nil {
		return model.Participant{}, errs.NewValidation("manager flag requires a non-null email")
	}

	return model.Participant{
		ID:      utils.NewID(),
		Name:    name,
		Active:  true,
		EmailID: emailID,
		Manager: add.Manager,
	}, nil
}

// UpdateParticipant applies a partial update to one participant. The email
// field is tri-state: absent keeps the current value, null clears it (and
// demotes the participant unless the same request re-asserts manager, which
// is rejected), and a string value replaces it.
func (a *GroupActor) UpdateParticipant(ctx context.Context, participantID string, update model.ParticipantUpdate) (*model.Participant, error) {
	var (
		participant model.Participant
		opErr       error
	)
	err := a.run(ctx, func() {
		participant, opErr = a.updateParticipant(ctx, participantID, update)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return &participant, nil
}

func (a *GroupActor) updateParticipant(ctx context.Context, participantID string, update model.ParticipantUpdate) (model.Participant, error) {
	current := a.state.FindParticipant(participantID)
	if current == nil {
		return model.Participant{}, errs.NewNotFound("participant not found")
	}

	next, err := a.reviseParticipant(*current, update)
	if err != nil {
		return model.Participant{}, err
	}

	*current = next
	a.commit(ctx, a.newEvent(model.EventTypeParticipantUpdated, model.ParticipantPayload{Participant: next}))

	slog.DebugContext(ctx, "participant updated",
		"group_id", a.state.Group.ID,
		"participant_id", next.ID,
		"active", next.Active,
		"manager", next.Manager,
	)
	return next, nil
}

// reviseParticipant computes the post-update participant without mutating
// state. Clearing the email demotes the participant unless the update also
// asserts manager, in which case the combination is invalid. The owner
// participant keeps its email, manager role, and active status.
func (a *GroupActor) reviseParticipant(current model.Participant, update model.ParticipantUpdate) (model.Participant, error) {
	next := current

	if update.EmailID.Set {
		if update.EmailID.Value == nil {
			next.EmailID = nil
		} else {
			normalized, err := model.NormalizeEmail(*update.EmailID.Value)
			if err != nil {
				return model.Participant{}, err
			}
			next.EmailID = &normalized
		}
	}
	if update.Manager != nil {
		next.Manager = *update.Manager
	} else if next.EmailID == nil {
		next.Manager = false
	}
	if update.Active != nil {
		next.Active = *update.Active
	}

	if next.Manager && next.EmailID == nil {
		return model.Participant{}, errs.NewValidation("manager flag requires a non-null email")
	}

	if current.ID == a.state.Group.OwnerParticipantID {
		if next.EmailValue() != a.state.Group.OwnerEmail {
			return model.Participant{}, errs.NewValidation("owner participant email cannot be changed")
		}
		if !next.Manager {
			return model.Participant{}, errs.NewValidation("owner participant must remain a manager")
		}
		if !next.Active {
			return model.Participant{}, errs.NewValidation("owner participant must remain active")
		}
	}

	if err := next.Validate(); err != nil {
		return model.Participant{}, err
	}
	return next, nil
}

// RemoveParticipant deletes one participant from the roster. The owner
// participant cannot be removed.
func (a *GroupActor) RemoveParticipant(ctx context.Context, participantID string) error {
	var opErr error
	err := a.run(ctx, func() {
		opErr = a.removeParticipant(ctx, participantID)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (a *GroupActor) removeParticipant(ctx context.Context, participantID string) error {
	index := a.participantIndex(participantID)
	if index < 0 {
		return errs.NewNotFound("participant not found")
	}
	if participantID == a.state.Group.OwnerParticipantID {
		return errs.NewValidation("owner participant cannot be removed")
	}

	a.state.Participants = append(a.state.Participants[:index], a.state.Participants[index+1:]...)
	a.commit(ctx, a.newEvent(model.EventTypeParticipantRemoved, model.ParticipantRemovedPayload{ParticipantID: participantID}))

	slog.DebugContext(ctx, "participant removed",
		"group_id", a.state.Group.ID,
		"participant_id", participantID,
	)
	return nil
}

func (a *GroupActor) participantIndex(participantID string) int {
	for i := range a.state.Participants {
		if a.state.Participants[i].ID == participantID {
			return i
		}
	}
	return -1
}

// CommitParticipants applies a batch of removes, updates, and adds as one
// atomic transaction: either every entry validates and all are applied, or
// nothing changes. Events are emitted per entry, removals first, then
// updates, then adds, all carrying the transaction's single version. The
// full post-commit roster is returned.
func (a *GroupActor) CommitParticipants(ctx context.Context, commit model.ParticipantCommit) ([]model.Participant, error) {
	var (
		participants []model.Participant
		opErr        error
	)
	err := a.run(ctx, func() {
		participants, opErr = a.commitParticipants(ctx, commit)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return participants, nil
}

func (a *GroupActor) commitParticipants(ctx context.Context, commit model.ParticipantCommit) ([]model.Participant, error) {
	removeSet := make(map[string]struct{}, len(commit.Removes))
	for _, id := range commit.Removes {
		if _, dup := removeSet[id]; dup {
			return nil, errs.NewValidation("duplicate participant in removes")
		}
		if a.state.FindParticipant(id) == nil {
			return nil, errs.NewNotFound("participant not found")
		}
		if id == a.state.Group.OwnerParticipantID {
			return nil, errs.NewValidation("owner participant cannot be removed")
		}
		removeSet[id] = struct{}{}
	}

	revised := make(map[string]model.Participant, len(commit.Updates))
	for _, update := range commit.Updates {
		if _, dup := revised[update.ParticipantID]; dup {
			return nil, errs.NewValidation("duplicate participant in updates")
		}
		if _, removed := removeSet[update.ParticipantID]; removed {
			return nil, errs.NewValidation("participant cannot be both updated and removed")
		}
		current := a.state.FindParticipant(update.ParticipantID)
		if current == nil {
			return nil, errs.NewNotFound("participant not found")
		}
		next, err := a.reviseParticipant(*current, update)
		if err != nil {
			return nil, err
		}
		revised[update.ParticipantID] = next
	}

	// Adds are checked against the roster as it will look after the
	// removes, so a remove-and-readd of the same name in one batch works.
	claimed := make(map[string]struct{}, len(commit.Adds))
	added := make([]model.Participant, 0, len(commit.Adds))
	for _, add := range commit.Adds {
		participant, err := a.buildParticipant(add, removeSet, claimed)
		if err != nil {
			return nil, err
		}
		claimed[model.NameKey(participant.Name)] = struct{}{}
		added = append(added, participant)
	}

	events := make([]model.Event, 0, len(commit.Removes)+len(commit.Updates)+len(added))
	for _, id := range commit.Removes {
		index := a.participantIndex(id)
		a.state.Participants = append(a.state.Participants[:index], a.state.Participants[index+1:]...)
		events = append(events, a.newEvent(model.EventTypeParticipantRemoved, model.ParticipantRemovedPayload{ParticipantID: id}))
	}
	for _, update := range commit.Updates {
		next := revised[update.ParticipantID]
		*a.state.FindParticipant(update.ParticipantID) = next
		events = append(events, a.newEvent(model.EventTypeParticipantUpdated, model.ParticipantPayload{Participant: next}))
	}
	for _, participant := range added {
		a.state.Participants = append(a.state.Participants, participant)
		events = append(events, a.newEvent(model.EventTypeParticipantAdded, model.ParticipantPayload{Participant: participant}))
	}
	a.commit(ctx, events...)

	slog.DebugContext(ctx, "participant batch committed",
		"group_id", a.state.Group.ID,
		"removed", len(commit.Removes),
		"updated", len(commit.Updates),
		"added", len(added),
	)

	result := make([]model.Participant, len(a.state.Participants))
	copy(result, a.state.Participants)
	return result, nil
}

