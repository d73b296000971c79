// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// Event types broadcast over group subscriptions.
const (
	EventTypeSnapshot            = "snapshot"
	EventTypeGroupUpdated        = "group.updated"
	EventTypeParticipantAdded    = "participant.added"
	EventTypeParticipantUpdated  = "participant.updated"
	EventTypeParticipantRemoved  = "participant.removed"
	EventTypeSpinStarted         = "spin.started"
	EventTypeSpinResolved        = "spin.resolved"
	EventTypeSpinResultDismissed = "spin.result.dismissed"
)

// Dismissal actions carried by spin.result.dismissed events.
const (
	DismissActionSave    = "save"
	DismissActionDiscard = "discard"
)

// Event is the envelope shared by every broadcast message. Version carries
// the actor's transaction counter; events emitted by one transaction share
// its version, and clients drop any non-snapshot event older than the last
// version they applied.
type Event struct {
	Type    string    `json:"type"`
	GroupID string    `json:"groupId"`
	Version int64     `json:"version"`
	TS      time.Time `json:"ts"`
	Payload any       `json:"payload"`
}

// SnapshotPayload carries the actor's complete client-visible state. It is
// the first event on every subscription.
type SnapshotPayload struct {
	Group        Group         `json:"group"`
	Participants []Participant `json:"participants"`
	Spin         SpinState     `json:"spin"`
}

// GroupUpdatedPayload carries the updated group record.
type GroupUpdatedPayload struct {
	Group Group `json:"group"`
}

// ParticipantPayload carries one added or updated participant.
type ParticipantPayload struct {
	Participant Participant `json:"participant"`
}

// ParticipantRemovedPayload carries the removed participant's ID.
type ParticipantRemovedPayload struct {
	ParticipantID string `json:"participantId"`
}

// SpinPayload carries the spin state for started and resolved events.
type SpinPayload struct {
	Spin SpinState `json:"spin"`
}

// SpinResultDismissedPayload reports how a pending result was settled.
type SpinResultDismissedPayload struct {
	SpinID string `json:"spinId"`
	Action string `json:"action"`
}
