// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "sort"

// GroupState is the complete actor-owned state for one group. It is the
// unit of checkpointing: the actor serializes it after every transaction
// and restores from it on warm start.
type GroupState struct {
	Group        Group             `json:"group"`
	Participants []Participant     `json:"participants"`
	Spin         SpinState         `json:"spin"`
	History      []SpinHistoryItem `json:"history"`
	Pending      *PendingResult    `json:"pending,omitempty"`
	Version      int64             `json:"version"`
}

// Clone returns a deep copy sharing no mutable structure with the
// original. Interior pointers that are only ever replaced wholesale, such
// as participant emails and spin timestamps, stay shared.
func (s *GroupState) Clone() *GroupState {
	clone := &GroupState{
		Group:   s.Group,
		Spin:    s.Spin,
		Version: s.Version,
	}
	clone.Participants = make([]Participant, len(s.Participants))
	copy(clone.Participants, s.Participants)
	if len(s.History) > 0 {
		clone.History = make([]SpinHistoryItem, len(s.History))
		for i, item := range s.History {
			participants := make([]Participant, len(item.Participants))
			copy(participants, item.Participants)
			item.Participants = participants
			clone.History[i] = item
		}
	}
	if s.Pending != nil {
		pending := *s.Pending
		pending.Counters = make(map[string]int, len(s.Pending.Counters))
		for id, value := range s.Pending.Counters {
			pending.Counters[id] = value
		}
		clone.Pending = &pending
	}
	return clone
}

// Snapshot assembles the client-visible snapshot payload from the state.
func (s *GroupState) Snapshot() SnapshotPayload {
	participants := make([]Participant, len(s.Participants))
	copy(participants, s.Participants)
	return SnapshotPayload{
		Group:        s.Group,
		Participants: participants,
		Spin:         s.Spin,
	}
}

// FindParticipant returns the participant with the given ID, or nil.
func (s *GroupState) FindParticipant(id string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return &s.Participants[i]
		}
	}
	return nil
}

// FindParticipantByName returns the participant whose name matches under
// case-folded comparison, or nil.
func (s *GroupState) FindParticipantByName(name string) *Participant {
	key := NameKey(name)
	for i := range s.Participants {
		if NameKey(s.Participants[i].Name) == key {
			return &s.Participants[i]
		}
	}
	return nil
}

// ActiveParticipants returns the active participants in insertion order.
func (s *GroupState) ActiveParticipants() []Participant {
	var active []Participant
	for _, p := range s.Participants {
		if p.Active {
			active = append(active, p)
		}
	}
	return active
}

// ParticipantEmails returns the sorted, deduplicated set of emails across
// the given participants, the authoritative input for membership index
// maintenance.
func ParticipantEmails(participants []Participant) []string {
	seen := make(map[string]struct{}, len(participants))
	var emails []string
	for _, p := range participants {
		if !p.HasEmail() {
			continue
		}
		email := p.EmailValue()
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}
