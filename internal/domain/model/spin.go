// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// Spin status values.
const (
	SpinStatusIdle     = "idle"
	SpinStatusSpinning = "spinning"
)

// Spin timing and sizing rules.
const (
	// SpinDurationMinMs is the inclusive lower bound of a spin duration.
	SpinDurationMinMs = 4000
	// SpinDurationMaxMs is the exclusive upper bound of a spin duration.
	SpinDurationMaxMs = 6000
	// SpinExtraTurnsMin is the inclusive lower bound of wheel extra turns.
	SpinExtraTurnsMin = 6
	// SpinExtraTurnsMax is the inclusive upper bound of wheel extra turns.
	SpinExtraTurnsMax = 8

	// MinActiveParticipants is the minimum number of active participants
	// required to request a spin.
	MinActiveParticipants = 2

	// HistoryLimit bounds the spin history ring.
	HistoryLimit = 20

	// PendingResultTTL is the window during which a resolved spin can still
	// be discarded with a counter revert.
	PendingResultTTL = 10 * time.Minute
)

// SpinState is the tagged spin variant: idle or spinning. Spin fields are
// populated while spinning and retained on the idle state that immediately
// follows a resolve; a fresh idle after save/discard clears them.
type SpinState struct {
	Status              string     `json:"status"`
	SpinID              string     `json:"spinId,omitempty"`
	StartedAt           *time.Time `json:"startedAt,omitempty"`
	WinnerParticipantID string     `json:"winnerParticipantId,omitempty"`
	DurationMs          int        `json:"durationMs,omitempty"`
	ExtraTurns          int        `json:"extraTurns,omitempty"`
	ResolvedAt          *time.Time `json:"resolvedAt,omitempty"`
}

// IsSpinning reports whether a spin is in flight.
func (s *SpinState) IsSpinning() bool {
	return s.Status == SpinStatusSpinning
}

// SpinHistoryItem records one resolved spin: the winner and a snapshot of
// the participants that were active at resolution time.
type SpinHistoryItem struct {
	ID                  string        `json:"id"`
	CreatedAt           time.Time     `json:"createdAt"`
	WinnerParticipantID string        `json:"winnerParticipantId"`
	Participants        []Participant `json:"participants"`
}

// PendingResult captures the reversible window after a resolve: the counter
// values from just before resolution, keyed by participant ID, and the
// instant the window closes. At most one pending result exists per group.
type PendingResult struct {
	SpinID    string         `json:"spinId"`
	Counters  map[string]int `json:"counters"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// Expired reports whether the revert window has closed at the given instant.
func (p *PendingResult) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
