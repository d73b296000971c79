// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

// RequestSpin starts a spin: the winner is drawn up front, the animation
// parameters are rolled, and resolution is scheduled after the spin
// duration. Returns Conflict while a spin is already running or when fewer
// than two participants are active.
func (a *GroupActor) RequestSpin(ctx context.Context) (*model.SpinState, error) {
	var (
		spin  model.SpinState
		opErr error
	)
	err := a.run(ctx, func() {
		spin, opErr = a.requestSpin(ctx)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return &spin, nil
}

func (a *GroupActor) requestSpin(ctx context.Context) (model.SpinState, error) {
	if a.state.Spin.IsSpinning() {
		return model.SpinState{}, errs.NewConflict("a spin is already in progress")
	}

	winnerID, err := pickWinner(a.state.ActiveParticipants(), a.rng)
	if err != nil {
		return model.SpinState{}, err
	}

	startedAt := a.now()
	spin := model.SpinState{
		Status:              model.SpinStatusSpinning,
		SpinID:              utils.NewID(),
		StartedAt:           &startedAt,
		WinnerParticipantID: winnerID,
		DurationMs:          model.SpinDurationMinMs + a.rng.Intn(model.SpinDurationMaxMs-model.SpinDurationMinMs),
		ExtraTurns:          model.SpinExtraTurnsMin + a.rng.Intn(model.SpinExtraTurnsMax-model.SpinExtraTurnsMin+1),
	}
	a.state.Spin = spin
	a.commit(ctx, a.newEvent(model.EventTypeSpinStarted, model.SpinPayload{Spin: spin}))

	a.schedule(time.Duration(spin.DurationMs)*time.Millisecond, func() {
		a.submitResolve(spin.SpinID)
	})

	slog.DebugContext(ctx, "spin started",
		"group_id", a.state.Group.ID,
		"spin_id", spin.SpinID,
		"duration_ms", spin.DurationMs,
		"extra_turns", spin.ExtraTurns,
	)
	return spin, nil
}

// pickWinner draws one participant with weights that favor long droughts:
// weight = spinsSinceLastWon + 1, floored at 1. The cumulative walk visits
// participants in roster order, which also makes tie-breaking
// deterministic for a given draw.
func pickWinner(active []model.Participant, rng *rand.Rand) (string, error) {
	if len(active) < model.MinActiveParticipants {
		return "", errs.NewConflict("at least two active participants are required to spin")
	}

	total := 0
	for _, p := range active {
		total += spinWeight(p)
	}
	if total <= 0 {
		return "", errs.NewUnexpected("spin weights sum to zero")
	}

	target := rng.Intn(total)
	cumulative := 0
	for _, p := range active {
		cumulative += spinWeight(p)
		if cumulative > target {
			return p.ID, nil
		}
	}
	return "", errs.NewUnexpected("spin draw exhausted the wheel")
}

func spinWeight(p model.Participant) int {
	weight := p.SpinsSinceLastWon + 1
	if weight < 1 {
		weight = 1
	}
	return weight
}

// rearmResolve reschedules the resolution of a spin restored from a
// checkpoint, using whatever duration remains. A spin already past due
// resolves immediately.
func (a *GroupActor) rearmResolve() {
	spin := a.state.Spin
	var delay time.Duration
	if spin.StartedAt != nil {
		delay = spin.StartedAt.Add(time.Duration(spin.DurationMs) * time.Millisecond).Sub(a.now())
		if delay < 0 {
			delay = 0
		}
	}
	a.schedule(delay, func() {
		a.submitResolve(spin.SpinID)
	})
}

// submitResolve enqueues the timed resolution without waiting for it.
func (a *GroupActor) submitResolve(spinID string) {
	select {
	case a.mailbox <- func() { a.resolveSpin(spinID) }:
	case <-a.stopping:
	}
}

// resolveSpin finishes the spin carrying spinID. It adjusts the counters of
// every participant active at resolution, appends the history entry, and
// replaces any previous pending result with one for this spin. A stale
// spinID is ignored.
func (a *GroupActor) resolveSpin(spinID string) {
	if !a.state.Spin.IsSpinning() || a.state.Spin.SpinID != spinID {
		return
	}
	ctx := a.baseCtx

	resolvedAt := a.now()
	winnerID := a.state.Spin.WinnerParticipantID

	// Counter rules: the winner resets to zero only while still on the
	// roster and active; every other active participant gains one. The
	// pre-resolution values are captured for a later discard.
	previous := make(map[string]int)
	for i := range a.state.Participants {
		p := &a.state.Participants[i]
		if !p.Active {
			continue
		}
		previous[p.ID] = p.SpinsSinceLastWon
		if p.ID == winnerID {
			p.SpinsSinceLastWon = 0
		} else {
			p.SpinsSinceLastWon++
		}
	}

	spin := a.state.Spin
	spin.Status = model.SpinStatusIdle
	spin.ResolvedAt = &resolvedAt
	a.state.Spin = spin

	a.state.History = append(a.state.History, model.SpinHistoryItem{
		ID:                  spinID,
		CreatedAt:           resolvedAt,
		WinnerParticipantID: winnerID,
		Participants:        a.state.ActiveParticipants(),
	})
	if len(a.state.History) > model.HistoryLimit {
		a.state.History = a.state.History[len(a.state.History)-model.HistoryLimit:]
	}

	a.state.Pending = &model.PendingResult{
		SpinID:    spinID,
		Counters:  previous,
		ExpiresAt: resolvedAt.Add(model.PendingResultTTL),
	}

	events := make([]model.Event, 0, len(previous)+1)
	events = append(events, a.newEvent(model.EventTypeSpinResolved, model.SpinPayload{Spin: spin}))
	for i := range a.state.Participants {
		p := a.state.Participants[i]
		if _, affected := previous[p.ID]; affected {
			events = append(events, a.newEvent(model.EventTypeParticipantUpdated, model.ParticipantPayload{Participant: p}))
		}
	}
	a.commit(ctx, events...)

	slog.DebugContext(ctx, "spin resolved",
		"spin_id", spinID,
		"winner_participant_id", winnerID,
		"affected", len(previous),
		"version", a.state.Version,
	)
}

// SaveSpin accepts the result of the identified spin: the counters stand
// and the wheel returns to a fresh idle state. Any spinID that is not the
// live pending result is an idempotent no-op.
func (a *GroupActor) SaveSpin(ctx context.Context, spinID string) error {
	var opErr error
	err := a.run(ctx, func() {
		opErr = a.saveSpin(ctx, spinID)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (a *GroupActor) saveSpin(ctx context.Context, spinID string) error {
	pending := a.state.Pending
	if pending == nil || pending.SpinID != spinID || pending.Expired(a.now()) {
		return nil
	}

	a.state.Pending = nil
	a.state.Spin = model.SpinState{Status: model.SpinStatusIdle}
	a.commit(ctx, a.newEvent(model.EventTypeSpinResultDismissed, model.SpinResultDismissedPayload{
		SpinID: spinID,
		Action: model.DismissActionSave,
	}))

	slog.DebugContext(ctx, "spin result saved",
		"group_id", a.state.Group.ID,
		"spin_id", spinID,
	)
	return nil
}

// DiscardSpin undoes the identified spin while its pending result is still
// live: counters revert to their captured values, the history entry is
// deleted, and the wheel returns to a fresh idle state. Once the pending
// result has expired (or was replaced), only the history entry is removed
// and no dismissal is announced. An unknown spinID is an idempotent no-op.
func (a *GroupActor) DiscardSpin(ctx context.Context, spinID string) error {
	var opErr error
	err := a.run(ctx, func() {
		opErr = a.discardSpin(ctx, spinID)
	})
	if err != nil {
		return err
	}
	return opErr
}

func (a *GroupActor) discardSpin(ctx context.Context, spinID string) error {
	pending := a.state.Pending
	if pending != nil && pending.SpinID == spinID && !pending.Expired(a.now()) {
		a.state.Pending = nil

		events := make([]model.Event, 0, len(pending.Counters)+1)
		reverted := 0
		for i := range a.state.Participants {
			p := &a.state.Participants[i]
			value, affected := pending.Counters[p.ID]
			if !affected {
				continue
			}
			p.SpinsSinceLastWon = value
			reverted++
			events = append(events, a.newEvent(model.EventTypeParticipantUpdated, model.ParticipantPayload{Participant: *p}))
		}

		a.removeHistoryItem(spinID)
		a.state.Spin = model.SpinState{Status: model.SpinStatusIdle}
		events = append(events, a.newEvent(model.EventTypeSpinResultDismissed, model.SpinResultDismissedPayload{
			SpinID: spinID,
			Action: model.DismissActionDiscard,
		}))
		a.commit(ctx, events...)

		slog.DebugContext(ctx, "spin result discarded",
			"group_id", a.state.Group.ID,
			"spin_id", spinID,
			"reverted", reverted,
		)
		return nil
	}

	// Past the compensation window the counters stand; deleting the entry
	// is pure history editing and is not announced.
	if a.removeHistoryItem(spinID) {
		a.commit(ctx)
		slog.DebugContext(ctx, "spin history entry deleted",
			"group_id", a.state.Group.ID,
			"spin_id", spinID,
		)
	}
	return nil
}

func (a *GroupActor) removeHistoryItem(spinID string) bool {
	for i := range a.state.History {
		if a.state.History[i].ID == spinID {
			a.state.History = append(a.state.History[:i], a.state.History[i+1:]...)
			return true
		}
	}
	return false
}

// History returns the retained spin history, newest first.
func (a *GroupActor) History(ctx context.Context) ([]model.SpinHistoryItem, error) {
	var items []model.SpinHistoryItem
	err := a.run(ctx, func() {
		items = make([]model.SpinHistoryItem, 0, len(a.state.History))
		for i := len(a.state.History) - 1; i >= 0; i-- {
			items = append(items, a.state.History[i])
		}
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
