// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/infrastructure/mock"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

func TestPickWinner(t *testing.T) {
	t.Run("fewer than two active participants", func(t *testing.T) {
		_, err := pickWinner([]model.Participant{{ID: "p1", Active: true}}, newZeroRand())
		require.Error(t, err)
		assert.IsType(t, errs.Conflict{}, err)
	})

	t.Run("winner always among the candidates", func(t *testing.T) {
		active := []model.Participant{
			{ID: "p1", Active: true, SpinsSinceLastWon: 0},
			{ID: "p2", Active: true, SpinsSinceLastWon: 3},
			{ID: "p3", Active: true, SpinsSinceLastWon: 7},
		}
		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			winner, err := pickWinner(active, rng)
			require.NoError(t, err)
			assert.Contains(t, []string{"p1", "p2", "p3"}, winner)
		}
	})

	t.Run("negative counters are floored to weight one", func(t *testing.T) {
		active := []model.Participant{
			{ID: "p1", Active: true, SpinsSinceLastWon: -5},
			{ID: "p2", Active: true, SpinsSinceLastWon: 0},
		}
		winner, err := pickWinner(active, newZeroRand())
		require.NoError(t, err)
		assert.Equal(t, "p1", winner, "zero draw lands on the first candidate")
	})

	t.Run("long droughts win proportionally more", func(t *testing.T) {
		active := []model.Participant{
			{ID: "fresh", Active: true, SpinsSinceLastWon: 0},
			{ID: "parched", Active: true, SpinsSinceLastWon: 9},
		}
		rng := rand.New(rand.NewSource(42))
		const draws = 5000
		parched := 0
		for i := 0; i < draws; i++ {
			winner, err := pickWinner(active, rng)
			require.NoError(t, err)
			if winner == "parched" {
				parched++
			}
		}
		// Expected share is 10/11. A generous band keeps the test stable.
		share := float64(parched) / draws
		assert.Greater(t, share, 0.85)
		assert.Less(t, share, 0.97)
	})
}

func TestRequestSpin(t *testing.T) {
	t.Run("starts a spin with rolled parameters", func(t *testing.T) {
		actor, env := newTestActor(t, testGroupState())
		ctx := context.Background()

		spin, err := actor.RequestSpin(ctx)
		require.NoError(t, err)

		assert.Equal(t, model.SpinStatusSpinning, spin.Status)
		assert.NotEmpty(t, spin.SpinID)
		require.NotNil(t, spin.StartedAt)
		assert.True(t, spin.StartedAt.Equal(testBaseTime))
		assert.Equal(t, "p-owner", spin.WinnerParticipantID, "zero draw picks the first active participant")
		assert.Equal(t, model.SpinDurationMinMs, spin.DurationMs)
		assert.Equal(t, model.SpinExtraTurnsMin, spin.ExtraTurns)
		assert.Nil(t, spin.ResolvedAt)

		require.Equal(t, 1, env.scheduler.pending())
		assert.Equal(t, time.Duration(spin.DurationMs)*time.Millisecond, env.scheduler.delayAt(0))

		state, err := env.repo.LoadGroupState(ctx, "grp-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), state.Version)
		assert.True(t, state.Spin.IsSpinning())
	})

	t.Run("rejected while a spin is running", func(t *testing.T) {
		actor, _ := newTestActor(t, testGroupState())
		ctx := context.Background()

		_, err := actor.RequestSpin(ctx)
		require.NoError(t, err)

		_, err = actor.RequestSpin(ctx)
		require.Error(t, err)
		assert.IsType(t, errs.Conflict{}, err)
	})

	t.Run("rejected with fewer than two active participants", func(t *testing.T) {
		state := testGroupState()
		state.Participants[1].Active = false
		state.Participants[2].Active = false
		actor, _ := newTestActor(t, state)

		_, err := actor.RequestSpin(context.Background())
		require.Error(t, err)
		assert.IsType(t, errs.Conflict{}, err)
	})
}

func TestSpinResolution(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	events, cancel, err := actor.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	assert.Equal(t, model.SpinStatusIdle, state.Spin.Status)
	assert.Equal(t, spin.SpinID, state.Spin.SpinID, "resolved spin keeps its identity for late viewers")
	require.NotNil(t, state.Spin.ResolvedAt)
	assert.True(t, state.Spin.ResolvedAt.Equal(testBaseTime))
	assert.Equal(t, "p-owner", state.Spin.WinnerParticipantID)

	// Winner resets, every other active participant gains one.
	assert.Equal(t, 0, state.FindParticipant("p-owner").SpinsSinceLastWon)
	assert.Equal(t, 1, state.FindParticipant("p-ada").SpinsSinceLastWon)
	assert.Equal(t, 1, state.FindParticipant("p-ben").SpinsSinceLastWon)

	require.Len(t, state.History, 1)
	item := state.History[0]
	assert.Equal(t, spin.SpinID, item.ID)
	assert.Equal(t, "p-owner", item.WinnerParticipantID)
	assert.True(t, item.CreatedAt.Equal(testBaseTime))
	require.Len(t, item.Participants, 3, "roster active at resolution is snapshotted")

	require.NotNil(t, state.Pending)
	assert.Equal(t, spin.SpinID, state.Pending.SpinID)
	assert.Equal(t, map[string]int{"p-owner": 0, "p-ada": 0, "p-ben": 0}, state.Pending.Counters,
		"pending captures pre-resolution counter values")
	assert.True(t, state.Pending.ExpiresAt.Equal(testBaseTime.Add(model.PendingResultTTL)))

	assert.Equal(t, int64(3), state.Version)

	received := receivedEvents(events)
	require.Len(t, received, 6, "snapshot, spin.started, spin.resolved, three participant.updated")
	assert.Equal(t, model.EventTypeSpinStarted, received[1].Type)
	assert.Equal(t, int64(2), received[1].Version)
	assert.Equal(t, model.EventTypeSpinResolved, received[2].Type)
	for _, event := range received[2:] {
		assert.Equal(t, int64(3), event.Version, "resolution events share one version")
	}
	assert.Equal(t, model.EventTypeParticipantUpdated, received[3].Type)
	assert.Equal(t, model.EventTypeParticipantUpdated, received[4].Type)
	assert.Equal(t, model.EventTypeParticipantUpdated, received[5].Type)

	updated := received[3].Payload.(model.ParticipantPayload).Participant
	assert.Equal(t, "p-owner", updated.ID, "updates follow roster order")
	assert.Equal(t, 0, updated.SpinsSinceLastWon)
}

func TestResolveIgnoresStaleSpin(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	first, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	require.NoError(t, actor.SaveSpin(ctx, first.SpinID))

	second, err := actor.RequestSpin(ctx)
	require.NoError(t, err)

	// A duplicate timer for the finished first spin must change nothing.
	actor.submitResolve(first.SpinID)
	drainActor(t, actor)

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)
	assert.True(t, state.Spin.IsSpinning())
	assert.Equal(t, second.SpinID, state.Spin.SpinID)
}

func TestSaveSpinResult(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	events, cancel, err := actor.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	t.Run("unknown spin is a no-op", func(t *testing.T) {
		require.NoError(t, actor.SaveSpin(ctx, "not-a-spin"))

		state, err := env.repo.LoadGroupState(ctx, "grp-1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), state.Version)
	})

	t.Run("matching spin is accepted", func(t *testing.T) {
		require.NoError(t, actor.SaveSpin(ctx, spin.SpinID))

		state, err := env.repo.LoadGroupState(ctx, "grp-1")
		require.NoError(t, err)

		assert.Nil(t, state.Pending)
		assert.Equal(t, model.SpinState{Status: model.SpinStatusIdle}, state.Spin,
			"wheel returns to a fresh idle state")
		assert.Len(t, state.History, 1, "history survives a save")
		assert.Equal(t, 1, state.FindParticipant("p-ada").SpinsSinceLastWon, "counters stand")
		assert.Equal(t, int64(4), state.Version)

		received := receivedEvents(events)
		require.Len(t, received, 2, "snapshot plus the dismissal")
		dismissed := received[1]
		assert.Equal(t, model.EventTypeSpinResultDismissed, dismissed.Type)
		payload := dismissed.Payload.(model.SpinResultDismissedPayload)
		assert.Equal(t, spin.SpinID, payload.SpinID)
		assert.Equal(t, model.DismissActionSave, payload.Action)
	})

	t.Run("saving twice is a no-op", func(t *testing.T) {
		require.NoError(t, actor.SaveSpin(ctx, spin.SpinID))

		state, err := env.repo.LoadGroupState(ctx, "grp-1")
		require.NoError(t, err)
		assert.Equal(t, int64(4), state.Version)
		assert.Empty(t, receivedEvents(events))
	})
}

func TestSaveSpinResultExpired(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	env.clock.Advance(model.PendingResultTTL + time.Second)
	require.NoError(t, actor.SaveSpin(ctx, spin.SpinID))

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.Version, "expired pending behaves as already saved")
	assert.Equal(t, 1, state.FindParticipant("p-ada").SpinsSinceLastWon)
}

func TestDiscardSpinRestoresCounters(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	events, cancel, err := actor.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, actor.DiscardSpin(ctx, spin.SpinID))

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	assert.Equal(t, 0, state.FindParticipant("p-owner").SpinsSinceLastWon)
	assert.Equal(t, 0, state.FindParticipant("p-ada").SpinsSinceLastWon)
	assert.Equal(t, 0, state.FindParticipant("p-ben").SpinsSinceLastWon)
	assert.Empty(t, state.History, "discarded spin leaves no history entry")
	assert.Nil(t, state.Pending)
	assert.Equal(t, model.SpinState{Status: model.SpinStatusIdle}, state.Spin)
	assert.Equal(t, int64(4), state.Version)

	received := receivedEvents(events)
	require.Len(t, received, 5, "snapshot, three reverts, the dismissal")
	for _, event := range received[1:4] {
		assert.Equal(t, model.EventTypeParticipantUpdated, event.Type)
		assert.Equal(t, int64(4), event.Version)
	}
	dismissed := received[4]
	assert.Equal(t, model.EventTypeSpinResultDismissed, dismissed.Type)
	payload := dismissed.Payload.(model.SpinResultDismissedPayload)
	assert.Equal(t, model.DismissActionDiscard, payload.Action)
}

func TestDiscardSpinExpired(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	events, cancel, err := actor.Subscribe(ctx)
	require.NoError(t, err)
	defer cancel()

	env.clock.Advance(model.PendingResultTTL + time.Minute)
	require.NoError(t, actor.DiscardSpin(ctx, spin.SpinID))

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	assert.Empty(t, state.History, "only the history entry is removed")
	assert.Equal(t, 1, state.FindParticipant("p-ada").SpinsSinceLastWon, "counters stand after expiry")
	assert.Equal(t, spin.SpinID, state.Spin.SpinID, "resolved spin state is untouched")
	assert.Equal(t, int64(4), state.Version)

	received := receivedEvents(events)
	require.Len(t, received, 1, "no events announce an expired discard")
	assert.Equal(t, model.EventTypeSnapshot, received[0].Type)
}

func TestDiscardUnknownSpin(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	require.NoError(t, actor.DiscardSpin(ctx, "never-spun"))

	// A pure no-op runs no transaction, so nothing was checkpointed.
	_, _, err := actor.Describe(ctx)
	require.NoError(t, err)
	_, err = env.repo.LoadGroupState(ctx, "grp-1")
	require.Error(t, err, "no checkpoint written for a pure no-op")
}

func TestDiscardSupersededSpinOnlyDeletesHistory(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	first, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)
	require.NoError(t, actor.SaveSpin(ctx, first.SpinID))

	second, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	env.scheduler.fire(t, actor)
	require.NoError(t, actor.SaveSpin(ctx, second.SpinID))

	require.NoError(t, actor.DiscardSpin(ctx, first.SpinID))

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	require.Len(t, state.History, 1)
	assert.Equal(t, second.SpinID, state.History[0].ID)
	assert.Equal(t, 2, state.FindParticipant("p-ada").SpinsSinceLastWon,
		"counters from both spins stand")
}

func TestWinnerRemovedBeforeResolution(t *testing.T) {
	state := testGroupState()
	// Reorder so the deterministic draw picks a removable participant.
	state.Participants = []model.Participant{
		{ID: "p-ada", Name: "Ada", Active: true, EmailID: strPtr("ada@example.com")},
		{ID: "p-owner", Name: "Owner", Active: true, EmailID: strPtr("owner@example.com"), Manager: true},
		{ID: "p-ben", Name: "Ben", Active: true},
	}
	actor, env := newTestActor(t, state)
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	require.Equal(t, "p-ada", spin.WinnerParticipantID)

	require.NoError(t, actor.RemoveParticipant(ctx, "p-ada"))
	env.scheduler.fire(t, actor)

	persisted, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	// The spin still resolves and the vanished winner stays in the record.
	assert.Equal(t, model.SpinStatusIdle, persisted.Spin.Status)
	require.Len(t, persisted.History, 1)
	assert.Equal(t, "p-ada", persisted.History[0].WinnerParticipantID)
	require.Len(t, persisted.History[0].Participants, 2)

	// Remaining actives are treated as non-winners.
	assert.Equal(t, 1, persisted.FindParticipant("p-owner").SpinsSinceLastWon)
	assert.Equal(t, 1, persisted.FindParticipant("p-ben").SpinsSinceLastWon)

	require.NotNil(t, persisted.Pending)
	assert.Equal(t, map[string]int{"p-owner": 0, "p-ben": 0}, persisted.Pending.Counters,
		"the vanished winner is not among the affected participants")

	require.NoError(t, actor.DiscardSpin(ctx, spin.SpinID))
	reverted, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)
	assert.Equal(t, 0, reverted.FindParticipant("p-owner").SpinsSinceLastWon)
	assert.Nil(t, reverted.FindParticipant("p-ada"), "discard does not resurrect participants")
}

func TestWinnerInactiveAtResolution(t *testing.T) {
	state := testGroupState()
	state.Participants = []model.Participant{
		{ID: "p-ada", Name: "Ada", Active: true, EmailID: strPtr("ada@example.com"), SpinsSinceLastWon: 4},
		{ID: "p-owner", Name: "Owner", Active: true, EmailID: strPtr("owner@example.com"), Manager: true},
		{ID: "p-ben", Name: "Ben", Active: true},
	}
	actor, env := newTestActor(t, state)
	ctx := context.Background()

	spin, err := actor.RequestSpin(ctx)
	require.NoError(t, err)
	require.Equal(t, "p-ada", spin.WinnerParticipantID)

	inactive := false
	_, err = actor.UpdateParticipant(ctx, "p-ada", model.ParticipantUpdate{Active: &inactive})
	require.NoError(t, err)
	env.scheduler.fire(t, actor)

	persisted, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)

	assert.Equal(t, 4, persisted.FindParticipant("p-ada").SpinsSinceLastWon,
		"an inactive winner keeps its counter")
	assert.Equal(t, 1, persisted.FindParticipant("p-owner").SpinsSinceLastWon)
	assert.Equal(t, 1, persisted.FindParticipant("p-ben").SpinsSinceLastWon)

	require.Len(t, persisted.History, 1)
	assert.Len(t, persisted.History[0].Participants, 2, "inactive winner is not in the snapshot")
	_, affected := persisted.Pending.Counters["p-ada"]
	assert.False(t, affected)
}

func TestHistoryCapped(t *testing.T) {
	actor, env := newTestActor(t, testGroupState())
	ctx := context.Background()

	spinIDs := make([]string, 0, model.HistoryLimit+1)
	for i := 0; i < model.HistoryLimit+1; i++ {
		spin, err := actor.RequestSpin(ctx)
		require.NoError(t, err)
		env.scheduler.fire(t, actor)
		require.NoError(t, actor.SaveSpin(ctx, spin.SpinID))
		spinIDs = append(spinIDs, spin.SpinID)
	}

	history, err := actor.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, model.HistoryLimit)

	assert.Equal(t, spinIDs[len(spinIDs)-1], history[0].ID, "newest first")
	for _, item := range history {
		assert.NotEqual(t, spinIDs[0], item.ID, "oldest entry dropped")
	}

	state, err := env.repo.LoadGroupState(ctx, "grp-1")
	require.NoError(t, err)
	assert.Len(t, state.History, model.HistoryLimit)
}

func TestRearmResolveOnWarmStart(t *testing.T) {
	env := &actorEnv{
		repo:      mock.NewMockRepository(),
		clock:     newFakeClock(),
		scheduler: &fakeScheduler{},
	}
	env.clock.Advance(2 * time.Second)

	startedAt := testBaseTime
	state := testGroupState()
	state.Spin = model.SpinState{
		Status:              model.SpinStatusSpinning,
		SpinID:              "spin-restored",
		StartedAt:           &startedAt,
		WinnerParticipantID: "p-owner",
		DurationMs:          5000,
		ExtraTurns:          7,
	}
	actor := NewGroupActor(state,
		WithCheckpointRepository(env.repo),
		WithActorClock(env.clock.Now),
		WithActorScheduler(env.scheduler.Schedule),
		WithActorRand(newZeroRand()),
	)
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = actor.Stop(stopCtx)
	})

	require.Equal(t, 1, env.scheduler.pending(), "restored spin re-arms its resolution")
	assert.Equal(t, 3*time.Second, env.scheduler.delayAt(0), "only the remaining duration is waited")

	env.scheduler.fire(t, actor)

	persisted, err := env.repo.LoadGroupState(context.Background(), "grp-1")
	require.NoError(t, err)
	assert.Equal(t, model.SpinStatusIdle, persisted.Spin.Status)
	assert.Equal(t, "spin-restored", persisted.Spin.SpinID)
}
