// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service implements the business logic for the unfair wheel service.
package service

import (
	"context"
	"encoding/binary"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"
	"github.com/unfairwheel/unfair-wheel-service/pkg/log"
	"github.com/unfairwheel/unfair-wheel-service/pkg/utils"
)

const (
	// actorMailboxSize bounds the number of queued operations per group.
	actorMailboxSize = 64

	// subscriberBufferSize bounds the per-subscriber outbound event queue.
	// A subscriber that falls this far behind is dropped.
	subscriberBufferSize = 64
)

// subscriber is one realtime consumer of the actor's event stream. The
// channel is owned by the actor: only the actor sends on it or closes it.
type subscriber struct {
	id     string
	events chan model.Event
}

// GroupActor serializes all state transitions for exactly one group. Every
// public operation is executed by a single goroutine, one at a time, from
// acceptance through checkpoint and event emission. Distinct actors run
// independently.
type GroupActor struct {
	state *model.GroupState

	mailbox  chan func()
	stopping chan struct{}
	drained  chan struct{}
	stopOnce sync.Once

	subscribers map[string]*subscriber

	checkpoints port.CheckpointRepository
	rng         *rand.Rand
	now         func() time.Time
	schedule    func(delay time.Duration, fn func())

	// baseCtx carries the group attribute for logs emitted outside any
	// request, such as timed resolves and checkpoint failures.
	baseCtx context.Context
}

// groupActorOption defines a function type for setting options on the actor
type groupActorOption func(*GroupActor)

// WithCheckpointRepository sets the checkpoint repository (may be nil to
// disable checkpointing).
func WithCheckpointRepository(repo port.CheckpointRepository) groupActorOption {
	return func(a *GroupActor) {
		a.checkpoints = repo
	}
}

// WithActorClock overrides the actor's time source.
func WithActorClock(now func() time.Time) groupActorOption {
	return func(a *GroupActor) {
		a.now = now
	}
}

// WithActorScheduler overrides the deferred-task scheduler used for timed
// spin resolution.
func WithActorScheduler(schedule func(delay time.Duration, fn func())) groupActorOption {
	return func(a *GroupActor) {
		a.schedule = schedule
	}
}

// WithActorRand overrides the actor's random source.
func WithActorRand(rng *rand.Rand) groupActorOption {
	return func(a *GroupActor) {
		a.rng = rng
	}
}

// NewGroupActor creates and starts an actor owning the given state. If the
// restored state carries an in-flight spin, its resolution is re-armed from
// the remaining duration.
func NewGroupActor(state *model.GroupState, opts ...groupActorOption) *GroupActor {
	a := &GroupActor{
		state:       state,
		mailbox:     make(chan func(), actorMailboxSize),
		stopping:    make(chan struct{}),
		drained:     make(chan struct{}),
		subscribers: make(map[string]*subscriber),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewSource(independentSeed()))
	}
	if a.schedule == nil {
		a.schedule = func(delay time.Duration, fn func()) {
			time.AfterFunc(delay, fn)
		}
	}
	a.baseCtx = log.AppendCtx(context.Background(), slog.String("group_id", state.Group.ID))

	go a.loop()

	if state.Spin.IsSpinning() {
		a.rearmResolve()
	}

	return a
}

// independentSeed derives a per-actor random seed. Seeding from a fresh UUID
// keeps actors uncorrelated even when they start within the same tick.
func independentSeed() int64 {
	id := uuid.New()
	return int64(binary.LittleEndian.Uint64(id[:8]))
}

// loop is the single writer. It executes queued operations until Stop, then
// drains the mailbox so no caller is left waiting, and finally closes every
// subscriber channel.
func (a *GroupActor) loop() {
	defer close(a.drained)
	for {
		select {
		case fn := <-a.mailbox:
			fn()
		case <-a.stopping:
			for {
				select {
				case fn := <-a.mailbox:
					fn()
				default:
					for id, sub := range a.subscribers {
						delete(a.subscribers, id)
						close(sub.events)
					}
					return
				}
			}
		}
	}
}

// run executes fn on the actor goroutine and waits for it to complete.
// The context only bounds the wait for queue admission; once admitted, the
// operation always runs to completion.
func (a *GroupActor) run(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case a.mailbox <- func() { defer close(done); fn() }:
	case <-a.stopping:
		return errs.NewServiceUnavailable("group is shutting down")
	case <-ctx.Done():
		return errs.NewServiceUnavailable("group operation queue is saturated", ctx.Err())
	}

	select {
	case <-done:
		return nil
	case <-a.drained:
		// The loop drains admitted operations before exiting.
		select {
		case <-done:
			return nil
		default:
			return errs.NewServiceUnavailable("group is shutting down")
		}
	}
}

// Stop shuts the actor down, completing queued operations and closing all
// subscriber channels. It returns once the loop has exited or the context
// is done.
func (a *GroupActor) Stop(ctx context.Context) error {
	a.stopOnce.Do(func() {
		close(a.stopping)
	})
	select {
	case <-a.drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GroupID returns the immutable group ID this actor owns.
func (a *GroupActor) GroupID() string {
	return a.state.Group.ID
}

// Describe returns the group record and the participant list in insertion
// order, as one consistent read.
func (a *GroupActor) Describe(ctx context.Context) (*model.Group, []model.Participant, error) {
	var (
		group        model.Group
		participants []model.Participant
	)
	err := a.run(ctx, func() {
		group = a.state.Group
		participants = make([]model.Participant, len(a.state.Participants))
		copy(participants, a.state.Participants)
	})
	if err != nil {
		return nil, nil, err
	}
	return &group, participants, nil
}

// Rename updates the group name after normalization.
func (a *GroupActor) Rename(ctx context.Context, name string) (*model.Group, error) {
	var (
		group model.Group
		opErr error
	)
	err := a.run(ctx, func() {
		group, opErr = a.rename(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return &group, nil
}

func (a *GroupActor) rename(ctx context.Context, name string) (model.Group, error) {
	normalized, err := model.NormalizeName(name)
	if err != nil {
		return model.Group{}, err
	}

	a.state.Group.Name = normalized
	a.commit(ctx, a.newEvent(model.EventTypeGroupUpdated, model.GroupUpdatedPayload{Group: a.state.Group}))

	slog.DebugContext(ctx, "group renamed",
		"group_id", a.state.Group.ID,
		"name", normalized,
	)
	return a.state.Group, nil
}

// Subscribe attaches a realtime consumer. The returned channel first
// delivers a snapshot stamped with the current version, then the event
// stream in emission order. The channel is closed when the subscriber is
// dropped for falling behind or when the actor stops; consumers must treat
// a close as a request to terminate their transport. The returned cancel
// function detaches the subscriber and is safe to call more than once.
func (a *GroupActor) Subscribe(ctx context.Context) (<-chan model.Event, func(), error) {
	var events chan model.Event
	var id string
	err := a.run(ctx, func() {
		id = utils.NewID()
		events = make(chan model.Event, subscriberBufferSize)
		events <- model.Event{
			Type:    model.EventTypeSnapshot,
			GroupID: a.state.Group.ID,
			Version: a.state.Version,
			TS:      a.now(),
			Payload: a.state.Snapshot(),
		}
		a.subscribers[id] = &subscriber{id: id, events: events}
		slog.DebugContext(ctx, "subscriber attached",
			"group_id", a.state.Group.ID,
			"subscriber_id", id,
			"subscribers", len(a.subscribers),
		)
	})
	if err != nil {
		return nil, nil, err
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			a.unsubscribe(id)
		})
	}
	return events, cancel, nil
}

// unsubscribe detaches a subscriber in the background. Safe to call after
// the actor dropped the subscriber or stopped.
func (a *GroupActor) unsubscribe(id string) {
	select {
	case a.mailbox <- func() {
		if sub, ok := a.subscribers[id]; ok {
			delete(a.subscribers, id)
			close(sub.events)
		}
	}:
	case <-a.stopping:
	}
}

// commit finishes one state-change transaction: it bumps the version,
// stamps and persists the checkpoint, then broadcasts the given events
// carrying the new version. Events are built by the caller via newEvent
// after mutating state, so commit rewrites their version and keeps them in
// the caller's order.
func (a *GroupActor) commit(ctx context.Context, events ...model.Event) {
	a.state.Version++
	for i := range events {
		events[i].Version = a.state.Version
	}
	a.checkpoint(ctx)
	a.broadcast(events...)
}

// checkpoint persists the current state, best-effort. Failures are logged
// and never fail the transaction.
func (a *GroupActor) checkpoint(ctx context.Context) {
	if a.checkpoints == nil {
		return
	}
	if err := a.checkpoints.SaveGroupState(ctx, a.state); err != nil {
		slog.ErrorContext(ctx, "group checkpoint failed",
			"error", err,
			"group_id", a.state.Group.ID,
			"version", a.state.Version,
			log.PriorityCritical(),
		)
	}
}

// broadcast fans events out to every subscriber without blocking. A
// subscriber whose buffer is full is dropped and its channel closed; the
// transport layer translates the close into a terminated socket.
func (a *GroupActor) broadcast(events ...model.Event) {
	for _, event := range events {
		for id, sub := range a.subscribers {
			select {
			case sub.events <- event:
			default:
				delete(a.subscribers, id)
				close(sub.events)
				slog.WarnContext(a.baseCtx, "subscriber dropped: event buffer full",
					"subscriber_id", id,
					"event_type", event.Type,
					"version", event.Version,
				)
			}
		}
	}
}

// newEvent assembles an envelope for the current transaction. The version
// is provisional; commit stamps the final value.
func (a *GroupActor) newEvent(eventType string, payload any) model.Event {
	return model.Event{
		Type:    eventType,
		GroupID: a.state.Group.ID,
		Version: a.state.Version,
		TS:      a.now(),
		Payload: payload,
	}
}
