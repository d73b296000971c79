// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package mock provides mock implementations for testing purposes.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// MockRepository provides an in-memory implementation of the metadata and
// checkpoint repositories, used in tests and in the local mode that runs
// without NATS.
type MockRepository struct {
	summaries    map[string]*model.GroupSummary
	ownerGroups  map[string]map[string]struct{}
	memberGroups map[string]map[string]struct{}
	indices      map[string][]string
	bookmarks    map[string][]string
	checkpoints  map[string]*model.GroupState
	groupErrors  map[string]error
	readyErr     error
	mu           sync.RWMutex
}

// NewMockRepository creates a new empty mock repository.
func NewMockRepository() *MockRepository {
	return &MockRepository{
		summaries:    make(map[string]*model.GroupSummary),
		ownerGroups:  make(map[string]map[string]struct{}),
		memberGroups: make(map[string]map[string]struct{}),
		indices:      make(map[string][]string),
		bookmarks:    make(map[string][]string),
		checkpoints:  make(map[string]*model.GroupState),
		groupErrors:  make(map[string]error),
	}
}

// GetGroupSummary retrieves the summary record for a group.
func (m *MockRepository) GetGroupSummary(_ context.Context, groupID string) (*model.GroupSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.groupErrors[groupID]; err != nil {
		return nil, err
	}
	summary, ok := m.summaries[groupID]
	if !ok {
		return nil, errors.NewNotFound("group not found")
	}
	copied := *summary
	return &copied, nil
}

// PutGroupSummary writes the summary record for a group.
func (m *MockRepository) PutGroupSummary(_ context.Context, summary *model.GroupSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.groupErrors[summary.ID]; err != nil {
		return err
	}
	copied := *summary
	m.summaries[summary.ID] = &copied
	return nil
}

// PutOwnerGroup marks a group as owned by the hashed user key.
func (m *MockRepository) PutOwnerGroup(_ context.Context, userKey, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ownerGroups[userKey] == nil {
		m.ownerGroups[userKey] = make(map[string]struct{})
	}
	m.ownerGroups[userKey][groupID] = struct{}{}
	return nil
}

// ListOwnerGroups returns the IDs of all groups owned by the hashed user
// key.
func (m *MockRepository) ListOwnerGroups(_ context.Context, userKey string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedKeys(m.ownerGroups[userKey]), nil
}

// PutParticipantGroup marks a group as containing the hashed email.
func (m *MockRepository) PutParticipantGroup(_ context.Context, emailKey, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.memberGroups[emailKey] == nil {
		m.memberGroups[emailKey] = make(map[string]struct{})
	}
	m.memberGroups[emailKey][groupID] = struct{}{}
	return nil
}

// DeleteParticipantGroup removes a membership marker.
func (m *MockRepository) DeleteParticipantGroup(_ context.Context, emailKey, groupID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.memberGroups[emailKey], groupID)
	return nil
}

// ListParticipantGroups returns the IDs of all groups containing the
// hashed email.
func (m *MockRepository) ListParticipantGroups(_ context.Context, emailKey string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return sortedKeys(m.memberGroups[emailKey]), nil
}

// GetParticipantIndex retrieves the authoritative email set for a group.
func (m *MockRepository) GetParticipantIndex(_ context.Context, groupID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.indices[groupID]...), nil
}

// PutParticipantIndex replaces the authoritative email set for a group.
func (m *MockRepository) PutParticipantIndex(_ context.Context, groupID string, emails []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.indices[groupID] = append([]string(nil), emails...)
	return nil
}

// GetBookmarks retrieves a user's bookmarked group IDs.
func (m *MockRepository) GetBookmarks(_ context.Context, userKey string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]string(nil), m.bookmarks[userKey]...), nil
}

// PutBookmarks replaces a user's bookmarked group IDs.
func (m *MockRepository) PutBookmarks(_ context.Context, userKey string, groupIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bookmarks[userKey] = append([]string(nil), groupIDs...)
	return nil
}

// IsReady checks whether the underlying store is reachable.
func (m *MockRepository) IsReady(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.readyErr
}

// LoadGroupState retrieves the latest checkpoint for a group.
func (m *MockRepository) LoadGroupState(_ context.Context, groupID string) (*model.GroupState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.groupErrors[groupID]; err != nil {
		return nil, err
	}
	state, ok := m.checkpoints[groupID]
	if !ok {
		return nil, errors.NewNotFound("group not found")
	}
	return state.Clone(), nil
}

// SaveGroupState persists a checkpoint for a group.
func (m *MockRepository) SaveGroupState(_ context.Context, state *model.GroupState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.groupErrors[state.Group.ID]; err != nil {
		return err
	}
	m.checkpoints[state.Group.ID] = state.Clone()
	return nil
}

// SetErrorForGroup configures an error returned by group-scoped lookups
// and checkpoint operations for a specific group.
func (m *MockRepository) SetErrorForGroup(groupID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groupErrors[groupID] = err
}

// SetReadyError configures the readiness probe result.
func (m *MockRepository) SetReadyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readyErr = err
}

// ClearAll removes all stored data and configured errors.
func (m *MockRepository) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.summaries = make(map[string]*model.GroupSummary)
	m.ownerGroups = make(map[string]map[string]struct{})
	m.memberGroups = make(map[string]map[string]struct{})
	m.indices = make(map[string][]string)
	m.bookmarks = make(map[string][]string)
	m.checkpoints = make(map[string]*model.GroupState)
	m.groupErrors = make(map[string]error)
	m.readyErr = nil
}

// GroupCount returns the number of groups with a stored summary.
func (m *MockRepository) GroupCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.summaries)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
