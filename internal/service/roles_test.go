// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

func TestResolveRoles(t *testing.T) {
	group := &model.Group{
		ID:                 "grp-1",
		OwnerUserID:        "user-owner",
		OwnerEmail:         "owner@example.com",
		OwnerParticipantID: "p-owner",
	}
	participants := []model.Participant{
		{ID: "p-owner", Name: "Owner", Active: true, EmailID: strPtr("owner@example.com"), Manager: true},
		{ID: "p-mgr", Name: "Mia", Active: true, EmailID: strPtr("mia@example.com"), Manager: true},
		{ID: "p-plain", Name: "Pat", Active: true, EmailID: strPtr("pat@example.com")},
		{ID: "p-anon", Name: "Ben", Active: true},
	}

	testCases := []struct {
		name           string
		identity       *model.Identity
		isOwner        bool
		isManager      bool
		isParticipant  bool
		matchedID      string
		canManage      bool
		canParticipate bool
	}{
		{
			name:           "owner by user id",
			identity:       &model.Identity{UserID: "user-owner"},
			isOwner:        true,
			canManage:      true,
			canParticipate: true,
		},
		{
			name:           "owner matched through roster email too",
			identity:       &model.Identity{UserID: "user-owner", VerifiedEmails: []string{"owner@example.com"}},
			isOwner:        true,
			isManager:      true,
			isParticipant:  true,
			matchedID:      "p-owner",
			canManage:      true,
			canParticipate: true,
		},
		{
			name:           "manager by email",
			identity:       &model.Identity{UserID: "user-mia", VerifiedEmails: []string{"mia@example.com"}},
			isManager:      true,
			isParticipant:  true,
			matchedID:      "p-mgr",
			canManage:      true,
			canParticipate: true,
		},
		{
			name:           "email comparison is case-folded",
			identity:       &model.Identity{UserID: "user-mia", VerifiedEmails: []string{"  MIA@Example.COM "}},
			isManager:      true,
			isParticipant:  true,
			matchedID:      "p-mgr",
			canManage:      true,
			canParticipate: true,
		},
		{
			name:           "plain participant",
			identity:       &model.Identity{UserID: "user-pat", VerifiedEmails: []string{"pat@example.com"}},
			isParticipant:  true,
			matchedID:      "p-plain",
			canParticipate: true,
		},
		{
			name:          "first matching roster entry wins",
			identity:      &model.Identity{UserID: "user-two", VerifiedEmails: []string{"pat@example.com", "mia@example.com"}},
			isManager:     true,
			isParticipant: true,
			// Roster order decides, not the order of verified emails.
			matchedID:      "p-mgr",
			canManage:      true,
			canParticipate: true,
		},
		{
			name:     "outsider",
			identity: &model.Identity{UserID: "user-out", VerifiedEmails: []string{"out@example.com"}},
		},
		{
			name:     "anonymous",
			identity: nil,
		},
		{
			name:     "empty user id never owns",
			identity: &model.Identity{UserID: ""},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			roles := ResolveRoles(tc.identity, group, participants)

			assert.Equal(t, tc.isOwner, roles.IsOwner)
			assert.Equal(t, tc.isManager, roles.IsManager)
			assert.Equal(t, tc.isParticipant, roles.IsParticipant)
			assert.Equal(t, tc.canManage, roles.CanManage())
			assert.Equal(t, tc.canParticipate, roles.CanParticipate())

			if tc.matchedID == "" {
				assert.Nil(t, roles.MatchedParticipant)
				return
			}
			require.NotNil(t, roles.MatchedParticipant)
			assert.Equal(t, tc.matchedID, roles.MatchedParticipant.ID)
		})
	}
}
