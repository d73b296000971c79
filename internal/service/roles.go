// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

// GroupRoles describes what one caller may do within one group, derived
// from the group record and roster at a single point in time.
type GroupRoles struct {
	IsOwner            bool
	IsManager          bool
	IsParticipant      bool
	MatchedParticipant *model.Participant
}

// ResolveRoles matches an identity against a group. Ownership comes from
// the creating user's ID. Participant and manager standing come from the
// first roster entry whose email is among the identity's verified emails,
// compared case-insensitively. A nil identity is an outsider with no
// standing.
func ResolveRoles(identity *model.Identity, group *model.Group, participants []model.Participant) GroupRoles {
	var roles GroupRoles
	if identity == nil {
		return roles
	}
	roles.IsOwner = identity.UserID != "" && identity.UserID == group.OwnerUserID
	for i := range participants {
		p := &participants[i]
		if !p.HasEmail() {
			continue
		}
		if identity.HasVerifiedEmail(p.EmailValue()) {
			roles.MatchedParticipant = p
			roles.IsParticipant = true
			roles.IsManager = p.Manager
			break
		}
	}
	return roles
}

// CanManage reports whether the caller may edit the roster and rename the
// group. The owner always can, as can any matched participant holding the
// manager flag.
func (r GroupRoles) CanManage() bool {
	return r.IsOwner || r.IsManager
}

// CanParticipate reports whether the caller may spin the wheel, act on
// spin results, and read the spin history.
func (r GroupRoles) CanParticipate() bool {
	return r.IsOwner || r.IsParticipant
}
