// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package model defines the domain models and entities for the unfair wheel service.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// Group represents a named container of participants sharing a spin state.
// Everything except Name is immutable after creation.
type Group struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	CreatedAt          time.Time `json:"createdAt"`
	OwnerUserID        string    `json:"ownerUserId"`
	OwnerEmail         string    `json:"ownerEmail"`
	OwnerParticipantID string    `json:"ownerParticipantId"`
}

// GroupSummary is the flattened group record kept in the metadata store and
// returned by cross-group listings.
type GroupSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	OwnerUserID string    `json:"ownerUserId"`
	OwnerEmail  string    `json:"ownerEmail"`
}

// MaxNameLength bounds normalized group and participant names.
const MaxNameLength = 60

// Summary returns the metadata store record for the group.
func (g *Group) Summary() GroupSummary {
	return GroupSummary{
		ID:          g.ID,
		Name:        g.Name,
		CreatedAt:   g.CreatedAt,
		OwnerUserID: g.OwnerUserID,
		OwnerEmail:  g.OwnerEmail,
	}
}

// NormalizeName trims the raw name, collapses internal whitespace runs to a
// single space, and validates the result against the shared name constraints.
func NormalizeName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", errors.NewValidation("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", errors.NewValidation(fmt.Sprintf("name must be at most %d characters long", MaxNameLength))
	}
	return name, nil
}

// NameKey returns the case-folded form of a normalized name, used for
// uniqueness comparison within a group.
func NameKey(name string) string {
	return strings.ToLower(name)
}

// IndexKey generates a SHA-256 hash of a value for use as a NATS KV key
// token. Raw user IDs and emails contain characters that are invalid in
// key tokens, so index keys always carry the hashed form.
func IndexKey(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}
