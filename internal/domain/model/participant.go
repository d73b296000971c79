// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"strings"

	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

// Participant represents a named member of a group, optionally keyed to a
// verified email and optionally a manager.
type Participant struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Active            bool    `json:"active"`
	EmailID           *string `json:"emailId"` // nullable; normalized lowercase when set
	Manager           bool    `json:"manager"`
	SpinsSinceLastWon int     `json:"spinsSinceLastWon"`
}

// HasEmail reports whether the participant carries a non-empty email.
func (p *Participant) HasEmail() bool {
	return p.EmailID != nil && *p.EmailID != ""
}

// EmailValue returns the participant's email or the empty string.
func (p *Participant) EmailValue() string {
	if p.EmailID == nil {
		return ""
	}
	return *p.EmailID
}

// Validate checks the intra-participant invariants: a populated normalized
// name and manager-requires-email.
func (p *Participant) Validate() error {
	if p.Name == "" {
		return errors.NewValidation("participant name is required")
	}
	if p.Manager && !p.HasEmail() {
		return errors.NewValidation("manager requires a non-null emailId")
	}
	if p.SpinsSinceLastWon < 0 {
		return errors.NewValidation("spinsSinceLastWon must not be negative")
	}
	return nil
}

// NormalizeEmail lowercases and trims an email address and validates its
// basic shape. The identity provider owns real verification; this check only
// rejects values that cannot name a mailbox at all.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", errors.NewValidation("emailId must not be empty")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "", errors.NewValidation("emailId is not a valid email address")
	}
	if strings.ContainsAny(email, " \t\r\n") {
		return "", errors.NewValidation("emailId is not a valid email address")
	}
	return email, nil
}

// ParticipantAdd is the payload shape for adding one participant.
type ParticipantAdd struct {
	Name    string  `json:"name"`
	EmailID *string `json:"emailId,omitempty"`
	Manager bool    `json:"manager,omitempty"`
}

// ParticipantUpdate is the payload shape for updating one participant.
// Optional fields distinguish absent from explicit null so that callers can
// clear the email.
type ParticipantUpdate struct {
	ParticipantID string         `json:"participantId,omitempty"`
	Active        *bool          `json:"active,omitempty"`
	Manager       *bool          `json:"manager,omitempty"`
	EmailID       OptionalString `json:"emailId,omitzero"`
}

// ParticipantCommit is the atomic roster commit payload: removals, updates,
// and additions applied as one transaction.
type ParticipantCommit struct {
	Adds    []ParticipantAdd    `json:"adds"`
	Updates []ParticipantUpdate `json:"updates"`
	Removes []string            `json:"removes"`
}

// OptionalString is a tri-state JSON string: absent, null, or a value.
// Set is false only when the field was absent from the payload.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON records field presence alongside the decoded value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// MarshalJSON writes the value, or null when unset or cleared.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// IsZero reports whether the field was absent, enabling omitzero encoding.
func (o OptionalString) IsZero() bool {
	return !o.Set
}
