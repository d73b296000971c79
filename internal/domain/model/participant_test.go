// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfairwheel/unfair-wheel-service/pkg/errors"
)

func strPtr(s string) *string {
	return &s
}

func TestParticipantValidate(t *testing.T) {
	tests := []struct {
		name        string
		participant func() *Participant
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid plain participant",
			participant: func() *Participant {
				return &Participant{ID: "p1", Name: "Ada", Active: true}
			},
		},
		{
			name: "valid manager with email",
			participant: func() *Participant {
				return &Participant{ID: "p1", Name: "Ada", Active: true, EmailID: strPtr("ada@example.com"), Manager: true}
			},
		},
		{
			name: "missing name",
			participant: func() *Participant {
				return &Participant{ID: "p1", Active: true}
			},
			expectError: true,
			errorMsg:    "participant name is required",
		},
		{
			name: "manager without email",
			participant: func() *Participant {
				return &Participant{ID: "p1", Name: "Cid", Active: true, Manager: true}
			},
			expectError: true,
			errorMsg:    "manager requires a non-null emailId",
		},
		{
			name: "manager with empty email",
			participant: func() *Participant {
				return &Participant{ID: "p1", Name: "Cid", Active: true, EmailID: strPtr(""), Manager: true}
			},
			expectError: true,
			errorMsg:    "manager requires a non-null emailId",
		},
		{
			name: "negative counter",
			participant: func() *Participant {
				return &Participant{ID: "p1", Name: "Ada", Active: true, SpinsSinceLastWon: -1}
			},
			expectError: true,
			errorMsg:    "spinsSinceLastWon must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.participant().Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.IsType(t, errors.Validation{}, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{name: "plain", input: "ada@example.com", expected: "ada@example.com"},
		{name: "uppercase folded", input: "Ada@Example.COM", expected: "ada@example.com"},
		{name: "surrounding whitespace trimmed", input: "  ada@example.com ", expected: "ada@example.com"},
		{name: "empty", input: "", expectError: true},
		{name: "whitespace only", input: "   ", expectError: true},
		{name: "missing at sign", input: "ada.example.com", expectError: true},
		{name: "missing local part", input: "@example.com", expectError: true},
		{name: "missing domain", input: "ada@", expectError: true},
		{name: "double at sign", input: "ada@@example.com", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEmail(tt.input)

			if tt.expectError {
				require.Error(t, err)
				assert.IsType(t, errors.Validation{}, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, got)
			}
		})
	}
}

func TestOptionalStringTriState(t *testing.T) {
	type payload struct {
		EmailID OptionalString `json:"emailId,omitzero"`
	}

	tests := []struct {
		name      string
		body      string
		wantSet   bool
		wantValue *string
	}{
		{name: "absent", body: `{}`, wantSet: false},
		{name: "explicit null", body: `{"emailId": null}`, wantSet: true, wantValue: nil},
		{name: "value", body: `{"emailId": "ada@example.com"}`, wantSet: true, wantValue: strPtr("ada@example.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			assert.Equal(t, tt.wantSet, p.EmailID.Set)
			if tt.wantValue == nil {
				assert.Nil(t, p.EmailID.Value)
			} else {
				require.NotNil(t, p.EmailID.Value)
				assert.Equal(t, *tt.wantValue, *p.EmailID.Value)
			}
		})
	}
}
