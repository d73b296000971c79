// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package utils

import (
	"github.com/akamensky/base58"
	"github.com/google/uuid"
)

// NewID returns a new opaque identifier: a random UUID encoded as base58.
// The encoded form contains no characters that are invalid in NATS KV key
// tokens.
func NewID() string {
	id := uuid.New()
	return base58.Encode(id[:])
}
