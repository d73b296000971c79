// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package errors

import (
	"context"
	"errors"
	"testing"
)

// kvError mimics a storage-layer error type so the tests can show errors.As
// traversing the wrapped chain.
type kvError struct {
	bucket string
	key    string
}

func (e kvError) Error() string {
	return "kv operation failed on " + e.bucket + "/" + e.key
}

// TestSentinelThroughWrapper shows that a sentinel wrapped at the storage
// layer stays identifiable after the orchestrator reclassifies it.
func TestSentinelThroughWrapper(t *testing.T) {
	err := NewServiceUnavailable("group operation queue is saturated", context.DeadlineExceeded)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("errors.Is should identify the deadline sentinel through the wrapper")
	}
}

// TestTypedCauseExtraction shows that errors.As recovers a typed cause from
// inside a classified error, which the storage layer relies on when deciding
// whether a failure is retryable.
func TestTypedCauseExtraction(t *testing.T) {
	cause := kvError{bucket: "wheel-groups", key: "grp-1"}
	err := NewUnexpected("failed to save group checkpoint", cause)

	var extracted kvError
	if !errors.As(err, &extracted) {
		t.Fatal("errors.As should extract the typed cause")
	}
	if extracted.bucket != "wheel-groups" || extracted.key != "grp-1" {
		t.Errorf("extracted cause lost its fields: %+v", extracted)
	}
}

// TestKindExtraction shows the HTTP layer's pattern: errors.As against each
// package type selects the status code for a returned error.
func TestKindExtraction(t *testing.T) {
	var err error = NewForbidden("participant role required")

	var forbidden Forbidden
	if !errors.As(err, &forbidden) {
		t.Fatal("errors.As should match the concrete kind")
	}
	if forbidden.Error() != "participant role required" {
		t.Errorf("extracted kind lost its message: %q", forbidden.Error())
	}

	var notFound NotFound
	if errors.As(err, &notFound) {
		t.Error("errors.As must not match a different kind")
	}
}
