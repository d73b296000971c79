// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package constants

const (
	// KVBucketNameWheelMetadata is the name of the KV bucket for group lookup metadata.
	KVBucketNameWheelMetadata = "wheel-metadata"

	// KVBucketNameWheelGroups is the name of the KV bucket for group actor checkpoints.
	KVBucketNameWheelGroups = "wheel-groups"
)

// Metadata key patterns. Keys use dot-separated tokens so that
// per-token NATS wildcards can enumerate them.
const (
	// KVKeyGroup is the key pattern for group summary records.
	KVKeyGroup = "group.%s"

	// KVKeyOwnerGroup is the key pattern marking group ownership,
	// parameterized by hashed user ID then group ID.
	KVKeyOwnerGroup = "owner-group.%s.%s"

	// KVKeyOwnerGroupFilter is the wildcard filter listing all groups
	// owned by one hashed user ID.
	KVKeyOwnerGroupFilter = "owner-group.%s.*"

	// KVKeyParticipantGroup is the key pattern marking group membership,
	// parameterized by hashed participant email then group ID.
	KVKeyParticipantGroup = "participant-group.%s.%s"

	// KVKeyParticipantGroupFilter is the wildcard filter listing all groups
	// containing one hashed participant email.
	KVKeyParticipantGroupFilter = "participant-group.%s.*"

	// KVKeyParticipantIndex is the key pattern for the authoritative
	// per-group record of participant emails, used to diff membership
	// index entries after roster changes.
	KVKeyParticipantIndex = "participant-index.%s"

	// KVKeyBookmarks is the key pattern for a user's bookmarked group IDs,
	// parameterized by hashed user ID.
	KVKeyBookmarks = "bookmarks.%s"
)
