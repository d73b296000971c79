// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package nats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/pkg/constants"
	errs "github.com/unfairwheel/unfair-wheel-service/pkg/errors"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/vmihailenco/msgpack/v5"
)

type storage struct {
	client *NATSClient
}

// NewMetadataRepository creates the lookup-metadata store over the
// wheel-metadata bucket.
func NewMetadataRepository(client *NATSClient) port.MetadataRepository {
	return &storage{
		client: client,
	}
}

// NewCheckpointRepository creates the group checkpoint store over the
// wheel-groups bucket.
func NewCheckpointRepository(client *NATSClient) port.CheckpointRepository {
	return &storage{
		client: client,
	}
}

// GetGroupSummary retrieves the summary record for a group
func (s *storage) GetGroupSummary(ctx context.Context, groupID string) (*model.GroupSummary, error) {
	slog.DebugContext(ctx, "nats storage: getting group summary",
		"group_id", groupID)

	summary := &model.GroupSummary{}
	key := fmt.Sprintf(constants.KVKeyGroup, groupID)
	err := s.getJSON(ctx, constants.KVBucketNameWheelMetadata, key, summary)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.DebugContext(ctx, "group summary not found", "group_id", groupID, "error", err)
			return nil, errs.NewNotFound("group not found")
		}
		slog.ErrorContext(ctx, "failed to get group summary", "error", err, "group_id", groupID)
		return nil, errs.NewServiceUnavailable("failed to get group summary")
	}

	return summary, nil
}

// PutGroupSummary writes the summary record for a group
func (s *storage) PutGroupSummary(ctx context.Context, summary *model.GroupSummary) error {
	slog.DebugContext(ctx, "nats storage: putting group summary",
		"group_id", summary.ID,
		"group_name", summary.Name)

	key := fmt.Sprintf(constants.KVKeyGroup, summary.ID)
	if err := s.putJSON(ctx, constants.KVBucketNameWheelMetadata, key, summary); err != nil {
		slog.ErrorContext(ctx, "failed to put group summary", "error", err, "group_id", summary.ID)
		return errs.NewServiceUnavailable("failed to put group summary")
	}
	return nil
}

// PutOwnerGroup marks a group as owned by the hashed user key
func (s *storage) PutOwnerGroup(ctx context.Context, userKey, groupID string) error {
	key := fmt.Sprintf(constants.KVKeyOwnerGroup, userKey, groupID)
	if err := s.putRaw(ctx, constants.KVBucketNameWheelMetadata, key, []byte("1")); err != nil {
		slog.ErrorContext(ctx, "failed to put owner index entry", "error", err, "group_id", groupID)
		return errs.NewServiceUnavailable("failed to put owner index entry")
	}
	return nil
}

// ListOwnerGroups returns the IDs of all groups owned by the hashed user key
func (s *storage) ListOwnerGroups(ctx context.Context, userKey string) ([]string, error) {
	filter := fmt.Sprintf(constants.KVKeyOwnerGroupFilter, userKey)
	groupIDs, err := s.listKeySuffixes(ctx, constants.KVBucketNameWheelMetadata, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list owner index entries", "error", err)
		return nil, errs.NewServiceUnavailable("failed to list owner index entries")
	}
	return groupIDs, nil
}

// PutParticipantGroup marks a group as containing the hashed email
func (s *storage) PutParticipantGroup(ctx context.Context, emailKey, groupID string) error {
	key := fmt.Sprintf(constants.KVKeyParticipantGroup, emailKey, groupID)
	if err := s.putRaw(ctx, constants.KVBucketNameWheelMetadata, key, []byte("1")); err != nil {
		slog.ErrorContext(ctx, "failed to put membership index entry", "error", err, "group_id", groupID)
		return errs.NewServiceUnavailable("failed to put membership index entry")
	}
	return nil
}

// DeleteParticipantGroup removes a membership marker. Deleting a missing
// marker is not an error.
func (s *storage) DeleteParticipantGroup(ctx context.Context, emailKey, groupID string) error {
	key := fmt.Sprintf(constants.KVKeyParticipantGroup, emailKey, groupID)

	kv, err := s.bucket(constants.KVBucketNameWheelMetadata)
	if err != nil {
		return err
	}
	if err := kv.Delete(ctx, key); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.DebugContext(ctx, "membership index entry already absent", "group_id", groupID)
			return nil
		}
		slog.ErrorContext(ctx, "failed to delete membership index entry", "error", err, "group_id", groupID)
		return errs.NewServiceUnavailable("failed to delete membership index entry")
	}
	return nil
}

// ListParticipantGroups returns the IDs of all groups containing the hashed
// email
func (s *storage) ListParticipantGroups(ctx context.Context, emailKey string) ([]string, error) {
	filter := fmt.Sprintf(constants.KVKeyParticipantGroupFilter, emailKey)
	groupIDs, err := s.listKeySuffixes(ctx, constants.KVBucketNameWheelMetadata, filter)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list membership index entries", "error", err)
		return nil, errs.NewServiceUnavailable("failed to list membership index entries")
	}
	return groupIDs, nil
}

// GetParticipantIndex retrieves the stored email set for a group. A group
// without an index yields an empty slice.
func (s *storage) GetParticipantIndex(ctx context.Context, groupID string) ([]string, error) {
	var emails []string
	key := fmt.Sprintf(constants.KVKeyParticipantIndex, groupID)
	err := s.getJSON(ctx, constants.KVBucketNameWheelMetadata, key, &emails)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return []string{}, nil
		}
		slog.ErrorContext(ctx, "failed to get participant index", "error", err, "group_id", groupID)
		return nil, errs.NewServiceUnavailable("failed to get participant index")
	}
	return emails, nil
}

// PutParticipantIndex replaces the stored email set for a group
func (s *storage) PutParticipantIndex(ctx context.Context, groupID string, emails []string) error {
	key := fmt.Sprintf(constants.KVKeyParticipantIndex, groupID)
	if err := s.putJSON(ctx, constants.KVBucketNameWheelMetadata, key, emails); err != nil {
		slog.ErrorContext(ctx, "failed to put participant index", "error", err, "group_id", groupID)
		return errs.NewServiceUnavailable("failed to put participant index")
	}
	return nil
}

// GetBookmarks retrieves a user's bookmarked group IDs. A user without
// bookmarks yields an empty slice.
func (s *storage) GetBookmarks(ctx context.Context, userKey string) ([]string, error) {
	var groupIDs []string
	key := fmt.Sprintf(constants.KVKeyBookmarks, userKey)
	err := s.getJSON(ctx, constants.KVBucketNameWheelMetadata, key, &groupIDs)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return []string{}, nil
		}
		slog.ErrorContext(ctx, "failed to get bookmarks", "error", err)
		return nil, errs.NewServiceUnavailable("failed to get bookmarks")
	}
	return groupIDs, nil
}

// PutBookmarks replaces a user's bookmarked group IDs
func (s *storage) PutBookmarks(ctx context.Context, userKey string, groupIDs []string) error {
	key := fmt.Sprintf(constants.KVKeyBookmarks, userKey)
	if err := s.putJSON(ctx, constants.KVBucketNameWheelMetadata, key, groupIDs); err != nil {
		slog.ErrorContext(ctx, "failed to put bookmarks", "error", err)
		return errs.NewServiceUnavailable("failed to put bookmarks")
	}
	return nil
}

// LoadGroupState retrieves the msgpack checkpoint for a group
func (s *storage) LoadGroupState(ctx context.Context, groupID string) (*model.GroupState, error) {
	slog.DebugContext(ctx, "nats storage: loading group checkpoint",
		"group_id", groupID)

	if groupID == "" {
		return nil, errs.NewValidation("group ID cannot be empty")
	}
	kv, err := s.bucket(constants.KVBucketNameWheelGroups)
	if err != nil {
		return nil, err
	}

	entry, err := kv.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			slog.DebugContext(ctx, "group checkpoint not found", "group_id", groupID, "error", err)
			return nil, errs.NewNotFound("group not found")
		}
		slog.ErrorContext(ctx, "failed to load group checkpoint", "error", err, "group_id", groupID)
		return nil, errs.NewServiceUnavailable("failed to load group checkpoint")
	}

	state, err := decodeGroupState(entry.Value())
	if err != nil {
		slog.ErrorContext(ctx, "failed to decode group checkpoint", "error", err, "group_id", groupID)
		return nil, errs.NewUnexpected("failed to decode group checkpoint", err)
	}

	slog.DebugContext(ctx, "nats storage: group checkpoint loaded",
		"group_id", groupID,
		"version", state.Version,
		"revision", entry.Revision())

	return state, nil
}

// SaveGroupState writes the msgpack checkpoint for a group
func (s *storage) SaveGroupState(ctx context.Context, state *model.GroupState) error {
	if state == nil || state.Group.ID == "" {
		return errs.NewValidation("group ID cannot be empty")
	}
	kv, err := s.bucket(constants.KVBucketNameWheelGroups)
	if err != nil {
		return err
	}

	data, err := encodeGroupState(state)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode group checkpoint", "error", err, "group_id", state.Group.ID)
		return errs.NewUnexpected("failed to encode group checkpoint", err)
	}

	revision, err := kv.Put(ctx, state.Group.ID, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to save group checkpoint", "error", err, "group_id", state.Group.ID)
		return errs.NewServiceUnavailable("failed to save group checkpoint")
	}

	slog.DebugContext(ctx, "nats storage: group checkpoint saved",
		"group_id", state.Group.ID,
		"version", state.Version,
		"revision", revision)

	return nil
}

// encodeGroupState marshals a checkpoint with msgpack, reusing the models'
// json field names so the wire shape and the checkpoint shape stay aligned.
func encodeGroupState(state *model.GroupState) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGroupState unmarshals a msgpack checkpoint.
func decodeGroupState(data []byte) (*model.GroupState, error) {
	state := &model.GroupState{}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(state); err != nil {
		return nil, err
	}
	return state, nil
}

// getJSON retrieves a JSON value from the NATS KV store by bucket and key.
// Lookup errors are returned raw so callers can test for
// jetstream.ErrKeyNotFound.
func (s *storage) getJSON(ctx context.Context, bucket, key string, out any) error {
	if key == "" {
		return errs.NewValidation("key cannot be empty")
	}
	kv, err := s.bucket(bucket)
	if err != nil {
		return err
	}

	entry, err := kv.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(entry.Value(), out)
}

// putJSON stores a JSON-encoded value in the NATS KV store by bucket and key.
func (s *storage) putJSON(ctx context.Context, bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.putRaw(ctx, bucket, key, data)
}

// putRaw stores raw bytes in the NATS KV store by bucket and key.
func (s *storage) putRaw(ctx context.Context, bucket, key string, data []byte) error {
	if key == "" {
		return errs.NewValidation("key cannot be empty")
	}
	kv, err := s.bucket(bucket)
	if err != nil {
		return err
	}

	_, err = kv.Put(ctx, key, data)
	return err
}

// listKeySuffixes enumerates the keys matching a per-token wildcard filter
// and returns their trailing tokens, sorted. Index keys end in the group ID,
// so the suffix list is the group ID list.
func (s *storage) listKeySuffixes(ctx context.Context, bucket, filter string) ([]string, error) {
	kv, err := s.bucket(bucket)
	if err != nil {
		return nil, err
	}

	lister, err := kv.ListKeysFiltered(ctx, filter)
	if err != nil {
		return nil, err
	}

	suffixes := []string{}
	for key := range lister.Keys() {
		if i := strings.LastIndexByte(key, '.'); i >= 0 {
			suffixes = append(suffixes, key[i+1:])
		}
	}
	sort.Strings(suffixes)
	return suffixes, nil
}

func (s *storage) bucket(name string) (jetstream.KeyValue, error) {
	kv, exists := s.client.kvStore[name]
	if !exists || kv == nil {
		return nil, errs.NewServiceUnavailable("KV bucket not available")
	}
	return kv, nil
}

// IsReady checks if the storage is ready by verifying the client connection
func (s *storage) IsReady(ctx context.Context) error {
	return s.client.IsReady(ctx)
}
