// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package service implements the HTTP surface of the unfair wheel service.
package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
	"github.com/unfairwheel/unfair-wheel-service/internal/middleware"
	"github.com/unfairwheel/unfair-wheel-service/internal/service"
)

// WheelService translates HTTP requests into group read and write
// operations. Role gates live in the orchestrators; handlers only parse,
// delegate, and encode.
type WheelService struct {
	writer service.GroupWriter
	reader service.GroupReader
}

// NewWheelService returns the wheel service HTTP implementation.
func NewWheelService(writer service.GroupWriter, reader service.GroupReader) *WheelService {
	return &WheelService{
		writer: writer,
		reader: reader,
	}
}

// nameRequest is the body shape shared by group create and rename.
type nameRequest struct {
	Name string `json:"name"`
}

// bookmarksRequest is the body shape of the bookmark replacement call.
type bookmarksRequest struct {
	GroupIDs []string `json:"groupIds"`
}

// Livez serves liveness probes.
func (s *WheelService) Livez(w http.ResponseWriter, r *http.Request) {
	slog.DebugContext(r.Context(), "liveness check completed successfully")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Readyz serves readiness probes by checking storage reachability.
func (s *WheelService) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.reader.IsReady(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "service not ready", "error", err)
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// CreateGroup creates a group owned by the caller.
func (s *WheelService) CreateGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.DebugContext(ctx, "wheelService.create-group")

	var payload nameRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	group, err := s.writer.CreateGroup(ctx, middleware.IdentityFromContext(ctx), payload.Name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusCreated, group)
}

// ListMyGroups returns summaries of the caller's owned and joined groups.
func (s *WheelService) ListMyGroups(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.DebugContext(ctx, "wheelService.list-my-groups")

	summaries, err := s.reader.ListMyGroups(ctx, middleware.IdentityFromContext(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, summaries)
}

// GetBookmarks returns the caller's bookmarked group IDs.
func (s *WheelService) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.DebugContext(ctx, "wheelService.get-bookmarks")

	bookmarks, err := s.reader.GetBookmarks(ctx, middleware.IdentityFromContext(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, bookmarks)
}

// UpdateBookmarks replaces the caller's bookmark list and returns the
// normalized result.
func (s *WheelService) UpdateBookmarks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.DebugContext(ctx, "wheelService.update-bookmarks")

	var payload bookmarksRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	bookmarks, err := s.writer.UpdateBookmarks(ctx, middleware.IdentityFromContext(ctx), payload.GroupIDs)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, bookmarks)
}

// GetGroup returns one group record.
func (s *WheelService) GetGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.get-group", "group_id", groupID)

	group, err := s.reader.GetGroup(ctx, groupID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, group)
}

// RenameGroup replaces the group name.
func (s *WheelService) RenameGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.rename-group", "group_id", groupID)

	var payload nameRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	group, err := s.writer.RenameGroup(ctx, middleware.IdentityFromContext(ctx), groupID, payload.Name)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, group)
}

// GetParticipants returns the roster in insertion order.
func (s *WheelService) GetParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.get-participants", "group_id", groupID)

	participants, err := s.reader.GetParticipants(ctx, groupID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, participants)
}

// AddParticipant appends one participant to the roster.
func (s *WheelService) AddParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.add-participant", "group_id", groupID)

	var payload model.ParticipantAdd
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	participant, err := s.writer.AddParticipant(ctx, middleware.IdentityFromContext(ctx), groupID, payload)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusCreated, participant)
}

// UpdateParticipant partially updates one participant. The URL parameter
// names the participant; any participantId in the body is ignored.
func (s *WheelService) UpdateParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	participantID := chi.URLParam(r, "participantID")
	slog.DebugContext(ctx, "wheelService.update-participant",
		"group_id", groupID,
		"participant_id", participantID,
	)

	var payload model.ParticipantUpdate
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	participant, err := s.writer.UpdateParticipant(ctx, middleware.IdentityFromContext(ctx), groupID, participantID, payload)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, participant)
}

// RemoveParticipant deletes one participant from the roster.
func (s *WheelService) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	participantID := chi.URLParam(r, "participantID")
	slog.DebugContext(ctx, "wheelService.remove-participant",
		"group_id", groupID,
		"participant_id", participantID,
	)

	if err := s.writer.RemoveParticipant(ctx, middleware.IdentityFromContext(ctx), groupID, participantID); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CommitParticipants applies a batch of roster changes atomically and
// returns the resulting roster.
func (s *WheelService) CommitParticipants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.commit-participants", "group_id", groupID)

	var payload model.ParticipantCommit
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, err)
		return
	}

	participants, err := s.writer.CommitParticipants(ctx, middleware.IdentityFromContext(ctx), groupID, payload)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, participants)
}

// RequestSpin starts a spin and returns its animation state.
func (s *WheelService) RequestSpin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.request-spin", "group_id", groupID)

	spin, err := s.writer.RequestSpin(ctx, middleware.IdentityFromContext(ctx), groupID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusAccepted, model.SpinPayload{Spin: *spin})
}

// GetHistory returns the retained spin history, newest first.
func (s *WheelService) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.get-history", "group_id", groupID)

	history, err := s.reader.GetHistory(ctx, middleware.IdentityFromContext(ctx), groupID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	encodeJSON(ctx, w, http.StatusOK, history)
}

// SaveSpin accepts a resolved spin's outcome.
func (s *WheelService) SaveSpin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	spinID := chi.URLParam(r, "spinID")
	slog.DebugContext(ctx, "wheelService.save-spin",
		"group_id", groupID,
		"spin_id", spinID,
	)

	if err := s.writer.SaveSpinResult(ctx, middleware.IdentityFromContext(ctx), groupID, spinID); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DiscardSpin undoes a resolved spin while its compensation window is open,
// or deletes its history entry afterwards.
func (s *WheelService) DiscardSpin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	spinID := chi.URLParam(r, "spinID")
	slog.DebugContext(ctx, "wheelService.discard-spin",
		"group_id", groupID,
		"spin_id", spinID,
	)

	if err := s.writer.DiscardSpinResult(ctx, middleware.IdentityFromContext(ctx), groupID, spinID); err != nil {
		writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
