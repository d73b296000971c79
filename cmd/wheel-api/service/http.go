// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/port"
	"github.com/unfairwheel/unfair-wheel-service/internal/middleware"
)

// Routes assembles the HTTP routing table. Reads of a single group and the
// realtime subscription accept anonymous callers; everything else requires
// a resolved identity. Per-group role gates run inside the orchestrators,
// which see the full roster.
func (s *WheelService) Routes(resolver port.IdentityResolver, frontendOrigin string) http.Handler {
	requireAuth := middleware.RequireAuthMiddleware(resolver)
	optionalAuth := middleware.OptionalAuthMiddleware(resolver)

	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.CORSMiddleware(frontendOrigin))

	r.Get("/livez", s.Livez)
	r.Get("/readyz", s.Readyz)

	r.Route("/groups", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", s.CreateGroup)
			r.Get("/me", s.ListMyGroups)
			r.Get("/bookmarks", s.GetBookmarks)
			r.Put("/bookmarks", s.UpdateBookmarks)
		})

		r.Route("/{groupID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", s.GetGroup)
				r.Get("/participants", s.GetParticipants)
				r.Get("/ws", s.SubscribeWS)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Patch("/", s.RenameGroup)
				r.Post("/participants", s.AddParticipant)
				r.Patch("/participants/{participantID}", s.UpdateParticipant)
				r.Delete("/participants/{participantID}", s.RemoveParticipant)
				r.Post("/participants/commit", s.CommitParticipants)
				r.Post("/spin", s.RequestSpin)
				r.Get("/history", s.GetHistory)
				r.Post("/history/{spinID}/save", s.SaveSpin)
				r.Delete("/history/{spinID}", s.DiscardSpin)
			})
		})
	})

	return r
}
