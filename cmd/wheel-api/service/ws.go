// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package service

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/unfairwheel/unfair-wheel-service/internal/domain/model"
)

const (
	// writeWait bounds a single write to the peer.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for the next pong before the read side
	// gives up on the peer.
	pongWait = 60 * time.Second

	// pingPeriod is the keepalive interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize caps inbound frames. Clients only send control
	// traffic; state changes go through HTTP.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Cross-origin browsers are admitted; mutations are gated by the
		// credential, not the origin.
		return true
	},
}

// SubscribeWS upgrades the connection and relays the group's event stream:
// a snapshot first, then every event in actor order. The subscription is
// taken before the upgrade so an unknown group still gets a JSON 404.
func (s *WheelService) SubscribeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	groupID := chi.URLParam(r, "groupID")
	slog.DebugContext(ctx, "wheelService.subscribe", "group_id", groupID)

	events, cancel, err := s.reader.Subscribe(ctx, groupID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		cancel()
		slog.ErrorContext(ctx, "websocket upgrade failed", "error", err, "group_id", groupID)
		return
	}

	go writePump(conn, events, cancel)
	go readPump(conn, cancel)
}

// writePump relays events to the peer and keeps the connection alive with
// pings. A closed event channel means the actor detached the subscriber,
// either through cancel or because this consumer fell behind; the peer is
// told to reconnect and resync from a fresh snapshot.
func writePump(conn *websocket.Conn, events <-chan model.Event, cancel func()) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = conn.Close()
	}()

	for {
		select {
		case event, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				message := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "event stream closed")
				_ = conn.WriteMessage(websocket.CloseMessage, message)
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				slog.Error("failed to encode event envelope",
					"error", err,
					"event_type", event.Type,
					"group_id", event.GroupID,
				)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer goes away, keeping the
// pong deadline fresh. Any read error detaches the subscription, which in
// turn ends the write pump.
func readPump(conn *websocket.Conn, cancel func()) {
	defer func() {
		cancel()
		_ = conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read ended", "error", err)
			}
			return
		}
	}
}
