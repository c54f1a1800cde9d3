package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"hirehub/internal/chat"
	"hirehub/internal/engine/actors"
	ws "hirehub/internal/websocket"

	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: check against Config.AllowedOrigins once the frontend origin
		// list is settled.
		return true
	},
}

// HandleWebSocket upgrades the connection and registers it with the hub.
// Authentication is opportunistic: an invalid or missing token degrades the
// connection to unauthenticated instead of rejecting it, so flaky clients are
// never locked out. Unauthenticated connections get no personal room and
// cannot join conversation rooms.
func (s *Server) HandleWebSocket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := uuid.Nil
		if tokenString := r.URL.Query().Get("token"); tokenString != "" {
			claims, err := s.Auth.ValidateToken(tokenString)
			if err != nil {
				slog.Warn("websocket handshake token invalid, degrading to unauthenticated", "err", err)
			} else {
				userID = claims.UserID
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := ws.NewClient(s.Hub, userID, conn, s)
		s.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
}

// HandleClientEvent routes client-originated live-channel events. Room joins
// are authorized against the connection's resolved identity: room names
// derive from public user ids, so an unauthorized join would be an
// eavesdropping channel.
func (s *Server) HandleClientEvent(client *ws.Client, event string, data json.RawMessage) {
	switch event {
	case ws.EventJoinChat:
		conversationID, ok := s.authorizeRoom(client, data)
		if !ok {
			return
		}
		s.Hub.JoinRoom(client, conversationID)

	case ws.EventLeaveChat:
		var payload conversationPayload
		if err := json.Unmarshal(data, &payload); err != nil {
			return
		}
		s.Hub.LeaveRoom(client, payload.ConversationID)

	case ws.EventSendMessage:
		// Optimistic echo path: relay to the room so other tabs render
		// immediately. Not authoritative: the durable send goes through
		// POST /chat/send and clients de-duplicate by record id.
		conversationID, ok := s.authorizeRoom(client, data)
		if !ok {
			return
		}
		s.Hub.Emit(conversationID, ws.EventNewMessage, data)

	case ws.EventMarkRead:
		conversationID, ok := s.authorizeRoom(client, data)
		if !ok {
			return
		}
		result, err := s.request(s.Engine.GetChatActor(), &actors.MarkConversationReadMsg{
			ConversationID: conversationID,
			ReaderID:       client.UserID,
		})
		if err != nil {
			slog.Warn("live mark-read failed", "user", client.UserID, "err", err)
			return
		}
		if appErr, ok := result.(error); ok {
			slog.Warn("live mark-read rejected", "user", client.UserID, "err", appErr)
		}

	case ws.EventMessageDelivered:
		// Best-effort, live-only: never persisted, lost on reconnect.
		conversationID, ok := s.authorizeRoom(client, data)
		if !ok {
			return
		}
		s.Hub.Emit(conversationID, ws.EventMessageDelivered, data)

	default:
		slog.Debug("unknown client event", "event", event, "user", client.UserID)
	}
}

// authorizeRoom extracts the conversation id from a client payload and checks
// the connection may act on that room.
func (s *Server) authorizeRoom(client *ws.Client, data json.RawMessage) (string, bool) {
	var payload conversationPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.ConversationID == "" {
		client.SendEvent(ws.EventError, map[string]string{"message": "conversationId required"})
		return "", false
	}
	if client.UserID == uuid.Nil {
		client.SendEvent(ws.EventError, map[string]string{"message": "authentication required"})
		return "", false
	}
	if !chat.IsParticipant(payload.ConversationID, client.UserID) {
		client.SendEvent(ws.EventError, map[string]string{"message": "not a participant of this conversation"})
		return "", false
	}
	return payload.ConversationID, true
}
