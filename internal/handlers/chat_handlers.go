package handlers

import (
	"net/http"

	"hirehub/internal/chat"
	"hirehub/internal/engine/actors"
	"hirehub/internal/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// StartChatRequest opens (or resumes) a conversation with a provider
type StartChatRequest struct {
	ProviderID string `json:"providerId" validate:"required,uuid"`
}

// SendMessageRequest represents a request to send a chat message
type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Message    string `json:"message" validate:"required"`
}

// MarkReadRequest marks a whole conversation as read
type MarkReadRequest struct {
	OtherUserID string `json:"otherUserId" validate:"required,uuid"`
}

// HandleStartChat validates the counterpart and returns the conversation id
// the client should join on the live channel.
func (s *Server) HandleStartChat() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		var req StartChatRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeAppError(w, utils.NewInvalidInputError("invalid provider ID"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.StartConversationMsg{
			UserID:      caller,
			OtherUserID: providerID,
		})
		s.respondResult(w, result, err)
	}
}

// HandleConversations returns the caller's conversation list, newest first.
func (s *Server) HandleConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.GetConversationsMsg{UserID: caller})
		s.respondResult(w, result, err)
	}
}

// HandleConversationMessages returns the full history with a counterpart. As
// a side effect all messages from them to the caller are marked read and the
// read receipt is emitted live.
func (s *Server) HandleConversationMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		otherID, err := uuid.Parse(mux.Vars(r)["otherUserId"])
		if err != nil {
			writeAppError(w, utils.NewInvalidInputError("invalid user ID"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.GetConversationMsg{
			UserID:      caller,
			OtherUserID: otherID,
		})
		s.respondResult(w, result, err)
	}
}

// HandleSendMessage persists a message and triggers the live fan-out. The
// response carries the stored record, identity-expanded for display.
func (s *Server) HandleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		var req SendMessageRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
		receiverID, err := uuid.Parse(req.ReceiverID)
		if err != nil {
			writeAppError(w, utils.NewInvalidInputError("invalid receiver ID"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.SendMessageMsg{
			SenderID:   caller,
			ReceiverID: receiverID,
			Body:       req.Message,
		})
		s.respondResult(w, result, err)
	}
}

// HandleChatUnreadCount returns the caller's total unread message count.
func (s *Server) HandleChatUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.GetUnreadCountMsg{UserID: caller})
		s.respondResult(w, result, err)
	}
}

// HandleMarkConversationRead marks a conversation read and emits the live
// "message-read" event to the room.
func (s *Server) HandleMarkConversationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		var req MarkReadRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}
		otherID, err := uuid.Parse(req.OtherUserID)
		if err != nil {
			writeAppError(w, utils.NewInvalidInputError("invalid user ID"))
			return
		}

		result, err := s.request(s.Engine.GetChatActor(), &actors.MarkConversationReadMsg{
			ConversationID: chat.ConversationID(caller, otherID),
			ReaderID:       caller,
		})
		s.respondResult(w, result, err)
	}
}
