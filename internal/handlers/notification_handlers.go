package handlers

import (
	"net/http"
	"strconv"

	"hirehub/internal/engine/actors"
	"hirehub/internal/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// HandleListNotifications returns the caller's most recent notifications
// (newest first, 50 by default).
func (s *Server) HandleListNotifications() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		var limit int64
		if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
			parsed, err := strconv.ParseInt(limitStr, 10, 64)
			if err != nil || parsed <= 0 {
				writeAppError(w, utils.NewInvalidInputError("invalid limit"))
				return
			}
			limit = parsed
		}

		result, err := s.request(s.Engine.GetNotificationActor(), &actors.ListNotificationsMsg{
			UserID: caller,
			Limit:  limit,
		})
		s.respondResult(w, result, err)
	}
}

// HandleMarkNotificationRead flips one notification's read flag. 404 when the
// notification does not exist or belongs to someone else.
func (s *Server) HandleMarkNotificationRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		notificationID, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			writeAppError(w, utils.NewInvalidInputError("invalid notification ID"))
			return
		}

		result, err := s.request(s.Engine.GetNotificationActor(), &actors.MarkNotificationReadMsg{
			NotificationID: notificationID,
			UserID:         caller,
		})
		s.respondResult(w, result, err)
	}
}

// HandleMarkAllNotificationsRead bulk-flips the caller's unread notifications.
func (s *Server) HandleMarkAllNotificationsRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		result, err := s.request(s.Engine.GetNotificationActor(), &actors.MarkAllNotificationsReadMsg{UserID: caller})
		s.respondResult(w, result, err)
	}
}

// HandleNotificationUnreadCount returns the caller's unread alert count.
func (s *Server) HandleNotificationUnreadCount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Metrics.IncrementRequests()

		caller, ok := callerID(r)
		if !ok {
			writeAppError(w, utils.NewUnauthorizedError("missing caller identity"))
			return
		}

		result, err := s.request(s.Engine.GetNotificationActor(), &actors.GetUnreadNotificationsMsg{UserID: caller})
		s.respondResult(w, result, err)
	}
}
