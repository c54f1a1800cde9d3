package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"hirehub/internal/database"
	"hirehub/internal/engine"
	"hirehub/internal/middleware"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// Server holds all server dependencies: the actor engine, the live-delivery
// hub, and the request plumbing around them.
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Hub            *ws.Hub
	Auth           *middleware.Authenticator
	Metrics        *utils.MetricsCollector
	Validate       *validator.Validate
	MongoDB        *database.MongoDB
	RequestTimeout time.Duration
}

// NewServer creates a new Server instance with the given components.
// MongoDB may be nil when running on in-memory stores.
func NewServer(
	system *actor.ActorSystem,
	eng *engine.Engine,
	hub *ws.Hub,
	auth *middleware.Authenticator,
	metrics *utils.MetricsCollector,
	mongodb *database.MongoDB,
) *Server {
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         eng,
		Hub:            hub,
		Auth:           auth,
		Metrics:        metrics,
		Validate:       validator.New(),
		MongoDB:        mongodb,
		RequestTimeout: 5 * time.Second, // Default timeout for actor requests
	}
}

// Router wires every route. /health and /ws stay outside the JWT middleware:
// the websocket handshake authenticates opportunistically on its own.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.HandleWebSocket())

	api := r.PathPrefix("/").Subrouter()
	api.Use(s.Auth.Middleware)

	api.HandleFunc("/chat/start", s.HandleStartChat()).Methods(http.MethodPost)
	api.HandleFunc("/chat/conversations", s.HandleConversations()).Methods(http.MethodGet)
	api.HandleFunc("/chat/messages/{otherUserId}", s.HandleConversationMessages()).Methods(http.MethodGet)
	api.HandleFunc("/chat/send", s.HandleSendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/chat/unread-count", s.HandleChatUnreadCount()).Methods(http.MethodGet)
	api.HandleFunc("/chat/mark-read", s.HandleMarkConversationRead()).Methods(http.MethodPost)

	api.HandleFunc("/notifications", s.HandleListNotifications()).Methods(http.MethodGet)
	api.HandleFunc("/notifications/mark-all-read", s.HandleMarkAllNotificationsRead()).Methods(http.MethodPost)
	api.HandleFunc("/notifications/unread-count", s.HandleNotificationUnreadCount()).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{id}/read", s.HandleMarkNotificationRead()).Methods(http.MethodPut)

	return r
}

// request sends a message to an actor and waits for the reply.
func (s *Server) request(pid *actor.PID, msg interface{}) (interface{}, error) {
	future := s.Context.RequestFuture(pid, msg, s.RequestTimeout)
	return future.Result()
}

// callerID pulls the authenticated caller out of the request context.
func callerID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetUserIDFromContext(r.Context())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAppError(w http.ResponseWriter, appErr *utils.AppError) {
	writeJSON(w, utils.AppErrorToHTTPStatus(appErr.Code), map[string]string{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// respondResult maps an actor reply to HTTP: AppError values become their
// 4xx/5xx status, everything else is a 200 with the JSON body.
func (s *Server) respondResult(w http.ResponseWriter, result interface{}, err error) {
	if err != nil {
		s.Metrics.IncrementErrors()
		writeAppError(w, utils.NewAppError(utils.ErrActorTimeout, "request timed out", err))
		return
	}
	if appErr, ok := result.(*utils.AppError); ok {
		s.Metrics.IncrementErrors()
		writeAppError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// decodeAndValidate decodes the JSON body into dst and checks its validate
// tags; writes the 400 itself and returns false on failure.
func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeAppError(w, utils.NewInvalidInputError("invalid request body"))
		return false
	}
	if err := s.Validate.Struct(dst); err != nil {
		writeAppError(w, utils.NewInvalidInputError("invalid request: "+err.Error()))
		return false
	}
	return true
}

// HandleHealth reports store connectivity and live-connection counts.
func (s *Server) HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "healthy"
		if s.MongoDB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := s.MongoDB.Ping(ctx); err != nil {
				status = "degraded"
			}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      status,
			"connections": s.Hub.ConnectionCount(),
			"rooms":       s.Hub.RoomCount(),
			"requests":    s.Metrics.RequestCount(),
			"errors":      s.Metrics.ErrorCount(),
			"uptime":      s.Metrics.Uptime().String(),
			"server_time": time.Now(),
		})
	}
}
