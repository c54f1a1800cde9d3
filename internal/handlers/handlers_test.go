package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hirehub/internal/chat"
	"hirehub/internal/database"
	"hirehub/internal/engine"
	"hirehub/internal/engine/actors"
	"hirehub/internal/middleware"
	"hirehub/internal/models"
	"hirehub/internal/utils"
	ws "hirehub/internal/websocket"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	http  *httptest.Server
	store *database.MemoryStore
	hub   *ws.Hub
	auth  *middleware.Authenticator

	alice      *models.UserSummary
	bob        *models.UserSummary
	aliceToken string
	bobToken   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store := database.NewMemoryStore()
	hub := ws.NewHub()
	go hub.Run()

	alice := &models.UserSummary{ID: uuid.New(), Username: "alice"}
	bob := &models.UserSummary{ID: uuid.New(), Username: "bob"}
	store.AddUser(alice)
	store.AddUser(bob)

	system := actor.NewActorSystem()
	eng := engine.NewEngine(system, engine.Stores{
		Messages:      store,
		Notifications: store,
		Users:         store,
	}, hub, utils.NewMetricsCollector())

	auth := middleware.NewAuthenticator("test-secret", time.Hour)
	server := NewServer(system, eng, hub, auth, utils.NewMetricsCollector(), nil)

	aliceToken, err := auth.GenerateToken(alice.ID)
	require.NoError(t, err)
	bobToken, err := auth.GenerateToken(bob.ID)
	require.NoError(t, err)

	ts := &testServer{
		http:       httptest.NewServer(server.Router()),
		store:      store,
		hub:        hub,
		auth:       auth,
		alice:      alice,
		bob:        bob,
		aliceToken: aliceToken,
		bobToken:   bobToken,
	}
	t.Cleanup(ts.http.Close)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.http.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (ts *testServer) dialWS(t *testing.T, token string) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendWSEvent(t *testing.T, conn *gorilla.Conn, event string, data interface{}) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(ws.Envelope{Event: event, Data: raw}))
}

// awaitWSEvent reads frames until the wanted event arrives; other traffic on
// the same connection (notifications on the personal room) is skipped.
func awaitWSEvent(t *testing.T, conn *gorilla.Conn, want string) ws.Envelope {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q", want)
		var envelope ws.Envelope
		require.NoError(t, json.Unmarshal(payload, &envelope))
		if envelope.Event == want {
			return envelope
		}
	}
}

func TestRoutesRequireAuthentication(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/chat/conversations", "/chat/unread-count", "/notifications"} {
		status := ts.do(t, http.MethodGet, path, "", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status, "no token on %s", path)

		status = ts.do(t, http.MethodGet, path, "not-a-jwt", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, status, "garbage token on %s", path)
	}
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var health map[string]interface{}
	status := ts.do(t, http.MethodGet, "/health", "", nil, &health)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "healthy", health["status"])
}

func TestChatFlow(t *testing.T) {
	ts := newTestServer(t)

	var started actors.StartConversationResponse
	status := ts.do(t, http.MethodPost, "/chat/start", ts.aliceToken,
		map[string]string{"providerId": ts.bob.ID.String()}, &started)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, chat.ConversationID(ts.alice.ID, ts.bob.ID), started.ConversationID)
	assert.False(t, started.HasHistory)

	var sent models.Message
	status = ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String(), "message": "hello bob"}, &sent)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello bob", sent.Body)
	assert.Equal(t, ts.alice.ID, sent.SenderID)

	var unread actors.UnreadCountResponse
	status = ts.do(t, http.MethodGet, "/chat/unread-count", ts.bobToken, nil, &unread)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, unread.UnreadCount)

	// Fetching the history marks it read for the caller.
	var history actors.ConversationHistory
	status = ts.do(t, http.MethodGet, "/chat/messages/"+ts.alice.ID.String(), ts.bobToken, nil, &history)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, sent.ID, history.Messages[0].ID)
	assert.True(t, history.Messages[0].IsRead)

	status = ts.do(t, http.MethodGet, "/chat/unread-count", ts.bobToken, nil, &unread)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, unread.UnreadCount)

	var conversations []*models.Conversation
	status = ts.do(t, http.MethodGet, "/chat/conversations", ts.aliceToken, nil, &conversations)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, conversations, 1)
	assert.Equal(t, ts.bob.ID, conversations[0].Counterpart.ID)
	assert.False(t, conversations[0].Unread)
}

func TestSendMessageValidation(t *testing.T) {
	ts := newTestServer(t)

	status := ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String()}, nil)
	assert.Equal(t, http.StatusBadRequest, status, "missing message body")

	status = ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": "not-a-uuid", "message": "hi"}, nil)
	assert.Equal(t, http.StatusBadRequest, status, "malformed receiver id")

	status = ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": uuid.New().String(), "message": "hi"}, nil)
	assert.Equal(t, http.StatusNotFound, status, "unknown receiver")

	status = ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.alice.ID.String(), "message": "hi"}, nil)
	assert.Equal(t, http.StatusBadRequest, status, "self-send")
}

func TestMarkConversationReadEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status := ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String(), "message": "unread"}, nil)
	require.Equal(t, http.StatusOK, status)

	var marked actors.MarkReadResponse
	status = ts.do(t, http.MethodPost, "/chat/mark-read", ts.bobToken,
		map[string]string{"otherUserId": ts.alice.ID.String()}, &marked)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, marked.Count)
}

func TestNotificationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status := ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String(), "message": "triggers an alert"}, nil)
	require.Equal(t, http.StatusOK, status)

	// Notification creation is asynchronous to the send.
	require.Eventually(t, func() bool {
		stored, err := ts.store.RecentNotifications(context.Background(), ts.bob.ID, 10)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 20*time.Millisecond)

	var notifications []*models.Notification
	status = ts.do(t, http.MethodGet, "/notifications", ts.bobToken, nil, &notifications)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationMessage, notifications[0].Type)
	assert.False(t, notifications[0].IsRead)

	var unread actors.UnreadCountResponse
	status = ts.do(t, http.MethodGet, "/notifications/unread-count", ts.bobToken, nil, &unread)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, unread.UnreadCount)

	status = ts.do(t, http.MethodPut, "/notifications/"+notifications[0].ID.String()+"/read", ts.bobToken, nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status = ts.do(t, http.MethodPut, "/notifications/"+uuid.New().String()+"/read", ts.bobToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// The owner scoping means alice cannot see or touch bob's alert.
	status = ts.do(t, http.MethodPut, "/notifications/"+notifications[0].ID.String()+"/read", ts.aliceToken, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)

	var marked actors.MarkReadResponse
	status = ts.do(t, http.MethodPost, "/notifications/mark-all-read", ts.bobToken, nil, &marked)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, marked.Count, "single mark-read already cleared it")
}

func TestWebSocketLiveDelivery(t *testing.T) {
	ts := newTestServer(t)
	conversationID := chat.ConversationID(ts.alice.ID, ts.bob.ID)

	aliceConn := ts.dialWS(t, ts.aliceToken)
	bobConn := ts.dialWS(t, ts.bobToken)

	sendWSEvent(t, aliceConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	sendWSEvent(t, bobConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(conversationID) == 2
	}, 2*time.Second, 10*time.Millisecond, "both connections join the room")

	var sent models.Message
	status := ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String(), "message": "live hello"}, &sent)
	require.Equal(t, http.StatusOK, status)

	envelope := awaitWSEvent(t, bobConn, ws.EventNewMessage)
	var delivered models.Message
	require.NoError(t, json.Unmarshal(envelope.Data, &delivered))
	assert.Equal(t, sent.ID, delivered.ID)
	assert.Equal(t, "live hello", delivered.Body)

	// Bob acknowledges over the live channel; alice gets the receipt live.
	sendWSEvent(t, bobConn, ws.EventMarkRead, map[string]string{"conversationId": conversationID})

	envelope = awaitWSEvent(t, aliceConn, ws.EventMessageRead)
	var receipt actors.ReadReceipt
	require.NoError(t, json.Unmarshal(envelope.Data, &receipt))
	assert.Equal(t, conversationID, receipt.ConversationID)
	assert.Equal(t, ts.bob.ID, receipt.ReaderID)

	var unread actors.UnreadCountResponse
	status = ts.do(t, http.MethodGet, "/chat/unread-count", ts.bobToken, nil, &unread)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, unread.UnreadCount)
}

func TestWebSocketNotificationPush(t *testing.T) {
	ts := newTestServer(t)

	bobConn := ts.dialWS(t, ts.bobToken)
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(ws.PersonalRoom(ts.bob.ID)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	status := ts.do(t, http.MethodPost, "/chat/send", ts.aliceToken,
		map[string]string{"receiverId": ts.bob.ID.String(), "message": "you have mail"}, nil)
	require.Equal(t, http.StatusOK, status)

	envelope := awaitWSEvent(t, bobConn, ws.EventNewNotification)
	var event actors.NotificationEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &event))
	assert.Equal(t, models.NotificationMessage, event.Type)
}

func TestWebSocketJoinAuthorization(t *testing.T) {
	ts := newTestServer(t)
	conversationID := chat.ConversationID(ts.alice.ID, ts.bob.ID)

	// Unauthenticated connections are accepted but cannot join rooms.
	anonConn := ts.dialWS(t, "")
	sendWSEvent(t, anonConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	envelope := awaitWSEvent(t, anonConn, ws.EventError)
	assert.NotEmpty(t, envelope.Data)

	// An invalid token degrades to unauthenticated rather than rejecting.
	degradedConn := ts.dialWS(t, "bogus-token")
	sendWSEvent(t, degradedConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	awaitWSEvent(t, degradedConn, ws.EventError)

	// A third party cannot join someone else's conversation.
	carol := &models.UserSummary{ID: uuid.New(), Username: "carol"}
	ts.store.AddUser(carol)
	carolToken, err := ts.auth.GenerateToken(carol.ID)
	require.NoError(t, err)
	carolConn := ts.dialWS(t, carolToken)
	sendWSEvent(t, carolConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	awaitWSEvent(t, carolConn, ws.EventError)

	assert.Zero(t, ts.hub.RoomSize(conversationID), "no unauthorized member may enter the room")
}

func TestWebSocketOptimisticEcho(t *testing.T) {
	ts := newTestServer(t)
	conversationID := chat.ConversationID(ts.alice.ID, ts.bob.ID)

	aliceConn := ts.dialWS(t, ts.aliceToken)
	bobConn := ts.dialWS(t, ts.bobToken)
	sendWSEvent(t, aliceConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	sendWSEvent(t, bobConn, ws.EventJoinChat, map[string]string{"conversationId": conversationID})
	require.Eventually(t, func() bool {
		return ts.hub.RoomSize(conversationID) == 2
	}, 2*time.Second, 10*time.Millisecond)

	sendWSEvent(t, aliceConn, ws.EventSendMessage, map[string]string{
		"conversationId": conversationID,
		"body":           "rendered before the store write",
	})

	envelope := awaitWSEvent(t, bobConn, ws.EventNewMessage)
	var echoed map[string]string
	require.NoError(t, json.Unmarshal(envelope.Data, &echoed))
	assert.Equal(t, "rendered before the store write", echoed["body"])

	// Nothing was persisted: the echo is presentation only.
	var unread actors.UnreadCountResponse
	status := ts.do(t, http.MethodGet, "/chat/unread-count", ts.bobToken, nil, &unread)
	require.Equal(t, http.StatusOK, status)
	assert.Zero(t, unread.UnreadCount)
}
