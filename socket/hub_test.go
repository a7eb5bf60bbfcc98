package socket

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"deckeditor/internal/content/model"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	var msg WSMessage
	// Set a deadline to avoid tests hanging forever.
	conn.SetReadDeadline(time.Now().Add(1 * time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	err = json.Unmarshal(p, &msg)
	require.NoError(t, err, "Failed to unmarshal WSMessage JSON")
	return msg
}

func readPresence(t *testing.T, conn *websocket.Conn) []UserStatus {
	msg := readMessage(t, conn)
	require.Equal(t, PresenceUpdateType, msg.Type)
	var statuses []UserStatus
	require.NoError(t, json.Unmarshal(msg.Payload, &statuses))
	return statuses
}

func TestHubIntegration(t *testing.T) {
	// 1. Setup Hub
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// 2. Setup Test HTTP Server
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// For simplicity, we'll hardcode the user ID for tests.
		userID := r.URL.Query().Get("user_id")
		ServeWs(hub, w, r, userID)
	}))
	defer server.Close()

	// Convert http:// to ws://
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	doc := "slides"

	// 3. Client 1 opens the document and sees itself in the room.
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?doc="+doc+"&user_id=user1", nil)
	require.NoError(t, err, "Client 1 failed to connect")
	defer conn1.Close()

	statuses := readPresence(t, conn1)
	require.Len(t, statuses, 1)
	assert.Equal(t, "user1", statuses[0].UserID)

	// 4. Client 2 joins the same room; both get the new presence list.
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?doc="+doc+"&user_id=user2", nil)
	require.NoError(t, err, "Client 2 failed to connect")
	defer conn2.Close()

	assert.Len(t, readPresence(t, conn2), 2)
	statuses = readPresence(t, conn1)
	require.Len(t, statuses, 2, "Should be two users in the room")
	userIDs := []string{statuses[0].UserID, statuses[1].UserID}
	assert.Contains(t, userIDs, "user1")
	assert.Contains(t, userIDs, "user2")

	// 5. A save is published to everyone with the document open.
	hub.Publish(model.Event{Type: model.EventSaved, Kind: model.KindPresentation, Name: doc})

	for _, conn := range []*websocket.Conn{conn1, conn2} {
		msg := readMessage(t, conn)
		assert.Equal(t, model.EventSaved, msg.Type)
		assert.Equal(t, RoomKey(model.KindPresentation, doc), msg.Room)
		var event model.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, doc, event.Name)
	}

	// 6. Client 2 moves its cursor; client 1 sees it attributed to user2.
	cursor := `{"line":3,"column":7}`
	msgBytes, _ := json.Marshal(WSMessage{Type: CursorType, UserID: "spoofed", Payload: json.RawMessage(cursor)})
	require.NoError(t, conn2.WriteMessage(websocket.TextMessage, msgBytes), "Client 2 failed to send cursor message")

	broadcastMsg := readMessage(t, conn1)
	assert.Equal(t, CursorType, broadcastMsg.Type)
	assert.Equal(t, "user2", broadcastMsg.UserID, "Broadcast message should have correct UserID")
	assert.JSONEq(t, cursor, string(broadcastMsg.Payload))
}

func TestHubRoomsAreIsolated(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, r.URL.Query().Get("user_id"))
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	slides, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?doc=slides&user_id=user1", nil)
	require.NoError(t, err)
	defer slides.Close()
	readPresence(t, slides)

	theme, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?doc=slides&kind=theme&user_id=user2", nil)
	require.NoError(t, err)
	defer theme.Close()
	assert.Len(t, readPresence(t, theme), 1, "Theme editors do not share the presentation room")

	hub.Publish(model.Event{Type: model.EventSaved, Kind: model.KindTheme, Name: "slides"})
	assert.Equal(t, model.EventSaved, readMessage(t, theme).Type)

	slides.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = slides.ReadMessage()
	assert.Error(t, err, "Presentation editor should not receive theme events")
}

func TestServeWsRequiresDoc(t *testing.T) {
	hub := NewHub()
	rec := httptest.NewRecorder()
	ServeWs(hub, rec, httptest.NewRequest(http.MethodGet, "/ws", nil), "user1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishDoesNotBlockWithoutRun(t *testing.T) {
	hub := NewHub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < broadcastBuffer+10; i++ {
			hub.Publish(model.Event{Type: model.EventSaved, Kind: model.KindPresentation, Name: "slides"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue")
	}
	assert.Len(t, hub.Broadcast, broadcastBuffer)
}

func TestHubSharedUserID(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	// Without a password every editor is "editor"; tabs must still see each other.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, "editor")
	}))
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?doc=slides"

	tab1, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer tab1.Close()
	readPresence(t, tab1)

	tab2, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	readPresence(t, tab2)

	statuses := readPresence(t, tab1)
	require.Len(t, statuses, 1, "one user, two tabs")
	assert.Equal(t, "editor", statuses[0].UserID)
	assert.Equal(t, 2, statuses[0].Connections)

	cursor := `{"line":1,"column":2}`
	msgBytes, _ := json.Marshal(WSMessage{Type: CursorType, Payload: json.RawMessage(cursor)})
	require.NoError(t, tab2.WriteMessage(websocket.TextMessage, msgBytes))

	msg := readMessage(t, tab1)
	assert.Equal(t, CursorType, msg.Type)
	assert.Equal(t, "editor", msg.UserID)
	assert.JSONEq(t, cursor, string(msg.Payload))

	tab2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = tab2.ReadMessage()
	assert.Error(t, err, "the sender does not get its own cursor back")
	tab2.Close()

	statuses = readPresence(t, tab1)
	require.Len(t, statuses, 1, "closing one tab keeps the user present")
	assert.Equal(t, 1, statuses[0].Connections)
}

func TestStoppedHubReleasesClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.unregister(&Client{Hub: hub, Room: "presentation/slides", UserID: "editor"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked on a stopped hub")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(hub, w, r, "editor")
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws?doc=slides", nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "the connection is closed, not left hanging")
	}
}
