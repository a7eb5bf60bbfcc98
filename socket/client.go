package socket

import (
	"encoding/json"
	"net/http"
	"time"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The editor UI and the preview may be served from different origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWs upgrades the request and joins the client to the room of ?doc=
// (kind from ?kind=, presentation by default).
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	doc := r.URL.Query().Get("doc")
	if doc == "" {
		http.Error(w, "Missing doc parameter", http.StatusBadRequest)
		return
	}
	kind := r.URL.Query().Get("kind")
	if kind != model.KindTheme {
		kind = model.KindPresentation
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		Room:   RoomKey(kind, doc),
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
	if !hub.register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump relays cursor messages and detects when the editor goes away.
func (c *Client) readPump() {
	defer func() {
		c.Hub.unregister(c)
		c.Conn.Close()
	}()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		if msg.Type != CursorType {
			continue
		}

		// Server-authoritative fields prevent spoofing.
		msg.Room = c.Room
		msg.UserID = c.UserID
		msg.sender = c
		if !c.Hub.relay(msg) {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
