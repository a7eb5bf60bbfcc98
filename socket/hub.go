package socket

import (
	"encoding/json"
	"sync"
	"time"

	"deckeditor/internal/content/model"
	"deckeditor/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	CursorType         = "CURSOR"          // User moved their cursor
	PresenceUpdateType = "PRESENCE_UPDATE" // A user joined or left

	broadcastBuffer = 256
)

type WSMessage struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	UserID  string          `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload"`

	// sender is the connection a relayed message came from; it is not echoed back.
	sender *Client
}

// UserStatus is one user in a room. A user with several tabs open has one entry
// with Connections counting the tabs.
type UserStatus struct {
	UserID      string    `json:"user_id"`
	LastSeen    time.Time `json:"last_seen"`
	Connections int       `json:"connections"`
}

// Hub fans store events out to the editors that have a document open.
// Rooms are keyed by "<kind>/<name>".
type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.Mutex
	Presence   map[string]map[string]UserStatus // room -> userID -> status
	quit       chan struct{}
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	Room   string
	UserID string
	Send   chan []byte
}

func NewHub() *Hub {
	return &Hub{
		Rooms:      make(map[string]map[*Client]bool),
		Broadcast:  make(chan WSMessage, broadcastBuffer),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Presence:   make(map[string]map[string]UserStatus),
		quit:       make(chan struct{}),
	}
}

// RoomKey names the room for a document of the given kind.
func RoomKey(kind, name string) string {
	return kind + "/" + name
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.quit:
			return

		case client := <-h.Register:
			h.mu.Lock()
			if h.Rooms[client.Room] == nil {
				h.Rooms[client.Room] = make(map[*Client]bool)
				h.Presence[client.Room] = make(map[string]UserStatus)
			}
			h.Rooms[client.Room][client] = true
			status := h.Presence[client.Room][client.UserID]
			status.UserID = client.UserID
			status.LastSeen = time.Now()
			status.Connections++
			h.Presence[client.Room][client.UserID] = status
			h.mu.Unlock()

			h.broadcastPresenceUpdate(client.Room)

		case client := <-h.Unregister:
			h.mu.Lock()
			room := client.Room
			if _, ok := h.Rooms[room][client]; ok {
				delete(h.Rooms[room], client)
				if status := h.Presence[room][client.UserID]; status.Connections > 1 {
					status.Connections--
					h.Presence[room][client.UserID] = status
				} else {
					delete(h.Presence[room], client.UserID)
				}
				close(client.Send)

				if len(h.Rooms[room]) == 0 {
					delete(h.Rooms, room)
					delete(h.Presence, room)
					logger.Sugar.Debugf("Closed empty room: %s", room)
				}
			}
			_, stillOpen := h.Rooms[room]
			h.mu.Unlock()

			if stillOpen {
				h.broadcastPresenceUpdate(room)
			}

		case msg := <-h.Broadcast:
			payload, err := json.Marshal(msg)
			if err != nil {
				logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
				continue
			}

			// Collect recipients under the lock, send outside it.
			h.mu.Lock()
			clientsToSend := make([]*Client, 0, len(h.Rooms[msg.Room]))
			for client := range h.Rooms[msg.Room] {
				if client != msg.sender {
					clientsToSend = append(clientsToSend, client)
				}
			}
			h.mu.Unlock()

			for _, client := range clientsToSend {
				select {
				case client.Send <- payload:
				default:
					// The client is lagging; drop it rather than block the hub.
					logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
					go h.unregister(client)
				}
			}
		}
	}
}

// Stop ends Run. Clients still connected stop talking to the hub.
func (h *Hub) Stop() {
	close(h.quit)
}

// register, unregister and relay give up once the hub has stopped.
func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.quit:
	}
}

func (h *Hub) relay(msg WSMessage) bool {
	select {
	case h.Broadcast <- msg:
		return true
	case <-h.quit:
		return false
	}
}

// Publish implements service.Notifier. Events are dropped, not queued without
// bound, when the hub falls behind.
func (h *Hub) Publish(event model.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling event: %v", err)
		return
	}
	msg := WSMessage{Type: event.Type, Room: RoomKey(event.Kind, event.Name), Payload: payload}
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Hub broadcast queue full, dropping %s event for %s", event.Type, msg.Room)
	}
}

func (h *Hub) broadcastPresenceUpdate(room string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[room]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[room]))
		for _, status := range h.Presence[room] {
			userStatuses = append(userStatuses, status)
		}
		clientsToSend = make([]*Client, 0, len(h.Rooms[room]))
		for client := range h.Rooms[room] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, Room: room, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
