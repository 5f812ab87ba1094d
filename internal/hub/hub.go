package hub

import (
	"encoding/json"
	"sync"

	"github.com/johnrodneybargayo/gabay-rooms/internal/config"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
)

// Hub tracks connected clients and fans frames out to them, either to
// everybody or to the clients currently viewing one room.
type Hub struct {
	clients    map[string]*Client            // clientID -> client
	rooms      map[string]map[string]*Client // roomID -> clientID -> client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
	mu         sync.RWMutex
	config     config.WebSocketConfig

	// onDisconnect runs when a client drops without an explicit leave.
	onDisconnect func(*Client)
}

type roomMessage struct {
	roomID  string // empty means every connected client
	message []byte
	exclude string
}

func NewHub(cfg config.WebSocketConfig) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
		config:     cfg,
	}
}

// OnDisconnect sets the handler fired when a client unregisters.
// Must be set before Run.
func (h *Hub) OnDisconnect(fn func(*Client)) {
	h.onDisconnect = fn
}

func (h *Hub) Run() {
	l := log.L()
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			_, known := h.clients[client.ID]
			if known {
				for roomID, members := range h.rooms {
					delete(members, client.ID)
					if len(members) == 0 {
						delete(h.rooms, roomID)
					}
				}
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			if known && h.onDisconnect != nil {
				h.onDisconnect(client)
			}
			l.Debug().Str(log.FieldClientID, client.ID).Msg("client unregistered")

		case msg := <-h.broadcast:
			h.mu.RLock()
			targets := h.clients
			if msg.roomID != "" {
				targets = h.rooms[msg.roomID]
			}
			for clientID, client := range targets {
				if clientID == msg.exclude {
					continue
				}
				select {
				case client.Send <- msg.message:
				default:
					go h.removeClient(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// JoinRoom adds the client to a room's broadcast group.
func (h *Hub) JoinRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.rooms[roomID]; !ok {
		h.rooms[roomID] = make(map[string]*Client)
	}
	h.rooms[roomID][client.ID] = client
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client joined room group")
}

// LeaveRoom removes the client from a room's broadcast group.
func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[roomID]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	l := log.L()
	l.Info().Str(log.FieldClientID, client.ID).Str(log.FieldRoomID, roomID).Msg("client left room group")
}

// BroadcastToRoom sends a frame to every client viewing the room.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}, exclude string) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &roomMessage{roomID: roomID, message: data, exclude: exclude}
	return nil
}

// BroadcastAll sends a frame to every connected client.
func (h *Hub) BroadcastAll(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	h.broadcast <- &roomMessage{message: data}
	return nil
}

// RoomClientCount reports how many clients are viewing a room.
func (h *Hub) RoomClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if members, ok := h.rooms[roomID]; ok {
		return len(members)
	}
	return 0
}

func (h *Hub) removeClient(client *Client) {
	h.unregister <- client
}
