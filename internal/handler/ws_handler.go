package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/johnrodneybargayo/gabay-rooms/internal/config"
	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/hub"
	"github.com/johnrodneybargayo/gabay-rooms/internal/service"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSHandler bridges websocket clients to the room sync core.
type WSHandler struct {
	hub     *hub.Hub
	service service.RoomSync
	wsCfg   config.WebSocketConfig
}

func NewWSHandler(h *hub.Hub, svc service.RoomSync, wsCfg config.WebSocketConfig) *WSHandler {
	ws := &WSHandler{
		hub:     h,
		service: svc,
		wsCfg:   wsCfg,
	}
	h.OnDisconnect(ws.handleDisconnect)
	return ws
}

// HandleWebSocket upgrades the connection and starts the client pumps.
// The catalog snapshot goes out immediately so a fresh client renders
// the room list without a round trip.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l := log.Ctx(c.Request.Context())
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(uuid.New().String(), h.hub, conn, h.wsCfg)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleFrame)

	ctx := context.Background()
	if catalog, err := h.service.ListRooms(ctx); err == nil {
		client.SendFrame(&domain.RoomsFrame{Type: domain.FrameRooms, Rooms: catalog})
	}
}

// PumpUpdates forwards snapshot updates from the core to connected
// clients: catalog snapshots reach everybody, room snapshots only the
// clients grouped into that room. Runs until ctx ends.
func (h *WSHandler) PumpUpdates(ctx context.Context) {
	updates := h.service.SubscribeUpdates("ws-fanout")
	defer h.service.Unsubscribe("ws-fanout")

	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			switch {
			case u.Rooms != nil:
				h.hub.BroadcastAll(&domain.RoomsFrame{Type: domain.FrameRooms, Rooms: u.Rooms})
			case u.Room != nil:
				h.hub.BroadcastToRoom(u.Room.ID, &domain.RoomStateFrame{Type: domain.FrameRoomState, Room: *u.Room}, "")
			}
		}
	}
}

func (h *WSHandler) handleFrame(client *hub.Client, message []byte) {
	var base domain.BaseFrame
	if err := json.Unmarshal(message, &base); err != nil {
		client.SendFrame(domain.NewErrorFrame("invalid frame format"))
		return
	}

	ctx := context.Background()

	switch base.Type {
	case domain.FrameJoin:
		var frame domain.JoinFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewErrorFrame("invalid join frame"))
			return
		}
		h.handleJoin(ctx, client, &frame)

	case domain.FrameLeave:
		h.handleLeave(ctx, client)

	case domain.FrameSend:
		var frame domain.SendFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			client.SendFrame(domain.NewErrorFrame("invalid send frame"))
			return
		}
		h.handleSend(ctx, client, &frame)

	case domain.FramePing:
		client.SendFrame(&domain.BaseFrame{Type: domain.FramePong})

	default:
		client.SendFrame(domain.NewErrorFrame("unknown frame type"))
	}
}

func (h *WSHandler) handleJoin(ctx context.Context, client *hub.Client, frame *domain.JoinFrame) {
	prevRoom, _, _, wasInRoom := client.Session.Current()

	participantID, err := h.service.JoinRoom(ctx, client.Session, frame.RoomID, frame.Name)
	if err != nil {
		if errors.Is(err, service.ErrJoinInFlight) {
			// Repeated tap. Swallow it.
			return
		}
		client.SendFrame(domain.NewErrorFrame(joinErrorText(err)))
		return
	}

	if wasInRoom {
		h.hub.LeaveRoom(client, prevRoom)
	}
	h.hub.JoinRoom(client, frame.RoomID)

	client.SendFrame(&domain.JoinedFrame{
		Type:          domain.FrameJoined,
		RoomID:        frame.RoomID,
		ParticipantID: participantID,
	})
	if room, err := h.service.GetRoom(ctx, frame.RoomID); err == nil {
		client.SendFrame(&domain.RoomStateFrame{Type: domain.FrameRoomState, Room: *room})
	}
}

func (h *WSHandler) handleLeave(ctx context.Context, client *hub.Client) {
	roomID, _, _, ok := client.Session.Current()
	if !ok {
		client.SendFrame(domain.NewErrorFrame("not in a room"))
		return
	}

	if err := h.service.LeaveRoom(ctx, client.Session); err != nil {
		client.SendFrame(domain.NewErrorFrame("failed to leave room"))
		return
	}

	h.hub.LeaveRoom(client, roomID)
	client.SendFrame(&domain.LeftFrame{Type: domain.FrameLeft, RoomID: roomID})
}

func (h *WSHandler) handleSend(ctx context.Context, client *hub.Client, frame *domain.SendFrame) {
	if _, err := h.service.SendMessage(ctx, client.Session, frame.Content); err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyContent):
			client.SendFrame(domain.NewErrorFrame("message must not be empty"))
		case errors.Is(err, service.ErrNotInRoom):
			client.SendFrame(domain.NewErrorFrame("join a room before sending messages"))
		default:
			client.SendFrame(domain.NewErrorFrame("failed to send message"))
		}
	}
}

// handleDisconnect runs on hub unregister: the participant record stays,
// its online flag flips to false.
func (h *WSHandler) handleDisconnect(client *hub.Client) {
	h.service.HandleDisconnect(context.Background(), client.Session)
}

func joinErrorText(err error) string {
	switch {
	case errors.Is(err, store.ErrRoomNotFound):
		return "room not found"
	case errors.Is(err, service.ErrEmptyName):
		return "name must not be empty"
	default:
		return "failed to join room"
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *WSHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/ws", h.HandleWebSocket)
}
