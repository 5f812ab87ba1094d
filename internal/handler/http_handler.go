package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/johnrodneybargayo/gabay-rooms/internal/domain"
	"github.com/johnrodneybargayo/gabay-rooms/internal/repository"
	"github.com/johnrodneybargayo/gabay-rooms/internal/service"
	"github.com/johnrodneybargayo/gabay-rooms/internal/store"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/log"
	"github.com/johnrodneybargayo/gabay-rooms/pkg/response"
)

// Handler handles the non-realtime HTTP surface.
type Handler struct {
	roomService service.RoomSync
	archive     repository.ArchiveRepository
}

// NewHandler creates a new HTTP handler. archive may be nil when the
// durable archive is disabled.
func NewHandler(roomService service.RoomSync, archive repository.ArchiveRepository) *Handler {
	return &Handler{
		roomService: roomService,
		archive:     archive,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		rooms := api.Group("/rooms")
		{
			rooms.GET("", h.ListRooms)
			rooms.GET("/:id", h.GetRoom)
			rooms.POST("", h.CreateRoom)
			rooms.GET("/:id/history", h.GetRoomHistory)
		}
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// ListRooms returns the full room catalog snapshot.
func (h *Handler) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	catalog, err := h.roomService.ListRooms(ctx)
	if err != nil {
		l.Error().Err(err).Msg("failed to list rooms")
		response.InternalError(c, "failed to list rooms")
		return
	}

	response.Success(c, catalog)
}

// GetRoom returns one room's full snapshot.
func (h *Handler) GetRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	roomID := c.Param("id")

	room, err := h.roomService.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			response.NotFound(c, "room not found")
			return
		}
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to get room")
		response.InternalError(c, "failed to get room")
		return
	}

	response.Success(c, room)
}

// CreateRoom creates a new room and returns its id.
func (h *Handler) CreateRoom(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create room request")
		response.BadRequest(c, err.Error())
		return
	}

	roomID, err := h.roomService.CreateRoom(ctx, &req)
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) || errors.Is(err, service.ErrEmptyDescription) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).Msg("failed to create room")
		response.InternalError(c, "failed to create room")
		return
	}

	response.Created(c, domain.CreateRoomResponse{RoomID: roomID})
}

// GetRoomHistory returns archived messages for a room.
func (h *Handler) GetRoomHistory(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	if h.archive == nil {
		response.NotFound(c, "message archive is disabled")
		return
	}

	roomID := c.Param("id")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	messages, total, err := h.archive.GetRoomHistory(ctx, roomID, page, pageSize)
	if err != nil {
		l.Error().Err(err).Str(log.FieldRoomID, roomID).Msg("failed to load room history")
		response.InternalError(c, "failed to load room history")
		return
	}

	response.Success(c, gin.H{
		"room_id":   roomID,
		"messages":  messages,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
