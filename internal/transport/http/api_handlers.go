package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/kvchat/internal/core"
	"github.com/vovakirdan/kvchat/internal/state"
)

// APIHandlers provides HTTP handlers for the local UI gateway.
type APIHandlers struct {
	session *core.Session
	state   state.Store
	log     *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(session *core.Session, st state.Store, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		session: session,
		state:   st,
		log:     logger,
	}
}

// SendRequest represents the send message request body.
type SendRequest struct {
	Body string `json:"body"`
}

// ShareRequest represents the share file request body.
type ShareRequest struct {
	Name string `json:"name" binding:"required"`
	Size string `json:"size"`
	Link string `json:"link" binding:"required"`
}

// JoinRoomRequest represents the join room request body.
type JoinRoomRequest struct {
	ID    int64  `json:"id" binding:"required"`
	Title string `json:"title"`
}

// UsernameRequest represents the username update request body.
type UsernameRequest struct {
	Username string `json:"username" binding:"required,min=1,max=64"`
}

// RoomResponse represents a room in API responses.
type RoomResponse struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Status reports the session binding.
// GET /api/status
func (h *APIHandlers) Status(c *gin.Context) {
	out := statusOutbound(h.session)
	c.JSON(http.StatusOK, out.Status)
}

// Messages returns the current published view of the bound room.
// GET /api/messages
func (h *APIHandlers) Messages(c *gin.Context) {
	room, ok := h.session.Room()
	if !ok {
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no room bound"})
		return
	}
	out := snapshotOutbound(room.ID, h.session.Messages())
	c.JSON(http.StatusOK, out.Snapshot)
}

// Send writes a message to the bound room.
// POST /api/messages
func (h *APIHandlers) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.session.Send(c.Request.Context(), req.Body); err != nil {
		h.writeSendError(c, err)
		return
	}

	// The message becomes visible on the next poll tick; nothing to echo.
	c.Status(http.StatusAccepted)
}

// Share writes a file-share message to the bound room.
// POST /api/share
func (h *APIHandlers) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid share request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	file := core.FileShare{Name: req.Name, Size: req.Size, Link: req.Link}
	if err := h.session.ShareFile(c.Request.Context(), file); err != nil {
		h.writeSendError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// ListRooms returns the locally bookmarked rooms.
// GET /api/rooms
func (h *APIHandlers) ListRooms(c *gin.Context) {
	rooms, err := h.state.ListRooms(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	resp := make([]RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		resp = append(resp, RoomResponse{ID: r.ID, Title: r.Title})
	}
	c.JSON(http.StatusOK, resp)
}

// CreateRoom creates a fresh room, bookmarks it and switches to it.
// POST /api/rooms
func (h *APIHandlers) CreateRoom(c *gin.Context) {
	room, err := h.session.CreateRoom(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to create room")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "room creation failed"})
		return
	}

	if err := h.state.SaveRoom(c.Request.Context(), state.SavedRoom{ID: room.ID, Title: room.Title}); err != nil {
		h.log.Warn().Err(err).Int64("room_id", room.ID).Msg("failed to bookmark room")
	}

	h.log.Info().Int64("room_id", room.ID).Msg("room created")
	c.JSON(http.StatusCreated, RoomResponse{ID: room.ID, Title: room.Title})
}

// JoinRoom binds to an existing room id and bookmarks it. There is no
// existence check: an empty room simply yields an empty view.
// POST /api/rooms/join
func (h *APIHandlers) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid join request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	room, err := h.session.JoinRoom(req.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("room_id", req.ID).Msg("failed to join room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if req.Title != "" {
		room.Title = req.Title
	}

	if err := h.state.SaveRoom(c.Request.Context(), state.SavedRoom{ID: room.ID, Title: room.Title}); err != nil {
		h.log.Warn().Err(err).Int64("room_id", room.ID).Msg("failed to bookmark room")
	}

	c.JSON(http.StatusOK, RoomResponse{ID: room.ID, Title: room.Title})
}

// SwitchRoom rebinds the session to a bookmarked room.
// POST /api/rooms/switch
func (h *APIHandlers) SwitchRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid switch request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	title := req.Title
	if title == "" {
		rooms, err := h.state.ListRooms(c.Request.Context())
		if err == nil {
			for _, r := range rooms {
				if r.ID == req.ID {
					title = r.Title
					break
				}
			}
		}
	}

	room := core.Room{ID: req.ID, Title: title}
	if err := h.session.SwitchRoom(room); err != nil {
		h.log.Error().Err(err).Int64("room_id", req.ID).Msg("failed to switch room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, RoomResponse{ID: room.ID, Title: room.Title})
}

// RemoveRoom drops a room from the local bookmark list. The store partition
// itself is never destroyed.
// DELETE /api/rooms/:id
func (h *APIHandlers) RemoveRoom(c *gin.Context) {
	var uri struct {
		ID int64 `uri:"id" binding:"required"`
	}
	if err := c.ShouldBindUri(&uri); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room id"})
		return
	}

	if err := h.state.RemoveRoom(c.Request.Context(), uri.ID); err != nil {
		h.log.Error().Err(err).Int64("room_id", uri.ID).Msg("failed to remove room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Username returns the persisted display name.
// GET /api/username
func (h *APIHandlers) Username(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"username": h.session.Username()})
}

// SetUsername updates the display name, persists it and announces the
// change to the bound room.
// PUT /api/username
func (h *APIHandlers) SetUsername(c *gin.Context) {
	var req UsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid username request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.session.ChangeUsername(c.Request.Context(), req.Username); err != nil {
		h.writeSendError(c, err)
		return
	}

	if err := h.state.SetUsername(c.Request.Context(), req.Username); err != nil {
		h.log.Warn().Err(err).Msg("failed to persist username")
	}
	c.JSON(http.StatusOK, gin.H{"username": req.Username})
}

func (h *APIHandlers) writeSendError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "message is empty"})
	case errors.Is(err, core.ErrNotConnected):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no room bound"})
	case errors.Is(err, core.ErrSessionClosed):
		c.JSON(http.StatusGone, ErrorResponse{Error: "session closed"})
	default:
		h.log.Error().Err(err).Msg("store write failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "send failed, try again"})
	}
}
