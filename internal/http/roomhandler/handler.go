package roomhandler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"classcodego/internal/services/room"
)

type Handler struct {
	svc room.IRoomService
}

func New(svc room.IRoomService) *Handler { return &Handler{svc: svc} }

func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/rooms", h.list)
	r.GET("/rooms/:id", h.info)
	r.POST("/rooms", h.create)
	r.PATCH("/rooms/:id", h.update)
	r.DELETE("/rooms/:id", h.remove)
}

// @Summary		Get room details
// @Description	Returns the durable record of a single room.
// @Tags			Rooms
// @Param			id	path		string	true	"Room ID"	default(room123)
// @Success		200	{object}	room.RoomDTO
// @Failure		404	{object}	ErrorResponse
// @Router			/rooms/{id} [get]
func (h *Handler) info(c *gin.Context) {
	dto, err := h.svc.FindByID(c, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto)
}

// @Summary		List rooms for a participant
// @Description	Retrieves a paginated list of rooms the user teaches or attends.
// @Tags			Rooms
// @Param			user_id	query		string	true	"Participant identity"
// @Param			page	query		int		false	"Page (1-based)"	minimum(1)	default(1)
// @Param			limit	query		int		false	"Max results (0-100)"	minimum(0)	maximum(100)	default(10)
// @Success		200		{object}	ListRoomsResponse
// @Failure		400		{object}	ErrorResponse
// @Failure		500		{object}	ErrorResponse
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	var q ListRoomsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	rooms, total, err := h.svc.ListForParticipant(c, q.UserID, q.Page, q.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ListRoomsResponse{Rooms: rooms, Total: total})
}

// @Summary		Create a room
// @Description	Teacher creates a classroom room; unset toggles default to enabled.
// @Tags			Rooms
// @Param			body	body		CreateRoomBody	true	"Room payload"
// @Success		201		{object}	room.RoomDTO
// @Failure		400		{object}	ErrorResponse
// @Router			/rooms [post]
func (h *Handler) create(ginCtx *gin.Context) {
	var body CreateRoomBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.svc.Create(ginCtx.Request.Context(), room.CreateRoomParams{
		TeacherID:               body.TeacherID,
		StudentCursorEnabled:    body.StudentCursorEnabled,
		StudentEditCodeEnabled:  body.StudentEditCodeEnabled,
		StudentSelectionEnabled: body.StudentSelectionEnabled,
		TaskID:                  body.TaskID,
		Language:                body.Language,
	})
	if err != nil {
		ginCtx.JSON(http.StatusInternalServerError, &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusCreated, dto)
}

// @Summary		Update a room
// @Description	Owner applies a partial update; omitted fields keep their value.
// @Tags			Rooms
// @Param			id		path	string			true	"Room ID"	default(room123)
// @Param			body	body	UpdateRoomBody	true	"Partial update"
// @Success		200	{object}	room.RoomDTO
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/rooms/{id} [patch]
func (h *Handler) update(ginCtx *gin.Context) {
	var body UpdateRoomBody
	if err := ginCtx.ShouldBindJSON(&body); err != nil {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: err.Error()})
		return
	}

	dto, err := h.svc.Update(ginCtx.Request.Context(), ginCtx.Param("id"), body.UserID,
		room.UpdateRoomParams{
			StudentCursorEnabled:    body.StudentCursorEnabled,
			StudentEditCodeEnabled:  body.StudentEditCodeEnabled,
			StudentSelectionEnabled: body.StudentSelectionEnabled,
			TaskID:                  body.TaskID,
			Language:                body.Language,
		})
	if err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.JSON(http.StatusOK, dto)
}

// @Summary		Delete a room
// @Description	Owner deletes a room and its persisted document.
// @Tags			Rooms
// @Param			id		path	string	true	"Room ID"	default(room123)
// @Param			user_id	query	string	true	"Owner identity"
// @Success		204
// @Failure		403	{object}	ErrorResponse
// @Failure		404	{object}	ErrorResponse
// @Router			/rooms/{id} [delete]
func (h *Handler) remove(ginCtx *gin.Context) {
	ownerID := ginCtx.Query("user_id")
	if ownerID == "" {
		ginCtx.JSON(http.StatusBadRequest, &ErrorResponse{Error: "user_id is required"})
		return
	}
	if err := h.svc.Delete(ginCtx.Request.Context(), ginCtx.Param("id"), ownerID); err != nil {
		ginCtx.JSON(statusFor(err), &ErrorResponse{Error: err.Error()})
		return
	}
	ginCtx.Status(http.StatusNoContent)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, room.ErrNotOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
