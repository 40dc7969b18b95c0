package roomhandler

import "classcodego/internal/services/room"

type CreateRoomBody struct {
	TeacherID               string `json:"teacherId" binding:"required"     example:"teacher-1"`
	StudentCursorEnabled    *bool  `json:"studentCursorEnabled,omitempty"`
	StudentEditCodeEnabled  *bool  `json:"studentEditCodeEnabled,omitempty"`
	StudentSelectionEnabled *bool  `json:"studentSelectionEnabled,omitempty"`
	TaskID                  string `json:"taskId,omitempty"                 example:"task-42"`
	Language                string `json:"language,omitempty"               example:"javascript"`
} // @name CreateRoomRequest

type UpdateRoomBody struct {
	UserID                  string  `json:"userId" binding:"required" example:"teacher-1"`
	StudentCursorEnabled    *bool   `json:"studentCursorEnabled,omitempty"`
	StudentEditCodeEnabled  *bool   `json:"studentEditCodeEnabled,omitempty"`
	StudentSelectionEnabled *bool   `json:"studentSelectionEnabled,omitempty"`
	TaskID                  *string `json:"taskId,omitempty"`
	Language                *string `json:"language,omitempty"`
} // @name UpdateRoomRequest

type ListRoomsQuery struct {
	UserID string `form:"user_id" binding:"required"`
	Page   int    `form:"page,default=1"   binding:"gte=1"`
	Limit  int    `form:"limit,default=10" binding:"gte=0,lte=100"`
} // @name ListRoomsQuery

type ListRoomsResponse struct {
	Rooms []room.RoomDTO `json:"rooms"`
	Total int            `json:"total"`
} // @name ListRoomsResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
