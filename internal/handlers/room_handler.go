package handlers

import (
	"net/http"
	"strconv"

	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/application"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/domain"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/middleware"
	"github.com/SARVESHVARADKAR123/RealChat/rooms/internal/transport"
	"github.com/go-chi/chi/v5"
)

// RoomHandler serves the room directory and history routes.
type RoomHandler struct {
	svc          *application.Service
	historyLimit int
}

func NewRoomHandler(svc *application.Service, historyLimit int) *RoomHandler {
	return &RoomHandler{svc: svc, historyLimit: historyLimit}
}

type createRoomRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type roomResponse struct {
	domain.RoomSummary
	InviteCode string `json:"invite_code,omitempty"`
}

func newRoomResponse(room *domain.Room, withCode bool) roomResponse {
	resp := roomResponse{RoomSummary: room.Summary()}
	if withCode {
		resp.InviteCode = room.InviteCode
	}
	return resp
}

// CreatePrivateRoom POST /api/rooms
func (h *RoomHandler) CreatePrivateRoom(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.RoomPrivate)
}

// CreatePublicRoom POST /api/rooms/public
func (h *RoomHandler) CreatePublicRoom(w http.ResponseWriter, r *http.Request) {
	h.create(w, r, domain.RoomPublic)
}

func (h *RoomHandler) create(w http.ResponseWriter, r *http.Request, kind domain.RoomKind) {
	var req createRoomRequest
	if !decode(w, r, &req) {
		return
	}

	room, err := h.svc.CreateRoom(r.Context(), middleware.UserID(r.Context()), req.Name, kind)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusCreated, newRoomResponse(room, true))
}

// JoinPrivateRoom POST /api/rooms/join
func (h *RoomHandler) JoinPrivateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	room, err := h.svc.JoinByCode(r.Context(), middleware.UserID(r.Context()), req.Code)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, newRoomResponse(room, false))
}

// JoinPublicRoom POST /api/rooms/public/join
func (h *RoomHandler) JoinPublicRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomID string `json:"room_id" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	room, err := h.svc.JoinPublic(r.Context(), middleware.UserID(r.Context()), req.RoomID)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, newRoomResponse(room, false))
}

// ListPublicRooms GET /api/rooms/public
func (h *RoomHandler) ListPublicRooms(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": h.svc.ListPublicRooms(),
	})
}

// MyPrivateRooms GET /api/rooms/mine
func (h *RoomHandler) MyPrivateRooms(w http.ResponseWriter, r *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"rooms": h.svc.MyPrivateRooms(middleware.UserID(r.Context())),
	})
}

// LeaveRoom POST /api/rooms/{roomID}/leave
func (h *RoomHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LeaveRoom(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "roomID")); err != nil {
		transport.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRoom DELETE /api/rooms/{roomID}
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRoom(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "roomID")); err != nil {
		transport.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RoomMembers GET /api/rooms/{roomID}/members
func (h *RoomHandler) RoomMembers(w http.ResponseWriter, r *http.Request) {
	details, err := h.svc.RoomMembers(r.Context(), middleware.UserID(r.Context()), chi.URLParam(r, "roomID"))
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, details)
}

// History GET /api/rooms/{roomID}/messages?limit=
func (h *RoomHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			transport.WriteError(w, http.StatusBadRequest, "invalid_argument", "limit must be a positive integer")
			return
		}
		limit = n
	}

	roomID := chi.URLParam(r, "roomID")
	msgs, err := h.svc.History(r.Context(), middleware.UserID(r.Context()), roomID, limit)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"room_id":  roomID,
		"messages": msgs,
	})
}
