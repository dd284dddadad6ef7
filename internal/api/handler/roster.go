package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wheremyfriends/webapp/internal/api/middleware"
	"github.com/wheremyfriends/webapp/internal/api/request"
	"github.com/wheremyfriends/webapp/internal/api/response"
	"github.com/wheremyfriends/webapp/internal/services/roster"
)

// RosterHandler handles room membership endpoints
type RosterHandler struct {
	rosterService *roster.Service
}

// NewRosterHandler creates a new roster handler
func NewRosterHandler(rosterService *roster.Service) *RosterHandler {
	return &RosterHandler{
		rosterService: rosterService,
	}
}

// CreateUser handles POST /api/v1/rooms/{room}/users
// Creates a new anonymous user with a generated name
func (h *RosterHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	member, err := h.rosterService.CreateUser(r.Context(), roomVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MemberFromModel(member))
}

// ListMembers handles GET /api/v1/rooms/{room}/users
func (h *RosterHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.rosterService.Members(r.Context(), roomVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MembersFromModel(members))
}

// UpdateUser handles PATCH /api/v1/rooms/{room}/users/{id}
func (h *RosterHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}
	if req.Name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	caller := middleware.GetAccount(r.Context())
	member, err := h.rosterService.UpdateUser(r.Context(), roomVar(r), id, req.Name, caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.MemberFromModel(member))
}

// DeleteUser handles DELETE /api/v1/rooms/{room}/users/{id}
// Anonymous users are destroyed; authenticated users just leave the room
func (h *RosterHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.rosterService.DeleteUser(r.Context(), roomVar(r), id, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// Join handles POST /api/v1/rooms/{room}/join
func (h *RosterHandler) Join(w http.ResponseWriter, r *http.Request) {
	caller := middleware.MustGetAccount(r.Context())
	member, err := h.rosterService.JoinRoom(r.Context(), roomVar(r), caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.MemberFromModel(member))
}

// Rooms handles GET /api/v1/users/{id}/rooms
func (h *RosterHandler) Rooms(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	rooms, err := h.rosterService.Rooms(r.Context(), id, caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.RoomsFromModel(rooms))
}
