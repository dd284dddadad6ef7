package handler

import (
	"encoding/json"
	"net/http"

	"github.com/wheremyfriends/webapp/internal/api/middleware"
	"github.com/wheremyfriends/webapp/internal/api/request"
	"github.com/wheremyfriends/webapp/internal/api/response"
	"github.com/wheremyfriends/webapp/internal/services/prefs"
)

// PrefsHandler handles user config endpoints
type PrefsHandler struct {
	prefsService *prefs.Service
}

// NewPrefsHandler creates a new prefs handler
func NewPrefsHandler(prefsService *prefs.Service) *PrefsHandler {
	return &PrefsHandler{
		prefsService: prefsService,
	}
}

// GetConfig handles GET /api/v1/users/{id}/config
func (h *PrefsHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	data, err := h.prefsService.Get(r.Context(), roomQuery(r), id, caller)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ConfigResponse{Data: data})
}

// UpdateConfig handles PUT /api/v1/users/{id}/config
func (h *PrefsHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.prefsService.Update(r.Context(), roomQuery(r), id, req.Data, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
