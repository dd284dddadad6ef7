package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wheremyfriends/webapp/internal/model"
)

// roomVar extracts the {room} path variable
func roomVar(r *http.Request) model.RoomURI {
	return model.RoomURI(mux.Vars(r)["room"])
}

// roomQuery extracts the optional ?room= context for user-scoped routes
func roomQuery(r *http.Request) model.RoomURI {
	return model.RoomURI(r.URL.Query().Get("room"))
}

// userIDVar extracts the {id} path variable as a user id
func userIDVar(r *http.Request) (model.UserID, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, NewInvalidRequestError("user id must be an integer")
	}
	return model.UserID(id), nil
}

// semesterVar extracts the {semester} path variable
func semesterVar(r *http.Request) (int, error) {
	raw := mux.Vars(r)["semester"]
	semester, err := strconv.Atoi(raw)
	if err != nil {
		return 0, NewInvalidRequestError("semester must be an integer")
	}
	return semester, nil
}
