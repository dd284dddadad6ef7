package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wheremyfriends/webapp/internal/api/middleware"
	"github.com/wheremyfriends/webapp/internal/api/request"
	"github.com/wheremyfriends/webapp/internal/api/response"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/timetable"
)

// TimetableHandler handles lesson and module endpoints
type TimetableHandler struct {
	timetableService *timetable.Service
}

// NewTimetableHandler creates a new timetable handler
func NewTimetableHandler(timetableService *timetable.Service) *TimetableHandler {
	return &TimetableHandler{
		timetableService: timetableService,
	}
}

func (h *TimetableHandler) decodeLesson(r *http.Request) (model.Lesson, error) {
	id, err := userIDVar(r)
	if err != nil {
		return model.Lesson{}, err
	}

	var req request.LessonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Lesson{}, NewInvalidRequestError("invalid request body")
	}
	if req.ModuleCode == "" || req.LessonType == "" || req.ClassNo == "" {
		return model.Lesson{}, NewInvalidRequestError("moduleCode, lessonType and classNo are required")
	}

	return model.Lesson{
		OwnerID:    id,
		Semester:   req.Semester,
		ModuleCode: req.ModuleCode,
		LessonType: req.LessonType,
		ClassNo:    req.ClassNo,
	}, nil
}

// ListLessons handles GET /api/v1/rooms/{room}/lessons
func (h *TimetableHandler) ListLessons(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.timetableService.Lessons(r.Context(), roomVar(r))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LessonsFromModel(lessons))
}

// CreateLesson handles POST /api/v1/users/{id}/lessons
func (h *TimetableHandler) CreateLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.decodeLesson(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.timetableService.CreateLesson(r.Context(), roomQuery(r), lesson, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.LessonFromModel(lesson))
}

// DeleteLesson handles DELETE /api/v1/users/{id}/lessons
// The lesson to delete is identified by the request body
func (h *TimetableHandler) DeleteLesson(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.decodeLesson(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.timetableService.DeleteLesson(r.Context(), roomQuery(r), lesson, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// DeleteModule handles DELETE /api/v1/users/{id}/semesters/{semester}/modules/{code}
func (h *TimetableHandler) DeleteModule(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	semester, err := semesterVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	key := model.ModuleKey{
		OwnerID:    id,
		Semester:   semester,
		ModuleCode: mux.Vars(r)["code"],
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.timetableService.DeleteModule(r.Context(), roomQuery(r), key, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}

// ResetTimetable handles DELETE /api/v1/users/{id}/semesters/{semester}
func (h *TimetableHandler) ResetTimetable(w http.ResponseWriter, r *http.Request) {
	id, err := userIDVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	semester, err := semesterVar(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	caller := middleware.GetAccount(r.Context())
	if err := h.timetableService.ResetTimetable(r.Context(), roomQuery(r), id, semester, caller); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
