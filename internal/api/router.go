package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wheremyfriends/webapp/internal/api/handler"
	"github.com/wheremyfriends/webapp/internal/api/middleware"
	"github.com/wheremyfriends/webapp/internal/api/response"
	"github.com/wheremyfriends/webapp/internal/services/auth"
	"github.com/wheremyfriends/webapp/internal/services/prefs"
	"github.com/wheremyfriends/webapp/internal/services/roster"
	"github.com/wheremyfriends/webapp/internal/services/subscription"
	"github.com/wheremyfriends/webapp/internal/services/timetable"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger              *slog.Logger
	AuthService         *auth.Service
	RosterService       *roster.Service
	TimetableService    *timetable.Service
	PrefsService        *prefs.Service
	SubscriptionService *subscription.Service
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	authHandler := handler.NewAuthHandler(cfg.AuthService)
	rosterHandler := handler.NewRosterHandler(cfg.RosterService)
	timetableHandler := handler.NewTimetableHandler(cfg.TimetableService)
	prefsHandler := handler.NewPrefsHandler(cfg.PrefsService)
	streamHandler := handler.NewStreamHandler(cfg.SubscriptionService)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Auth routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	authRequired := api.PathPrefix("/auth").Subrouter()
	authRequired.Use(authMiddleware)
	authRequired.HandleFunc("/me", authHandler.Me).Methods(http.MethodGet)

	// Room routes; anonymous callers are first-class, so auth is optional
	// and the guard decides per operation
	rooms := api.PathPrefix("/rooms/{room}").Subrouter()
	rooms.Use(optionalAuthMiddleware)
	rooms.HandleFunc("/users", rosterHandler.CreateUser).Methods(http.MethodPost)
	rooms.HandleFunc("/users", rosterHandler.ListMembers).Methods(http.MethodGet)
	rooms.HandleFunc("/users/{id}", rosterHandler.UpdateUser).Methods(http.MethodPatch)
	rooms.HandleFunc("/users/{id}", rosterHandler.DeleteUser).Methods(http.MethodDelete)
	rooms.HandleFunc("/lessons", timetableHandler.ListLessons).Methods(http.MethodGet)
	rooms.HandleFunc("/lessons/stream", streamHandler.Lessons).Methods(http.MethodGet)
	rooms.HandleFunc("/members/stream", streamHandler.Members).Methods(http.MethodGet)

	// Joining a room requires an account
	join := api.PathPrefix("/rooms/{room}/join").Subrouter()
	join.Use(authMiddleware)
	join.HandleFunc("", rosterHandler.Join).Methods(http.MethodPost)

	// User-scoped routes carry optional ?room= context for the guard
	users := api.PathPrefix("/users/{id}").Subrouter()
	users.Use(optionalAuthMiddleware)
	users.HandleFunc("/rooms", rosterHandler.Rooms).Methods(http.MethodGet)
	users.HandleFunc("/lessons", timetableHandler.CreateLesson).Methods(http.MethodPost)
	users.HandleFunc("/lessons", timetableHandler.DeleteLesson).Methods(http.MethodDelete)
	users.HandleFunc("/semesters/{semester}", timetableHandler.ResetTimetable).Methods(http.MethodDelete)
	users.HandleFunc("/semesters/{semester}/modules/{code}", timetableHandler.DeleteModule).Methods(http.MethodDelete)
	users.HandleFunc("/config", prefsHandler.GetConfig).Methods(http.MethodGet)
	users.HandleFunc("/config", prefsHandler.UpdateConfig).Methods(http.MethodPut)
	users.HandleFunc("/config/stream", streamHandler.Config).Methods(http.MethodGet)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Status: "ok"})
}
