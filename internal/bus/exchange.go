package bus

import (
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/model"
)

// Exchange bundles the three event buses the app fans changes out on:
// timetable edits and membership changes per room, and config updates
// per user.
type Exchange struct {
	Lessons *Bus[model.RoomURI, model.LessonEvent]
	Members *Bus[model.RoomURI, model.MemberEvent]
	Configs *Bus[model.UserID, string]
}

// NewExchange creates an Exchange with all buses ready.
func NewExchange(logger *slog.Logger) *Exchange {
	return &Exchange{
		Lessons: New[model.RoomURI, model.LessonEvent](logger.With(slog.String("bus", "lessons"))),
		Members: New[model.RoomURI, model.MemberEvent](logger.With(slog.String("bus", "members"))),
		Configs: New[model.UserID, string](logger.With(slog.String("bus", "configs"))),
	}
}

// Close shuts down every bus.
func (e *Exchange) Close() {
	e.Lessons.Close()
	e.Members.Close()
	e.Configs.Close()
}
