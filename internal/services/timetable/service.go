package timetable

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Service handles lesson and module mutations. Writes go through the
// bounded upsert retry; every successful mutation fans out one event to all
// rooms the owner currently belongs to.
type Service struct {
	storage  storage.Store
	guard    *guard.Service
	exchange *bus.Exchange
	logger   *slog.Logger

	maxUpsertAttempts int
}

// Config holds configuration for the timetable service
type Config struct {
	// MaxUpsertAttempts caps retries of the module upsert when two callers
	// race to create the same module
	MaxUpsertAttempts int
}

// DefaultConfig returns default timetable configuration
func DefaultConfig() Config {
	return Config{
		MaxUpsertAttempts: 5,
	}
}

// New creates a new timetable Service
func New(storage storage.Store, guard *guard.Service, exchange *bus.Exchange, cfg Config, logger *slog.Logger) *Service {
	if cfg.MaxUpsertAttempts == 0 {
		cfg.MaxUpsertAttempts = DefaultConfig().MaxUpsertAttempts
	}
	return &Service{
		storage:           storage,
		guard:             guard,
		exchange:          exchange,
		logger:            logger.With(slog.String("component", "timetable-service")),
		maxUpsertAttempts: cfg.MaxUpsertAttempts,
	}
}

// CreateLesson attaches a lesson to its module, creating the module first if
// needed. Two concurrent callers may race to create the same module; the
// losing writer observes a contention conflict and the whole upsert is
// retried, which then finds the module present and attaches via the update
// branch. Retries are capped; exhaustion returns ErrContentionExceeded.
// Conflicts other than the module-creation race propagate immediately.
func (s *Service) CreateLesson(ctx context.Context, uri model.RoomURI, lesson model.Lesson, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, lesson.OwnerID, caller); err != nil {
		return err
	}

	for attempt := 1; ; attempt++ {
		err := s.storage.UpsertModuleLesson(ctx, lesson)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrContention) {
			return err
		}
		if attempt >= s.maxUpsertAttempts {
			s.logger.Warn("module upsert retries exhausted",
				slog.Int64("owner", int64(lesson.OwnerID)),
				slog.String("module", lesson.ModuleCode),
				slog.Int("attempts", attempt))
			return model.ErrContentionExceeded
		}
		s.logger.Debug("module upsert contention, retrying",
			slog.String("module", lesson.ModuleCode),
			slog.Int("attempt", attempt))
	}

	return s.fanOut(ctx, lesson.OwnerID, model.CreateLessonEvent(lesson))
}

// DeleteLesson removes a lesson. Deleting a lesson that does not exist is
// not an error; the event is published either way, as deletes are driven by
// client state that may be ahead of the store.
func (s *Service) DeleteLesson(ctx context.Context, uri model.RoomURI, lesson model.Lesson, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, lesson.OwnerID, caller); err != nil {
		return err
	}

	if err := s.storage.DeleteLesson(ctx, lesson); err != nil {
		return err
	}

	return s.fanOut(ctx, lesson.OwnerID, model.LessonEvent{
		Action:     model.ActionDeleteLesson,
		UserID:     lesson.OwnerID,
		Semester:   lesson.Semester,
		ModuleCode: lesson.ModuleCode,
		LessonType: lesson.LessonType,
		ClassNo:    lesson.ClassNo,
	})
}

// DeleteModule removes a module and all its lessons, publishing a single
// module-level event rather than one per removed lesson.
func (s *Service) DeleteModule(ctx context.Context, uri model.RoomURI, key model.ModuleKey, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, key.OwnerID, caller); err != nil {
		return err
	}

	if err := s.storage.DeleteModule(ctx, key); err != nil {
		return err
	}

	return s.fanOut(ctx, key.OwnerID, model.LessonEvent{
		Action:     model.ActionDeleteModule,
		UserID:     key.OwnerID,
		Semester:   key.Semester,
		ModuleCode: key.ModuleCode,
	})
}

// ResetTimetable clears every module the owner has in the semester
func (s *Service) ResetTimetable(ctx context.Context, uri model.RoomURI, owner model.UserID, semester int, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, owner, caller); err != nil {
		return err
	}

	if err := s.storage.DeleteSemester(ctx, owner, semester); err != nil {
		return err
	}

	return s.fanOut(ctx, owner, model.LessonEvent{
		Action:   model.ActionResetTimetable,
		UserID:   owner,
		Semester: semester,
	})
}

// Lessons lists every lesson owned by the room's members
func (s *Service) Lessons(ctx context.Context, uri model.RoomURI) ([]model.Lesson, error) {
	return s.storage.ListLessons(ctx, storage.LessonFilter{RoomURI: uri})
}

// fanOut publishes the event to every room the owner is currently a member
// of, so all rooms sharing the owner's timetable see the change.
func (s *Service) fanOut(ctx context.Context, owner model.UserID, event model.LessonEvent) error {
	rooms, err := s.storage.ListRoomsForUser(ctx, owner)
	if err != nil {
		return err
	}
	for _, uri := range rooms {
		s.exchange.Lessons.Publish(uri, event)
	}
	return nil
}
