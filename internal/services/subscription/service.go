package subscription

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/services/roster"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Service produces the live streams clients subscribe to. Each stream
// registers on the bus before reading its snapshot, then emits the snapshot
// as synthetic create events followed by live events. An event that lands
// between registration and the snapshot read can therefore be delivered
// twice, but never lost.
type Service struct {
	storage  storage.Store
	exchange *bus.Exchange
	roster   *roster.Service
	guard    *guard.Service
	logger   *slog.Logger
}

// New creates a new subscription Service
func New(storage storage.Store, exchange *bus.Exchange, roster *roster.Service, guard *guard.Service, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		exchange: exchange,
		roster:   roster,
		guard:    guard,
		logger:   logger.With(slog.String("component", "subscription-service")),
	}
}

// Lessons streams lesson events for a room: a CREATE_LESSON event per lesson
// currently owned by the room's members, then live changes. The stream ends
// when ctx is cancelled.
func (s *Service) Lessons(ctx context.Context, uri model.RoomURI) (<-chan model.LessonEvent, error) {
	sub := s.exchange.Lessons.Subscribe(uri)

	snapshot, err := s.storage.ListLessons(ctx, storage.LessonFilter{RoomURI: uri})
	if err != nil {
		sub.Close()
		return nil, err
	}

	events := make([]model.LessonEvent, 0, len(snapshot))
	for _, lesson := range snapshot {
		events = append(events, model.CreateLessonEvent(lesson))
	}

	return runStream(ctx, sub, events), nil
}

// Members streams membership events for a room. Subscribing to a room that
// does not exist yet first creates it with one generated anonymous member,
// so a fresh room's snapshot is never empty.
func (s *Service) Members(ctx context.Context, uri model.RoomURI) (<-chan model.MemberEvent, error) {
	sub := s.exchange.Members.Subscribe(uri)

	exists, err := s.storage.RoomExists(ctx, uri)
	if err != nil {
		sub.Close()
		return nil, err
	}
	if !exists {
		if _, err := s.roster.CreateUser(ctx, uri); err != nil {
			sub.Close()
			return nil, err
		}
		s.logger.Info("seeded fresh room on subscribe", slog.String("room", string(uri)))
	}

	snapshot, err := s.storage.ListMembers(ctx, uri)
	if err != nil {
		sub.Close()
		return nil, err
	}

	events := make([]model.MemberEvent, 0, len(snapshot))
	for _, member := range snapshot {
		events = append(events, model.MemberEvent{
			Action: model.ActionCreateUser,
			UserID: member.UserID,
			Name:   member.Name,
			IsAuth: member.IsAuth,
		})
	}

	return runStream(ctx, sub, events), nil
}

// Config streams a user's config blob: the current value if one exists,
// then live updates. Access follows the same rules as config mutations.
func (s *Service) Config(ctx context.Context, uri model.RoomURI, id model.UserID, caller *model.Account) (<-chan string, error) {
	if err := s.guard.Authorize(ctx, uri, id, caller); err != nil {
		return nil, err
	}

	sub := s.exchange.Configs.Subscribe(id)

	var events []string
	current, err := s.storage.GetConfig(ctx, id)
	switch {
	case err == nil:
		events = []string{current}
	case errors.Is(err, model.ErrNotFound):
		// No stored config yet, stream starts with live updates only
	default:
		sub.Close()
		return nil, err
	}

	return runStream(ctx, sub, events), nil
}

// runStream forwards the snapshot then the live subscription to the
// returned channel until ctx is cancelled or the bus closes the
// subscription. Either way the subscriber is deregistered and the output
// channel closed.
func runStream[P any](ctx context.Context, sub *bus.Subscription[P], snapshot []P) <-chan P {
	out := make(chan P)
	go func() {
		defer close(out)
		defer sub.Close()

		for _, event := range snapshot {
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case event, ok := <-sub.C():
				if !ok {
					return
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
