package roster

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/dependencies/random"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// ErrNameGeneration is returned when no free display name could be found
// for a new anonymous user
var ErrNameGeneration = errors.New("failed to create user")

// maxNameTries bounds how many generated names are attempted before giving up
const maxNameTries = 10

// Service handles room membership: anonymous user creation, renames,
// deletion/leaving, and joining rooms with an account.
type Service struct {
	storage  storage.Store
	guard    *guard.Service
	exchange *bus.Exchange
	random   random.Random
	logger   *slog.Logger
}

// New creates a new roster Service
func New(storage storage.Store, guard *guard.Service, exchange *bus.Exchange, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		guard:    guard,
		exchange: exchange,
		random:   random,
		logger:   logger.With(slog.String("component", "roster-service")),
	}
}

// CreateUser creates a new anonymous user in the room with a generated
// display name, creating the room if it does not exist yet. Name generation
// retries on per-room name collisions.
func (s *Service) CreateUser(ctx context.Context, uri model.RoomURI) (*model.Member, error) {
	for try := 0; try < maxNameTries; try++ {
		member, err := s.storage.CreateAnonymousUser(ctx, uri, generateName(s.random))
		if err != nil {
			if errors.Is(err, model.ErrConflict) {
				continue
			}
			return nil, err
		}

		s.logger.Info("anonymous user created",
			slog.String("room", string(uri)),
			slog.Int64("user_id", int64(member.UserID)),
			slog.String("name", member.Name))
		s.publishMemberEvent(uri, model.MemberEvent{
			Action: model.ActionCreateUser,
			UserID: member.UserID,
			Name:   member.Name,
			IsAuth: false,
		})
		return member, nil
	}

	s.logger.Warn("name generation exhausted", slog.String("room", string(uri)))
	return nil, ErrNameGeneration
}

// UpdateUser renames a member of the room
func (s *Service) UpdateUser(ctx context.Context, uri model.RoomURI, id model.UserID, name string, caller *model.Account) (*model.Member, error) {
	if err := s.guard.Authorize(ctx, uri, id, caller); err != nil {
		return nil, err
	}

	if err := s.storage.RenameMember(ctx, uri, id, name); err != nil {
		return nil, err
	}

	member, err := s.storage.GetMember(ctx, uri, id)
	if err != nil {
		return nil, err
	}

	s.publishMemberEvent(uri, model.MemberEvent{
		Action: model.ActionUpdateUser,
		UserID: member.UserID,
		Name:   member.Name,
		IsAuth: member.IsAuth,
	})
	return member, nil
}

// DeleteUser removes a member from the room. Anonymous users are destroyed
// entirely along with their timetable and config. Authenticated users just
// leave the room; their identity, timetable and config survive.
func (s *Service) DeleteUser(ctx context.Context, uri model.RoomURI, id model.UserID, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, id, caller); err != nil {
		return err
	}

	isAuth, err := s.storage.IsAuthUser(ctx, id)
	if err != nil {
		return err
	}

	if isAuth {
		if err := s.storage.LeaveRoom(ctx, uri, id); err != nil {
			return err
		}
		s.logger.Info("user left room",
			slog.String("room", string(uri)),
			slog.Int64("user_id", int64(id)))
	} else {
		if _, err := s.storage.DeleteAnonymousUser(ctx, uri, id); err != nil {
			return err
		}
		s.logger.Info("anonymous user deleted",
			slog.String("room", string(uri)),
			slog.Int64("user_id", int64(id)))
	}

	s.publishMemberEvent(uri, model.MemberEvent{
		Action: model.ActionDeleteUser,
		UserID: id,
		IsAuth: isAuth,
	})
	return nil
}

// JoinRoom adds the caller's account to the room under its username, then
// replays the account's existing lessons into the room so current viewers
// see its timetable without resubscribing.
func (s *Service) JoinRoom(ctx context.Context, uri model.RoomURI, caller *model.Account) (*model.Member, error) {
	if caller == nil {
		return nil, model.ErrUnauthorized
	}

	member, err := s.storage.JoinRoom(ctx, uri, caller.UserID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user joined room",
		slog.String("room", string(uri)),
		slog.Int64("user_id", int64(caller.UserID)))
	s.publishMemberEvent(uri, model.MemberEvent{
		Action: model.ActionCreateUser,
		UserID: member.UserID,
		Name:   member.Name,
		IsAuth: true,
	})

	lessons, err := s.storage.ListLessons(ctx, storage.LessonFilter{OwnerID: caller.UserID})
	if err != nil {
		return nil, err
	}
	for _, lesson := range lessons {
		s.exchange.Lessons.Publish(uri, model.CreateLessonEvent(lesson))
	}
	return member, nil
}

// Members lists the room's members
func (s *Service) Members(ctx context.Context, uri model.RoomURI) ([]*model.Member, error) {
	return s.storage.ListMembers(ctx, uri)
}

// Rooms lists the rooms a user belongs to. For authenticated users the
// caller must hold that account; anonymous memberships are not secret from
// anyone who knows the user id, matching the mutation surface.
func (s *Service) Rooms(ctx context.Context, id model.UserID, caller *model.Account) ([]model.RoomURI, error) {
	isAuth, err := s.storage.IsAuthUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if isAuth && (caller == nil || caller.UserID != id) {
		return nil, model.ErrUnauthorized
	}
	return s.storage.ListRoomsForUser(ctx, id)
}

func (s *Service) publishMemberEvent(uri model.RoomURI, event model.MemberEvent) {
	s.exchange.Members.Publish(uri, event)
}
