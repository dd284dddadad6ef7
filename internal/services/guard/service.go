package guard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Service decides whether a caller may act on a subject identity within a
// room. Every mutation and stream that names a target user passes through
// here before touching storage.
type Service struct {
	storage storage.Store
	logger  *slog.Logger
}

// New creates a new guard Service
func New(storage storage.Store, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger.With(slog.String("component", "guard-service")),
	}
}

// Authorize checks that the caller may act on the subject user in the given
// room. Authenticated subjects require the caller to hold that exact account
// and fail with model.ErrUnauthorized otherwise. Anonymous subjects require
// room membership instead, since anyone holding the room URI shares control
// of its anonymous identities; a subject with no membership in the room fails
// with model.ErrNotFound, whether it belongs to another room or does not
// exist at all; an anonymous subject with no room context at all fails with
// model.ErrUnauthorized.
func (s *Service) Authorize(ctx context.Context, uri model.RoomURI, subject model.UserID, caller *model.Account) error {
	isAuth, err := s.storage.IsAuthUser(ctx, subject)
	if err != nil {
		return err
	}

	if isAuth {
		if caller == nil || caller.UserID != subject {
			s.logger.Warn("rejected action on authenticated user",
				slog.Int64("subject", int64(subject)))
			return model.ErrUnauthorized
		}
		return nil
	}

	if uri == "" {
		s.logger.Warn("rejected anonymous subject without room context",
			slog.Int64("subject", int64(subject)))
		return model.ErrUnauthorized
	}

	if _, err := s.storage.GetMember(ctx, uri, subject); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("rejected action on non-member",
				slog.String("room", string(uri)),
				slog.Int64("subject", int64(subject)))
		}
		return err
	}
	return nil
}
