package prefs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Service handles the per-user config blob. The payload is opaque JSON:
// stored and broadcast as-is, validated only for being well-formed.
type Service struct {
	storage  storage.Store
	guard    *guard.Service
	exchange *bus.Exchange
	logger   *slog.Logger
}

// New creates a new prefs Service
func New(storage storage.Store, guard *guard.Service, exchange *bus.Exchange, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		guard:    guard,
		exchange: exchange,
		logger:   logger.With(slog.String("component", "prefs-service")),
	}
}

// Get returns the user's config blob
func (s *Service) Get(ctx context.Context, uri model.RoomURI, id model.UserID, caller *model.Account) (string, error) {
	if err := s.guard.Authorize(ctx, uri, id, caller); err != nil {
		return "", err
	}
	return s.storage.GetConfig(ctx, id)
}

// Update replaces the user's config blob and broadcasts the new value on
// the user-keyed config stream
func (s *Service) Update(ctx context.Context, uri model.RoomURI, id model.UserID, data string, caller *model.Account) error {
	if err := s.guard.Authorize(ctx, uri, id, caller); err != nil {
		return err
	}

	if !json.Valid([]byte(data)) {
		return model.ErrInvalidConfig
	}

	if err := s.storage.SetConfig(ctx, id, data); err != nil {
		return err
	}

	s.logger.Info("config updated", slog.Int64("user_id", int64(id)))
	s.exchange.Configs.Publish(id, data)
	return nil
}
