package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/wheremyfriends/webapp/internal/bus"
	"github.com/wheremyfriends/webapp/internal/dependencies/clock"
	"github.com/wheremyfriends/webapp/internal/dependencies/random"
	"github.com/wheremyfriends/webapp/internal/services/auth"
	"github.com/wheremyfriends/webapp/internal/services/guard"
	"github.com/wheremyfriends/webapp/internal/services/prefs"
	"github.com/wheremyfriends/webapp/internal/services/roster"
	"github.com/wheremyfriends/webapp/internal/services/subscription"
	"github.com/wheremyfriends/webapp/internal/services/timetable"
	"github.com/wheremyfriends/webapp/internal/storage"
	"github.com/wheremyfriends/webapp/internal/storage/memory"
	redisstorage "github.com/wheremyfriends/webapp/internal/storage/redis"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Store

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Event buses
	Exchange *bus.Exchange

	// Services
	GuardService        *guard.Service
	AuthService         *auth.Service
	RosterService       *roster.Service
	TimetableService    *timetable.Service
	PrefsService        *prefs.Service
	SubscriptionService *subscription.Service
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service; the secret is
	// required
	AuthConfig auth.Config
	// TimetableConfig holds the upsert retry settings (optional)
	TimetableConfig timetable.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	if cfg.AuthConfig.Secret == "" {
		return nil, errors.New("auth secret is required")
	}

	var store storage.Store
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.AuthConfig, cfg.TimetableConfig, logger), nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Store, clk clock.Clock, rnd random.Random, authCfg auth.Config, ttCfg timetable.Config, logger *slog.Logger) *App {
	exchange := bus.NewExchange(logger)

	guardService := guard.New(store, logger)
	authService := auth.New(store, clk, rnd, authCfg)
	rosterService := roster.New(store, guardService, exchange, rnd, logger)
	timetableService := timetable.New(store, guardService, exchange, ttCfg, logger)
	prefsService := prefs.New(store, guardService, exchange, logger)
	subscriptionService := subscription.New(store, exchange, rosterService, guardService, logger)

	return &App{
		Storage:             store,
		Clock:               clk,
		Random:              rnd,
		Exchange:            exchange,
		GuardService:        guardService,
		AuthService:         authService,
		RosterService:       rosterService,
		TimetableService:    timetableService,
		PrefsService:        prefsService,
		SubscriptionService: subscriptionService,
	}
}

// Close releases resources held by the app
func (a *App) Close() error {
	a.Exchange.Close()
	if closer, ok := a.Storage.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
