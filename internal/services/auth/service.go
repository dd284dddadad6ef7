package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/wheremyfriends/webapp/internal/dependencies/clock"
	"github.com/wheremyfriends/webapp/internal/dependencies/random"
	"github.com/wheremyfriends/webapp/internal/model"
	"github.com/wheremyfriends/webapp/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrMissingFields      = errors.New("username and password are required")
)

const tokenIDAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Claims is the JWT payload for a login token
type Claims struct {
	UserID model.UserID `json:"uid"`
	jwt.RegisteredClaims
}

// Service handles account registration and token auth
type Service struct {
	storage storage.Store
	clock   clock.Clock
	random  random.Random

	secret        []byte
	tokenDuration time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time
}

// Config holds configuration for the auth service
type Config struct {
	Secret        string
	TokenDuration time.Duration
}

// DefaultConfig returns default auth configuration. The secret has no
// default and must be provided.
func DefaultConfig() Config {
	return Config{
		TokenDuration: 7 * 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(storage storage.Store, clock clock.Clock, random random.Random, cfg Config) *Service {
	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = DefaultConfig().TokenDuration
	}
	return &Service{
		storage:       storage,
		clock:         clock,
		random:        random,
		secret:        []byte(cfg.Secret),
		tokenDuration: cfg.TokenDuration,
		revoked:       make(map[string]time.Time),
	}
}

// Register creates a new account with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, username, password string) (*model.Account, error) {
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return s.storage.CreateAccount(ctx, username, string(hash))
}

// Login verifies credentials and issues a signed token. Unknown usernames
// and wrong passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, *model.Account, error) {
	account, err := s.storage.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.clock.Now()
	claims := Claims{
		UserID: account.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.random.String(16, tokenIDAlphabet),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenDuration)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Authenticate resolves a token back to its account. Revoked, expired and
// malformed tokens all return ErrInvalidToken.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Account, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	_, isRevoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if isRevoked {
		return nil, ErrInvalidToken
	}

	account, err := s.storage.GetAccount(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return account, nil
}

// Logout revokes the token so it can no longer authenticate. The revocation
// entry is kept until the token would have expired anyway.
func (s *Service) Logout(token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for id, expiry := range s.revoked {
		if expiry.Before(now) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	return nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
