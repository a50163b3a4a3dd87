package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

const keyPrefix = "session:"

var ErrNotFound = errors.New("session not found")

// Session is the server-side record behind a session token.
type Session struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       user.Role `json:"role"`
	GuestToken string    `json:"guest_token,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store interface {
	Create(ctx context.Context, s *Session) (string, error)
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	ClearGuestToken(ctx context.Context, token string) error
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (r *redisStore) Create(ctx context.Context, s *Session) (string, error) {
	token, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("session: failed to generate token: %w", err)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("session: failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+token.String(), payload, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("session: failed to store session: %w", err)
	}
	return token.String(), nil
}

func (r *redisStore) Get(ctx context.Context, token string) (*Session, error) {
	payload, err := r.client.Get(ctx, keyPrefix+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: failed to load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("session: corrupt session record: %w", err)
	}
	return &s, nil
}

func (r *redisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, keyPrefix+token).Err(); err != nil {
		return fmt.Errorf("session: failed to delete session: %w", err)
	}
	return nil
}

// ClearGuestToken drops the pending guest token while keeping the
// session's remaining TTL.
func (r *redisStore) ClearGuestToken(ctx context.Context, token string) error {
	s, err := r.Get(ctx, token)
	if err != nil {
		return err
	}
	if s.GuestToken == "" {
		return nil
	}
	s.GuestToken = ""

	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+token, payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("session: failed to update session: %w", err)
	}
	return nil
}
