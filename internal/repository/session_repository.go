package repository

import (
	"context"
	"errors"
	"time"

	appErrors "github.com/noah-isme/cbcs-registration/pkg/errors"
	"github.com/noah-isme/cbcs-registration/pkg/session"
)

const sessionKeyPrefix = "session:"

// KeyValueStore is the subset of CacheRepository the Redis-backed stores need.
type KeyValueStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SessionRepository keeps registrar sessions server-side, keyed by session id.
type SessionRepository struct {
	store KeyValueStore
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(store KeyValueStore) *SessionRepository {
	return &SessionRepository{store: store}
}

// Save stores the session until ttl elapses.
func (r *SessionRepository) Save(ctx context.Context, s *session.Session, ttl time.Duration) error {
	return r.store.Set(ctx, sessionKeyPrefix+s.ID, s, ttl)
}

// Find loads a session; expired or unknown ids yield ErrAuth.
func (r *SessionRepository) Find(ctx context.Context, id string) (*session.Session, error) {
	var s session.Session
	if err := r.store.Get(ctx, sessionKeyPrefix+id, &s); err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return nil, appErrors.ErrAuth
		}
		return nil, err
	}
	return &s, nil
}

// Delete revokes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, sessionKeyPrefix+id)
}
