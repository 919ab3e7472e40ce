package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"flagguess/internal/app"
	"flagguess/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps sessions as JSON strings with a TTL, so any instance
// behind a load balancer can serve any session. Reads slide the TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	key := s.key(id)
	var get *redis.StringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		get = pipe.Get(ctx, key)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, app.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.StorageError("get session", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(get.Val()), &session); err != nil {
		return domain.Session{}, domain.StorageError("decode session", err)
	}
	session.ExpiresAt = time.Now().Add(s.ttl)
	return session, nil
}

func (s *SessionStore) Put(ctx context.Context, session domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return domain.StorageError("encode session", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), raw, s.ttl).Err(); err != nil {
		return domain.StorageError("put session", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return domain.StorageError("delete session", err)
	}
	if n == 0 {
		return app.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) key(id string) string {
	return "flagguess:session:" + id
}
