package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"keygate/internal/domain/auth"
)

const cipherKeyPrefix = "cipher:"

// CipherSessionStore keeps single-use cipher sessions in Redis. Take relies on
// GETDEL so concurrent consumers of the same sid can never both succeed.
type CipherSessionStore struct {
	client *redis.Client
}

// NewCipherSessionStore creates a Redis-backed cipher session store.
func NewCipherSessionStore(client *redis.Client) *CipherSessionStore {
	return &CipherSessionStore{client: client}
}

func cipherKey(sid string) string { return cipherKeyPrefix + sid }

// Save stores the cipher session with its remaining TTL. Already-expired
// sessions are dropped.
func (s *CipherSessionStore) Save(ctx context.Context, session *auth.CipherSession) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		log.Debug().Str("cipher_sid", session.SID).Msg("dropping already-expired cipher session")
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal cipher session: %w", err)
	}
	if err := s.client.Set(ctx, cipherKey(session.SID), data, ttl).Err(); err != nil {
		return fmt.Errorf("save cipher session %s: %w", session.SID, err)
	}
	return nil
}

// Get returns (nil, nil) when no cipher session exists for sid.
func (s *CipherSessionStore) Get(ctx context.Context, sid string) (*auth.CipherSession, error) {
	data, err := s.client.Get(ctx, cipherKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cipher session %s: %w", sid, err)
	}
	return unmarshalCipherSession(sid, data)
}

// Delete removes the cipher session, reporting whether it existed.
func (s *CipherSessionStore) Delete(ctx context.Context, sid string) (bool, error) {
	n, err := s.client.Del(ctx, cipherKey(sid)).Result()
	if err != nil {
		return false, fmt.Errorf("delete cipher session %s: %w", sid, err)
	}
	return n > 0, nil
}

// Take atomically fetches and removes the cipher session. Returns (nil, nil)
// when it does not exist or was already taken.
func (s *CipherSessionStore) Take(ctx context.Context, sid string) (*auth.CipherSession, error) {
	data, err := s.client.GetDel(ctx, cipherKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take cipher session %s: %w", sid, err)
	}
	return unmarshalCipherSession(sid, data)
}

func unmarshalCipherSession(sid string, data []byte) (*auth.CipherSession, error) {
	var session auth.CipherSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal cipher session %s: %w", sid, err)
	}
	return &session, nil
}
