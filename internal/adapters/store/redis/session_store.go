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

const (
	sessionKeyPrefix  = "session:"
	userSetPrefix     = "user_sessions:"
	providerSetPrefix = "provider_sessions:"
)

// sessionRecord is the stored shape of a session. It exists because the
// domain type hides the refresh token from JSON, and the store is the one
// place that must persist it.
type sessionRecord struct {
	SID          string    `json:"sid"`
	UserID       string    `json:"user_id"`
	ProviderSub  string    `json:"provider_sub"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	Version      int       `json:"version"`
	DeviceInfo   string    `json:"device_info,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

func recordOf(s *auth.Session) sessionRecord {
	return sessionRecord{
		SID:          s.SID,
		UserID:       s.UserID,
		ProviderSub:  s.ProviderSub,
		RefreshToken: s.RefreshToken,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		LastAccessed: s.LastAccessed,
		Version:      s.Version,
		DeviceInfo:   s.DeviceInfo,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
	}
}

func (r sessionRecord) session() *auth.Session {
	return &auth.Session{
		SID:          r.SID,
		UserID:       r.UserID,
		ProviderSub:  r.ProviderSub,
		RefreshToken: r.RefreshToken,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		LastAccessed: r.LastAccessed,
		Version:      r.Version,
		DeviceInfo:   r.DeviceInfo,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
	}
}

// SessionStore keeps live sessions in Redis with per-key TTLs matching the
// session expiry, plus set indexes by user id and provider subject so logout
// cascades never have to scan the keyspace.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a Redis-backed session store.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(sid string) string             { return sessionKeyPrefix + sid }
func userSetKey(userID string) string          { return userSetPrefix + userID }
func providerSetKey(providerSub string) string { return providerSetPrefix + providerSub }

// Save writes the session and its index entries. Sessions that are already
// expired are dropped silently.
func (s *SessionStore) Save(ctx context.Context, session *auth.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		log.Debug().Str("sid", session.SID).Msg("dropping already-expired session")
		return nil
	}

	data, err := json.Marshal(recordOf(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.SID), data, ttl)
	pipe.SAdd(ctx, userSetKey(session.UserID), session.SID)
	s.extendIndexTTL(ctx, pipe, userSetKey(session.UserID), ttl)
	if session.ProviderSub != "" {
		pipe.SAdd(ctx, providerSetKey(session.ProviderSub), session.SID)
		s.extendIndexTTL(ctx, pipe, providerSetKey(session.ProviderSub), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save session %s: %w", session.SID, err)
	}
	return nil
}

// extendIndexTTL sets the index set's TTL on first write and afterwards only
// ever raises it. A plain EXPIRE would let a shorter-lived session shrink the
// set's lifetime below that of a longer-lived sibling, hiding the sibling from
// the logout cascade while its own key is still live.
func (s *SessionStore) extendIndexTTL(ctx context.Context, pipe redis.Pipeliner, key string, ttl time.Duration) {
	pipe.ExpireNX(ctx, key, ttl)
	pipe.ExpireGT(ctx, key, ttl)
}

// Get returns (nil, nil) when the session does not exist.
func (s *SessionStore) Get(ctx context.Context, sid string) (*auth.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sid)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sid, err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sid, err)
	}
	return rec.session(), nil
}

// Update rewrites the session with its remaining TTL.
func (s *SessionStore) Update(ctx context.Context, session *auth.Session) error {
	return s.Save(ctx, session)
}

// Delete removes the session and its index entries, reporting whether it
// existed.
func (s *SessionStore) Delete(ctx context.Context, sid string) (bool, error) {
	session, err := s.Get(ctx, sid)
	if err != nil {
		return false, err
	}
	if session == nil {
		return false, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(sid))
	pipe.SRem(ctx, userSetKey(session.UserID), sid)
	if session.ProviderSub != "" {
		pipe.SRem(ctx, providerSetKey(session.ProviderSub), sid)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("delete session %s: %w", sid, err)
	}
	return true, nil
}

// GetByUser returns all live sessions for a user id.
func (s *SessionStore) GetByUser(ctx context.Context, userID string) ([]*auth.Session, error) {
	return s.collect(ctx, userSetKey(userID))
}

// GetByProviderSub returns all live sessions for a provider subject.
func (s *SessionStore) GetByProviderSub(ctx context.Context, providerSub string) ([]*auth.Session, error) {
	return s.collect(ctx, providerSetKey(providerSub))
}

// GetByUsername resolves sessions by login name. Usernames and provider
// subjects share a namespace upstream, so this is an index alias.
func (s *SessionStore) GetByUsername(ctx context.Context, username string) ([]*auth.Session, error) {
	return s.GetByProviderSub(ctx, username)
}

// collect resolves a set index to live sessions, pruning members whose
// session key has already expired.
func (s *SessionStore) collect(ctx context.Context, setKey string) ([]*auth.Session, error) {
	sids, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read session index %s: %w", setKey, err)
	}

	sessions := make([]*auth.Session, 0, len(sids))
	for _, sid := range sids {
		session, err := s.Get(ctx, sid)
		if err != nil {
			return nil, err
		}
		if session == nil {
			s.client.SRem(ctx, setKey, sid)
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

// DeleteAllForUser removes every session for a user id, returning how many
// were deleted.
func (s *SessionStore) DeleteAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, err := s.GetByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	deleted := 0
	for _, session := range sessions {
		ok, err := s.Delete(ctx, session.SID)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

// Invalidate is a hard delete; audit retention is the archive's job.
func (s *SessionStore) Invalidate(ctx context.Context, sid string) (bool, error) {
	return s.Delete(ctx, sid)
}
