package auth

import "context"

// SessionStore persists live sessions keyed by sid with a TTL equal to the
// session's remaining lifetime. Lookups return (nil, nil) when no session
// exists; errors are reserved for store failures.
//
// Invalidate is a hard delete from the live store: a terminated session is
// unusable because it is gone. Implementations wanting an audit trail pair the
// store with a SessionArchive instead of soft-deleting.
type SessionStore interface {
	Save(ctx context.Context, session *Session) error
	Get(ctx context.Context, sid string) (*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sid string) (bool, error)
	GetByUser(ctx context.Context, userID string) ([]*Session, error)
	GetByProviderSub(ctx context.Context, providerSub string) ([]*Session, error)
	GetByUsername(ctx context.Context, username string) ([]*Session, error)
	DeleteAllForUser(ctx context.Context, userID string) (int, error)
	Invalidate(ctx context.Context, sid string) (bool, error)
}

// CipherSessionStore persists single-use cipher sessions. Save drops entries
// that are already expired instead of storing them. Take atomically fetches
// and deletes an entry so two concurrent login attempts can never both decrypt
// with the same key pair.
type CipherSessionStore interface {
	Save(ctx context.Context, session *CipherSession) error
	Get(ctx context.Context, sid string) (*CipherSession, error)
	Delete(ctx context.Context, sid string) (bool, error)
	Take(ctx context.Context, sid string) (*CipherSession, error)
}

// StateStore tracks OAuth CSRF state values. Consume is one-shot: it reports
// whether the state existed and removes it in the same operation.
type StateStore interface {
	Put(ctx context.Context, state string) error
	Consume(ctx context.Context, state string) (bool, error)
}

// SessionArchive receives invalidated sessions for audit retention. Writes are
// best-effort; callers log and continue on failure.
type SessionArchive interface {
	Archive(ctx context.Context, session *Session, reason string) error
}
