package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"keygate/internal/domain/auth"
)

// Archive writes terminated sessions to Postgres for audit retention. The live
// store hard-deletes on invalidation; this table is the only trace left.
type Archive struct {
	db *sql.DB
}

// Open connects to Postgres and ensures the archive table exists.
func Open(ctx context.Context, dsn string) (*Archive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping archive database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *Archive) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_session_archive (
	id            BIGSERIAL PRIMARY KEY,
	sid           TEXT        NOT NULL,
	user_id       TEXT        NOT NULL,
	provider_sub  TEXT        NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	expires_at    TIMESTAMPTZ NOT NULL,
	last_accessed TIMESTAMPTZ NOT NULL,
	version       INTEGER     NOT NULL,
	device_info   TEXT        NOT NULL DEFAULT '',
	ip_address    TEXT        NOT NULL DEFAULT '',
	user_agent    TEXT        NOT NULL DEFAULT '',
	reason        TEXT        NOT NULL,
	archived_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS auth_session_archive_user_idx ON auth_session_archive (user_id);
CREATE INDEX IF NOT EXISTS auth_session_archive_sid_idx ON auth_session_archive (sid);`

	if _, err := a.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure archive schema: %w", err)
	}
	return nil
}

// Archive inserts one terminated session. The refresh token is deliberately
// not persisted.
func (a *Archive) Archive(ctx context.Context, session *auth.Session, reason string) error {
	const query = `
INSERT INTO auth_session_archive
	(sid, user_id, provider_sub, created_at, expires_at, last_accessed, version,
	 device_info, ip_address, user_agent, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := a.db.ExecContext(ctx, query,
		session.SID, session.UserID, session.ProviderSub,
		session.CreatedAt, session.ExpiresAt, session.LastAccessed, session.Version,
		session.DeviceInfo, session.IPAddress, session.UserAgent, reason,
	)
	if err != nil {
		return fmt.Errorf("archive session %s: %w", session.SID, err)
	}
	return nil
}

// Close releases the database handle.
func (a *Archive) Close() error { return a.db.Close() }
