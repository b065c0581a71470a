package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fahndungsportal/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const schema = `
	CREATE TABLE IF NOT EXISTS portal_sessions (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		username TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		cms_cookie TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		expires_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_portal_sessions_expires_at ON portal_sessions(expires_at);
`

// PostgresStore keeps sessions in PostgreSQL.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore creates a PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresStore {
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("store", "session-postgres").Logger(),
	}
}

// EnsureSchema creates the sessions table if it does not exist.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create session schema: %w", err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, token string) (*model.Session, error) {
	query := `
		SELECT token, user_id, username, name, email, cms_cookie, created_at, expires_at
		FROM portal_sessions
		WHERE token = $1 AND expires_at > NOW()
	`

	var s model.Session
	err := p.pool.QueryRow(ctx, query, token).Scan(
		&s.Token, &s.User.ID, &s.User.Username, &s.User.Name, &s.User.Email,
		&s.CMSCookie, &s.CreatedAt, &s.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		p.logger.Error().Err(err).Msg("failed to query session")
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

func (p *PostgresStore) Save(ctx context.Context, s *model.Session) error {
	if s == nil || s.Token == "" {
		return errors.New("session token is required")
	}

	query := `
		INSERT INTO portal_sessions (token, user_id, username, name, email, cms_cookie, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (token) DO UPDATE SET
			cms_cookie = EXCLUDED.cms_cookie,
			expires_at = EXCLUDED.expires_at
	`

	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := p.pool.Exec(ctx, query,
		s.Token, s.User.ID, s.User.Username, s.User.Name, s.User.Email,
		s.CMSCookie, createdAt, s.ExpiresAt,
	)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to save session")
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) Delete(ctx context.Context, token string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE token = $1`, token); err != nil {
		p.logger.Error().Err(err).Msg("failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many.
func (p *PostgresStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM portal_sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresStore) Enabled() bool { return true }
