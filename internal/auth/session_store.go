package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"clinic/internal/db"
	"clinic/internal/model"
)

// SessionStore persists issued tokens so they can be revoked before expiry.
type SessionStore interface {
	Create(ctx context.Context, userID uint, token string, expiresAt time.Time) (string, error)
	GetActive(ctx context.Context, token string) (*model.Session, error)
	Invalidate(ctx context.Context, token string) (bool, error)
	InvalidateAllForUser(ctx context.Context, userID uint) (int64, error)
}

type sessionStore struct {
	q   db.Querier
	now func() time.Time
}

var _ SessionStore = (*sessionStore)(nil)

// NewSessionStore creates a session store on top of q.
func NewSessionStore(q db.Querier) SessionStore {
	return &sessionStore{q: q, now: time.Now}
}

// Create inserts an active session and returns its id. A user may hold any
// number of active sessions.
func (s *sessionStore) Create(ctx context.Context, userID uint, token string, expiresAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.q.Exec(ctx,
		`INSERT INTO sessions (session_id, user_id, token, created_at, expires_at, is_active)
		VALUES (?, ?, ?, ?, ?, TRUE)`,
		id, userID, token, s.now().UTC(), expiresAt.UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetActive returns the session for token, or nil when it is unknown, revoked
// or expired. Expiry is checked on every call.
func (s *sessionStore) GetActive(ctx context.Context, token string) (*model.Session, error) {
	now := s.now().UTC()
	rec, ok, err := s.q.QueryOne(ctx,
		`SELECT session_id, user_id, token, created_at, expires_at, is_active
		FROM sessions WHERE token = ? AND is_active = TRUE AND expires_at > ?`,
		token, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	session := &model.Session{
		SessionID: rec.String("session_id"),
		UserID:    rec.Uint("user_id"),
		Token:     rec.String("token"),
		CreatedAt: rec.Time("created_at"),
		ExpiresAt: rec.Time("expires_at"),
		IsActive:  rec.Bool("is_active"),
	}
	if !session.ValidAt(now) {
		return nil, nil
	}
	return session, nil
}

// Invalidate deactivates the session for token. It reports false when no active
// session matched, so a second call is harmless.
func (s *sessionStore) Invalidate(ctx context.Context, token string) (bool, error) {
	res, err := s.q.Exec(ctx,
		"UPDATE sessions SET is_active = FALSE WHERE token = ? AND is_active = TRUE", token)
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

// InvalidateAllForUser deactivates every active session of a user.
func (s *sessionStore) InvalidateAllForUser(ctx context.Context, userID uint) (int64, error) {
	res, err := s.q.Exec(ctx,
		"UPDATE sessions SET is_active = FALSE WHERE user_id = ? AND is_active = TRUE", userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected, nil
}
