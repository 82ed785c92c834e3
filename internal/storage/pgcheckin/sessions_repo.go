package pgcheckin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO sessions (token, user_id, expires_at)
VALUES ($1,$2,$3)
ON CONFLICT (token) DO UPDATE SET user_id = $2, expires_at = $3
`, token, userID, expiresAt.UTC())
	return errors.Wrap(err, "insert session")
}

// ResolveSession отдаёт user_id живой сессии; просроченный или неизвестный
// токен — ErrSessionNotFound.
func (s *Storage) ResolveSession(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx, `
SELECT user_id FROM sessions WHERE token = $1 AND expires_at > now()
`, token).Scan(&userID)
	if err == pgx.ErrNoRows {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "select session")
	}
	return userID, nil
}
