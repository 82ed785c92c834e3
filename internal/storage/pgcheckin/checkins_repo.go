package pgcheckin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/models"
)

// RegisterCheckIn применяет бизнес-правила в одном порядке для онлайн и
// офлайн пути: неизвестный код -> ErrEventNotFound; at вне окна валидности
// кода -> ErrCodeExpired; дубликат (event, user) -> ErrAlreadyCheckedIn.
// Для офлайн-досылки at — это исходное время скана, окно оценивается по нему.
func (s *Storage) RegisterCheckIn(ctx context.Context, code, userID string, at time.Time, source models.CheckInSource) (*models.CheckIn, *models.Event, error) {
	at = at.UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ev models.Event
	var validFrom, validUntil time.Time
	err = tx.QueryRow(ctx, `
SELECT e.id, e.title, e.location, e.starts_at, e.ends_at, q.valid_from, q.valid_until
FROM event_qr_codes q
JOIN events e ON e.id = q.event_id
WHERE q.code = $1
`, code).Scan(&ev.ID, &ev.Title, &ev.Location, &ev.StartsAt, &ev.EndsAt, &validFrom, &validUntil)
	if err == pgx.ErrNoRows {
		return nil, nil, ErrEventNotFound
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "select qr code")
	}

	if at.Before(validFrom) || at.After(validUntil) {
		return nil, nil, ErrCodeExpired
	}

	var syncedAt *time.Time
	if source == models.CheckInSourceOffline {
		now := time.Now().UTC()
		syncedAt = &now
	}

	ci := models.CheckIn{
		EventID:     ev.ID,
		UserID:      userID,
		CheckedInAt: at,
		SyncedAt:    syncedAt,
		Source:      source,
	}
	err = tx.QueryRow(ctx, `
INSERT INTO check_ins (event_id, user_id, checked_in_at, synced_at, source, created_at)
VALUES ($1,$2,$3,$4,$5, now())
ON CONFLICT (event_id, user_id) DO NOTHING
RETURNING id, created_at
`, ci.EventID, ci.UserID, ci.CheckedInAt, ci.SyncedAt, ci.Source).Scan(&ci.ID, &ci.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil, ErrAlreadyCheckedIn
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "insert check-in")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "commit tx")
	}
	return &ci, &ev, nil
}

func (s *Storage) ListEventCheckIns(ctx context.Context, eventID uint64, limit, offset int) ([]*models.CheckIn, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(ctx, `
SELECT id, event_id, user_id, checked_in_at, synced_at, source, created_at
FROM check_ins
WHERE event_id = $1
ORDER BY checked_in_at DESC
LIMIT $2 OFFSET $3
`, eventID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "select check-ins")
	}
	defer rows.Close()

	var out []*models.CheckIn
	for rows.Next() {
		var ci models.CheckIn
		var syncedAt *time.Time
		if err := rows.Scan(
			&ci.ID, &ci.EventID, &ci.UserID,
			&ci.CheckedInAt, &syncedAt, &ci.Source, &ci.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan check-in")
		}
		ci.SyncedAt = syncedAt
		out = append(out, &ci)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func (s *Storage) CountEventCheckIns(ctx context.Context, eventID uint64) (int64, error) {
	var n int64
	err := s.db.QueryRow(ctx, `SELECT count(*) FROM check_ins WHERE event_id = $1`, eventID).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, "count check-ins")
	}
	return n, nil
}
