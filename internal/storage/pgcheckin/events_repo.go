package pgcheckin

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/models"
)

type EventCreateInput struct {
	Title    string
	Location string
	StartsAt time.Time
	EndsAt   time.Time
}

func (s *Storage) CreateEvent(ctx context.Context, in EventCreateInput) (*models.Event, error) {
	ev := models.Event{
		Title:    in.Title,
		Location: in.Location,
		StartsAt: in.StartsAt.UTC(),
		EndsAt:   in.EndsAt.UTC(),
	}
	err := s.db.QueryRow(ctx, `
INSERT INTO events (title, location, starts_at, ends_at)
VALUES ($1,$2,$3,$4)
RETURNING id
`, ev.Title, ev.Location, ev.StartsAt, ev.EndsAt).Scan(&ev.ID)
	if err != nil {
		return nil, errors.Wrap(err, "insert event")
	}
	return &ev, nil
}

func (s *Storage) GetEvent(ctx context.Context, id uint64) (*models.Event, error) {
	var ev models.Event
	err := s.db.QueryRow(ctx, `
SELECT id, title, location, starts_at, ends_at FROM events WHERE id = $1
`, id).Scan(&ev.ID, &ev.Title, &ev.Location, &ev.StartsAt, &ev.EndsAt)
	if err == pgx.ErrNoRows {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select event")
	}
	return &ev, nil
}

// IssueQRCode привязывает готовый 48-hex код к событию с окном валидности.
func (s *Storage) IssueQRCode(ctx context.Context, code string, eventID uint64, validFrom, validUntil time.Time) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO event_qr_codes (code, event_id, valid_from, valid_until)
VALUES ($1,$2,$3,$4)
`, code, eventID, validFrom.UTC(), validUntil.UTC())
	return errors.Wrap(err, "insert qr code")
}
