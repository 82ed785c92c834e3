// Package portal описывает контракт удалённого чек-ин API.
// Бизнес-отказы (already checked in, event not found, QR code expired)
// приходят как ошибки; их текст показывается пользователю как есть.
package portal

import (
	"context"
	"time"
)

type EventSummary struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

// CheckInAck — успешный ответ бэкенда на регистрацию чек-ина.
type CheckInAck struct {
	Message     string       `json:"message"`
	Event       EventSummary `json:"event"`
	CheckInTime time.Time    `json:"check_in_time"`
}

type Client interface {
	// RegisterQRCheckIn — онлайн-регистрация, время чек-ина ставит сервер.
	RegisterQRCheckIn(ctx context.Context, qrCode, userID string) (CheckInAck, error)
	// SyncOfflineCheckIn — досылка офлайн-записи; сервер оценивает валидность
	// кода на момент capturedAt, а не на момент синка.
	SyncOfflineCheckIn(ctx context.Context, qrCode string, capturedAt time.Time, userID string) (CheckInAck, error)
}
