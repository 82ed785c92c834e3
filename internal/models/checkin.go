package models

import "time"

// Категории исходов одной попытки чек-ина (см. ResultKind).
const (
	ResultSuccess           = "SUCCESS"
	ResultOfflineSaved      = "OFFLINE_SAVED"
	ResultNotAuthenticated  = "NOT_AUTHENTICATED"
	ResultInvalidCode       = "INVALID_CODE"
	ResultOfflineSaveFailed = "OFFLINE_SAVE_FAILED"
	ResultServerError       = "SERVER_ERROR"
)

// PendingCheckIn — запись локальной очереди на устройстве.
// После создания мутируется только флаг Synced, и только false -> true.
type PendingCheckIn struct {
	ID         string
	QRCode     string
	CapturedAt time.Time
	Synced     bool
}

type EventSummary struct {
	ID       uint64
	Title    string
	Location string
}

// CheckInResult is the tagged outcome of a single check-in attempt.
// Kind is always one of the Result* constants; Event and CheckInTime are
// set only for ResultSuccess.
type CheckInResult struct {
	Kind        string
	Message     string
	Event       *EventSummary
	CheckInTime *time.Time
}

func (r CheckInResult) OK() bool {
	return r.Kind == ResultSuccess || r.Kind == ResultOfflineSaved
}

type CheckInSource string

const (
	CheckInSourceOnline  CheckInSource = "online"
	CheckInSourceOffline CheckInSource = "offline"
)

// CheckIn — серверная запись посещения. CheckedInAt всегда время скана,
// SyncedAt заполняется только для офлайн-записей.
type CheckIn struct {
	ID          uint64
	EventID     uint64
	UserID      string
	CheckedInAt time.Time
	SyncedAt    *time.Time
	Source      CheckInSource
	CreatedAt   time.Time
}

type Event struct {
	ID       uint64
	Title    string
	Location string
	StartsAt time.Time
	EndsAt   time.Time
}

// EventQRCode связывает 48-hex код с событием и окном валидности.
type EventQRCode struct {
	Code       string
	EventID    uint64
	ValidFrom  time.Time
	ValidUntil time.Time
}
