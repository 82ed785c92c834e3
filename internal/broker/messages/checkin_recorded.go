package messages

import (
	"time"

	"github.com/BearBump/CheckPoint/internal/models"
)

// CheckInRecorded публикуется API после каждой успешной регистрации
// чек-ина (онлайн или досланного офлайн). Консьюмер в checkpoint-api
// обновляет по нему счётчики посещаемости.
type CheckInRecorded struct {
	CheckInID   uint64               `json:"check_in_id"`
	EventID     uint64               `json:"event_id"`
	UserID      string               `json:"user_id"`
	CheckedInAt time.Time            `json:"checked_in_at"`
	Source      models.CheckInSource `json:"source"`
	RecordedAt  time.Time            `json:"recorded_at"`
}
