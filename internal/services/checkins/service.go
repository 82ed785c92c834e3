// Package checkins — серверная логика регистрации чек-инов: сессии,
// лимиты, бизнес-правила хранилища, событие в kafka.
package checkins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/broker/messages"
	"github.com/BearBump/CheckPoint/internal/models"
	"github.com/BearBump/CheckPoint/internal/scanner"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrInvalidCode      = errors.New("invalid QR code")
	ErrRateLimited      = errors.New("too many check-in attempts")
)

type Repository interface {
	RegisterCheckIn(ctx context.Context, code, userID string, at time.Time, source models.CheckInSource) (*models.CheckIn, *models.Event, error)
	ResolveSession(ctx context.Context, token string) (string, error)
	ListEventCheckIns(ctx context.Context, eventID uint64, limit, offset int) ([]*models.CheckIn, error)
	CountEventCheckIns(ctx context.Context, eventID uint64) (int64, error)
	GetEvent(ctx context.Context, id uint64) (*models.Event, error)
}

type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Counters interface {
	IncrCounter(ctx context.Context, key string) (int64, error)
	GetCounter(ctx context.Context, key string) (int64, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Ack struct {
	Message     string
	Event       models.EventSummary
	CheckInTime time.Time
}

type Service struct {
	repo     Repository
	cache    BytesCache
	counters Counters
	producer Producer
	rl       RateLimiter

	topic              string
	eventTTL           time.Duration
	rateLimitPerMinute int64
}

func New(repo Repository, cache BytesCache, counters Counters, producer Producer, rl RateLimiter, topic string) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		counters: counters,
		producer: producer,
		rl:       rl,

		topic:              topic,
		eventTTL:           10 * time.Minute,
		rateLimitPerMinute: 30,
	}
}

func (s *Service) WithSettings(eventTTL time.Duration, rlPerMin int64) *Service {
	if eventTTL > 0 {
		s.eventTTL = eventTTL
	}
	if rlPerMin > 0 {
		s.rateLimitPerMinute = rlPerMin
	}
	return s
}

// Register — общий путь для онлайн и офлайн регистрации. capturedAt == nil
// означает онлайн-скан (время ставит сервер); иначе это досылка, и окно
// валидности кода оценивается по времени скана.
func (s *Service) Register(ctx context.Context, token, qrCode string, capturedAt *time.Time) (Ack, error) {
	userID, err := s.repo.ResolveSession(ctx, token)
	if err != nil {
		return Ack{}, ErrNotAuthenticated
	}

	if !scanner.ValidCode(qrCode) {
		return Ack{}, ErrInvalidCode
	}

	if s.rl != nil && s.rateLimitPerMinute > 0 {
		now := time.Now().UTC()
		key := fmt.Sprintf("rl:checkin:%s:%s", userID, now.Format("200601021504"))
		allowed, n, err := s.rl.Allow(ctx, key, s.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			// redis недоступен — лимит не повод ронять чек-ин
			slog.Warn("rate limit check failed", "error", err.Error())
		} else if !allowed {
			slog.Warn("check-in rate limit exceeded", "user_id", userID, "count", n)
			return Ack{}, ErrRateLimited
		}
	}

	source := models.CheckInSourceOnline
	at := time.Now().UTC()
	if capturedAt != nil {
		source = models.CheckInSourceOffline
		at = capturedAt.UTC()
	}

	ci, ev, err := s.repo.RegisterCheckIn(ctx, qrCode, userID, at, source)
	if err != nil {
		return Ack{}, err
	}

	summary := models.EventSummary{ID: ev.ID, Title: ev.Title, Location: ev.Location}
	s.cacheEventSummary(ctx, qrCode, summary)
	s.publishRecorded(ctx, ci)

	return Ack{
		Message:     "checked in",
		Event:       summary,
		CheckInTime: ci.CheckedInAt,
	}, nil
}

func (s *Service) cacheEventSummary(ctx context.Context, qrCode string, summary models.EventSummary) {
	if s.cache == nil || s.eventTTL <= 0 {
		return
	}
	b, _ := json.Marshal(summary)
	_ = s.cache.Set(ctx, eventKey(qrCode), b, s.eventTTL)
}

func (s *Service) publishRecorded(ctx context.Context, ci *models.CheckIn) {
	if s.producer == nil {
		return
	}
	msg := messages.CheckInRecorded{
		CheckInID:   ci.ID,
		EventID:     ci.EventID,
		UserID:      ci.UserID,
		CheckedInAt: ci.CheckedInAt,
		Source:      ci.Source,
		RecordedAt:  time.Now().UTC(),
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal check-in recorded", "error", err.Error())
		return
	}
	key := []byte(fmt.Sprintf("%d", ci.EventID))
	// Чек-ин уже в базе; не роняем запрос из-за брокера.
	if err := s.producer.Publish(ctx, s.topic, key, b); err != nil {
		slog.Error("publish check-in recorded", "check_in_id", ci.ID, "error", err.Error())
	}
}

// ApplyRecorded обновляет счётчик посещаемости; вызывается kafka-консьюмером.
func (s *Service) ApplyRecorded(ctx context.Context, msg messages.CheckInRecorded) error {
	if msg.EventID == 0 {
		return errors.New("event_id is required")
	}
	if s.counters == nil {
		return nil
	}
	_, err := s.counters.IncrCounter(ctx, attendanceKey(msg.EventID))
	return err
}

type Attendance struct {
	EventID uint64            `json:"eventId"`
	Count   int64             `json:"count"`
	Recent  []*models.CheckIn `json:"recent"`
}

// GetAttendance — счётчик из redis (если прогрет консьюмером), иначе точный
// подсчёт из базы, плюс последние чек-ины.
func (s *Service) GetAttendance(ctx context.Context, eventID uint64) (Attendance, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return Attendance{}, err
	}

	var count int64
	if s.counters != nil {
		n, err := s.counters.GetCounter(ctx, attendanceKey(eventID))
		if err == nil {
			count = n
		}
	}
	if count == 0 {
		n, err := s.repo.CountEventCheckIns(ctx, eventID)
		if err != nil {
			return Attendance{}, err
		}
		count = n
	}

	recent, err := s.repo.ListEventCheckIns(ctx, eventID, 20, 0)
	if err != nil {
		return Attendance{}, err
	}

	return Attendance{EventID: eventID, Count: count, Recent: recent}, nil
}

func eventKey(qrCode string) string {
	return "qr:" + qrCode + ":event"
}

func attendanceKey(eventID uint64) string {
	return fmt.Sprintf("event:%d:attendance", eventID)
}
