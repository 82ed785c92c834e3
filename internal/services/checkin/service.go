// Package checkin — маршрутизация валидного кода: онлайн на портал или в
// локальную очередь, с нормализацией исхода в CheckInResult.
package checkin

import (
	"context"
	"log/slog"

	"github.com/BearBump/CheckPoint/internal/integrations/portal"
	"github.com/BearBump/CheckPoint/internal/models"
	"github.com/BearBump/CheckPoint/internal/scanner"
)

type Reachability interface {
	Current() bool
}

type Queue interface {
	Enqueue(ctx context.Context, qrCode string) (string, error)
}

// Identity выдаёт id текущего авторизованного пользователя
// (пустая строка — сессии нет).
type Identity interface {
	CurrentUserID() string
}

type StaticIdentity string

func (s StaticIdentity) CurrentUserID() string { return string(s) }

type Service struct {
	portal   portal.Client
	queue    Queue
	net      Reachability
	identity Identity
}

func New(p portal.Client, q Queue, net Reachability, id Identity) *Service {
	return &Service{portal: p, queue: q, net: net, identity: id}
}

// Submit: офлайн -> очередь, онлайн -> портал.
// Онлайн-ошибка НЕ уходит в очередь: категории "offline" и
// "online-but-erroring" не смешиваются.
func (s *Service) Submit(ctx context.Context, qrCode string) models.CheckInResult {
	userID := s.identity.CurrentUserID()
	if userID == "" {
		return models.CheckInResult{
			Kind:    models.ResultNotAuthenticated,
			Message: "sign in to check in",
		}
	}

	// Сессия сканера уже валидирует формат; здесь страховка на случай
	// прямых вызовов (админ-API ручного ввода).
	if !scanner.ValidCode(qrCode) {
		return models.CheckInResult{
			Kind:    models.ResultInvalidCode,
			Message: "invalid QR code",
		}
	}

	if !s.net.Current() {
		id, err := s.queue.Enqueue(ctx, qrCode)
		if err != nil {
			slog.Error("offline save failed", "error", err.Error())
			return models.CheckInResult{
				Kind:    models.ResultOfflineSaveFailed,
				Message: "offline save failed: " + err.Error(),
			}
		}
		slog.Info("check-in queued offline", "pending_id", id)
		return models.CheckInResult{
			Kind:    models.ResultOfflineSaved,
			Message: "saved offline, will sync automatically",
		}
	}

	ack, err := s.portal.RegisterQRCheckIn(ctx, qrCode, userID)
	if err != nil {
		return models.CheckInResult{
			Kind:    models.ResultServerError,
			Message: err.Error(),
		}
	}

	t := ack.CheckInTime
	return models.CheckInResult{
		Kind:    models.ResultSuccess,
		Message: ack.Message,
		Event: &models.EventSummary{
			ID:       ack.Event.ID,
			Title:    ack.Event.Title,
			Location: ack.Event.Location,
		},
		CheckInTime: &t,
	}
}
