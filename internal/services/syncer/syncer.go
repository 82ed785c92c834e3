// Package syncer опустошает локальную очередь чек-инов, как только сеть
// возвращается.
package syncer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/BearBump/CheckPoint/internal/integrations/portal"
	"github.com/BearBump/CheckPoint/internal/models"
)

type Repository interface {
	ListPending(ctx context.Context) ([]models.PendingCheckIn, error)
	MarkSynced(ctx context.Context, id string) error
	PurgeSynced(ctx context.Context, olderThan time.Time) (int64, error)
}

type Reachability interface {
	Current() bool
	Subscribe() (<-chan bool, func())
}

type Identity interface {
	CurrentUserID() string
}

type Syncer struct {
	repo     Repository
	portal   portal.Client
	net      Reachability
	identity Identity

	syncInterval time.Duration
	retention    time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastDrainUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalSynced         atomic.Int64
	totalFailed         atomic.Int64
	pendingAfterDrain   atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(repo Repository, p portal.Client, net Reachability, id Identity) *Syncer {
	return &Syncer{
		repo:         repo,
		portal:       p,
		net:          net,
		identity:     id,
		syncInterval: 60 * time.Second,
		retention:    30 * 24 * time.Hour,
		triggerCh:    make(chan struct{}, 1),

		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (s *Syncer) WithSettings(syncInterval, retention time.Duration) *Syncer {
	if syncInterval > 0 {
		s.syncInterval = syncInterval
	}
	if retention > 0 {
		s.retention = retention
	}
	return s
}

// Trigger — ручной "sync now" (best-effort, неблокирующий).
func (s *Syncer) Trigger() {
	s.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case s.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt         time.Time  `json:"startedAt"`
	LastDrainAt       *time.Time `json:"lastDrainAt,omitempty"`
	LastTriggerAt     *time.Time `json:"lastTriggerAt,omitempty"`
	TotalSynced       int64      `json:"totalSynced"`
	TotalFailed       int64      `json:"totalFailed"`
	PendingAfterDrain int64      `json:"pendingAfterDrain"`
	LastError         string     `json:"lastError,omitempty"`
}

func (s *Syncer) Stats() Stats {
	st := Stats{
		StartedAt:         time.Unix(0, s.startedAtUnixNano).UTC(),
		TotalSynced:       s.totalSynced.Load(),
		TotalFailed:       s.totalFailed.Load(),
		PendingAfterDrain: s.pendingAfterDrain.Load(),
	}
	if n := s.lastDrainUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastDrainAt = &t
	}
	if n := s.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	s.lastErrorMu.Lock()
	st.LastError = s.lastError
	s.lastErrorMu.Unlock()
	return st
}

// Run крутится до отмены контекста: дрейн по переходу offline->online,
// по периодическому тику и по ручному триггеру.
func (s *Syncer) Run(ctx context.Context) error {
	transitions, cancel := s.net.Subscribe()
	defer cancel()

	t := time.NewTicker(s.syncInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-transitions:
			if online {
				s.Drain(ctx)
			}
		case <-t.C:
			s.Drain(ctx)
		case <-s.triggerCh:
			s.Drain(ctx)
		}
	}
}

// Drain — один проход: последовательно пересылает pending-записи с их
// исходным временем захвата, помечает synced строго после подтверждения.
// Возвращает число новых синхронизированных записей.
func (s *Syncer) Drain(ctx context.Context) int {
	now := time.Now().UTC()
	s.lastDrainUnixNano.Store(now.UnixNano())

	if !s.net.Current() {
		return 0
	}

	pending, err := s.repo.ListPending(ctx)
	if err != nil {
		slog.Error("list pending check-ins", "error", err.Error())
		s.setLastError(err.Error())
		return 0
	}
	if len(pending) == 0 {
		return 0
	}

	userID := s.identity.CurrentUserID()
	if userID == "" {
		// Без сессии досылать нечем; записи целы до следующего раза.
		s.setLastError("no authenticated session for sync")
		return 0
	}

	synced := 0
	left := 0
	for i, rec := range pending {
		if ctx.Err() != nil {
			left += len(pending) - i
			break
		}

		_, err := s.portal.SyncOfflineCheckIn(ctx, rec.QRCode, rec.CapturedAt, userID)
		if err != nil {
			// Одна плохая запись не останавливает проход.
			slog.Warn("sync check-in failed", "pending_id", rec.ID, "error", err.Error())
			s.totalFailed.Add(1)
			s.setLastError(err.Error())
			left++
			continue
		}

		if err := s.repo.MarkSynced(ctx, rec.ID); err != nil {
			slog.Error("mark synced", "pending_id", rec.ID, "error", err.Error())
			s.setLastError(err.Error())
			left++
			continue
		}
		synced++
	}

	s.totalSynced.Add(int64(synced))
	s.pendingAfterDrain.Store(int64(left))

	if synced > 0 {
		slog.Info("offline check-ins synced", "count", synced, "left", left)
	}

	if left == 0 && s.retention > 0 {
		if n, err := s.repo.PurgeSynced(ctx, now.Add(-s.retention)); err != nil {
			slog.Warn("purge synced check-ins", "error", err.Error())
		} else if n > 0 {
			slog.Info("synced check-ins purged", "count", n)
		}
	}

	return synced
}

func (s *Syncer) setLastError(msg string) {
	s.lastErrorMu.Lock()
	s.lastError = msg
	s.lastErrorMu.Unlock()
}
