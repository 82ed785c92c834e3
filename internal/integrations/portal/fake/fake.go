// Package fake — детерминированная заглушка портала для тестов и демо
// агента без бэкенда.
package fake

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/integrations/portal"
)

// FakeClient принимает любой валидный код, но повторную пару (code, user)
// отклоняет как "already checked in". Событие выводится из хэша кода.
type FakeClient struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func New() *FakeClient {
	return &FakeClient{seen: make(map[string]struct{})}
}

func (f *FakeClient) RegisterQRCheckIn(ctx context.Context, qrCode, userID string) (portal.CheckInAck, error) {
	return f.register(qrCode, userID, time.Now().UTC())
}

func (f *FakeClient) SyncOfflineCheckIn(ctx context.Context, qrCode string, capturedAt time.Time, userID string) (portal.CheckInAck, error) {
	return f.register(qrCode, userID, capturedAt.UTC())
}

func (f *FakeClient) register(qrCode, userID string, at time.Time) (portal.CheckInAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := qrCode + "|" + userID
	if _, ok := f.seen[key]; ok {
		return portal.CheckInAck{}, errors.New("already checked in")
	}
	f.seen[key] = struct{}{}

	h := fnv.New32a()
	_, _ = h.Write([]byte(qrCode))

	return portal.CheckInAck{
		Message: "checked in",
		Event: portal.EventSummary{
			ID:       uint64(h.Sum32()%1000 + 1),
			Title:    "fake event",
			Location: "fake hall",
		},
		CheckInTime: at,
	}, nil
}
