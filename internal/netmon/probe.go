package netmon

import (
	"context"
	"net/http"
	"time"
)

// Prober отвечает на один вопрос: достижим ли сейчас бэкенд.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber дёргает healthz бэкенда. Любой ответ сервера (даже 5xx)
// означает "сеть есть" — бизнес-ошибки решаются не здесь.
type HTTPProber struct {
	url   string
	httpc *http.Client
}

func NewHTTPProber(url string) *HTTPProber {
	return &HTTPProber{
		url: url,
		httpc: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.httpc.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Watch кормит монитор результатами probe до отмены контекста.
// Это источник переходов по умолчанию для агента: переносимого
// push-сигнала от платформы у нас нет, а явные переходы всё равно
// можно вбрасывать через Monitor.Set.
func Watch(ctx context.Context, m *Monitor, p Prober, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Set(p.Probe(ctx))
		}
	}
}
