// Package netmon держит текущее представление агента о доступности сети:
// снапшот + подписка на переходы. Источник переходов внешний (probe,
// админ-API); сам монитор ничего не опрашивает.
package netmon

import (
	"log/slog"
	"sync"
)

type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
}

func New(initialOnline bool) *Monitor {
	return &Monitor{
		online: initialOnline,
		subs:   make(map[int]chan bool),
	}
}

func (m *Monitor) Current() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Set применяет переход. Повторная установка того же состояния
// подписчиков не будит.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]chan bool, 0, len(m.subs))
	for _, ch := range m.subs {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	slog.Info("reachability changed", "online", online)
	for _, ch := range subs {
		// Подписчик с полным буфером просто пропустит промежуточный переход;
		// актуальное состояние он всё равно прочитает через Current.
		select {
		case ch <- online:
		default:
		}
	}
}

// Subscribe возвращает канал переходов и функцию отписки.
// Канал буферизован: подписчик не обязан читать мгновенно.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}
