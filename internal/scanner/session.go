package scanner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BearBump/CheckPoint/internal/models"
)

type State string

const (
	StateIdle         State = "idle"
	StateScanning     State = "scanning"
	StateProcessing   State = "processing"
	StateSuccess      State = "success"
	StateOfflineSaved State = "offline-saved"
	StateError        State = "error"
)

// Submitter решает, куда уходит валидный код: онлайн на бэкенд или в
// локальную очередь.
type Submitter interface {
	Submit(ctx context.Context, qrCode string) models.CheckInResult
}

// OpenCamera выдаёт живой источник кадров или ошибку доступа к устройству.
type OpenCamera func() (FrameSource, error)

// Session — одна сессия сканирования:
// idle -> scanning -> processing -> {success | offline-saved | error}.
// Терминальные состояния ждут Retry или Close; автоматических ретраев нет.
// На любом выходе из scanning камера освобождается.
type Session struct {
	openCamera OpenCamera
	decoder    Decoder
	submitter  Submitter

	mu      sync.Mutex
	state   State
	result  models.CheckInResult
	camera  FrameSource
	stopped chan struct{} // закрывается при остановке decode-цикла
}

func NewSession(open OpenCamera, dec Decoder, sub Submitter) *Session {
	return &Session{
		openCamera: open,
		decoder:    dec,
		submitter:  sub,
		state:      StateIdle,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Result валиден только в терминальном состоянии.
func (s *Session) Result() models.CheckInResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Start запускает камеру и decode-цикл. Ошибка доступа к камере сразу
// переводит в error.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}

	cam, err := s.openCamera()
	if err != nil {
		s.state = StateError
		s.result = models.CheckInResult{
			Kind:    models.ResultServerError,
			Message: "camera unavailable: " + err.Error(),
		}
		s.mu.Unlock()
		return
	}

	s.camera = cam
	s.state = StateScanning
	stopped := make(chan struct{})
	s.stopped = stopped
	s.mu.Unlock()

	go s.decodeLoop(ctx, cam, stopped)
}

// decodeLoop — подписка на кадры. Завершается по первому декоду, по отмене
// контекста или когда источник закрыт; во всех случаях камера освобождается.
func (s *Session) decodeLoop(ctx context.Context, cam FrameSource, stopped chan struct{}) {
	defer close(stopped)

	for {
		select {
		case <-ctx.Done():
			s.teardownCamera(cam)
			return
		case f, ok := <-cam.Frames():
			if !ok {
				// источник закрыт извне (Close/Manual)
				return
			}
			payload, ok := s.decoder.Decode(f)
			if !ok {
				continue
			}
			s.teardownCamera(cam)
			s.process(ctx, payload)
			return
		}
	}
}

// Manual — ручной ввод кода (accessibility/тесты). Минует декодер, но
// валидация и submit те же.
func (s *Session) Manual(ctx context.Context, code string) {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	cam := s.camera
	stopped := s.stopped
	s.camera = nil
	s.mu.Unlock()

	if cam != nil {
		_ = cam.Close()
		if stopped != nil {
			<-stopped
		}
	}
	s.process(ctx, code)
}

func (s *Session) process(ctx context.Context, payload string) {
	s.mu.Lock()
	// Кадр мог декодироваться одновременно с ручным вводом: обрабатываем
	// только первый результат.
	if s.state != StateIdle && s.state != StateScanning {
		s.mu.Unlock()
		return
	}
	s.state = StateProcessing
	s.mu.Unlock()

	if !ValidCode(payload) {
		s.finish(models.CheckInResult{
			Kind:    models.ResultInvalidCode,
			Message: "invalid QR code",
		})
		return
	}

	res := s.submitter.Submit(ctx, payload)
	s.finish(res)
}

func (s *Session) finish(res models.CheckInResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = res
	switch res.Kind {
	case models.ResultSuccess:
		s.state = StateSuccess
	case models.ResultOfflineSaved:
		s.state = StateOfflineSaved
	default:
		s.state = StateError
	}
	slog.Info("scan finished", "kind", res.Kind, "message", res.Message)
}

// Retry возвращает сессию из терминального состояния обратно в сканирование.
func (s *Session) Retry(ctx context.Context) {
	s.mu.Lock()
	switch s.state {
	case StateSuccess, StateOfflineSaved, StateError:
		s.state = StateIdle
		s.result = models.CheckInResult{}
	default:
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.Start(ctx)
}

// Close завершает сессию из любого состояния и освобождает камеру.
func (s *Session) Close() {
	s.mu.Lock()
	cam := s.camera
	stopped := s.stopped
	s.camera = nil
	s.state = StateIdle
	s.result = models.CheckInResult{}
	s.mu.Unlock()

	if cam != nil {
		_ = cam.Close()
		if stopped != nil {
			<-stopped
		}
	}
}

func (s *Session) teardownCamera(cam FrameSource) {
	s.mu.Lock()
	if s.camera == cam {
		s.camera = nil
	}
	s.mu.Unlock()
	_ = cam.Close()
}
