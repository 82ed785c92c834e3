package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/BearBump/CheckPoint/internal/models"
)

const goodCode = "0123456789abcdef0123456789abcdef0123456789abcdef"

func TestValidCode(t *testing.T) {
	require.True(t, ValidCode(goodCode))
	require.True(t, ValidCode(strings.Repeat("a", 48)))

	require.False(t, ValidCode("not-a-qr"))
	require.False(t, ValidCode(""))
	require.False(t, ValidCode(strings.Repeat("a", 47)))
	require.False(t, ValidCode(strings.Repeat("a", 49)))
	require.False(t, ValidCode(strings.Repeat("A", 48))) // uppercase
	require.False(t, ValidCode(strings.Repeat("g", 48))) // не hex
	require.False(t, ValidCode(strings.Repeat("a", 47)+"\n"))
}

type fakeCamera struct {
	frames chan Frame

	mu     sync.Mutex
	closed bool
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{frames: make(chan Frame, 4)}
}

func (c *fakeCamera) Frames() <-chan Frame { return c.frames }

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.frames)
	}
	return nil
}

func (c *fakeCamera) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// payloadDecoder трактует содержимое кадра как готовую полезную нагрузку.
type payloadDecoder struct{}

func (payloadDecoder) Decode(f Frame) (string, bool) {
	if len(f.Data) == 0 {
		return "", false
	}
	return string(f.Data), true
}

type fakeSubmitter struct {
	mu    sync.Mutex
	codes []string
	res   models.CheckInResult
}

func (f *fakeSubmitter) Submit(ctx context.Context, qrCode string) models.CheckInResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, qrCode)
	return f.res
}

func (f *fakeSubmitter) Codes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return s.State() == want }, time.Second, 5*time.Millisecond)
}

func TestSession_ScanToSuccess(t *testing.T) {
	cam := newFakeCamera()
	sub := &fakeSubmitter{res: models.CheckInResult{Kind: models.ResultSuccess, Message: "checked in"}}
	s := NewSession(func() (FrameSource, error) { return cam, nil }, payloadDecoder{}, sub)

	s.Start(context.Background())
	require.Equal(t, StateScanning, s.State())

	cam.frames <- Frame{} // пустой кадр игнорируется
	cam.frames <- Frame{Data: []byte(goodCode)}

	waitState(t, s, StateSuccess)
	require.Equal(t, []string{goodCode}, sub.Codes())
	require.True(t, cam.Closed())
}

func TestSession_InvalidPayloadNeverReachesSubmitter(t *testing.T) {
	cam := newFakeCamera()
	sub := &fakeSubmitter{}
	s := NewSession(func() (FrameSource, error) { return cam, nil }, payloadDecoder{}, sub)

	s.Start(context.Background())
	cam.frames <- Frame{Data: []byte("not-a-qr")}

	waitState(t, s, StateError)
	require.Equal(t, "invalid QR code", s.Result().Message)
	require.Equal(t, models.ResultInvalidCode, s.Result().Kind)
	require.Empty(t, sub.Codes())
	require.True(t, cam.Closed())
}

func TestSession_CameraFailure(t *testing.T) {
	sub := &fakeSubmitter{}
	s := NewSession(func() (FrameSource, error) { return nil, errors.New("permission denied") }, payloadDecoder{}, sub)

	s.Start(context.Background())
	require.Equal(t, StateError, s.State())
	require.Contains(t, s.Result().Message, "camera unavailable")
	require.Empty(t, sub.Codes())
}

func TestSession_OfflineSaved(t *testing.T) {
	cam := newFakeCamera()
	sub := &fakeSubmitter{res: models.CheckInResult{Kind: models.ResultOfflineSaved, Message: "saved offline"}}
	s := NewSession(func() (FrameSource, error) { return cam, nil }, payloadDecoder{}, sub)

	s.Start(context.Background())
	cam.frames <- Frame{Data: []byte(goodCode)}

	waitState(t, s, StateOfflineSaved)
}

func TestSession_ManualEntry(t *testing.T) {
	cam := newFakeCamera()
	sub := &fakeSubmitter{res: models.CheckInResult{Kind: models.ResultSuccess}}
	s := NewSession(func() (FrameSource, error) { return cam, nil }, payloadDecoder{}, sub)

	s.Start(context.Background())
	s.Manual(context.Background(), goodCode)

	waitState(t, s, StateSuccess)
	require.Equal(t, []string{goodCode}, sub.Codes())
	// ручной ввод тоже освобождает камеру
	require.True(t, cam.Closed())
}

func TestSession_CloseReleasesCamera(t *testing.T) {
	cam := newFakeCamera()
	sub := &fakeSubmitter{}
	s := NewSession(func() (FrameSource, error) { return cam, nil }, payloadDecoder{}, sub)

	s.Start(context.Background())
	require.Equal(t, StateScanning, s.State())

	s.Close()
	require.True(t, cam.Closed())
	require.Equal(t, StateIdle, s.State())
	require.Empty(t, sub.Codes())
}

func TestSession_RetryFromError(t *testing.T) {
	cam1 := newFakeCamera()
	cam2 := newFakeCamera()
	cams := []*fakeCamera{cam1, cam2}
	i := 0
	open := func() (FrameSource, error) {
		c := cams[i]
		i++
		return c, nil
	}

	sub := &fakeSubmitter{res: models.CheckInResult{Kind: models.ResultSuccess}}
	s := NewSession(open, payloadDecoder{}, sub)

	s.Start(context.Background())
	cam1.frames <- Frame{Data: []byte("bad")}
	waitState(t, s, StateError)

	s.Retry(context.Background())
	require.Equal(t, StateScanning, s.State())
	cam2.frames <- Frame{Data: []byte(goodCode)}
	waitState(t, s, StateSuccess)

	require.True(t, cam1.Closed())
	require.True(t, cam2.Closed())
}
