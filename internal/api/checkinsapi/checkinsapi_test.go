package checkinsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/BearBump/CheckPoint/internal/models"
	"github.com/BearBump/CheckPoint/internal/services/checkins"
	"github.com/BearBump/CheckPoint/internal/storage/pgcheckin"
)

type fakeService struct {
	lastToken      string
	lastQRCode     string
	lastCapturedAt *time.Time

	ack checkins.Ack
	att checkins.Attendance
	err error
}

func (f *fakeService) Register(_ context.Context, token, qrCode string, capturedAt *time.Time) (checkins.Ack, error) {
	f.lastToken = token
	f.lastQRCode = qrCode
	f.lastCapturedAt = capturedAt
	if f.err != nil {
		return checkins.Ack{}, f.err
	}
	return f.ack, nil
}

func (f *fakeService) GetAttendance(_ context.Context, _ uint64) (checkins.Attendance, error) {
	if f.err != nil {
		return checkins.Attendance{}, f.err
	}
	return f.att, nil
}

func newServer(svc *fakeService) *httptest.Server {
	r := chi.NewRouter()
	New(svc).Routes(r)
	return httptest.NewServer(r)
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestRegisterCheckIn(t *testing.T) {
	when := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	svc := &fakeService{
		ack: checkins.Ack{
			Message:     "checked in",
			Event:       models.EventSummary{ID: 42, Title: "GoConf", Location: "Hall A"},
			CheckInTime: when,
		},
	}
	srv := newServer(svc)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/checkins", "tok-1", map[string]string{
		"qr_code": "0123456789abcdef0123456789abcdef0123456789abcdef",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "tok-1", svc.lastToken)
	require.Equal(t, "0123456789abcdef0123456789abcdef0123456789abcdef", svc.lastQRCode)
	require.Nil(t, svc.lastCapturedAt)

	var body checkInResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.True(t, body.Success)
	require.Equal(t, "checked in", body.Message)
	require.NotNil(t, body.Event)
	require.Equal(t, uint64(42), body.Event.ID)
	require.Equal(t, "GoConf", body.Event.Title)
	require.NotNil(t, body.CheckInTime)
	require.True(t, when.Equal(*body.CheckInTime))
}

func TestSyncCheckInPassesCapturedAt(t *testing.T) {
	svc := &fakeService{ack: checkins.Ack{Message: "checked in"}}
	srv := newServer(svc)
	defer srv.Close()

	captured := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	resp := postJSON(t, srv.URL+"/v1/checkins/sync", "tok-1", map[string]any{
		"qr_code":     "0123456789abcdef0123456789abcdef0123456789abcdef",
		"captured_at": captured,
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.lastCapturedAt)
	require.True(t, captured.Equal(*svc.lastCapturedAt))
}

func TestSyncCheckInRequiresCapturedAt(t *testing.T) {
	svc := &fakeService{}
	srv := newServer(svc)
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/v1/checkins/sync", "tok-1", map[string]string{
		"qr_code": "0123456789abcdef0123456789abcdef0123456789abcdef",
	})
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Empty(t, svc.lastQRCode)
}

func TestErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not authenticated", checkins.ErrNotAuthenticated, http.StatusUnauthorized},
		{"invalid code", checkins.ErrInvalidCode, http.StatusBadRequest},
		{"rate limited", checkins.ErrRateLimited, http.StatusTooManyRequests},
		{"event not found", pgcheckin.ErrEventNotFound, http.StatusNotFound},
		{"code expired", pgcheckin.ErrCodeExpired, http.StatusGone},
		{"already checked in", pgcheckin.ErrAlreadyCheckedIn, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(&fakeService{err: tc.err})
			defer srv.Close()

			resp := postJSON(t, srv.URL+"/v1/checkins", "tok-1", map[string]string{
				"qr_code": "0123456789abcdef0123456789abcdef0123456789abcdef",
			})
			defer resp.Body.Close()

			require.Equal(t, tc.status, resp.StatusCode)

			var body checkInResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.False(t, body.Success)
			require.Equal(t, tc.err.Error(), body.Message)
		})
	}
}

func TestEventAttendance(t *testing.T) {
	svc := &fakeService{att: checkins.Attendance{EventID: 7, Count: 3}}
	srv := newServer(svc)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/events/7/attendance")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var att checkins.Attendance
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&att))
	require.Equal(t, uint64(7), att.EventID)
	require.Equal(t, int64(3), att.Count)
}

func TestEventAttendanceBadID(t *testing.T) {
	srv := newServer(&fakeService{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/events/abc/attendance")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
