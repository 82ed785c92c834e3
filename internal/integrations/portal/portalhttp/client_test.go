package portalhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClient_RegisterQRCheckIn_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkins", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "0123456789abcdef0123456789abcdef0123456789abcdef", body["qr_code"])
		require.Equal(t, "user-1", body["user_id"])
		require.NotContains(t, body, "captured_at")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "success": true,
  "message": "checked in",
  "event": {"id": 7, "title": "Party Congress", "location": "Hall A"},
  "check_in_time": "2025-05-01T10:00:00Z"
}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok-1")
	ack, err := c.RegisterQRCheckIn(context.Background(), "0123456789abcdef0123456789abcdef0123456789abcdef", "user-1")
	require.NoError(t, err)
	require.Equal(t, "checked in", ack.Message)
	require.Equal(t, uint64(7), ack.Event.ID)
	require.Equal(t, "Hall A", ack.Event.Location)
	require.Equal(t, time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC), ack.CheckInTime)
}

func TestClient_SyncOfflineCheckIn_SendsCapturedAt(t *testing.T) {
	capturedAt := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkins/sync", r.URL.Path)

		var body struct {
			CapturedAt time.Time `json:"captured_at"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.True(t, capturedAt.Equal(body.CapturedAt))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "message": "synced"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	ack, err := c.SyncOfflineCheckIn(context.Background(), "0123456789abcdef0123456789abcdef0123456789abcdef", capturedAt, "user-1")
	require.NoError(t, err)
	require.Equal(t, "synced", ack.Message)
}

func TestClient_BusinessRejectionVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success": false, "message": "already checked in"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "tok")
	_, err := c.RegisterQRCheckIn(context.Background(), "0123456789abcdef0123456789abcdef0123456789abcdef", "u")
	require.Error(t, err)
	require.Equal(t, "already checked in", err.Error())
}
