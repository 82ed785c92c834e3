// Package checkinsapi — HTTP/JSON поверхность чек-ин API.
package checkinsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/services/checkins"
	"github.com/BearBump/CheckPoint/internal/storage/pgcheckin"
)

type Service interface {
	Register(ctx context.Context, token, qrCode string, capturedAt *time.Time) (checkins.Ack, error)
	GetAttendance(ctx context.Context, eventID uint64) (checkins.Attendance, error)
}

type API struct {
	svc Service
}

func New(svc Service) *API {
	return &API{svc: svc}
}

func (a *API) Routes(r chi.Router) {
	r.Post("/v1/checkins", a.registerCheckIn)
	r.Post("/v1/checkins/sync", a.syncCheckIn)
	r.Get("/v1/events/{eventID}/attendance", a.eventAttendance)
}

type checkInRequest struct {
	QRCode     string     `json:"qr_code"`
	UserID     string     `json:"user_id,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

type eventPayload struct {
	ID       uint64 `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

type checkInResponse struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	Event       *eventPayload `json:"event,omitempty"`
	CheckInTime *time.Time    `json:"check_in_time,omitempty"`
}

func (a *API) registerCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Онлайн-путь: captured_at игнорируем, время ставит сервер.
	a.register(w, r, req.QRCode, nil)
}

func (a *API) syncCheckIn(w http.ResponseWriter, r *http.Request) {
	var req checkInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CapturedAt == nil {
		writeError(w, http.StatusBadRequest, "captured_at is required")
		return
	}
	a.register(w, r, req.QRCode, req.CapturedAt)
}

func (a *API) register(w http.ResponseWriter, r *http.Request, qrCode string, capturedAt *time.Time) {
	ack, err := a.svc.Register(r.Context(), bearerToken(r), qrCode, capturedAt)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	t := ack.CheckInTime
	writeJSON(w, http.StatusOK, checkInResponse{
		Success: true,
		Message: ack.Message,
		Event: &eventPayload{
			ID:       ack.Event.ID,
			Title:    ack.Event.Title,
			Location: ack.Event.Location,
		},
		CheckInTime: &t,
	})
}

func (a *API) eventAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "eventID"), 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	att, err := a.svc.GetAttendance(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, att)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, checkins.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, checkins.ErrInvalidCode):
		return http.StatusBadRequest
	case errors.Is(err, checkins.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, pgcheckin.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, pgcheckin.ErrCodeExpired):
		return http.StatusGone
	case errors.Is(err, pgcheckin.ErrAlreadyCheckedIn):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, checkInResponse{Success: false, Message: msg})
}
