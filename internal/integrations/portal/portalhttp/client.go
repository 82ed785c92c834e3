// Package portalhttp — HTTP-клиент чек-ин API портала.
package portalhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/CheckPoint/internal/integrations/portal"
)

type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type checkInRequest struct {
	QRCode     string     `json:"qr_code"`
	UserID     string     `json:"user_id,omitempty"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

type checkInResponse struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Event       *portal.EventSummary `json:"event,omitempty"`
	CheckInTime *time.Time           `json:"check_in_time,omitempty"`
}

func (c *Client) RegisterQRCheckIn(ctx context.Context, qrCode, userID string) (portal.CheckInAck, error) {
	return c.post(ctx, "/v1/checkins", checkInRequest{QRCode: qrCode, UserID: userID})
}

func (c *Client) SyncOfflineCheckIn(ctx context.Context, qrCode string, capturedAt time.Time, userID string) (portal.CheckInAck, error) {
	at := capturedAt.UTC()
	return c.post(ctx, "/v1/checkins/sync", checkInRequest{QRCode: qrCode, UserID: userID, CapturedAt: &at})
}

func (c *Client) post(ctx context.Context, path string, body checkInRequest) (portal.CheckInAck, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return portal.CheckInAck{}, errors.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return portal.CheckInAck{}, errors.Wrap(err, "new request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return portal.CheckInAck{}, errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	var r checkInResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return portal.CheckInAck{}, errors.Wrapf(err, "decode response (http %d)", resp.StatusCode)
	}

	if resp.StatusCode/100 != 2 || !r.Success {
		msg := r.Message
		if msg == "" {
			msg = fmt.Sprintf("portal http %d", resp.StatusCode)
		}
		// Текст отказа уходит пользователю как есть.
		return portal.CheckInAck{}, errors.New(msg)
	}

	ack := portal.CheckInAck{Message: r.Message}
	if r.Event != nil {
		ack.Event = *r.Event
	}
	if r.CheckInTime != nil {
		ack.CheckInTime = r.CheckInTime.UTC()
	}
	return ack, nil
}
