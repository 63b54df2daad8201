package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"tabtimer/internal/core/model"
	"tabtimer/internal/core/syncer"
)

// Client talks to a running daemon.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the daemon listening on address.
func NewClient(address string) *Client {
	base := address
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Start asks the daemon to start a countdown.
func (client *Client) Start(ctx context.Context, request StartTimerRequest) error {
	return client.do(ctx, http.MethodPost, "/api/timer/start", request, nil)
}

// Cancel asks the daemon to cancel the countdown.
func (client *Client) Cancel(ctx context.Context) error {
	return client.do(ctx, http.MethodPost, "/api/timer/cancel", struct{}{}, nil)
}

// Status returns the countdown status.
func (client *Client) Status(ctx context.Context) (StatusReply, error) {
	var status StatusReply
	err := client.do(ctx, http.MethodGet, "/api/timer/status", nil, &status)
	return status, err
}

// Presets lists the presets in display order.
func (client *Client) Presets(ctx context.Context) ([]model.TimerPreset, error) {
	var body struct {
		Presets []model.TimerPreset `json:"presets"`
	}
	err := client.do(ctx, http.MethodGet, "/api/presets", nil, &body)
	return body.Presets, err
}

// CreatePreset stores a new preset.
func (client *Client) CreatePreset(ctx context.Context, draft model.TimerPreset) (model.TimerPreset, error) {
	var body struct {
		Preset model.TimerPreset `json:"preset"`
	}
	err := client.do(ctx, http.MethodPost, "/api/presets", draft, &body)
	return body.Preset, err
}

// DeletePreset removes a preset.
func (client *Client) DeletePreset(ctx context.Context, id string) error {
	return client.do(ctx, http.MethodDelete, "/api/presets/"+url.PathEscape(id), nil, nil)
}

// ReorderPresets moves the named presets to the front, in order.
func (client *Client) ReorderPresets(ctx context.Context, ids []string) ([]model.TimerPreset, error) {
	var body struct {
		Presets []model.TimerPreset `json:"presets"`
	}
	err := client.do(ctx, http.MethodPost, "/api/presets/reorder", reorderRequest{IDs: ids}, &body)
	return body.Presets, err
}

// Sync forces a reconcile with the remote store.
func (client *Client) Sync(ctx context.Context) (syncer.Outcome, error) {
	var body struct {
		Outcome syncer.Outcome `json:"outcome"`
	}
	err := client.do(ctx, http.MethodPost, "/api/sync", struct{}{}, &body)
	return body.Outcome, err
}

// Subscribe opens a websocket as role and delivers every frame the daemon
// sends. The channel closes when the connection ends or ctx is cancelled.
func (client *Client) Subscribe(ctx context.Context, role string) (<-chan Envelope, error) {
	wsURL := strings.Replace(client.baseURL, "http", "ws", 1) + "/ws?role=" + url.QueryEscape(role)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}

	frames := make(chan Envelope, sendBuffer)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(frames)
		defer conn.Close()
		for {
			var envelope Envelope
			if err := conn.ReadJSON(&envelope); err != nil {
				return
			}
			select {
			case frames <- envelope:
			case <-ctx.Done():
				return
			}
		}
	}()
	return frames, nil
}

func (client *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var envelope struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Error.Code == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		envelope.Error.Status = resp.StatusCode
		return &envelope.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
