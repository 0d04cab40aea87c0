// Package sdk is a small Go client for the game event ingestion API.
// It constructs install and purchase events and sends them with
// bearer authentication and bounded retries.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"game-events/internal/model"
)

// Config controls the client's endpoint, credential, and retry
// behavior. Zero values fall back to the defaults below.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration // per-request, default 5s
	MaxRetries int           // additional attempts after the first, default 3
	Backoff    time.Duration // initial retry delay, doubled per retry, default 500ms
}

// Client sends events to the ingestion API.
type Client struct {
	cfg  Config
	http *http.Client
}

// Accepted is the server's success response.
type Accepted struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// APIError is a non-success response from the server that was not
// retried away.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Body)
}

// New builds a Client from cfg.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Backoff == 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// SendInstall posts an install event.
func (c *Client) SendInstall(ctx context.Context, evt model.Event) (Accepted, error) {
	return c.post(ctx, "/v1/events/install", evt)
}

// SendPurchase posts a purchase event.
func (c *Client) SendPurchase(ctx context.Context, evt model.Event) (Accepted, error) {
	return c.post(ctx, "/v1/events/purchase", evt)
}

// Send dispatches on the event's type, falling back to the
// discriminated endpoint for anything else.
func (c *Client) Send(ctx context.Context, evt model.Event) (Accepted, error) {
	switch evt.EventType {
	case model.TypeInstall:
		return c.SendInstall(ctx, evt)
	case model.TypePurchase:
		return c.SendPurchase(ctx, evt)
	default:
		return c.post(ctx, "/v1/events", evt)
	}
}

func (c *Client) post(ctx context.Context, path string, evt model.Event) (Accepted, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Accepted{}, fmt.Errorf("encode event: %w", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	backoff := c.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Accepted{}, ctx.Err()
			case <-timer.C:
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return Accepted{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		accepted, retriable, apiErr := decodeResponse(resp)
		if apiErr == nil {
			return accepted, nil
		}
		lastErr = apiErr
		if !retriable {
			return Accepted{}, apiErr
		}
	}
	return Accepted{}, fmt.Errorf("send event: %w", lastErr)
}

func decodeResponse(resp *http.Response) (Accepted, bool, error) {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var out Accepted
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return Accepted{}, false, fmt.Errorf("decode response: %w", err)
		}
		return out, false, nil
	}

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(buf.String())}
	retriable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return Accepted{}, retriable, apiErr
}
