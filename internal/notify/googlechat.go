package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StatusError is a non-2xx response from the chat webhook.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google chat webhook returned HTTP %d: %s", e.StatusCode, e.Body)
}

const (
	chatMaxRetries   = 3
	chatBaseBackoff  = 300 * time.Millisecond
	chatMaxBodyBytes = 512
)

// GoogleChat posts plain-text messages to an incoming webhook.
type GoogleChat struct {
	webhookURL  string
	httpClient  *http.Client
	baseBackoff time.Duration
}

// ChatOption configures a GoogleChat notifier.
type ChatOption func(*GoogleChat)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) ChatOption {
	return func(g *GoogleChat) {
		g.httpClient = c
	}
}

// WithBackoff sets the delay before the first retry. Later retries double it.
func WithBackoff(d time.Duration) ChatOption {
	return func(g *GoogleChat) {
		g.baseBackoff = d
	}
}

func NewGoogleChat(webhookURL string, opts ...ChatOption) *GoogleChat {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxConnsPerHost = 10
	transport.MaxIdleConnsPerHost = 10

	g := &GoogleChat{
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		baseBackoff: chatBaseBackoff,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GoogleChat) Name() string { return "google_chat" }

// Send posts the rendered alert. 500, 502, 503 and 504 responses are
// retried with exponential backoff.
func (g *GoogleChat) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(map[string]string{"text": ChatText(msg)})
	if err != nil {
		return fmt.Errorf("marshal chat message: %w", err)
	}

	var lastErr *StatusError
	for attempt := 0; attempt <= chatMaxRetries; attempt++ {
		if attempt > 0 {
			t := time.NewTimer(g.baseBackoff << (attempt - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}

		err := g.post(ctx, payload)
		if err == nil {
			return nil
		}
		var statusErr *StatusError
		if !errors.As(err, &statusErr) || !retryableStatus(statusErr.StatusCode) {
			return err
		}
		lastErr = statusErr
	}
	return lastErr
}

func (g *GoogleChat) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post chat message: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, chatMaxBodyBytes))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}
