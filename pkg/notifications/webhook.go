package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// WebhookChannel posts notifications as JSON to a configured sink address.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{
		url:        url,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Severity  string `json:"severity"`
	Color     string `json:"color"`
	Timestamp string `json:"timestamp"`
}

func (c *WebhookChannel) Send(ctx context.Context, n Notification) error {
	payload := webhookPayload{
		ID:        uuid.NewString(),
		Title:     n.Title,
		Body:      n.Body,
		Severity:  string(n.Severity),
		Color:     n.Severity.Color(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("webhook status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
