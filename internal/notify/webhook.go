package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Webhook POSTs each notification as JSON to a fixed URL.
type Webhook struct {
	client *resty.Client
	url    string
}

// WebhookOption configures a Webhook.
type WebhookOption func(*resty.Client)

// WithRetry sets how many times a failed delivery is retried and the
// initial wait between attempts.
func WithRetry(count int, wait time.Duration) WebhookOption {
	return func(c *resty.Client) {
		c.SetRetryCount(count).SetRetryWaitTime(wait).SetRetryMaxWaitTime(4 * wait)
	}
}

// WithTimeout bounds a single attempt.
func WithTimeout(d time.Duration) WebhookOption {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	client := resty.New().
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	for _, opt := range opts {
		opt(client)
	}
	return &Webhook{client: client, url: url}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, n Notification) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("X-Fadem-Event", n.EventType).
		SetBody(n).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}
