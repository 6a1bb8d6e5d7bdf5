// Package qstash publishes manager-escalation alerts to Upstash QStash so the
// salon staff channel receives them outside the chat transport.
package qstash

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	URL      string        `split_words:"true" required:"true"`
	Token    string        `split_words:"true" required:"true"`
	AlertURL string        `split_words:"true" required:"true"` // destination webhook for manager alerts
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

type Client struct {
	baseURL    string
	token      string
	alertURL   string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.AlertURL) == "" {
		return nil, errors.New("qstash alert url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    strings.TrimSpace(cfg.Token),
		alertURL: strings.TrimSpace(cfg.AlertURL),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Alert is the payload delivered to the manager webhook.
type Alert struct {
	ChatID  string    `json:"chat_id"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sent_at"`
}

// PublishAlert enqueues a manager alert. Best effort: callers log the error
// and move on, the user already has their reply.
func (c *Client) PublishAlert(ctx context.Context, alert Alert) error {
	if strings.TrimSpace(alert.Message) == "" {
		return errors.New("alert message is empty")
	}
	if alert.SentAt.IsZero() {
		alert.SentAt = time.Now().UTC()
	}

	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	endpoint := c.baseURL + "/v2/publish/" + url.PathEscape(c.alertURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build publish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("qstash publish status=%d body=%s", resp.StatusCode, string(raw))
	}
	return nil
}
