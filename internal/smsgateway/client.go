// Package smsgateway asks the SMS provider to text a one-time code.
package smsgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type Config struct {
	URL     string
	Timeout time.Duration
}

type Client struct {
	url    string
	http   *http.Client
	logger *slog.Logger
}

// response is the provider's body. Error is set on provider-side failure.
type response struct {
	Code  string `json:"code"`
	Error string `json:"error,omitempty"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// RequestCode posts to {url}?phone={number}. The provider generates the
// code, texts it and returns it so it can be checked later.
func (c *Client) RequestCode(ctx context.Context, phone string) (string, error) {
	if c.url == "" {
		return "", fmt.Errorf("sms gateway url is not configured")
	}

	endpoint, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid sms gateway url: %w", err)
	}
	q := endpoint.Query()
	q.Set("phone", phone)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("sms gateway request failed", "error", err)
		return "", fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("failed to decode sms gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("sms gateway rejected request", "status_code", resp.StatusCode, "error", body.Error)
		return "", fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode, body.Error)
	}
	if body.Error != "" {
		return "", fmt.Errorf("sms gateway error: %s", body.Error)
	}
	if body.Code == "" {
		return "", fmt.Errorf("sms gateway returned no code")
	}
	return body.Code, nil
}
