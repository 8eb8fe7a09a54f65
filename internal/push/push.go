// Package push manages server-side web push subscription preferences. Only
// the preference calls live here; payload encryption and delivery belong to
// the store.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const defaultBaseURL = "http://localhost:3001/api"

// Keys carries the browser-generated subscription key material, passed
// through opaquely.
type Keys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription identifies one push endpoint.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     Keys   `json:"keys"`
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token() string
}

// Config controls the push preferences client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

// Client registers and removes push subscriptions with the remote store.
type Client struct {
	baseURL    string
	httpClient httpDoer
	tokens     TokenSource
}

// NewClient constructs a push preferences client.
func NewClient(cfg Config) *Client {
	base := strings.TrimSuffix(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	var doer httpDoer = http.DefaultClient
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient
	}
	return &Client{baseURL: base, httpClient: doer, tokens: cfg.Tokens}
}

// Subscribe registers a push endpoint for the current user.
func (c *Client) Subscribe(ctx context.Context, sub Subscription) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("subscribe: endpoint required")
	}
	return c.post(ctx, "/notifications/subscribe", sub)
}

// Unsubscribe removes a previously registered endpoint.
func (c *Client) Unsubscribe(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("unsubscribe: endpoint required")
	}
	payload := struct {
		Endpoint string `json:"endpoint"`
	}{Endpoint: endpoint}
	return c.post(ctx, "/notifications/unsubscribe", payload)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("push preferences: unexpected status %d for %s", resp.StatusCode, path)
	}
	return nil
}
