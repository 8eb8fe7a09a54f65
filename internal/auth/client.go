package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/livescore"
)

// ErrMissingCredentials is returned before any network call when the login
// form is incomplete.
var ErrMissingCredentials = errors.New("email and password are required")

// Credentials is the login payload. Token issuance itself is the store's
// concern.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is the store's answer to a successful login.
type Session struct {
	User  domain.User `json:"user"`
	Token string      `json:"token"`
}

// Config controls how the auth client reaches the store.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Holder     *TokenHolder
}

// Client performs login and profile calls and feeds the token holder.
type Client struct {
	baseURL    string
	httpClient *http.Client
	holder     *TokenHolder
}

// NewClient constructs an auth client.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		holder:     cfg.Holder,
	}
}

// Login exchanges credentials for a session and stores it on the holder.
// Incomplete credentials fail locally without a network call.
func (c *Client) Login(ctx context.Context, creds Credentials) (Session, error) {
	if creds.Email == "" || creds.Password == "" {
		return Session{}, ErrMissingCredentials
	}

	var session Session
	if err := c.post(ctx, "/auth/login", creds, &session); err != nil {
		return Session{}, err
	}
	if c.holder != nil {
		c.holder.SetAuth(session.User, session.Token)
	}
	return session, nil
}

// Profile fetches the authenticated user's account.
func (c *Client) Profile(ctx context.Context) (domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("profile: build request: %w", err)
	}
	c.authorize(req)

	var user domain.User
	if err := c.execute("profile", req, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Logout clears the holder. The store is stateless; there is nothing to
// call.
func (c *Client) Logout() {
	if c.holder != nil {
		c.holder.ClearAuth()
	}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("login: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("login: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.execute("login", req, out)
}

func (c *Client) authorize(req *http.Request) {
	if c.holder != nil {
		if token := c.holder.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

func (c *Client) execute(operation string, req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		var payload struct {
			Error string `json:"error"`
		}
		message := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			message = payload.Error
		}
		return &livescore.HTTPError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}
