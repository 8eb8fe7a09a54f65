// Package livescore is the REST client for the remote game store, the
// authoritative owner of every game aggregate. All mutations here are
// appends or deletes; the store maintains score totals itself.
package livescore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/metrics"
)

const defaultBaseURL = "http://localhost:3001/api"

// Operation names used for metrics and error context.
const (
	OpListGames    = "list_games"
	OpGetGame      = "get_game"
	OpCreateGame   = "create_game"
	OpUpdateStatus = "update_status"
	OpAddScore     = "add_score"
	OpAddEvent     = "add_event"
	OpDeleteScore  = "delete_score"
)

// Config controls how the client reaches the remote game store.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	// OnAuthError fires when the store answers 401, after the typed error is
	// built. Session-expiry handling lives outside this client.
	OnAuthError func()
	Metrics     *metrics.Recorder
}

// Client fetches and mutates game aggregates against the remote store.
type Client struct {
	baseURL     string
	httpClient  httpDoer
	tokens      TokenSource
	onAuthError func()
	metrics     *metrics.Recorder
}

// NewClient constructs a client with the provided configuration.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL:     normalizeBaseURL(cfg.BaseURL),
		httpClient:  resolveHTTPClient(cfg.HTTPClient),
		tokens:      cfg.Tokens,
		onAuthError: cfg.OnAuthError,
		metrics:     cfg.Metrics,
	}
}

// ListGames retrieves every game visible to the caller.
func (c *Client) ListGames(ctx context.Context) ([]domain.Game, error) {
	var games []domain.Game
	if err := c.do(ctx, OpListGames, http.MethodGet, "/livescores", nil, &games); err != nil {
		return nil, err
	}
	return games, nil
}

// GetGame retrieves one game aggregate including its score updates and
// game events.
func (c *Client) GetGame(ctx context.Context, id int64) (domain.Game, error) {
	var game domain.Game
	err := c.do(ctx, OpGetGame, http.MethodGet, fmt.Sprintf("/livescores/%d", id), nil, &game)
	return game, err
}

// CreateGame creates a new match.
func (c *Client) CreateGame(ctx context.Context, req domain.CreateGameRequest) (domain.Game, error) {
	var game domain.Game
	err := c.do(ctx, OpCreateGame, http.MethodPost, "/livescores", req, &game)
	return game, err
}

// UpdateStatus transitions a game's lifecycle state.
func (c *Client) UpdateStatus(ctx context.Context, id int64, req domain.UpdateStatusRequest) (domain.Game, error) {
	var game domain.Game
	err := c.do(ctx, OpUpdateStatus, http.MethodPatch, fmt.Sprintf("/livescores/%d/status", id), req, &game)
	return game, err
}

// AddScore appends a scoring record to the game.
func (c *Client) AddScore(ctx context.Context, id int64, req domain.AddScoreRequest) (domain.ScoreUpdate, error) {
	var update domain.ScoreUpdate
	err := c.do(ctx, OpAddScore, http.MethodPost, fmt.Sprintf("/livescores/%d/score", id), req, &update)
	return update, err
}

// AddEvent appends a non-scoring record to the game.
func (c *Client) AddEvent(ctx context.Context, id int64, req domain.AddEventRequest) (domain.GameEvent, error) {
	var event domain.GameEvent
	err := c.do(ctx, OpAddEvent, http.MethodPost, fmt.Sprintf("/livescores/%d/event", id), req, &event)
	return event, err
}

// DeleteScore removes a scoring record by id. Used only by the undo and
// edit workflows.
func (c *Client) DeleteScore(ctx context.Context, gameID, scoreID int64) error {
	return c.do(ctx, OpDeleteScore, http.MethodDelete, fmt.Sprintf("/livescores/%d/score/%d", gameID, scoreID), nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, body, out any) error {
	start := time.Now()
	err := c.doOnce(ctx, operation, method, path, body, out)
	if c.metrics != nil {
		c.metrics.RecordStoreCall(operation, time.Since(start), err)
	}
	return err
}

func (c *Client) doOnce(ctx context.Context, operation, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		httpErr := &HTTPError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
		if resp.StatusCode == http.StatusUnauthorized && c.onAuthError != nil {
			c.onAuthError()
		}
		return httpErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

// readErrorMessage pulls the store's {"error": "..."} body when present,
// falling back to the raw (truncated) body text.
func readErrorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 512))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
