// Package notifier consumes the store's real-time channel. The channel only
// announces that something about a game changed; payloads carry a game id
// and nothing else is trusted. Signals may be duplicated, dropped, or
// reordered; consumers re-fetch, they never apply payload data.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"rugby-livescore-service/internal/logging"
	"rugby-livescore-service/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Ping period; must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from the peer.
	maxMessageSize = 4096

	sendBuffer        = 64
	subscriberBuffer  = 16
	initialRetryDelay = time.Second
	maxRetryDelay     = 30 * time.Second
)

// Channel event names.
const (
	EventScoreUpdate = "score-update"
	EventGameEvent   = "game-event"

	eventJoinGame  = "join-game"
	eventLeaveGame = "leave-game"
)

// Signal is one change announcement. GameID is zero when the payload did
// not carry one; list-scoped consumers still treat that as a trigger.
type Signal struct {
	Event  string
	GameID int64
}

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type gamePayload struct {
	GameID json.Number `json:"gameId"`
}

// Config controls the notifier connection.
type Config struct {
	URL     string
	Header  http.Header
	Dialer  *websocket.Dialer
	Logger  *slog.Logger
	Metrics *metrics.Recorder
}

// Client is an owned, reconnecting websocket client for the change feed.
type Client struct {
	id      uuid.UUID
	url     string
	header  http.Header
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *metrics.Recorder

	send chan []byte
	done chan struct{}

	mu          sync.Mutex
	joined      map[int64]struct{}
	subscribers map[int]chan Signal
	nextSub     int
	started     bool
	closed      bool
}

// NewClient constructs a notifier client. Connect must be called before any
// signals arrive.
func NewClient(cfg Config) *Client {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return &Client{
		id:          uuid.New(),
		url:         cfg.URL,
		header:      cfg.Header,
		dialer:      dialer,
		logger:      cfg.Logger,
		metrics:     cfg.Metrics,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
		joined:      make(map[int64]struct{}),
		subscribers: make(map[int]chan Signal),
	}
}

// ID identifies this client instance in logs.
func (c *Client) ID() uuid.UUID {
	return c.id
}

// Connect starts the connection manager. It returns immediately; the
// manager dials, pumps, and reconnects with capped backoff until the
// context is cancelled or Close is called.
func (c *Client) Connect(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
}

// Close tears the connection down and stops reconnecting. Safe to call more
// than once; emits after Close are no-ops.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for key, sub := range c.subscribers {
		close(sub)
		delete(c.subscribers, key)
	}
	c.mu.Unlock()

	close(c.done)
}

// Subscribe returns a channel of signals and a cancel function. Slow
// subscribers lose signals rather than blocking the feed; a lost signal is
// recovered by the next poll cycle.
func (c *Client) Subscribe() (<-chan Signal, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		closed := make(chan Signal)
		close(closed)
		return closed, func() {}
	}

	key := c.nextSub
	c.nextSub++
	ch := make(chan Signal, subscriberBuffer)
	c.subscribers[key] = ch

	cancel := func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subscribers[key]; ok {
			delete(c.subscribers, key)
			close(sub)
		}
	}
	return ch, cancel
}

// JoinGame subscribes this connection to a game's room. The membership is
// remembered and re-announced after every reconnect.
func (c *Client) JoinGame(id int64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.joined[id] = struct{}{}
	c.mu.Unlock()

	c.enqueue(eventJoinGame, id)
}

// LeaveGame leaves a game's room.
func (c *Client) LeaveGame(id int64) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	delete(c.joined, id)
	c.mu.Unlock()

	c.enqueue(eventLeaveGame, id)
}

func (c *Client) enqueue(event string, gameID int64) {
	payload, err := json.Marshal(envelope{
		Event: event,
		Data:  mustGameData(gameID),
	})
	if err != nil {
		logging.Error(c.logger, "notifier encode failed", err, logging.FieldEvent, event)
		return
	}
	select {
	case c.send <- payload:
	default:
		logging.Warn(c.logger, "notifier send buffer full, dropping emit",
			logging.FieldEvent, event, logging.FieldGameID, gameID)
	}
}

func mustGameData(gameID int64) json.RawMessage {
	raw, _ := json.Marshal(gamePayload{GameID: json.Number(strconv.FormatInt(gameID, 10))})
	return raw
}

func (c *Client) run(ctx context.Context) {
	delay := initialRetryDelay
	for {
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.header)
		if err != nil {
			logging.Warn(c.logger, "notifier dial failed", "error", err, "url", c.url)
			if !c.sleep(ctx, delay) {
				return
			}
			delay = nextDelay(delay)
			c.metrics.RecordReconnect()
			continue
		}

		logging.Info(c.logger, "notifier connected", "url", c.url)
		delay = initialRetryDelay
		c.rejoin()

		connDone := make(chan struct{})
		go c.writePump(conn, connDone)
		c.readPump(conn)
		close(connDone)
		conn.Close()

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		logging.Warn(c.logger, "notifier connection lost, reconnecting")
		c.metrics.RecordReconnect()
		if !c.sleep(ctx, delay) {
			return
		}
		delay = nextDelay(delay)
	}
}

// rejoin re-announces room membership after a (re)connect.
func (c *Client) rejoin() {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.joined))
	for id := range c.joined {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	for _, id := range ids {
		c.enqueue(eventJoinGame, id)
	}
}

func (c *Client) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		c.dispatch(message)
	}
}

func (c *Client) writePump(conn *websocket.Conn, connDone chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-connDone:
			return
		case <-c.done:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(message []byte) {
	var env envelope
	if err := json.Unmarshal(message, &env); err != nil {
		logging.Warn(c.logger, "notifier dropped malformed message", "error", err)
		return
	}

	switch env.Event {
	case EventScoreUpdate, EventGameEvent:
	default:
		// Unknown events are not an error; the channel may grow.
		if c.logger != nil {
			c.logger.Debug("notifier ignored event", logging.FieldEvent, env.Event)
		}
		return
	}

	var payload gamePayload
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			logging.Warn(c.logger, "notifier dropped malformed payload", "error", err,
				logging.FieldEvent, env.Event)
			return
		}
	}
	gameID, _ := payload.GameID.Int64()

	c.metrics.RecordSignal(env.Event)
	signal := Signal{Event: env.Event, GameID: gameID}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, sub := range c.subscribers {
		select {
		case sub <- signal:
		default:
			logging.Warn(c.logger, "notifier subscriber slow, dropping signal",
				logging.FieldEvent, env.Event, logging.FieldGameID, gameID)
		}
	}
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}

func nextDelay(current time.Duration) time.Duration {
	next := current * 2
	if next > maxRetryDelay {
		return maxRetryDelay
	}
	return next
}
