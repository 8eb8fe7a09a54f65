// Package scoring drives the operator's scoring controls for one match:
// the score entry form, undo, edit, status transitions and match creation.
// All mutations go through the remote store; nothing is removed or applied
// locally ahead of the store confirming it.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rugby-livescore-service/internal/domain"
	"rugby-livescore-service/internal/logging"
	"rugby-livescore-service/internal/timeline"
)

// Sentinel errors for control flow the caller is expected to branch on.
var (
	// ErrBusy is returned while another store mutation is in flight.
	ErrBusy = errors.New("scoring: submission in progress")
	// ErrNothingToUndo is returned when undo is requested with no scores.
	ErrNothingToUndo = errors.New("scoring: no scores to undo")
	// ErrCancelled is returned when the confirm guard declines.
	ErrCancelled = errors.New("scoring: cancelled")
	// ErrForbidden is returned when the authenticated user's role may not
	// manage matches.
	ErrForbidden = errors.New("scoring: role may not manage matches")
)

// ValidationError reports locally rejected input. No network call was made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// AsValidationError unwraps err into a ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// State is the score form lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateSelecting  State = "selecting"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
)

// Form is the score entry being assembled. Team is sticky: it survives a
// successful submission so consecutive scores for one side need no re-select.
type Form struct {
	Team       domain.TeamSide
	ScoreType  domain.ScoreType
	Points     int
	PlayerName string
	GameTime   int
}

// StoreClient is the remote store surface the console mutates through.
type StoreClient interface {
	CreateGame(ctx context.Context, req domain.CreateGameRequest) (domain.Game, error)
	UpdateStatus(ctx context.Context, id int64, req domain.UpdateStatusRequest) (domain.Game, error)
	AddScore(ctx context.Context, id int64, req domain.AddScoreRequest) (domain.ScoreUpdate, error)
	AddEvent(ctx context.Context, id int64, req domain.AddEventRequest) (domain.GameEvent, error)
	DeleteScore(ctx context.Context, gameID, scoreID int64) error
}

// Refresher is invoked after every successful mutation so the watcher
// re-fetches instead of the console patching state locally.
type Refresher interface {
	Trigger()
}

// ConfirmFunc guards destructive operations. Returning false aborts with
// ErrCancelled before any network call. A nil ConfirmFunc auto-confirms.
type ConfirmFunc func(prompt string) bool

// UserSource reports the authenticated operator. A nil source skips the
// role check.
type UserSource interface {
	User() (domain.User, bool)
}

// Console owns the scoring form state machine for a single game. One store
// mutation runs at a time: while any submit, undo, edit, status change or
// event is in flight, every other control answers ErrBusy.
type Console struct {
	gameID  int64
	client  StoreClient
	refresh Refresher
	confirm ConfirmFunc
	users   UserSource
	logger  *slog.Logger
	nowMS   func() int64

	mu    sync.Mutex
	busy  bool
	state State
	form  Form
}

// Config bundles Console dependencies.
type Config struct {
	GameID  int64
	Client  StoreClient
	Refresh Refresher
	Confirm ConfirmFunc
	Users   UserSource
	Logger  *slog.Logger
}

// NewConsole constructs a Console in the Idle state with the home side
// pre-selected.
func NewConsole(cfg Config) *Console {
	return &Console{
		gameID:  cfg.GameID,
		client:  cfg.Client,
		refresh: cfg.Refresh,
		confirm: cfg.Confirm,
		users:   cfg.Users,
		logger:  cfg.Logger,
		nowMS:   func() int64 { return time.Now().UnixMilli() },
		state:   StateIdle,
		form:    Form{Team: domain.TeamHome},
	}
}

// State returns the current form state.
func (c *Console) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Form returns a copy of the current form.
func (c *Console) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// beginAction claims the single mutation slot, failing fast when another
// store call is already in flight or the operator's role is insufficient.
func (c *Console) beginAction() error {
	if err := c.authorize(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Console) endAction() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Console) authorize() error {
	if c.users == nil {
		return nil
	}
	user, ok := c.users.User()
	if !ok || !user.Role.CanManageMatches() {
		return ErrForbidden
	}
	return nil
}

// SelectTeam picks the side the next score belongs to.
func (c *Console) SelectTeam(side domain.TeamSide) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.form.Team = side
	c.recompute()
	return nil
}

// SelectScoreType picks the scoring action and pre-fills its standard point
// value. An explicit SetPoints afterwards overrides the pre-fill.
func (c *Console) SelectScoreType(t domain.ScoreType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.form.ScoreType = t
	c.form.Points = t.Points()
	c.recompute()
	return nil
}

// SetPoints overrides the point value. The store accepts whatever value is
// submitted; no coupling to the score type is enforced here.
func (c *Console) SetPoints(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.form.Points = n
	c.recompute()
	return nil
}

// SetPlayerName records the scorer's name.
func (c *Console) SetPlayerName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.form.PlayerName = name
	c.recompute()
	return nil
}

// SetGameTime records the match minute. The value passes through unclamped.
func (c *Console) SetGameTime(minute int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.form.GameTime = minute
	c.recompute()
	return nil
}

// recompute derives the state from form contents. Caller holds mu.
func (c *Console) recompute() {
	if c.state == StateSubmitting {
		return
	}
	switch {
	case c.form.ScoreType != "":
		c.state = StateReady
	case c.form.Points != 0 || c.form.PlayerName != "" || c.form.GameTime != 0:
		c.state = StateSelecting
	default:
		c.state = StateIdle
	}
}

// SubmitScore sends the assembled score to the store. On success the form
// resets except for the team, and a refresh is triggered; the new record
// appears via the next fetch, never by local insertion.
func (c *Console) SubmitScore(ctx context.Context) error {
	if err := c.authorize(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.form.ScoreType == "" {
		c.mu.Unlock()
		return &ValidationError{Message: "please select a score type first"}
	}
	req := domain.AddScoreRequest{
		Team:       c.form.Team,
		ScoreType:  c.form.ScoreType,
		Points:     c.form.Points,
		PlayerName: c.form.PlayerName,
		GameTime:   c.form.GameTime,
	}
	c.busy = true
	c.state = StateSubmitting
	c.mu.Unlock()

	score, err := c.client.AddScore(ctx, c.gameID, req)

	c.mu.Lock()
	c.busy = false
	if err != nil {
		c.state = StateReady
		c.mu.Unlock()
		return fmt.Errorf("add score: %w", err)
	}
	c.form = Form{Team: c.form.Team}
	c.state = StateIdle
	c.mu.Unlock()

	logging.Info(c.logger, "score submitted",
		logging.FieldGameID, c.gameID, "score_id", score.ID, "points", req.Points)
	c.triggerRefresh()
	return nil
}

// UndoLastScore deletes the most recently inserted score, chosen by id.
// Recency is insertion order: a back-dated entry with the highest id is
// still the undo target.
func (c *Console) UndoLastScore(ctx context.Context, scores []domain.ScoreUpdate) error {
	if err := c.beginAction(); err != nil {
		return err
	}
	defer c.endAction()

	target, ok := timeline.MostRecentScore(scores)
	if !ok {
		return ErrNothingToUndo
	}
	if !c.confirmed(fmt.Sprintf("delete the last score (%d points, %s)?", target.Points, target.ScoreType)) {
		return ErrCancelled
	}

	if err := c.client.DeleteScore(ctx, c.gameID, target.ID); err != nil {
		return fmt.Errorf("undo score: %w", err)
	}

	logging.Info(c.logger, "score undone", logging.FieldGameID, c.gameID, "score_id", target.ID)
	c.triggerRefresh()
	return nil
}

// EditScore deletes the given score and pre-fills the form from it so the
// operator can resubmit a corrected version. Once the delete lands there is
// no rollback: abandoning the form loses the entry.
func (c *Console) EditScore(ctx context.Context, score domain.ScoreUpdate) error {
	if err := c.beginAction(); err != nil {
		return err
	}
	defer c.endAction()

	if !c.confirmed("editing deletes the original entry until resubmitted, continue?") {
		return ErrCancelled
	}

	if err := c.client.DeleteScore(ctx, c.gameID, score.ID); err != nil {
		return fmt.Errorf("edit score: %w", err)
	}

	c.mu.Lock()
	c.form = Form{
		Team:       score.Team,
		ScoreType:  score.ScoreType,
		Points:     score.Points,
		PlayerName: score.PlayerName.String,
		GameTime:   score.GameTime,
	}
	c.state = StateReady
	c.mu.Unlock()

	logging.Info(c.logger, "score opened for edit", logging.FieldGameID, c.gameID, "score_id", score.ID)
	c.triggerRefresh()
	return nil
}

// ChangeStatus transitions the game lifecycle. Going live sets the half
// from the previous status: resuming from halftime starts the second half,
// any other transition to live starts the first.
func (c *Console) ChangeStatus(ctx context.Context, previous, next domain.GameStatus, gameTime int) error {
	if err := c.beginAction(); err != nil {
		return err
	}
	defer c.endAction()

	req := domain.UpdateStatusRequest{Status: next, GameTime: gameTime}
	if next == domain.StatusLive {
		if previous == domain.StatusHalftime {
			req.CurrentHalf = 2
		} else {
			req.CurrentHalf = 1
		}
	}

	if _, err := c.client.UpdateStatus(ctx, c.gameID, req); err != nil {
		return fmt.Errorf("change status: %w", err)
	}

	logging.Info(c.logger, "status changed", logging.FieldGameID, c.gameID, "status", string(next))
	c.triggerRefresh()
	return nil
}

// RecordEvent appends a non-scoring timeline record.
func (c *Console) RecordEvent(ctx context.Context, req domain.AddEventRequest) error {
	if err := c.beginAction(); err != nil {
		return err
	}
	defer c.endAction()

	if req.EventType == "" {
		return &ValidationError{Message: "please select an event type first"}
	}

	event, err := c.client.AddEvent(ctx, c.gameID, req)
	if err != nil {
		return fmt.Errorf("add event: %w", err)
	}

	logging.Info(c.logger, "event recorded",
		logging.FieldGameID, c.gameID, "event_id", event.ID, logging.FieldEvent, req.EventType)
	c.triggerRefresh()
	return nil
}

func (c *Console) confirmed(prompt string) bool {
	if c.confirm == nil {
		return true
	}
	return c.confirm(prompt)
}

func (c *Console) triggerRefresh() {
	if c.refresh != nil {
		c.refresh.Trigger()
	}
}

// MatchForm is the input for creating a match. Venue and competition pass
// through without validation.
type MatchForm struct {
	HomeTeamName string
	AwayTeamName string
	GameDate     string
	Venue        string
	Competition  string
}

// CreateMatch validates the form locally and creates the game. Team ids are
// generated from the creation timestamp, matching the store's expectation of
// caller-supplied opaque ids.
func (c *Console) CreateMatch(ctx context.Context, form MatchForm) (domain.Game, error) {
	if err := c.beginAction(); err != nil {
		return domain.Game{}, err
	}
	defer c.endAction()

	if form.HomeTeamName == "" || form.AwayTeamName == "" || form.GameDate == "" {
		return domain.Game{}, &ValidationError{Message: "please fill in all required fields"}
	}

	ms := c.nowMS()
	req := domain.CreateGameRequest{
		HomeTeamID:   fmt.Sprintf("team-%d-home", ms),
		AwayTeamID:   fmt.Sprintf("team-%d-away", ms),
		HomeTeamName: form.HomeTeamName,
		AwayTeamName: form.AwayTeamName,
		GameDate:     form.GameDate,
		Venue:        form.Venue,
		Competition:  form.Competition,
	}

	game, err := c.client.CreateGame(ctx, req)
	if err != nil {
		return domain.Game{}, fmt.Errorf("create match: %w", err)
	}

	logging.Info(c.logger, "match created", logging.FieldGameID, game.ID)
	c.triggerRefresh()
	return game, nil
}
