package domain

// CreateGameRequest is the payload for creating a match. Team ids are
// caller-generated opaque strings; venue and competition pass through
// un-validated.
type CreateGameRequest struct {
	HomeTeamID   string `json:"homeTeamId"`
	AwayTeamID   string `json:"awayTeamId"`
	HomeTeamName string `json:"homeTeamName"`
	AwayTeamName string `json:"awayTeamName"`
	GameDate     string `json:"gameDate"`
	Venue        string `json:"venue,omitempty"`
	Competition  string `json:"competition,omitempty"`
}

// UpdateStatusRequest transitions a game's lifecycle state.
type UpdateStatusRequest struct {
	Status      GameStatus `json:"status"`
	CurrentHalf int        `json:"currentHalf,omitempty"`
	GameTime    int        `json:"gameTime,omitempty"`
}

// AddScoreRequest appends a scoring record. Points is caller-supplied and
// intentionally not derived from ScoreType here.
type AddScoreRequest struct {
	Team       TeamSide  `json:"team"`
	ScoreType  ScoreType `json:"scoreType"`
	Points     int       `json:"points"`
	PlayerName string    `json:"playerName,omitempty"`
	GameTime   int       `json:"gameTime"`
}

// AddEventRequest appends a non-scoring record.
type AddEventRequest struct {
	EventType   string `json:"eventType"`
	Team        string `json:"team,omitempty"`
	PlayerName  string `json:"playerName,omitempty"`
	Description string `json:"description,omitempty"`
	GameTime    int    `json:"gameTime"`
}
