package events

import (
	"time"
)

// Lifecycle event payloads published for services outside the relay (leaderboard, analytics)

// MatchStartedPayload is the payload for a MatchStarted event
type MatchStartedPayload struct {
	GameID      string    `json:"game_id"`
	PlayerOneID string    `json:"player_one_id"`
	PlayerOne   string    `json:"player_one_name"`
	PlayerTwoID string    `json:"player_two_id"`
	PlayerTwo   string    `json:"player_two_name"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// MatchEndedPayload is the payload for a MatchEnded event.
// Winner 0 means the consumer has to compare final scores itself.
type MatchEndedPayload struct {
	GameID    string    `json:"game_id"`
	Reason    string    `json:"reason"`
	Winner    int       `json:"winner"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Duration  string    `json:"duration"`
}
