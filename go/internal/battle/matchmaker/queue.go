package matchmaker

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/rs/zerolog/log"
)

// waitingEntry is the single player waiting for an opponent
type waitingEntry struct {
	player *player
	name   string
}

// join queues p or pairs it with the waiting player.
func (m *Matchmaker) join(p *player, msg events.Join) {
	if p.state != stateUnmatched {
		log.Debug().
			Str("connection_id", p.id).
			Str("state", p.state.String()).
			Msg("JOIN ignored, player already queued or playing")
		m.metrics.RecordDropped(events.TypeJoin, DropMisuse)
		return
	}

	p.name = m.displayName(msg.PlayerName)

	if m.waiting == nil {
		m.waiting = &waitingEntry{player: p, name: p.name}
		p.state = stateWaiting
		m.metrics.SetWaiting(true)
		m.send(p, events.NewWaiting())

		log.Info().
			Str("connection_id", p.id).
			Str("player_name", p.name).
			Msg("player waiting for opponent")
		return
	}

	opponent := m.waiting.player
	m.waiting = nil
	m.metrics.SetWaiting(false)

	m.startSession(opponent, p)
}

// startSession pairs the waiting player (role 1) with the new arrival (role 2).
func (m *Matchmaker) startSession(one, two *player) {
	now := m.clock.Now()
	s := newSession(uuid.New().String(), one, two, now)
	m.registry.add(s)

	for _, part := range s.participants {
		part.player.state = stateActive
		part.player.gameID = s.id
		part.player.lastStateAt = now.Add(-m.config.StateMinInterval)
	}

	serverTime := now.UnixMilli()
	m.send(one, events.NewMatchStart(s.id, int(RoleOne), two.name, serverTime))
	m.send(two, events.NewMatchStart(s.id, int(RoleTwo), one.name, serverTime))

	m.startTimer(s)

	m.metrics.RecordMatchStarted()
	m.publisher.PublishMatchStarted(events.MatchStartedPayload{
		GameID:      s.id,
		PlayerOneID: one.id,
		PlayerOne:   one.name,
		PlayerTwoID: two.id,
		PlayerTwo:   two.name,
		StartedAt:   now,
		DurationMs:  m.config.MatchDuration.Milliseconds(),
	})

	log.Info().
		Str("game_id", s.id).
		Str("player_one", one.id).
		Str("player_two", two.id).
		Int("active_sessions", m.registry.len()).
		Msg("match started")
}

func (m *Matchmaker) displayName(requested string) string {
	name := strings.TrimSpace(requested)
	if name == "" {
		return m.config.DefaultPlayerName
	}
	if m.config.MaxPlayerNameLength > 0 && utf8.RuneCountInString(name) > m.config.MaxPlayerNameLength {
		name = string([]rune(name)[:m.config.MaxPlayerNameLength])
	}
	return name
}
