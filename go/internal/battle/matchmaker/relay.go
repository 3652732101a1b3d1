package matchmaker

import (
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/rs/zerolog/log"
)

// relay routes an in-match message from senderID to the other participant.
// Anything that cannot be attributed to a live participant is dropped.
func (m *Matchmaker) relay(s *session, senderID string, msg events.ClientMessage) {
	sender, ok := s.participant(senderID)
	if !ok {
		m.metrics.RecordDropped(msg.Type(), DropMisuse)
		return
	}
	opponent, _ := s.opponent(senderID)

	switch msg := msg.(type) {
	case events.State:
		if msg.Size > m.config.MaxStatePayload {
			m.metrics.RecordDropped(events.TypeState, DropOversized)
			log.Debug().
				Str("connection_id", senderID).
				Int("size", msg.Size).
				Msg("STATE over size ceiling dropped")
			return
		}

		now := m.clock.Now()
		if now.Sub(sender.player.lastStateAt) < m.config.StateMinInterval {
			m.metrics.RecordDropped(events.TypeState, DropRateLimited)
			return
		}
		sender.player.lastStateAt = now

		m.send(opponent.player, events.NewOpponentState(msg))
		m.metrics.RecordRelayed(events.TypeState)

	case events.Garbage:
		m.send(opponent.player, events.NewGarbage(msg.Lines))
		m.metrics.RecordRelayed(events.TypeGarbage)

		log.Debug().
			Str("game_id", s.id).
			Str("connection_id", senderID).
			Int("lines", msg.Lines).
			Msg("garbage relayed")

	case events.GameOver:
		log.Info().
			Str("game_id", s.id).
			Str("connection_id", senderID).
			Int("role", int(sender.role)).
			Msg("participant topped out")

		m.endSession(s.id, ReasonOpponentToppedOut, int(opponent.role))

	default:
		m.metrics.RecordDropped(msg.Type(), DropMisuse)
	}
}
