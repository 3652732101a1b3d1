package matchmaker

import (
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/rs/zerolog/log"
)

// endSession moves a session to ENDED: stop its timer, tell every open
// participant, then unregister it. Returns false when the session was already gone.
func (m *Matchmaker) endSession(gameID string, reason EndReason, winner int) bool {
	s, ok := m.registry.get(gameID)
	if !ok {
		return false
	}

	if s.timer != nil {
		s.timer.Stop()
	}

	msg := events.NewGameEnd(string(reason), winner)
	for _, part := range s.participants {
		m.send(part.player, msg)
		part.player.leaveSession()
	}

	m.registry.remove(gameID)

	endedAt := m.clock.Now()
	duration := endedAt.Sub(s.startTime)
	m.metrics.RecordMatchEnded(reason, duration)
	m.publisher.PublishMatchEnded(events.MatchEndedPayload{
		GameID:    s.id,
		Reason:    string(reason),
		Winner:    winner,
		StartedAt: s.startTime,
		EndedAt:   endedAt,
		Duration:  duration.String(),
	})

	log.Info().
		Str("game_id", s.id).
		Str("reason", string(reason)).
		Int("winner", winner).
		Dur("duration", duration).
		Int("active_sessions", m.registry.len()).
		Msg("match ended")

	return true
}

// disconnect handles a closed channel for peerID.
func (m *Matchmaker) disconnect(peerID string) {
	p, ok := m.players[peerID]
	if !ok {
		return
	}

	prev := p.state
	p.state = stateClosed
	delete(m.players, peerID)
	m.metrics.RecordPlayerDisconnected()

	switch prev {
	case stateWaiting:
		if m.waiting != nil && m.waiting.player == p {
			m.waiting = nil
			m.metrics.SetWaiting(false)
			log.Info().Str("connection_id", peerID).Msg("waiting player left the queue")
		}

	case stateActive:
		s, ok := m.registry.get(p.gameID)
		if !ok {
			return
		}
		opponent, ok := s.opponent(peerID)
		if !ok {
			return
		}

		log.Info().
			Str("game_id", s.id).
			Str("connection_id", peerID).
			Msg("participant disconnected mid-match")

		m.send(opponent.player, events.NewOpponentDisconnected())
		m.endSession(s.id, ReasonOpponentDisconnected, int(opponent.role))
	}

	log.Debug().
		Str("connection_id", peerID).
		Str("previous_state", prev.String()).
		Msg("player removed")
}
