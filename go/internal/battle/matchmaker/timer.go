package matchmaker

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/rs/zerolog/log"
)

// matchTimer is the cancellable TIME_SYNC ticker owned by a session.
type matchTimer struct {
	ticker   clockwork.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

// Stop is safe to call more than once and from any goroutine.
func (t *matchTimer) Stop() {
	t.stopOnce.Do(func() {
		t.ticker.Stop()
		close(t.stopCh)
	})
}

// startTimer attaches a ticker to s. Each tick is forwarded into the event loop
// so that all session state is still only touched by the Run goroutine.
func (m *Matchmaker) startTimer(s *session) {
	t := &matchTimer{
		ticker: m.clock.NewTicker(m.config.TimeSyncInterval),
		stopCh: make(chan struct{}),
	}
	s.timer = t

	go func(gameID string, t *matchTimer) {
		for {
			select {
			case <-t.ticker.Chan():
				select {
				case m.eventCh <- event{kind: eventTick, gameID: gameID}:
				case <-t.stopCh:
					return
				case <-m.done:
					return
				}
			case <-t.stopCh:
				return
			case <-m.done:
				return
			}
		}
	}(s.id, t)

	log.Debug().
		Str("game_id", s.id).
		Dur("interval", m.config.TimeSyncInterval).
		Dur("duration", m.config.MatchDuration).
		Msg("match timer started")
}

// onTick sends TIME_SYNC and ends the match once no time is left.
// Ticks for sessions that already ended are ignored.
func (m *Matchmaker) onTick(gameID string) {
	s, ok := m.registry.get(gameID)
	if !ok {
		return
	}

	remaining := m.remaining(s)
	msg := events.NewTimeSync(remaining.Milliseconds())
	for _, part := range s.participants {
		m.send(part.player, msg)
	}

	if remaining > 0 {
		return
	}

	s.timer.Stop()
	log.Info().Str("game_id", s.id).Msg("match time expired")
	m.endSession(s.id, ReasonTimeout, WinnerUnresolved)
}

func (m *Matchmaker) remaining(s *session) time.Duration {
	remaining := m.config.MatchDuration - m.clock.Since(s.startTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}
