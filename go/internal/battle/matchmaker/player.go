package matchmaker

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrPeerClosed is returned by Peer.Send once the underlying channel is gone.
var ErrPeerClosed = errors.New("peer closed")

// Peer is the matchmaker's view of one client connection.
// Send must not block: a full or closed outbound queue returns an error.
type Peer interface {
	ID() string
	Send(data []byte) error
}

// playerState is the per-connection lifecycle
type playerState int

const (
	stateUnmatched playerState = iota
	stateWaiting
	stateActive
	stateClosed
)

func (s playerState) String() string {
	switch s {
	case stateUnmatched:
		return "UNMATCHED"
	case stateWaiting:
		return "WAITING"
	case stateActive:
		return "ACTIVE"
	case stateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// player is the matchmaker-owned record for a connected peer.
// Only the Run goroutine reads or writes it.
type player struct {
	id          string
	peer        Peer
	name        string
	state       playerState
	gameID      string
	lastStateAt time.Time
	connectedAt time.Time
}

func newPlayer(peer Peer, now time.Time) *player {
	return &player{
		id:          peer.ID(),
		peer:        peer,
		state:       stateUnmatched,
		connectedAt: now,
	}
}

func (p *player) open() bool {
	return p.state != stateClosed
}

// leaveSession puts a participant back into the lobby after its match ended.
func (p *player) leaveSession() {
	if p.state != stateActive {
		return
	}
	p.state = stateUnmatched
	p.gameID = ""
	p.lastStateAt = time.Time{}
}

// send marshals msg and hands it to the peer. Closed or unreachable peers are skipped.
func (m *Matchmaker) send(p *player, msg any) {
	if p == nil || !p.open() {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("connection_id", p.id).Msg("failed to marshal outbound message")
		return
	}

	if err := p.peer.Send(data); err != nil {
		log.Debug().
			Err(err).
			Str("connection_id", p.id).
			Msg("peer unreachable, message dropped")
	}
}
