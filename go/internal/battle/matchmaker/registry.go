package matchmaker

import (
	"time"
)

// Role is a participant's slot in a session
type Role int

const (
	RoleOne Role = 1
	RoleTwo Role = 2
)

// WinnerUnresolved is sent on TIMEOUT; the score owner compares final scores.
const WinnerUnresolved = 0

// EndReason is why a session ended
type EndReason string

const (
	ReasonTimeout              EndReason = "TIMEOUT"
	ReasonOpponentToppedOut    EndReason = "OPPONENT_TOPPED_OUT"
	ReasonOpponentDisconnected EndReason = "OPPONENT_DISCONNECTED"
)

type participant struct {
	player *player
	role   Role
}

// session is one active match
type session struct {
	id           string
	participants [2]participant
	startTime    time.Time
	timer        *matchTimer
}

func newSession(id string, one, two *player, startTime time.Time) *session {
	return &session{
		id: id,
		participants: [2]participant{
			{player: one, role: RoleOne},
			{player: two, role: RoleTwo},
		},
		startTime: startTime,
	}
}

// participant returns the slot held by playerID
func (s *session) participant(playerID string) (participant, bool) {
	for _, p := range s.participants {
		if p.player.id == playerID {
			return p, true
		}
	}
	return participant{}, false
}

// opponent returns the slot not held by playerID
func (s *session) opponent(playerID string) (participant, bool) {
	if _, ok := s.participant(playerID); !ok {
		return participant{}, false
	}
	for _, p := range s.participants {
		if p.player.id != playerID {
			return p, true
		}
	}
	return participant{}, false
}

// registry maps game IDs to live sessions. It is owned by the Run goroutine.
type registry struct {
	sessions map[string]*session
}

func newRegistry() *registry {
	return &registry{
		sessions: make(map[string]*session),
	}
}

func (r *registry) add(s *session) {
	r.sessions[s.id] = s
}

func (r *registry) get(gameID string) (*session, bool) {
	s, ok := r.sessions[gameID]
	return s, ok
}

// remove reports whether the session was still registered
func (r *registry) remove(gameID string) bool {
	if _, ok := r.sessions[gameID]; !ok {
		return false
	}
	delete(r.sessions, gameID)
	return true
}

func (r *registry) len() int {
	return len(r.sessions)
}
