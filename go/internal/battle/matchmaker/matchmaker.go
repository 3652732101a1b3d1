package matchmaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/rs/zerolog/log"
)

/*
The matchmaker is a single-owner actor. One goroutine (Run) owns the waiting
entry, the session registry and the player table. Everything else talks to it
by pushing events onto eventCh:

	read pump   -> Connect / Receive / Disconnect
	match timer -> tick
	HTTP        -> Stats

Per connection, events arrive in read order because a single read pump feeds them.
*/

// ErrStopped is returned by calls made after Run has returned
var ErrStopped = errors.New("matchmaker stopped")

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTicker(d time.Duration) clockwork.Ticker
}

// Config holds matchmaker limits and timings
type Config struct {
	MatchDuration       time.Duration
	TimeSyncInterval    time.Duration
	StateMinInterval    time.Duration
	MaxStatePayload     int // bytes
	DefaultPlayerName   string
	MaxPlayerNameLength int // runes, 0 disables truncation
	EventBufferSize     int
}

// DefaultConfig returns the production match settings
func DefaultConfig() Config {
	return Config{
		MatchDuration:       600 * time.Second,
		TimeSyncInterval:    5 * time.Second,
		StateMinInterval:    50 * time.Millisecond,
		MaxStatePayload:     10000,
		DefaultPlayerName:   "Player",
		MaxPlayerNameLength: 32,
		EventBufferSize:     1024,
	}
}

// Stats is a point-in-time view of the matchmaker
type Stats struct {
	Connections    int  `json:"connections"`
	Waiting        bool `json:"waiting"`
	ActiveSessions int  `json:"active_sessions"`
}

type eventKind int

const (
	eventConnect eventKind = iota
	eventMessage
	eventDisconnect
	eventTick
	eventCall
)

func (k eventKind) String() string {
	switch k {
	case eventConnect:
		return "connect"
	case eventMessage:
		return "message"
	case eventDisconnect:
		return "disconnect"
	case eventTick:
		return "tick"
	case eventCall:
		return "call"
	default:
		return "unknown"
	}
}

type event struct {
	kind   eventKind
	peer   Peer
	peerID string
	data   []byte
	gameID string
	fn     func()
}

// Matchmaker pairs players and relays their match traffic
type Matchmaker struct {
	config    Config
	clock     Clock
	metrics   MetricsCollector
	publisher EventPublisher

	eventCh chan event
	done    chan struct{}

	mu      sync.Mutex
	running bool

	// owned by the Run goroutine
	players  map[string]*player
	waiting  *waitingEntry
	registry *registry
}

// Option customises a Matchmaker
type Option func(*Matchmaker)

// WithClock replaces the real clock
func WithClock(clock Clock) Option {
	return func(m *Matchmaker) { m.clock = clock }
}

// WithMetrics sets the metrics collector
func WithMetrics(metrics MetricsCollector) Option {
	return func(m *Matchmaker) { m.metrics = metrics }
}

// WithPublisher sets the lifecycle event publisher
func WithPublisher(publisher EventPublisher) Option {
	return func(m *Matchmaker) { m.publisher = publisher }
}

// New creates a matchmaker. Call Run to start processing events.
func New(config Config, opts ...Option) *Matchmaker {
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = DefaultConfig().EventBufferSize
	}
	if config.DefaultPlayerName == "" {
		config.DefaultPlayerName = DefaultConfig().DefaultPlayerName
	}

	m := &Matchmaker{
		config:    config,
		clock:     clockwork.NewRealClock(),
		metrics:   NoOpMetricsCollector{},
		publisher: NoOpPublisher{},
		eventCh:   make(chan event, config.EventBufferSize),
		done:      make(chan struct{}),
		players:   make(map[string]*player),
		registry:  newRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run processes events until ctx is cancelled. It may only be called once.
func (m *Matchmaker) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("matchmaker already running")
	}
	m.running = true
	m.mu.Unlock()

	defer close(m.done)

	log.Info().
		Dur("match_duration", m.config.MatchDuration).
		Dur("time_sync_interval", m.config.TimeSyncInterval).
		Msg("matchmaker started")

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case ev := <-m.eventCh:
			m.handle(ev)
		}
	}
}

// Connect registers a new peer in the UNMATCHED state
func (m *Matchmaker) Connect(peer Peer) {
	m.enqueue(event{kind: eventConnect, peer: peer, peerID: peer.ID()})
}

// Receive hands a raw inbound frame from peerID to the event loop
func (m *Matchmaker) Receive(peerID string, data []byte) {
	m.enqueue(event{kind: eventMessage, peerID: peerID, data: data})
}

// Disconnect reports that peerID's channel closed
func (m *Matchmaker) Disconnect(peerID string) {
	m.enqueue(event{kind: eventDisconnect, peerID: peerID})
}

// Stats returns counts computed on the event loop
func (m *Matchmaker) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := m.call(ctx, func() {
		stats = Stats{
			Connections:    len(m.players),
			Waiting:        m.waiting != nil,
			ActiveSessions: m.registry.len(),
		}
	})
	return stats, err
}

func (m *Matchmaker) enqueue(ev event) {
	select {
	case m.eventCh <- ev:
	case <-m.done:
		log.Debug().Str("event", ev.kind.String()).Msg("matchmaker stopped, event discarded")
	}
}

// call runs fn on the event loop and waits for it to finish
func (m *Matchmaker) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	ev := event{kind: eventCall, fn: func() {
		defer close(finished)
		fn()
	}}

	select {
	case m.eventCh <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrStopped
	}
}

// handle dispatches one event. A panic is contained to the event that caused it.
func (m *Matchmaker) handle(ev event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event", ev.kind.String()).
				Str("connection_id", ev.peerID).
				Str("game_id", ev.gameID).
				Msg("recovered from panic while handling event")
		}
	}()

	switch ev.kind {
	case eventConnect:
		m.connect(ev.peer)
	case eventMessage:
		m.dispatch(ev.peerID, ev.data)
	case eventDisconnect:
		m.disconnect(ev.peerID)
	case eventTick:
		m.onTick(ev.gameID)
	case eventCall:
		ev.fn()
	}
}

func (m *Matchmaker) connect(peer Peer) {
	if _, exists := m.players[peer.ID()]; exists {
		log.Warn().Str("connection_id", peer.ID()).Msg("duplicate connection id ignored")
		return
	}
	m.players[peer.ID()] = newPlayer(peer, m.clock.Now())
	m.metrics.RecordPlayerConnected()

	log.Debug().
		Str("connection_id", peer.ID()).
		Int("connections", len(m.players)).
		Msg("player connected")
}

// dispatch routes a client frame by its type tag
func (m *Matchmaker) dispatch(peerID string, data []byte) {
	p, ok := m.players[peerID]
	if !ok {
		return
	}

	msg, err := events.ParseClientMessage(data)
	if err != nil {
		m.metrics.RecordDropped("", DropMalformed)
		log.Warn().
			Err(err).
			Str("connection_id", peerID).
			Int("size", len(data)).
			Msg("dropping malformed message")
		return
	}

	if join, ok := msg.(events.Join); ok {
		m.join(p, join)
		return
	}

	if p.state != stateActive {
		m.metrics.RecordDropped(msg.Type(), DropMisuse)
		return
	}
	s, ok := m.registry.get(p.gameID)
	if !ok {
		m.metrics.RecordDropped(msg.Type(), DropMisuse)
		return
	}
	m.relay(s, peerID, msg)
}

// shutdown stops every running match timer
func (m *Matchmaker) shutdown() {
	for _, s := range m.registry.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
	}
	log.Info().
		Int("active_sessions", m.registry.len()).
		Int("connections", len(m.players)).
		Msg("matchmaker shutting down")
}
