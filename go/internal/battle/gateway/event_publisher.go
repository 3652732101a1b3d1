package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const (
	EventTypeMatchStarted = "MatchStarted"
	EventTypeMatchEnded   = "MatchEnded"
)

// JetStreamPublisherConfig holds configuration for the JetStream publisher
type JetStreamPublisherConfig struct {
	URL            string
	StreamName     string
	SubjectPrefix  string // events go to <prefix>.<EventType>
	BufferSize     int
	PublishTimeout time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultJetStreamPublisherConfig returns default JetStream publisher configuration
func DefaultJetStreamPublisherConfig() JetStreamPublisherConfig {
	return JetStreamPublisherConfig{
		URL:            nats.DefaultURL,
		StreamName:     "BATTLE_EVENTS",
		SubjectPrefix:  "battle.events",
		BufferSize:     1000,
		PublishTimeout: 5 * time.Second,
		MaxReconnects:  -1, // Infinite
		ReconnectWait:  2 * time.Second,
	}
}

// EventEnvelope is the JSON body of every published lifecycle event
type EventEnvelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	GameID    string          `json:"gameId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type outboundEvent struct {
	subject  string
	envelope EventEnvelope
}

// EventPublisher publishes match lifecycle events to JetStream.
// Publish calls only enqueue; Start drains the queue.
type EventPublisher struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	config  JetStreamPublisherConfig
	eventCh chan outboundEvent
}

var _ matchmaker.EventPublisher = (*EventPublisher)(nil)

// NewEventPublisher connects to NATS and makes sure the stream exists
func NewEventPublisher(config JetStreamPublisherConfig) (*EventPublisher, error) {
	opts := []nats.Option{
		nats.Name("battle-gateway"),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := newEventPublisher(config)
	p.nc = nc
	p.js = js

	ctx, cancel := context.WithTimeout(context.Background(), config.PublishTimeout)
	defer cancel()
	if err := p.ensureStream(ctx); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

func newEventPublisher(config JetStreamPublisherConfig) *EventPublisher {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultJetStreamPublisherConfig().BufferSize
	}
	return &EventPublisher{
		config:  config,
		eventCh: make(chan outboundEvent, config.BufferSize),
	}
}

func (p *EventPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Block battle match lifecycle events",
		Subjects:    []string{p.config.SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      7 * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("stream", p.config.StreamName).
		Str("subjects", p.config.SubjectPrefix+".>").
		Msg("JetStream stream ready")
	return nil
}

// PublishMatchStarted implements matchmaker.EventPublisher
func (p *EventPublisher) PublishMatchStarted(payload events.MatchStartedPayload) {
	p.enqueue(EventTypeMatchStarted, payload.GameID, payload)
}

// PublishMatchEnded implements matchmaker.EventPublisher
func (p *EventPublisher) PublishMatchEnded(payload events.MatchEndedPayload) {
	p.enqueue(EventTypeMatchEnded, payload.GameID, payload)
}

func (p *EventPublisher) enqueue(eventType, gameID string, payload any) {
	ev, err := p.buildEvent(eventType, gameID, payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to build lifecycle event")
		return
	}

	select {
	case p.eventCh <- ev:
	default:
		log.Warn().
			Str("event_type", eventType).
			Str("game_id", gameID).
			Msg("publish channel full, dropping event")
	}
}

func (p *EventPublisher) buildEvent(eventType, gameID string, payload any) (outboundEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return outboundEvent{}, fmt.Errorf("marshal payload: %w", err)
	}

	return outboundEvent{
		subject: fmt.Sprintf("%s.%s", p.config.SubjectPrefix, eventType),
		envelope: EventEnvelope{
			EventID:   uuid.New().String(),
			EventType: eventType,
			GameID:    gameID,
			Timestamp: time.Now().UTC(),
			Payload:   data,
		},
	}, nil
}

// Start publishes queued events until ctx is cancelled
func (p *EventPublisher) Start(ctx context.Context) error {
	log.Info().
		Str("stream", p.config.StreamName).
		Str("subject_prefix", p.config.SubjectPrefix).
		Msg("starting JetStream event publisher")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event publisher shutting down")
			return nil
		case ev := <-p.eventCh:
			if err := p.publish(ctx, ev); err != nil {
				log.Error().
					Err(err).
					Str("subject", ev.subject).
					Str("game_id", ev.envelope.GameID).
					Msg("failed to publish lifecycle event")
			}
		}
	}
}

func (p *EventPublisher) publish(ctx context.Context, ev outboundEvent) error {
	data, err := json.Marshal(ev.envelope)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	ack, err := p.js.Publish(pubCtx, ev.subject, data, jetstream.WithMsgID(ev.envelope.EventID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.subject, err)
	}

	log.Debug().
		Str("event_id", ev.envelope.EventID).
		Str("event_type", ev.envelope.EventType).
		Str("stream", ack.Stream).
		Uint64("sequence", ack.Sequence).
		Msg("lifecycle event published")
	return nil
}

// Stop closes the NATS connection
func (p *EventPublisher) Stop() error {
	log.Info().Msg("stopping event publisher")

	if p.nc != nil {
		if err := p.nc.Drain(); err != nil {
			return fmt.Errorf("drain NATS connection: %w", err)
		}
	}
	return nil
}
