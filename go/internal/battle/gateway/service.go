package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Service is the battle gateway: WebSocket transport in front of the matchmaker
type Service struct {
	matchmaker        *matchmaker.Matchmaker
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	publisher         *EventPublisher
	registry          *prometheus.Registry
}

// Config holds configuration for the battle gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	MatchConfig      matchmaker.Config
	JetStreamConfig  JetStreamPublisherConfig
	// EnableEvents turns on the JetStream lifecycle publisher
	EnableEvents bool
}

// DefaultConfig returns default configuration for the battle gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		MatchConfig:      matchmaker.DefaultConfig(),
		JetStreamConfig:  DefaultJetStreamPublisherConfig(),
	}
}

// NewService creates a new battle gateway service
func NewService(config Config, opts ...matchmaker.Option) (*Service, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := NewPrometheusMetrics(registry)

	mmOpts := []matchmaker.Option{matchmaker.WithMetrics(metrics)}

	var publisher *EventPublisher
	if config.EnableEvents {
		var err error
		publisher, err = NewEventPublisher(config.JetStreamConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create event publisher: %w", err)
		}
		mmOpts = append(mmOpts, matchmaker.WithPublisher(publisher))
	}
	mmOpts = append(mmOpts, opts...)

	mm := matchmaker.New(config.MatchConfig, mmOpts...)
	connectionManager := NewConnectionManager(config.ConnectionConfig, mm)

	return &Service{
		matchmaker:        mm,
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		publisher:         publisher,
		registry:          registry,
	}, nil
}

// Start runs the matchmaker (and publisher) until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("events_enabled", s.publisher != nil).Msg("starting battle gateway service")

	if s.publisher != nil {
		go func() {
			if err := s.publisher.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event publisher failed")
			}
		}()
	}

	if err := s.matchmaker.Run(ctx); err != nil {
		return fmt.Errorf("matchmaker: %w", err)
	}

	log.Info().Msg("battle gateway service shutting down")
	return s.Stop()
}

// Stop closes client connections and the NATS connection
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()

	if s.publisher != nil {
		if err := s.publisher.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event publisher")
		}
	}

	log.Info().Msg("battle gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket, stats, metrics and health routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", HandleHealth)
	log.Info().Msg("battle gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := s.matchmaker.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"service":          "battle_gateway",
		"websockets":       s.connectionManager.ConnectionCount(),
		"connections":      stats.Connections,
		"waiting":          stats.Waiting,
		"active_sessions":  stats.ActiveSessions,
		"lifecycle_events": s.publisher != nil,
	}, nil
}

// HandleHealth is the static liveness endpoint
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}
