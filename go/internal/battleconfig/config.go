package battleconfig

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/gateway"
	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

// Config is the battle gateway configuration file
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Match     MatchConfig     `yaml:"match"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	NATS      NATSConfig      `yaml:"nats"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type MatchConfig struct {
	Duration            time.Duration `yaml:"duration"`
	TimeSyncInterval    time.Duration `yaml:"time_sync_interval"`
	StateMinInterval    time.Duration `yaml:"state_min_interval"`
	MaxStatePayload     int           `yaml:"max_state_payload"`
	DefaultPlayerName   string        `yaml:"default_player_name"`
	MaxPlayerNameLength int           `yaml:"max_player_name_length"`
	EventBufferSize     int           `yaml:"event_buffer_size"`
}

type WebSocketConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	SendBufferSize int           `yaml:"send_buffer_size"`
}

// NATSConfig configures lifecycle event publishing. An empty URL disables it.
type NATSConfig struct {
	URL           string `yaml:"url"`
	StreamName    string `yaml:"stream_name"`
	SubjectPrefix string `yaml:"subject_prefix"`
	BufferSize    int    `yaml:"buffer_size"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	mm := matchmaker.DefaultConfig()
	ws := gateway.DefaultConnectionConfig()
	js := gateway.DefaultJetStreamPublisherConfig()

	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Match: MatchConfig{
			Duration:            mm.MatchDuration,
			TimeSyncInterval:    mm.TimeSyncInterval,
			StateMinInterval:    mm.StateMinInterval,
			MaxStatePayload:     mm.MaxStatePayload,
			DefaultPlayerName:   mm.DefaultPlayerName,
			MaxPlayerNameLength: mm.MaxPlayerNameLength,
			EventBufferSize:     mm.EventBufferSize,
		},
		WebSocket: WebSocketConfig{
			WriteTimeout:   ws.WriteTimeout,
			ReadTimeout:    ws.ReadTimeout,
			PingInterval:   ws.PingInterval,
			MaxMessageSize: ws.MaxMessageSize,
			SendBufferSize: ws.SendBufferSize,
		},
		NATS: NATSConfig{
			StreamName:    js.StreamName,
			SubjectPrefix: js.SubjectPrefix,
			BufferSize:    js.BufferSize,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Pretty = getEnvAsBool("LOG_PRETTY", c.Log.Pretty)
	c.Match.Duration = getEnvAsDuration("MATCH_DURATION", c.Match.Duration)
	c.Match.TimeSyncInterval = getEnvAsDuration("TIME_SYNC_INTERVAL", c.Match.TimeSyncInterval)
}

// Validate rejects values the matchmaker cannot run with
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	} else if _, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Errorf("server.port %q is not a number", c.Server.Port))
	}
	if c.Match.Duration <= 0 {
		errs = append(errs, errors.New("match.duration must be positive"))
	}
	if c.Match.TimeSyncInterval <= 0 {
		errs = append(errs, errors.New("match.time_sync_interval must be positive"))
	}
	if c.Match.StateMinInterval < 0 {
		errs = append(errs, errors.New("match.state_min_interval must not be negative"))
	}
	if c.Match.MaxStatePayload <= 0 {
		errs = append(errs, errors.New("match.max_state_payload must be positive"))
	}
	if c.Match.EventBufferSize <= 0 {
		errs = append(errs, errors.New("match.event_buffer_size must be positive"))
	}
	if c.WebSocket.MaxMessageSize < int64(c.Match.MaxStatePayload) {
		errs = append(errs, errors.New("websocket.max_message_size must not be below match.max_state_payload"))
	}
	if c.WebSocket.SendBufferSize <= 0 {
		errs = append(errs, errors.New("websocket.send_buffer_size must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// EventsEnabled reports whether lifecycle events go to NATS
func (c Config) EventsEnabled() bool {
	return strings.TrimSpace(c.NATS.URL) != ""
}

// MatchmakerConfig maps the match section onto matchmaker.Config
func (c Config) MatchmakerConfig() matchmaker.Config {
	return matchmaker.Config{
		MatchDuration:       c.Match.Duration,
		TimeSyncInterval:    c.Match.TimeSyncInterval,
		StateMinInterval:    c.Match.StateMinInterval,
		MaxStatePayload:     c.Match.MaxStatePayload,
		DefaultPlayerName:   c.Match.DefaultPlayerName,
		MaxPlayerNameLength: c.Match.MaxPlayerNameLength,
		EventBufferSize:     c.Match.EventBufferSize,
	}
}

// GatewayConfig builds the gateway service configuration
func (c Config) GatewayConfig() gateway.Config {
	ws := gateway.DefaultConnectionConfig()
	ws.WriteTimeout = c.WebSocket.WriteTimeout
	ws.ReadTimeout = c.WebSocket.ReadTimeout
	ws.PingInterval = c.WebSocket.PingInterval
	ws.MaxMessageSize = c.WebSocket.MaxMessageSize
	ws.SendBufferSize = c.WebSocket.SendBufferSize

	js := gateway.DefaultJetStreamPublisherConfig()
	js.URL = c.NATS.URL
	js.StreamName = c.NATS.StreamName
	js.SubjectPrefix = c.NATS.SubjectPrefix
	js.BufferSize = c.NATS.BufferSize

	return gateway.Config{
		ConnectionConfig: ws,
		MatchConfig:      c.MatchmakerConfig(),
		JetStreamConfig:  js,
		EnableEvents:     c.EventsEnabled(),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
