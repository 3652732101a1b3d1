package battleconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/matchmaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "battle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "NATS_URL", "LOG_LEVEL", "LOG_PRETTY", "MATCH_DURATION", "TIME_SYNC_INTERVAL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	clearEnv(t)

	config, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, matchmaker.DefaultConfig(), config.MatchmakerConfig())
	assert.False(t, config.EventsEnabled())
	assert.Equal(t, "info", config.Log.Level)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
server:
  port: "9090"
  allowed_origins: ["https://play.example.com"]
match:
  duration: 3m
  time_sync_interval: 2s
  default_player_name: Challenger
nats:
  url: nats://nats:4222
  subject_prefix: staging.battle
log:
  level: debug
  pretty: true
`)

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, []string{"https://play.example.com"}, config.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Minute, config.Match.Duration)
	assert.Equal(t, 2*time.Second, config.Match.TimeSyncInterval)
	assert.Equal(t, "Challenger", config.Match.DefaultPlayerName)
	// untouched keys keep their defaults
	assert.Equal(t, 50*time.Millisecond, config.Match.StateMinInterval)
	assert.Equal(t, 10000, config.Match.MaxStatePayload)
	assert.True(t, config.EventsEnabled())
	assert.Equal(t, "debug", config.Log.Level)
	assert.True(t, config.Log.Pretty)

	gw := config.GatewayConfig()
	assert.True(t, gw.EnableEvents)
	assert.Equal(t, "nats://nats:4222", gw.JetStreamConfig.URL)
	assert.Equal(t, "staging.battle", gw.JetStreamConfig.SubjectPrefix)
	assert.Equal(t, "BATTLE_EVENTS", gw.JetStreamConfig.StreamName)
	assert.Equal(t, 3*time.Minute, gw.MatchConfig.MatchDuration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	t.Setenv("PORT", "7000")
	t.Setenv("NATS_URL", "nats://events:4222")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("MATCH_DURATION", "90s")
	t.Setenv("TIME_SYNC_INTERVAL", "not-a-duration")

	config, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", config.Server.Port)
	assert.Equal(t, "nats://events:4222", config.NATS.URL)
	assert.True(t, config.Log.Pretty)
	assert.Equal(t, 90*time.Second, config.Match.Duration)
	assert.Equal(t, 5*time.Second, config.Match.TimeSyncInterval)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [unterminated"},
		{name: "non numeric port", body: "server:\n  port: http\n"},
		{name: "zero duration", body: "match:\n  duration: 0s\n"},
		{name: "read limit below state ceiling", body: "websocket:\n  max_message_size: 512\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	config := Default()
	config.Match.Duration = 0
	config.WebSocket.SendBufferSize = 0

	err := config.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "match.duration")
	assert.Contains(t, err.Error(), "websocket.send_buffer_size")
}
