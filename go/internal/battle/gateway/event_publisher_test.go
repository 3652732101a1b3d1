package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPublisher_EnqueuesEnvelope(t *testing.T) {
	p := newEventPublisher(DefaultJetStreamPublisherConfig())
	started := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	p.PublishMatchStarted(events.MatchStartedPayload{
		GameID:      "game-1",
		PlayerOneID: "p1",
		PlayerOne:   "alice",
		PlayerTwoID: "p2",
		PlayerTwo:   "bob",
		StartedAt:   started,
		DurationMs:  600000,
	})
	p.PublishMatchEnded(events.MatchEndedPayload{
		GameID: "game-1",
		Reason: "TIMEOUT",
		Winner: 0,
	})

	require.Len(t, p.eventCh, 2)

	first := <-p.eventCh
	assert.Equal(t, "battle.events.MatchStarted", first.subject)
	assert.Equal(t, EventTypeMatchStarted, first.envelope.EventType)
	assert.Equal(t, "game-1", first.envelope.GameID)
	assert.NotEmpty(t, first.envelope.EventID)

	var payload events.MatchStartedPayload
	require.NoError(t, json.Unmarshal(first.envelope.Payload, &payload))
	assert.Equal(t, "alice", payload.PlayerOne)
	assert.Equal(t, "bob", payload.PlayerTwo)
	assert.True(t, started.Equal(payload.StartedAt))

	second := <-p.eventCh
	assert.Equal(t, "battle.events.MatchEnded", second.subject)
	assert.NotEqual(t, first.envelope.EventID, second.envelope.EventID)
	assert.JSONEq(t,
		`{"game_id":"game-1","reason":"TIMEOUT","winner":0,"started_at":"0001-01-01T00:00:00Z","ended_at":"0001-01-01T00:00:00Z","duration":""}`,
		string(second.envelope.Payload))
}

func TestEventPublisher_DropsWhenBufferFull(t *testing.T) {
	config := DefaultJetStreamPublisherConfig()
	config.BufferSize = 1
	p := newEventPublisher(config)

	p.PublishMatchEnded(events.MatchEndedPayload{GameID: "a"})
	p.PublishMatchEnded(events.MatchEndedPayload{GameID: "b"})

	require.Len(t, p.eventCh, 1)
	ev := <-p.eventCh
	assert.Equal(t, "a", ev.envelope.GameID)
}

func TestEventPublisher_CustomSubjectPrefix(t *testing.T) {
	config := DefaultJetStreamPublisherConfig()
	config.SubjectPrefix = "staging.battle"
	config.BufferSize = 0
	p := newEventPublisher(config)

	assert.Equal(t, DefaultJetStreamPublisherConfig().BufferSize, cap(p.eventCh))

	p.PublishMatchStarted(events.MatchStartedPayload{GameID: "g"})
	ev := <-p.eventCh
	assert.Equal(t, "staging.battle.MatchStarted", ev.subject)
}

func TestEventPublisher_StopWithoutConnection(t *testing.T) {
	p := newEventPublisher(DefaultJetStreamPublisherConfig())
	assert.NoError(t, p.Stop())
}
