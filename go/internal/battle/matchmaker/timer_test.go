package matchmaker

import (
	"context"
	"testing"
	"time"

	"github.com/mcdev12/blockbattle/go/internal/battle/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortMatchConfig() Config {
	config := DefaultConfig()
	config.MatchDuration = 10 * time.Second
	config.TimeSyncInterval = 5 * time.Second
	return config
}

// waitFor blocks until p has received n frames of typ
func waitFor(t *testing.T, p *fakePeer, typ events.MessageType, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(p.ofType(t, typ)) >= n
	}, 2*time.Second, 5*time.Millisecond, "waiting for %d %s frames on %s", n, typ, p.id)
}

func TestTimer_TimeSyncEveryInterval(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	alice, bob, _ := h.pair("alice", "bob")

	h.clock.Advance(5 * time.Second)
	waitFor(t, alice, events.TypeTimeSync, 1)
	waitFor(t, bob, events.TypeTimeSync, 1)

	h.clock.Advance(5 * time.Second)
	waitFor(t, alice, events.TypeTimeSync, 2)
	waitFor(t, bob, events.TypeTimeSync, 2)

	syncs := alice.ofType(t, events.TypeTimeSync)
	assert.Equal(t, float64(595000), syncs[0]["remaining"])
	assert.Equal(t, float64(590000), syncs[1]["remaining"])
	assert.Equal(t, syncs, bob.ofType(t, events.TypeTimeSync))

	assert.Equal(t, 1, h.stats().ActiveSessions)
}

func TestTimer_TimeoutEndsMatch(t *testing.T) {
	h := newHarness(t, shortMatchConfig())
	alice, bob, _ := h.pair("alice", "bob")

	h.clock.Advance(5 * time.Second)
	waitFor(t, alice, events.TypeTimeSync, 1)
	waitFor(t, bob, events.TypeTimeSync, 1)

	h.clock.Advance(5 * time.Second)
	waitFor(t, alice, events.TypeGameEnd, 1)
	waitFor(t, bob, events.TypeGameEnd, 1)

	for _, p := range []*fakePeer{alice, bob} {
		syncs := p.ofType(t, events.TypeTimeSync)
		require.Len(t, syncs, 2)
		assert.Equal(t, float64(5000), syncs[0]["remaining"])
		assert.Equal(t, float64(0), syncs[1]["remaining"])

		ends := p.ofType(t, events.TypeGameEnd)
		require.Len(t, ends, 1)
		assert.Equal(t, "TIMEOUT", ends[0]["reason"])
		assert.Equal(t, float64(WinnerUnresolved), ends[0]["winner"])
	}

	assert.Equal(t, 0, h.stats().ActiveSessions)

	// the ended session no longer relays
	before := bob.count()
	h.clock.Advance(time.Second)
	h.send(alice, `{"type":"STATE","score":1,"lines":0}`)
	h.send(alice, `{"type":"GARBAGE","lines":1}`)
	assert.Equal(t, before, bob.count())
}

func TestTimer_StoppedWhenMatchEndsEarly(t *testing.T) {
	h := newHarness(t, shortMatchConfig())
	alice, bob, _ := h.pair("alice", "bob")

	h.send(alice, `{"type":"GAME_OVER"}`)
	require.Len(t, bob.ofType(t, events.TypeGameEnd), 1)

	h.clock.Advance(30 * time.Second)
	// give a stray ticker goroutine the chance to deliver
	time.Sleep(20 * time.Millisecond)
	h.flush()

	assert.Empty(t, alice.ofType(t, events.TypeTimeSync))
	assert.Empty(t, bob.ofType(t, events.TypeTimeSync))
	assert.Len(t, bob.ofType(t, events.TypeGameEnd), 1)
}

func TestTimer_TickForEndedSessionIgnored(t *testing.T) {
	h := newHarness(t, shortMatchConfig())
	alice, bob, gameID := h.pair("alice", "bob")
	require.True(t, h.callEnd(gameID, ReasonOpponentToppedOut, 2))

	before := alice.count()
	require.NoError(t, h.m.call(context.Background(), func() {
		h.m.onTick(gameID)
	}))

	assert.Equal(t, before, alice.count())
	assert.Len(t, bob.ofType(t, events.TypeGameEnd), 1)
}

func TestTimer_SkipsClosedParticipant(t *testing.T) {
	h := newHarness(t, DefaultConfig())
	alice, bob, gameID := h.pair("alice", "bob")

	// channel gone, close event not processed yet
	bob.close()
	require.NoError(t, h.m.call(context.Background(), func() {
		h.m.onTick(gameID)
	}))

	assert.Len(t, alice.ofType(t, events.TypeTimeSync), 1)
	assert.Empty(t, bob.ofType(t, events.TypeTimeSync))
	assert.Equal(t, 1, h.stats().ActiveSessions)
}
