package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ClientMessage
		wantErr error
	}{
		{
			name:  "join with name",
			input: `{"type":"JOIN","player_name":"alice"}`,
			want:  Join{PlayerName: "alice"},
		},
		{
			name:  "join without name",
			input: `{"type":"JOIN"}`,
			want:  Join{},
		},
		{
			name:  "garbage",
			input: `{"type":"GARBAGE","lines":3}`,
			want:  Garbage{Lines: 3},
		},
		{
			name:  "game over ignores extra fields",
			input: `{"type":"GAME_OVER","score":10}`,
			want:  GameOver{},
		},
		{
			name:    "not json",
			input:   `hello`,
			wantErr: ErrMalformed,
		},
		{
			name:    "missing type",
			input:   `{"lines":3}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "wrong field type",
			input:   `{"type":"GARBAGE","lines":"three"}`,
			wantErr: ErrMalformed,
		},
		{
			name:    "server message sent by client",
			input:   `{"type":"TIME_SYNC","remaining":5}`,
			wantErr: ErrUnknownType,
		},
		{
			name:    "unknown type",
			input:   `{"type":"CHAT"}`,
			wantErr: ErrUnknownType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClientMessage([]byte(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClientMessage_State(t *testing.T) {
	raw := `{"type":"STATE","grid":[[0,[255,0,0]]],"score":1200,"lines":8,"piece":{"x":4,"y":0,"rotation":1}}`

	msg, err := ParseClientMessage([]byte(raw))
	require.NoError(t, err)

	state, ok := msg.(State)
	require.True(t, ok)
	assert.Equal(t, TypeState, state.Type())
	assert.Equal(t, int64(1200), state.Score)
	assert.Equal(t, int64(8), state.Lines)
	assert.Equal(t, len(raw), state.Size)
	assert.JSONEq(t, `[[0,[255,0,0]]]`, string(state.Grid))
	assert.JSONEq(t, `{"x":4,"y":0,"rotation":1}`, string(state.Piece))
}

func TestNewOpponentState_CarriesOnlyRelayedFields(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"STATE","grid":[[1]],"score":5,"lines":1,"piece":{"x":1},"cheat":true}`))
	require.NoError(t, err)

	data, err := json.Marshal(NewOpponentState(msg.(State)))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"OPPONENT_STATE","grid":[[1]],"score":5,"lines":1,"piece":{"x":1}}`, string(data))
}

func TestServerMessages_Encoding(t *testing.T) {
	tests := []struct {
		name string
		msg  any
		want string
	}{
		{"waiting", NewWaiting(), `{"type":"WAITING"}`},
		{
			"match start",
			NewMatchStart("g-1", 2, "bob", 1700000000000),
			`{"type":"MATCH_START","game_id":"g-1","role":2,"opponent_name":"bob","server_time":1700000000000}`,
		},
		{"garbage", NewGarbage(4), `{"type":"GARBAGE","lines":4}`},
		{"opponent disconnected", NewOpponentDisconnected(), `{"type":"OPPONENT_DISCONNECTED"}`},
		{"time sync", NewTimeSync(595000), `{"type":"TIME_SYNC","remaining":595000}`},
		{"game end", NewGameEnd("TIMEOUT", 0), `{"type":"GAME_END","reason":"TIMEOUT","winner":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
