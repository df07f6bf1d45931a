package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/railtycoon/server/pkg/core"
	"github.com/railtycoon/server/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Publisher = Nop{}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(streaming.TypeTickUpdate, struct{}{}))
	assert.NoError(t, p.Close())
}

func TestMarshalEnvelope(t *testing.T) {
	gameTime := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	data, err := MarshalEnvelope(streaming.TypeRankingUpdate, streaming.RankingPayload{
		GameTime: gameTime,
		Entries:  []core.RankingEntry{{OwnerID: "p1", Score: 42}},
	})
	require.NoError(t, err)

	var env streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, streaming.TypeRankingUpdate, env.Type)

	var rp streaming.RankingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &rp))
	assert.True(t, rp.GameTime.Equal(gameTime))
	require.Len(t, rp.Entries, 1)
	assert.Equal(t, "p1", rp.Entries[0].OwnerID)
}

func TestMarshalEnvelope_BadPayload(t *testing.T) {
	_, err := MarshalEnvelope("bad", make(chan int))
	assert.ErrorContains(t, err, "marshal bad payload")
}
