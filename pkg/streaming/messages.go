package streaming

import (
	"encoding/json"
	"time"

	"github.com/railtycoon/server/pkg/core"
)

// Message type constants of the broadcast protocol.
const (
	TypeHello         = "hello"
	TypeTickUpdate    = "tick_update"
	TypeRankingUpdate = "ranking_update"
	TypeBalanceUpdate = "balance_update"
	TypeSettlement    = "settlement"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the relay's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`
}

// HelloPayload is sent on every (re)connect so the relay can identify the
// producing server.
type HelloPayload struct {
	ServerID  string    `json:"serverId"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"startedAt"`
}

// RankingPayload carries the current leaderboard.
type RankingPayload struct {
	GameTime time.Time           `json:"gameTime"`
	Entries  []core.RankingEntry `json:"entries"`
}

// BalancePayload carries balance changes of a single tick.
type BalancePayload struct {
	Updates []core.BalanceUpdate `json:"updates"`
}

// SettlementPayload carries the monthly bills after a month rollover.
type SettlementPayload struct {
	GameTime time.Time               `json:"gameTime"`
	Records  []core.SettlementRecord `json:"records"`
}
