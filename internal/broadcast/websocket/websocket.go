// Package websocket streams broadcast envelopes to the relay server.
package websocket

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/railtycoon/server/internal/broadcast"
	"github.com/railtycoon/server/pkg/streaming"
)

// Config holds relay connection settings.
type Config struct {
	URL      string
	Secret   string
	ServerID string
	Version  string
}

// Publisher is a broadcast.Publisher writing to a single relay connection.
// Messages published while disconnected are buffered up to the send
// channel size and dropped beyond it.
type Publisher struct {
	conn      *connection
	cfg       Config
	startedAt time.Time
	dropped   atomic.Uint64
}

func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:      newConnection(logger.With("component", "broadcast")),
		cfg:       cfg,
		startedAt: time.Now().UTC(),
	}
}

// Init connects to the relay and introduces this server.
func (p *Publisher) Init() error {
	hello, err := broadcast.MarshalEnvelope(streaming.TypeHello, streaming.HelloPayload{
		ServerID:  p.cfg.ServerID,
		Version:   p.cfg.Version,
		StartedAt: p.startedAt,
	})
	if err != nil {
		return err
	}
	return p.conn.dial(p.cfg.URL, p.cfg.Secret, hello)
}

// Publish queues the message for the write loop.
func (p *Publisher) Publish(msgType string, payload any) error {
	data, err := broadcast.MarshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	if !p.conn.send(data) {
		if n := p.dropped.Add(1); n == 1 || n%1000 == 0 {
			p.conn.logger.Warn("Broadcast send channel full, dropping message", "type", msgType, "dropped", n)
		}
	}
	return nil
}

// Dropped reports how many messages were discarded because the send
// channel was full.
func (p *Publisher) Dropped() uint64 {
	return p.dropped.Load()
}

// Close disconnects from the relay.
func (p *Publisher) Close() error {
	return p.conn.close()
}
