package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railtycoon/server/internal/broadcast"
	"github.com/railtycoon/server/pkg/core"
	"github.com/railtycoon/server/pkg/streaming"
)

// Compile-time interface check.
var _ broadcast.Publisher = (*Publisher)(nil)

type relay struct {
	srv   *httptest.Server
	mu    sync.Mutex
	msgs  []streaming.Envelope
	conns atomic.Int32
	// when set, the first connection is dropped right after the hello
	dropFirst bool
	secrets   []string
}

func newRelay(t *testing.T, dropFirst bool) *relay {
	t.Helper()
	r := &relay{dropFirst: dropFirst}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	r.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		n := r.conns.Add(1)
		r.mu.Lock()
		r.secrets = append(r.secrets, req.URL.Query().Get("secret"))
		r.mu.Unlock()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			r.mu.Lock()
			r.msgs = append(r.msgs, env)
			r.mu.Unlock()

			ack, _ := json.Marshal(streaming.AckMessage{Type: "ack", For: env.Type})
			if err := c.WriteMessage(ws.TextMessage, ack); err != nil {
				return
			}
			if r.dropFirst && n == 1 {
				return
			}
		}
	}))
	t.Cleanup(r.srv.Close)
	return r
}

func (r *relay) url() string {
	return "ws" + strings.TrimPrefix(r.srv.URL, "http") + "/relay"
}

func (r *relay) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.msgs))
	for i, m := range r.msgs {
		out[i] = m.Type
	}
	return out
}

func (r *relay) count(msgType string) int {
	n := 0
	for _, t := range r.types() {
		if t == msgType {
			n++
		}
	}
	return n
}

func TestHelloAndPublish(t *testing.T) {
	r := newRelay(t, false)

	p := New(Config{URL: r.url(), Secret: "s3cret", ServerID: "srv-1", Version: "test"}, nil)
	require.NoError(t, p.Init())
	defer p.Close()

	require.NoError(t, p.Publish(streaming.TypeTickUpdate, core.TickPayload{}))
	require.NoError(t, p.Publish(streaming.TypeBalanceUpdate, streaming.BalancePayload{
		Updates: []core.BalanceUpdate{{OwnerID: "p1", Balance: 10}},
	}))

	require.Eventually(t, func() bool { return len(r.types()) == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{streaming.TypeHello, streaming.TypeTickUpdate, streaming.TypeBalanceUpdate}, r.types())

	r.mu.Lock()
	var hello streaming.HelloPayload
	require.NoError(t, json.Unmarshal(r.msgs[0].Payload, &hello))
	secret := r.secrets[0]
	r.mu.Unlock()
	assert.Equal(t, "srv-1", hello.ServerID)
	assert.Equal(t, "s3cret", secret)
}

func TestInit_DialFailure(t *testing.T) {
	p := New(Config{URL: "ws://127.0.0.1:1/relay"}, nil)
	assert.Error(t, p.Init())
	assert.NoError(t, p.Close())
}

func TestInit_BadURL(t *testing.T) {
	p := New(Config{URL: "://nope"}, nil)
	assert.ErrorContains(t, p.Init(), "invalid websocket URL")
}

func TestReconnectResendsHello(t *testing.T) {
	old := initialBackoff
	initialBackoff = 10 * time.Millisecond
	t.Cleanup(func() { initialBackoff = old })

	r := newRelay(t, true)

	p := New(Config{URL: r.url(), ServerID: "srv-1"}, nil)
	require.NoError(t, p.Init())
	defer p.Close()

	require.Eventually(t, func() bool { return r.conns.Load() >= 2 }, 3*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return r.count(streaming.TypeHello) >= 2 }, 3*time.Second, 5*time.Millisecond)

	// Publishing keeps working once the new connection is up.
	require.Eventually(t, func() bool {
		_ = p.Publish(streaming.TypeTickUpdate, core.TickPayload{})
		return r.count(streaming.TypeTickUpdate) > 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestPublishDropsWhenFull(t *testing.T) {
	// Never connected, so nothing drains the send channel.
	p := New(Config{}, nil)

	for i := 0; i < sendChSize; i++ {
		require.NoError(t, p.Publish(streaming.TypeTickUpdate, core.TickPayload{}))
	}
	assert.Equal(t, uint64(0), p.Dropped())

	require.NoError(t, p.Publish(streaming.TypeTickUpdate, core.TickPayload{}))
	assert.Equal(t, uint64(1), p.Dropped())
}

func TestPublish_BadPayload(t *testing.T) {
	p := New(Config{}, nil)
	assert.Error(t, p.Publish("bad", func() {}))
	assert.Equal(t, uint64(0), p.Dropped())
}

func TestCloseTwice(t *testing.T) {
	r := newRelay(t, false)
	p := New(Config{URL: r.url()}, nil)
	require.NoError(t, p.Init())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
