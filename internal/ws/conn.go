package ws

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mkang-dev/chessio-server/internal/obslog"
	"github.com/mkang-dev/chessio-server/pkg/wire"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// Conn adapts a websocket connection to the core's transport contract.
// Outbound frames go through a buffered writer goroutine so a slow peer never
// blocks the session manager.
type Conn struct {
	ws   *websocket.Conn
	send chan wire.ServerMessage

	closeOnce sync.Once
	done      chan struct{}
	reason    string
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:   ws,
		send: make(chan wire.ServerMessage, sendBuffer),
		done: make(chan struct{}),
	}
}

// Send enqueues a frame. Never blocks; drops when the peer cannot keep up.
func (c *Conn) Send(msg wire.ServerMessage) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		obslog.L().Warn("outbound_buffer_full", zap.String("type", msg.Type))
	}
}

// Close stops the connection after flushing already-enqueued frames, so a
// final notification (eviction, game over) still reaches the peer. Idempotent.
func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reason = reason
		close(c.done)
	})
}

// writeLoop owns all writes on the socket.
func (c *Conn) writeLoop() {
	for {
		select {
		case msg := <-c.send:
			if !c.write(msg) {
				return
			}
		case <-c.done:
			c.drain()
			_ = c.ws.Close(websocket.StatusNormalClosure, c.reason)
			return
		}
	}
}

func (c *Conn) drain() {
	for {
		select {
		case msg := <-c.send:
			if !c.write(msg) {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(msg wire.ServerMessage) bool {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		obslog.L().Debug("write_failed", zap.Error(err))
		return false
	}
	return true
}
