// Package ws accepts websocket connections and feeds their frames to the
// session core. One reader goroutine per connection; a buffered writer
// goroutine owns the outbound side.
package ws

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/mkang-dev/chessio-server/internal/game"
	"github.com/mkang-dev/chessio-server/internal/obslog"
)

const readLimit = 8192

// Handler is the event surface the core exposes to the transport.
type Handler interface {
	HandleConnect(conn game.Conn)
	HandleMessage(ctx context.Context, conn game.Conn, raw []byte)
	HandleDisconnect(ctx context.Context, conn game.Conn)
}

// Server upgrades HTTP requests and pumps frames into the handler.
type Server struct {
	handler Handler
}

func NewServer(h Handler) *Server {
	return &Server{handler: h}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:  []string{"*"},
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("ws_accept_failed", zap.Error(err))
		return
	}
	c.SetReadLimit(readLimit)

	conn := newConn(c)
	go conn.writeLoop()

	s.handler.HandleConnect(conn)
	defer func() {
		conn.Close("connection closed")
		s.handler.HandleDisconnect(context.Background(), conn)
	}()

	ctx := r.Context()
	for {
		_, data, err := c.Read(ctx)
		if err != nil {
			return
		}
		s.handler.HandleMessage(ctx, conn, data)
	}
}
