package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mkang-dev/chessio-server/internal/auth"
	"github.com/mkang-dev/chessio-server/internal/game"
	"github.com/mkang-dev/chessio-server/internal/msgcat"
	"github.com/mkang-dev/chessio-server/internal/rules"
	"github.com/mkang-dev/chessio-server/pkg/wire"
)

func startServer(t *testing.T) string {
	t.Helper()
	verifier := auth.NewStaticVerifier()
	for _, u := range []string{"alice", "bob"} {
		if err := verifier.Register(context.Background(), u, "secret"); err != nil {
			t.Fatalf("register %s: %v", u, err)
		}
	}
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat.New: %v", err)
	}
	mgr := game.NewManager(game.Deps{
		Verifier: verifier,
		Engine:   rules.NewEngine(),
		Catalog:  cat,
	})
	srv := httptest.NewServer(NewServer(mgr))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type client struct {
	t  *testing.T
	ws *websocket.Conn
}

func dial(t *testing.T, url string) *client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ws, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = ws.Close(websocket.StatusNormalClosure, "test done") })
	return &client{t: t, ws: ws}
}

func (c *client) sendMsg(msg wire.ClientMessage) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, c.ws, msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *client) read() wire.ServerMessage {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg wire.ServerMessage
	if err := wsjson.Read(ctx, c.ws, &msg); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return msg
}

// expect reads frames until one of the wanted type arrives so incidental
// frames (welcome, waiting) never make ordering assertions brittle.
func (c *client) expect(tp string) wire.ServerMessage {
	c.t.Helper()
	for i := 0; i < 10; i++ {
		msg := c.read()
		if msg.Type == tp {
			return msg
		}
	}
	c.t.Fatalf("frame of type %q never arrived", tp)
	return wire.ServerMessage{}
}

func (c *client) authAs(name string) {
	c.t.Helper()
	c.sendMsg(wire.ClientMessage{Type: wire.TypeAuth, Username: name, Password: "secret"})
	resp := c.expect(wire.TypeAuthResponse)
	if resp.Success == nil || !*resp.Success {
		c.t.Fatalf("auth as %s failed: %+v", name, resp)
	}
}

func (c *client) move(from, to string) {
	c.sendMsg(wire.ClientMessage{Type: wire.TypeMove, Move: &wire.Move{From: from, To: to}})
}

func TestWelcomeOnConnect(t *testing.T) {
	url := startServer(t)
	c := dial(t, url)
	msg := c.read()
	if msg.Type != wire.TypeWelcome || msg.Message == "" {
		t.Fatalf("expected welcome frame first, got %+v", msg)
	}
}

func TestFullGameOverWebsocket(t *testing.T) {
	url := startServer(t)

	alice := dial(t, url)
	bob := dial(t, url)
	alice.authAs("alice")
	bob.authAs("bob")

	alice.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})
	alice.expect(wire.TypeWaiting)
	bob.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})

	found := bob.expect(wire.TypeGameFound)
	if found.Opponent != "alice" {
		t.Fatalf("bob's opponent = %q, want alice", found.Opponent)
	}
	ai := alice.expect(wire.TypeInitGame)
	bi := bob.expect(wire.TypeInitGame)
	if ai.Payload.Color != "white" || bi.Payload.Color != "black" {
		t.Fatalf("roles = %q/%q, want white/black", ai.Payload.Color, bi.Payload.Color)
	}

	alice.move("e2", "e4")
	relay := bob.expect(wire.TypeMove)
	if relay.Payload.From != "e2" || relay.Payload.To != "e4" {
		t.Fatalf("unexpected relay: %+v", relay.Payload)
	}

	// scholar's mate: white mates on move four
	for _, p := range []struct {
		c        *client
		from, to string
	}{
		{bob, "e7", "e5"}, {alice, "d1", "h5"}, {bob, "b8", "c6"},
		{alice, "f1", "c4"}, {bob, "g8", "f6"},
	} {
		p.c.move(p.from, p.to)
		// wait for the relay so no game_over can be pending yet
		other := alice
		if p.c == alice {
			other = bob
		}
		msg := other.expect(wire.TypeMove)
		if msg.Payload.From != p.from || msg.Payload.To != p.to {
			t.Fatalf("relay mismatch: got %+v, want %s%s", msg.Payload, p.from, p.to)
		}
	}
	alice.move("h5", "f7")

	for name, c := range map[string]*client{"alice": alice, "bob": bob} {
		over := c.expect(wire.TypeGameOver)
		if over.Payload.Winner != "white" {
			t.Fatalf("%s saw winner %q, want white", name, over.Payload.Winner)
		}
	}
}

func TestDisconnectDeclaresSurvivorOverWebsocket(t *testing.T) {
	url := startServer(t)

	alice := dial(t, url)
	bob := dial(t, url)
	alice.authAs("alice")
	bob.authAs("bob")

	alice.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})
	alice.expect(wire.TypeWaiting)
	bob.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})
	alice.expect(wire.TypeInitGame)
	bob.expect(wire.TypeInitGame)

	_ = bob.ws.Close(websocket.StatusNormalClosure, "gone")

	over := alice.expect(wire.TypeGameOver)
	if over.Payload.Winner != "white (opponent disconnected)" {
		t.Fatalf("winner = %q", over.Payload.Winner)
	}
}

func TestEvictionReachesOldConnection(t *testing.T) {
	url := startServer(t)

	first := dial(t, url)
	first.authAs("alice")

	second := dial(t, url)
	second.authAs("alice")

	evicted := first.expect(wire.TypeEvicted)
	if evicted.Message == "" {
		t.Fatalf("eviction notice should carry a message")
	}
	// the evicted socket is closed by the server after the notice
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var msg wire.ServerMessage
	if err := wsjson.Read(ctx, first.ws, &msg); err == nil {
		t.Fatalf("expected the evicted connection to close, read %+v", msg)
	}
}

func TestOutOfTurnErrorOverWebsocket(t *testing.T) {
	url := startServer(t)

	alice := dial(t, url)
	bob := dial(t, url)
	alice.authAs("alice")
	bob.authAs("bob")

	alice.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})
	alice.expect(wire.TypeWaiting)
	bob.sendMsg(wire.ClientMessage{Type: wire.TypeFindMatch})
	alice.expect(wire.TypeInitGame)
	bob.expect(wire.TypeInitGame)

	bob.move("e7", "e5")
	errMsg := bob.expect(wire.TypeError)
	if errMsg.Message == "" {
		t.Fatalf("out-of-turn error should carry a message")
	}
}
