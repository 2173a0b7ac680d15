package game

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkang-dev/chessio-server/internal/auth"
	"github.com/mkang-dev/chessio-server/internal/msgcat"
	"github.com/mkang-dev/chessio-server/internal/obslog"
	"github.com/mkang-dev/chessio-server/internal/rules"
	"github.com/mkang-dev/chessio-server/internal/store"
	"github.com/mkang-dev/chessio-server/pkg/wire"
)

// Deps are the collaborators the manager wires into each session.
type Deps struct {
	Verifier     auth.Verifier
	Engine       rules.Engine
	Gateway      store.Gateway    // nil disables durable records and history
	Live         store.LiveMirror // nil disables the live mirror
	Catalog      *msgcat.Catalog
	HistoryLimit int
}

// Manager owns the connection registry, the matchmaking pool and the set of
// live sessions. One mutex serializes every inbound event, so handlers run to
// completion (persistence included) before the next event for any connection
// is processed.
type Manager struct {
	mu   sync.Mutex
	deps Deps

	reg      *registry
	pool     *pool
	sessions []*Session
}

func NewManager(deps Deps) *Manager {
	if deps.HistoryLimit <= 0 {
		deps.HistoryLimit = 20
	}
	return &Manager{
		deps: deps,
		reg:  newRegistry(),
		pool: newPool(),
	}
}

// HandleConnect admits a new transport and greets it.
func (m *Manager) HandleConnect(conn Conn) {
	m.mu.Lock()
	m.reg.add(conn)
	m.mu.Unlock()
	conn.Send(wire.Welcome(m.deps.Catalog.MustRender("welcome", nil)))
}

// HandleMessage decodes and dispatches one inbound frame. A malformed frame
// degrades to a protocol error, never a crash or a closed connection.
func (m *Manager) HandleMessage(ctx context.Context, conn Conn, raw []byte) {
	var msg wire.ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		conn.Send(wire.Error(m.deps.Catalog.MustRender("error.processing", nil)))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.reg.get(conn)
	if cs == nil {
		return
	}

	switch msg.Type {
	case wire.TypeAuth:
		m.handleAuth(ctx, cs, msg)
	case wire.TypeFindMatch:
		m.handleFindMatch(ctx, cs)
	case wire.TypeMove:
		m.handleMove(ctx, cs, msg)
	case wire.TypeGetHistory:
		m.handleGetHistory(ctx, cs)
	default:
		obslog.L().Debug("unknown_message_type", zap.String("type", msg.Type))
		conn.Send(wire.Error(m.deps.Catalog.MustRender("error.unknown_type", nil)))
	}
}

// HandleDisconnect removes all state owned by the connection: registry entry,
// waiting entry and session membership. Idempotent.
func (m *Manager) HandleDisconnect(ctx context.Context, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cs := m.reg.remove(conn)
	if cs == nil {
		return
	}
	if cs.authenticated {
		m.pool.cancel(cs.identity)
		if s := m.sessionByIdentity(cs.identity); s != nil {
			s.memberDisconnect(ctx, cs.identity)
		}
		obslog.L().Info("client_disconnected", zap.String("identity", cs.identity))
	}
	m.reapLocked()
}

// Stats reports signed-in users, active sessions and waiting players.
func (m *Manager) Stats() (connected, active, waiting int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.status == StatusActive {
			active++
		}
	}
	return m.reg.authenticatedCount(), active, m.pool.size()
}

func (m *Manager) handleAuth(ctx context.Context, cs *clientState, msg wire.ClientMessage) {
	if msg.Username == "" || msg.Password == "" {
		cs.conn.Send(wire.AuthFailed(m.deps.Catalog.MustRender("auth.missing_fields", nil)))
		return
	}

	acc, err := m.deps.Verifier.Verify(ctx, msg.Username, msg.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			obslog.L().Error("verifier_error", zap.Error(err))
		}
		cs.conn.Send(wire.AuthFailed(m.deps.Catalog.MustRender("auth.invalid", nil)))
		return
	}

	// Re-authenticating the same transport under a new identity releases
	// everything held under the old one.
	if cs.authenticated && cs.identity != acc.Username {
		m.releaseIdentity(ctx, cs.identity)
	}

	// Duplicate login: the old connection is notified, closed and
	// deregistered before the new one is indexed under the identity.
	if old := m.reg.byID(acc.Username); old != nil && old != cs {
		old.conn.Send(wire.Evicted(m.deps.Catalog.MustRender("auth.evicted", nil)))
		old.conn.Close("superseded by new login")
		m.reg.remove(old.conn)
		m.releaseIdentity(ctx, acc.Username)
		obslog.L().Info("connection_evicted", zap.String("identity", acc.Username))
	}

	m.reg.bind(cs, acc.Username, acc.Username)
	cs.conn.Send(wire.AuthOK(m.deps.Catalog.MustRender("auth.success", nil), &wire.UserData{
		Username:    acc.Username,
		GamesPlayed: acc.GamesPlayed,
		Wins:        acc.Wins,
		Losses:      acc.Losses,
		Draws:       acc.Draws,
	}))
	obslog.L().Info("client_authenticated", zap.String("identity", acc.Username))
}

// releaseIdentity cancels the identity's waiting entry and disconnects it
// from its session, then reaps.
func (m *Manager) releaseIdentity(ctx context.Context, identity string) {
	m.pool.cancel(identity)
	if s := m.sessionByIdentity(identity); s != nil {
		s.memberDisconnect(ctx, identity)
	}
	m.reapLocked()
}

func (m *Manager) handleFindMatch(ctx context.Context, cs *clientState) {
	if !cs.authenticated {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("auth.required_match", nil)))
		return
	}
	if m.pool.has(cs.identity) {
		// already waiting; request is a no-op
		obslog.L().Debug("already_waiting", zap.String("identity", cs.identity))
		return
	}
	if s := m.sessionByIdentity(cs.identity); s != nil {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("match.already_in_game", nil)))
		return
	}

	peer := m.pool.takeOldest(cs.identity)
	if peer == nil {
		m.pool.enqueue(cs)
		cs.conn.Send(wire.Waiting())
		obslog.L().Info("waiting_for_opponent", zap.String("identity", cs.identity))
		return
	}

	s := newSession(uuid.NewString(), peer.client, cs, sessionDeps{
		engine:  m.deps.Engine,
		gateway: m.deps.Gateway,
		live:    m.deps.Live,
		cat:     m.deps.Catalog,
	})
	m.sessions = append(m.sessions, s)

	cs.conn.Send(wire.GameFound(peer.identity))
	peer.client.conn.Send(wire.GameFound(cs.identity))
	s.start(ctx)
}

func (m *Manager) handleMove(ctx context.Context, cs *clientState, msg wire.ClientMessage) {
	if !cs.authenticated {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("auth.required_move", nil)))
		return
	}
	if msg.Move == nil || msg.Move.From == "" || msg.Move.To == "" {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("game.bad_move_format", nil)))
		return
	}
	s := m.sessionByIdentity(cs.identity)
	if s == nil {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("game.not_in_game", nil)))
		return
	}
	s.submitMove(ctx, cs.identity, *msg.Move)
	m.reapLocked()
}

func (m *Manager) handleGetHistory(ctx context.Context, cs *clientState) {
	if !cs.authenticated {
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("auth.required_history", nil)))
		return
	}
	if m.deps.Gateway == nil {
		cs.conn.Send(wire.GameHistory(nil))
		return
	}
	recs, err := m.deps.Gateway.History(ctx, cs.identity, m.deps.HistoryLimit)
	if err != nil {
		obslog.L().Error("history_query_failed", zap.String("identity", cs.identity), zap.Error(err))
		cs.conn.Send(wire.Error(m.deps.Catalog.MustRender("history.failed", nil)))
		return
	}
	games := make([]wire.HistoryGame, 0, len(recs))
	for _, rec := range recs {
		games = append(games, wire.HistoryGame{
			ID:          rec.ID,
			WhitePlayer: rec.WhitePlayer,
			BlackPlayer: rec.BlackPlayer,
			Moves:       rec.MovesUCI,
			Result:      string(rec.Result),
			StartTime:   rec.StartedAt,
			EndTime:     rec.EndedAt,
		})
	}
	cs.conn.Send(wire.GameHistory(games))
}

// sessionByIdentity finds the active session the identity belongs to. Linear
// scan; the active set stays small.
func (m *Manager) sessionByIdentity(identity string) *Session {
	for _, s := range m.sessions {
		if s.status == StatusActive && s.hasMember(identity) {
			return s
		}
	}
	return nil
}

// reapLocked drops finished sessions from the active set.
func (m *Manager) reapLocked() {
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.status != StatusFinished {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
}
