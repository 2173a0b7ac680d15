package game

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mkang-dev/chessio-server/internal/msgcat"
	"github.com/mkang-dev/chessio-server/internal/obslog"
	"github.com/mkang-dev/chessio-server/internal/rules"
	"github.com/mkang-dev/chessio-server/internal/store"
	"github.com/mkang-dev/chessio-server/pkg/wire"
)

// member is one of the two session participants. Roles are resolved by
// identity, not by transport equality, so an evicted or replaced connection
// never confuses turn ownership.
type member struct {
	identity    string
	displayName string
	conn        Conn
	color       rules.Color
	connected   bool
}

// sessionDeps are the collaborators a session calls out to.
type sessionDeps struct {
	engine  rules.Engine
	gateway store.Gateway    // nil disables durable records
	live    store.LiveMirror // nil disables the live mirror
	cat     *msgcat.Catalog
}

// Session is the per-game state machine. All methods are invoked with the
// Manager's lock held; the session never mutates itself outside a handler.
type Session struct {
	id   string
	deps sessionDeps

	white *member
	black *member

	recordID string
	fen      string
	movesUCI []string
	movesSAN []string
	turn     rules.Color
	status   Status
	result   store.Result
	method   string

	createdAt time.Time
	endedAt   time.Time
}

// newSession pairs two authenticated clients. The client that was already
// waiting takes white and moves first; the requester that completed the pair
// takes black. Deterministic, never random.
func newSession(id string, waiting, requester *clientState, deps sessionDeps) *Session {
	return &Session{
		id:   id,
		deps: deps,
		white: &member{
			identity:    waiting.identity,
			displayName: waiting.displayName,
			conn:        waiting.conn,
			color:       rules.White,
			connected:   true,
		},
		black: &member{
			identity:    requester.identity,
			displayName: requester.displayName,
			conn:        requester.conn,
			color:       rules.Black,
			connected:   true,
		},
		turn:      rules.White,
		status:    StatusActive,
		createdAt: time.Now(),
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// start announces roles to both members and opens the persistence record.
// A storage outage is logged and ignored: a session is never blocked by it.
func (s *Session) start(ctx context.Context) {
	s.white.conn.Send(wire.InitGame(string(rules.White), s.black.identity))
	s.black.conn.Send(wire.InitGame(string(rules.Black), s.white.identity))

	if s.deps.gateway != nil {
		recordID, err := s.deps.gateway.CreateSession(ctx, s.white.identity, s.black.identity, s.createdAt)
		if err != nil {
			obslog.L().Error("session_record_create_failed",
				zap.String("session_id", s.id), zap.Error(err))
		} else {
			s.recordID = recordID
		}
	}
	s.mirror(ctx)

	obslog.L().Info("session_start",
		zap.String("session_id", s.id),
		zap.String("white", s.white.identity),
		zap.String("black", s.black.identity),
	)
}

// memberFor resolves a participant by identity, or nil for a non-member.
func (s *Session) memberFor(identity string) *member {
	switch identity {
	case s.white.identity:
		return s.white
	case s.black.identity:
		return s.black
	}
	return nil
}

func (s *Session) opponentOf(m *member) *member {
	if m == s.white {
		return s.black
	}
	return s.white
}

// hasMember reports whether identity is one of the two participants.
func (s *Session) hasMember(identity string) bool {
	return s.memberFor(identity) != nil
}

// submitMove runs one turn of the state machine. Out-of-turn submissions from
// a genuine member get an explicit error; submissions from non-members are
// dropped without reply so a stranger learns nothing about the session.
func (s *Session) submitMove(ctx context.Context, identity string, mv wire.Move) {
	if s.status != StatusActive {
		obslog.L().Debug("move_on_finished_session",
			zap.String("session_id", s.id), zap.String("identity", identity))
		return
	}
	m := s.memberFor(identity)
	if m == nil {
		obslog.L().Warn("move_from_non_member",
			zap.String("session_id", s.id), zap.String("identity", identity))
		return
	}
	if m.color != s.turn {
		m.conn.Send(wire.Error(s.deps.cat.MustRender("game.not_your_turn", nil)))
		return
	}

	applied, err := s.deps.engine.Apply(s.movesUCI, mv.From, mv.To)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			m.conn.Send(wire.Error(s.deps.cat.MustRender("game.illegal_move", nil)))
			return
		}
		obslog.L().Error("rules_engine_error",
			zap.String("session_id", s.id), zap.Error(err))
		m.conn.Send(wire.Error(s.deps.cat.MustRender("error.processing", nil)))
		return
	}

	// State transition happens in full before any suspension point: the move
	// log and turn cursor are already consistent when persistence is issued.
	s.movesUCI = append(s.movesUCI, applied.MoveUCI)
	s.movesSAN = append(s.movesSAN, applied.MoveSAN)
	s.fen = applied.FEN
	s.turn = applied.Turn

	if s.deps.gateway != nil && s.recordID != "" {
		if err := s.deps.gateway.AppendMoves(ctx, s.recordID, s.movesUCI, s.movesSAN); err != nil {
			obslog.L().Error("session_record_append_failed",
				zap.String("session_id", s.id), zap.Error(err))
		}
	}

	obslog.L().Info("session_move",
		zap.String("session_id", s.id),
		zap.String("identity", identity),
		zap.String("uci", applied.MoveUCI),
		zap.Int("ply", len(s.movesUCI)),
	)

	if applied.Outcome.Terminal {
		result := store.ResultDraw
		winner := string(store.ResultDraw)
		method := "draw"
		if !applied.Outcome.Draw {
			result = store.Result(applied.Outcome.Winner)
			winner = string(applied.Outcome.Winner)
			method = "checkmate"
		}
		s.sendBoth(wire.GameOver(winner))
		s.finalize(ctx, result, method)
		return
	}

	// The mover has local confirmation; only the opponent is told.
	other := s.opponentOf(m)
	if other.connected {
		other.conn.Send(wire.MoveMade(mv))
	}
	s.mirror(ctx)
}

// memberDisconnect is the single disconnect transition, invoked uniformly for
// transport close, forced eviction and reaping. A session always finalizes,
// even when both members are gone, so it can never leak as unreachable.
func (s *Session) memberDisconnect(ctx context.Context, identity string) {
	m := s.memberFor(identity)
	if m == nil || !m.connected {
		return
	}
	m.connected = false
	if s.status != StatusActive {
		return
	}

	other := s.opponentOf(m)
	if other.connected {
		winner := s.deps.cat.MustRender("game.disconnect_winner",
			map[string]string{"Winner": string(other.color)})
		other.conn.Send(wire.GameOver(winner))
	}
	s.finalize(ctx, store.Result(other.color), "disconnect")
}

// finalize moves the session to Finished exactly once and records the result.
func (s *Session) finalize(ctx context.Context, result store.Result, method string) {
	if s.status == StatusFinished {
		return
	}
	s.status = StatusFinished
	s.result = result
	s.method = method
	s.endedAt = time.Now()

	if s.deps.gateway != nil && s.recordID != "" {
		rec := &store.SessionRecord{
			ID:           s.recordID,
			WhitePlayer:  s.white.identity,
			BlackPlayer:  s.black.identity,
			MovesUCI:     append([]string(nil), s.movesUCI...),
			MovesSAN:     append([]string(nil), s.movesSAN...),
			Result:       result,
			ResultMethod: method,
			StartedAt:    s.createdAt,
			EndedAt:      s.endedAt,
		}
		if err := s.deps.gateway.FinalizeSession(ctx, rec); err != nil {
			obslog.L().Error("session_record_finalize_failed",
				zap.String("session_id", s.id), zap.Error(err))
		}
	}
	s.mirror(ctx)

	obslog.L().Info("session_finished",
		zap.String("session_id", s.id),
		zap.String("result", string(result)),
		zap.String("method", method),
		zap.Int("moves", len(s.movesUCI)),
	)
}

func (s *Session) sendBoth(msg wire.ServerMessage) {
	if s.white.connected {
		s.white.conn.Send(msg)
	}
	if s.black.connected {
		s.black.conn.Send(msg)
	}
}

func (s *Session) mirror(ctx context.Context) {
	if s.deps.live == nil {
		return
	}
	snap := &store.LiveSnapshot{
		ID:          s.id,
		WhitePlayer: s.white.identity,
		BlackPlayer: s.black.identity,
		FEN:         s.fen,
		MovesUCI:    append([]string(nil), s.movesUCI...),
		MovesSAN:    append([]string(nil), s.movesSAN...),
		Turn:        string(s.turn),
		Status:      string(s.status),
		Result:      string(s.result),
		CreatedAt:   s.createdAt,
		UpdatedAt:   time.Now(),
	}
	if err := s.deps.live.Save(ctx, snap); err != nil {
		obslog.L().Warn("live_mirror_save_failed",
			zap.String("session_id", s.id), zap.Error(err))
	}
}
