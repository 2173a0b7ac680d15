// Package store defines the narrow persistence interface the session core
// writes through. All writes are best-effort from the caller's point of view:
// a storage outage must never block or reverse live gameplay.
package store

import (
	"context"
	"time"
)

// Result is the recorded outcome of a session.
type Result string

const (
	ResultWhite   Result = "white"
	ResultBlack   Result = "black"
	ResultDraw    Result = "draw"
	ResultOngoing Result = "ongoing"
)

// SessionRecord is one durably recorded game.
type SessionRecord struct {
	ID           string
	WhitePlayer  string
	BlackPlayer  string
	MovesUCI     []string
	MovesSAN     []string
	PGN          string
	Result       Result
	ResultMethod string
	StartedAt    time.Time
	EndedAt      time.Time
}

// Gateway persists session records and serves per-player history.
type Gateway interface {
	// CreateSession opens a record for a freshly paired game and returns its
	// record id.
	CreateSession(ctx context.Context, white, black string, startedAt time.Time) (string, error)
	// AppendMoves replaces the stored move log with the current one. The log
	// is append-only upstream, so this is a pure superset write.
	AppendMoves(ctx context.Context, recordID string, movesUCI, movesSAN []string) error
	// FinalizeSession records the terminal result. Called at most once per
	// record.
	FinalizeSession(ctx context.Context, rec *SessionRecord) error
	// History returns the player's finished and ongoing games, newest first.
	History(ctx context.Context, identity string, limit int) ([]SessionRecord, error)
}

// LiveSnapshot is the operational mirror of an in-memory session. It is never
// authoritative for gameplay.
type LiveSnapshot struct {
	ID          string    `json:"id"`
	WhitePlayer string    `json:"white_player"`
	BlackPlayer string    `json:"black_player"`
	FEN         string    `json:"fen"`
	MovesUCI    []string  `json:"moves_uci"`
	MovesSAN    []string  `json:"moves_san"`
	Turn        string    `json:"turn"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// LiveMirror receives live session snapshots.
type LiveMirror interface {
	Save(ctx context.Context, snap *LiveSnapshot) error
}
