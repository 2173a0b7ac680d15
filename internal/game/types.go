// Package game implements the connection registry, matchmaking pool and the
// per-session state machine. Every inbound event (connect, frame, disconnect)
// is serialized through the Manager; no handler observes partially-updated
// registries.
package game

import (
	"time"

	"github.com/mkang-dev/chessio-server/pkg/wire"
)

// Conn is the transport handle the core drives. Send must never block the
// caller; implementations buffer writes and drop on overflow. Close is
// idempotent.
type Conn interface {
	Send(msg wire.ServerMessage)
	Close(reason string)
}

// clientState is the registry entry for one live connection.
type clientState struct {
	conn          Conn
	identity      string
	displayName   string
	authenticated bool
	joinedAt      time.Time
}

// Status is a session lifecycle state.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusFinished Status = "FINISHED"
)
