// Package auth provides the identity verification capability consumed by the
// session core. Credential storage and hashing live behind the Verifier
// interface; the core only ever sees a stable identity plus account stats.
package auth

import (
	"context"
	"errors"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already taken")
)

// Account is the verified identity returned on successful authentication.
type Account struct {
	Username    string
	GamesPlayed int
	Wins        int
	Losses      int
	Draws       int
}

// Verifier validates a username/password credential. Verification failures
// are non-fatal to the connection; callers surface them and keep the
// transport open for a retry.
type Verifier interface {
	Verify(ctx context.Context, username, password string) (*Account, error)
}

// Registrar creates accounts. Used for the optional bootstrap user.
type Registrar interface {
	Register(ctx context.Context, username, password string) error
}
