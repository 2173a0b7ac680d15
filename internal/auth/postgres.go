package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PGVerifier validates credentials against the players table.
type PGVerifier struct {
	db *sql.DB
}

// NewPGVerifier wraps an open database handle. The handle is shared with the
// session record repository; the caller owns its lifecycle.
func NewPGVerifier(db *sql.DB) *PGVerifier {
	return &PGVerifier{db: db}
}

func (v *PGVerifier) Verify(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var hash string
	acc := &Account{}
	err := v.db.QueryRowContext(ctx,
		`SELECT username, password_hash, games_played, wins, losses, draws
		   FROM players WHERE username = $1`, username).
		Scan(&acc.Username, &hash, &acc.GamesPlayed, &acc.Wins, &acc.Losses, &acc.Draws)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// Register creates a player account with a bcrypt-hashed password.
func (v *PGVerifier) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res, err := v.db.ExecContext(ctx,
		`INSERT INTO players (username, password_hash)
		 VALUES ($1, $2) ON CONFLICT (username) DO NOTHING`, username, string(hash))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrUsernameTaken
	}
	return nil
}
