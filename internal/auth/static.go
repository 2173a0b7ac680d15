package auth

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// StaticVerifier keeps accounts in memory. Used when no database is
// configured and throughout the tests.
type StaticVerifier struct {
	mu    sync.RWMutex
	users map[string]staticUser
}

type staticUser struct {
	hash  string
	stats Account
}

func NewStaticVerifier() *StaticVerifier {
	return &StaticVerifier{users: make(map[string]staticUser)}
}

func (v *StaticVerifier) Verify(ctx context.Context, username, password string) (*Account, error) {
	username = strings.TrimSpace(username)
	v.mu.RLock()
	u, ok := v.users[username]
	v.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	acc := u.stats
	return &acc, nil
}

func (v *StaticVerifier) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.users[username]; ok {
		return ErrUsernameTaken
	}
	v.users[username] = staticUser{hash: string(hash), stats: Account{Username: username}}
	return nil
}
