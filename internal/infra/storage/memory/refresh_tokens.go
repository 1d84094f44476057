package memory

import (
	"context"
	"sync"
	"time"

	"rentline/internal/app/services/auth"
	domainuser "rentline/internal/domain/user"
)

type refreshEntry struct {
	userID    domainuser.ID
	expiresAt time.Time
}

// RefreshTokenStore keeps issued refresh tokens in memory.
type RefreshTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]refreshEntry
}

func NewRefreshTokenStore() *RefreshTokenStore {
	return &RefreshTokenStore{tokens: make(map[string]refreshEntry)}
}

func (s *RefreshTokenStore) Save(ctx context.Context, token string, userID domainuser.ID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = refreshEntry{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *RefreshTokenStore) Lookup(ctx context.Context, token string) (domainuser.ID, error) {
	s.mu.RLock()
	entry, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return 0, auth.ErrRefreshTokenInvalid
	}
	return entry.userID, nil
}

func (s *RefreshTokenStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

var _ auth.RefreshTokenStore = (*RefreshTokenStore)(nil)
