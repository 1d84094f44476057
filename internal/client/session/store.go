// Package session holds the client's bearer credential and coordinates token
// refresh so that concurrent callers share a single network operation.
package session

import (
	"context"
	"errors"
	"sync"
)

var ErrNoRefresher = errors.New("session: refresher is not configured")

// RefreshFunc performs the actual network refresh call and returns the new
// access token. It is supplied by the API client at wiring time.
type RefreshFunc func(ctx context.Context) (string, error)

// Listener observes credential changes. It receives the new token, or the
// empty string when the credential was cleared.
type Listener func(token string)

type refreshCall struct {
	done  chan struct{}
	token string
	err   error
}

// Store is the single source of truth for the current access token. It is an
// explicit dependency injected through constructors rather than package state,
// and is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	token     string
	hasToken  bool
	refresh   RefreshFunc
	inflight  *refreshCall
	listeners map[int]Listener
	nextID    int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// SetRefresher installs the network operation used by Refresh.
func (s *Store) SetRefresher(fn RefreshFunc) {
	s.mu.Lock()
	s.refresh = fn
	s.mu.Unlock()
}

// Token returns the current access token, if any. It never blocks on I/O.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.hasToken
}

// SetToken replaces the credential and notifies listeners exactly once.
func (s *Store) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.hasToken = token != ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()
	for _, l := range listeners {
		l(token)
	}
}

// Clear removes the credential and notifies listeners exactly once.
func (s *Store) Clear() {
	s.SetToken("")
}

// Subscribe registers a credential-change listener and returns the matching
// unsubscribe function.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Refresh obtains a new access token. When a refresh is already in flight the
// caller awaits that same operation instead of issuing a duplicate network
// call; every waiter observes the one outcome. On success the new token is
// installed via SetToken; on failure the credential is cleared and the error
// propagates to all waiters. The in-flight slot is recycled once the
// operation settles.
func (s *Store) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	if call := s.inflight; call != nil {
		s.mu.Unlock()
		return awaitCall(ctx, call)
	}
	fn := s.refresh
	if fn == nil {
		s.mu.Unlock()
		return "", ErrNoRefresher
	}
	call := &refreshCall{done: make(chan struct{})}
	s.inflight = call
	s.mu.Unlock()

	token, err := fn(ctx)

	s.mu.Lock()
	s.inflight = nil
	s.mu.Unlock()
	call.token, call.err = token, err
	if err != nil {
		s.Clear()
	} else {
		s.SetToken(token)
	}
	close(call.done)
	return token, err
}

func awaitCall(ctx context.Context, call *refreshCall) (string, error) {
	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Store) snapshotListeners() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}
