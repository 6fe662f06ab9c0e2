// Package session tells the sync engine who is signed in. An empty user id
// means no session: the engine then never touches the network.
package session

import (
	"sync"
)

// Provider reports the current user and notifies on change.
type Provider interface {
	// CurrentUserID returns the signed-in user id, or "" when signed out.
	CurrentUserID() string

	// OnChange registers fn to be called with the new user id whenever it
	// changes. The returned func unregisters fn.
	OnChange(fn func(userID string)) (cancel func())
}

// notifier fans a user id change out to subscribers. Callbacks run outside
// the lock so they may call back into the provider.
type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(string)
}

func (n *notifier) OnChange(fn func(userID string)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(string))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

func (n *notifier) notify(userID string) {
	n.mu.Lock()
	subs := make([]func(string), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(userID)
	}
}

// Static is a provider whose user id changes only through Set.
type Static struct {
	notifier
	mu     sync.RWMutex
	userID string
}

// NewStatic returns a provider signed in as userID; "" means signed out.
func NewStatic(userID string) *Static {
	return &Static{userID: userID}
}

// CurrentUserID returns the configured id.
func (s *Static) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// Set changes the user id and notifies subscribers if it differs.
func (s *Static) Set(userID string) {
	s.mu.Lock()
	changed := s.userID != userID
	s.userID = userID
	s.mu.Unlock()

	if changed {
		s.notify(userID)
	}
}

var _ Provider = (*Static)(nil)
