package viewstate

import (
	"net/url"
	"sync"

	"github.com/naka-gawa/pr-dashboard/internal/domain"
)

// Listener is notified with the new state after every write.
type Listener func(State)

type subscription struct {
	id       int
	listener Listener
}

// Store is the shared, observable view state. Every setter is applied as one
// atomic update, then all listeners are called synchronously in subscription
// order before the setter returns. Concurrent writes are last-write-wins.
type Store struct {
	mu     sync.Mutex
	state  State
	subs   []subscription
	nextID int
}

// NewStore creates a store holding initial.
func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// NewStoreFromQuery creates a store from a request's query parameters.
func NewStoreFromQuery(values url.Values) *Store {
	return NewStore(Parse(values))
}

func (s *Store) GetState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetTab selects a tab and resets the page to 1, even if the tab is unchanged.
func (s *Store) SetTab(tab domain.Category) {
	s.update(func(st State) State { return st.WithTab(tab) })
}

// SetSearchText sets the search text and resets the page to 1.
func (s *Store) SetSearchText(text string) {
	s.update(func(st State) State { return st.WithSearch(text) })
}

// SetOrganizationFilter sets or, with "", clears the organization filter and resets the page to 1.
func (s *Store) SetOrganizationFilter(login string) {
	s.update(func(st State) State { return st.WithOrg(login) })
}

// SetPage moves to page n. Range checks against the number of pages are the
// caller's job; only non-positive values are ignored.
func (s *Store) SetPage(n int) {
	if n < 1 {
		return
	}
	s.update(func(st State) State { return st.WithPage(n) })
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription{id: id, listener: l})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) update(apply func(State) State) {
	s.mu.Lock()
	s.state = apply(s.state)
	next := s.state
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	// Listeners run outside the lock so they may read or write the store.
	for _, sub := range subs {
		sub.listener(next)
	}
}
