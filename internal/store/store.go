package store

import (
	"sync"
)

// Listener receives the snapshot before and after a dispatch.
type Listener func(prev, next State)

type subscription struct {
	id int
	fn Listener
}

type change struct {
	prev, next State
}

// Store holds the application state and serialises every transition through
// the reducers. Listeners are called in subscription order, outside the lock,
// and may dispatch again: nested changes are queued and delivered after the
// current round in the order they were applied.
type Store struct {
	mu       sync.Mutex
	state    State
	subs     []subscription
	nextID   int
	queue    []change
	draining bool
}

// New creates a Store starting at initial.
func New(initial State) *Store {
	return &Store{state: initial}
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch applies the actions in one transition and notifies listeners once.
func (s *Store) Dispatch(actions ...Action) State {
	next, _ := s.DispatchIf(nil, actions...)
	return next
}

// DispatchIf applies the actions only if cond holds for the current state,
// checked in the same transition. It reports whether they were applied; when
// not, listeners are not called and the current state is returned. A nil cond
// always holds.
func (s *Store) DispatchIf(cond func(State) bool, actions ...Action) (State, bool) {
	s.mu.Lock()
	prev := s.state
	if cond != nil && !cond(prev) {
		s.mu.Unlock()
		return prev, false
	}
	next := prev
	for _, a := range actions {
		next = Reduce(next, a)
	}
	s.state = next
	s.queue = append(s.queue, change{prev: prev, next: next})
	if s.draining {
		s.mu.Unlock()
		return next, true
	}

	s.draining = true
	for len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		subs := append([]subscription(nil), s.subs...)
		s.mu.Unlock()
		for _, sub := range subs {
			sub.fn(c.prev, c.next)
		}
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
	return next, true
}

// Subscribe registers fn for every transition. The returned func removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Observe calls fn with the new state whenever key changes between snapshots.
func Observe[K comparable](s *Store, key func(State) K, fn func(State)) (unsubscribe func()) {
	return s.Subscribe(func(prev, next State) {
		if key(prev) != key(next) {
			fn(next)
		}
	})
}
