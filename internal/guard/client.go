package guard

import (
	"context"
	"sync"
)

// Change describes one LocalStorage mutation.  Removed is set for deletes.
type Change struct {
	Key     string
	Value   string
	Removed bool
}

// LocalStorage is an in-memory key/value store with change notification,
// standing in for the browser's storage on the client side.
type LocalStorage struct {
	mu     sync.RWMutex
	values map[string]string
	subs   map[int]chan Change
	nextID int
}

func NewLocalStorage() *LocalStorage {
	return &LocalStorage{values: map[string]string{}, subs: map[int]chan Change{}}
}

func (s *LocalStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *LocalStorage) Set(key, value string) {
	s.mu.Lock()
	s.values[key] = value
	s.notifyLocked(Change{Key: key, Value: value})
	s.mu.Unlock()
}

func (s *LocalStorage) Remove(key string) {
	s.mu.Lock()
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.notifyLocked(Change{Key: key, Removed: true})
	}
	s.mu.Unlock()
}

// Subscribe returns a channel of changes and a cancel func that closes it.
// Slow subscribers drop events rather than block writers.
func (s *LocalStorage) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 16)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *LocalStorage) notifyLocked(c Change) {
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// Navigator is the client guard.  Every Navigate, and every storage change
// while Watch runs, re-runs Classify against the current path and reports
// the decision to OnDecision.
type Navigator struct {
	Table      Table
	Source     MarkerSource
	OnDecision func(path string, d Decision)

	mu      sync.Mutex
	current string
}

// NewNavigator builds a navigator over storage with the default table.
func NewNavigator(storage *LocalStorage, onDecision func(string, Decision)) *Navigator {
	return &Navigator{
		Table:      DefaultTable(),
		Source:     StorageSource{Storage: storage},
		OnDecision: onDecision,
	}
}

// Navigate classifies path and, when allowed, makes it the current page.
// A denied navigation moves the current page to the redirect target.
func (n *Navigator) Navigate(path string) Decision {
	d := Classify(n.Table, path, n.marker())
	n.mu.Lock()
	if d.Allowed() {
		n.current = CleanPath(path)
	} else {
		n.current = LoginPath
	}
	n.mu.Unlock()
	if n.OnDecision != nil {
		n.OnDecision(path, d)
	}
	return d
}

// Current returns the page the navigator is on.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Watch re-evaluates the current page on each storage change until ctx is
// done.  It blocks.
func (n *Navigator) Watch(ctx context.Context, storage *LocalStorage) {
	changes, cancel := storage.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			if cur := n.Current(); cur != "" {
				n.Navigate(cur)
			}
		}
	}
}

func (n *Navigator) marker() Marker {
	if n.Source == nil {
		return Marker{}
	}
	return n.Source.Marker()
}
