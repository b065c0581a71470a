// Package cache holds rendered CMS responses keyed by name and grouped by
// revalidation tags.
package cache

import (
	"sync"
	"time"
)

const (
	// DefaultMaxEntries bounds a store created without WithMaxEntries.
	DefaultMaxEntries = 1000

	sweepInterval = time.Minute
)

type entry struct {
	value     any
	tags      []string
	expiresAt time.Time
	seq       uint64
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is an in-memory, tag-addressable cache safe for concurrent use.
// It never holds more than its maximum number of entries.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	seq        uint64
	lastSweep  time.Time
	now        func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries limits the number of entries. Values below 1 are ignored.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[string]entry),
		maxEntries: DefaultMaxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the value for key if present and not expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.seq == e.seq {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. A ttl of zero never expires. Expired entries
// are swept at most once per minute, and when the store is full the oldest
// entry makes room.
func (s *Store) Set(key string, value any, ttl time.Duration, tags ...string) {
	now := s.now()
	e := entry{value: value, tags: append([]string(nil), tags...)}
	if ttl > 0 {
		e.expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) >= sweepInterval {
		s.deleteExpired(now)
	}
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		if s.deleteExpired(now) == 0 {
			s.evictOldest()
		}
	}

	s.seq++
	e.seq = s.seq
	s.entries[key] = e
}

// DeleteExpired drops every expired entry and returns how many were removed.
func (s *Store) DeleteExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteExpired(s.now())
}

func (s *Store) deleteExpired(now time.Time) int {
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	s.lastSweep = now
	return removed
}

func (s *Store) evictOldest() {
	var oldest string
	var oldestSeq uint64
	for key, e := range s.entries {
		if oldestSeq == 0 || e.seq < oldestSeq {
			oldest, oldestSeq = key, e.seq
		}
	}
	if oldestSeq != 0 {
		delete(s.entries, oldest)
	}
}

// InvalidateTags drops every entry carrying at least one of tags and returns
// how many entries were removed.
func (s *Store) InvalidateTags(tags ...string) int {
	if len(tags) == 0 {
		return 0
	}
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, e := range s.entries {
		for _, t := range e.tags {
			if _, ok := wanted[t]; ok {
				delete(s.entries, key)
				removed++
				break
			}
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones not yet swept
// included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
