package store

import (
	"context"
	"sync"
	"time"
)

// LocalStore is the single-process fallback Store used when no Redis
// backend is configured or reachable. It honors the same contract but
// shares nothing with other processes: dedup and batching still work
// within one process, which is a documented degradation, not a failure.
type LocalStore struct {
	mu     sync.Mutex
	values map[string]localEntry
	lists  map[string]localList
	now    func() time.Time
}

type localEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
	counter   int64
}

type localList struct {
	items     []string
	expiresAt time.Time
}

// NewLocalStore creates an empty LocalStore.
func NewLocalStore() *LocalStore {
	return &LocalStore{
		values: make(map[string]localEntry),
		lists:  make(map[string]localList),
		now:    time.Now,
	}
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && now.After(expiresAt)
}

// lookup returns the live entry for key, expiring it lazily.
func (s *LocalStore) lookup(key string) (localEntry, bool) {
	e, ok := s.values[key]
	if !ok {
		return localEntry{}, false
	}
	if expired(e.expiresAt, s.now()) {
		delete(s.values, key)
		return localEntry{}, false
	}
	return e, true
}

func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *LocalStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = localEntry{value: value, expiresAt: s.deadline(ttl)}
	return nil
}

func (s *LocalStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.values[key] = localEntry{value: value, expiresAt: s.deadline(ttl)}
	return true, nil
}

func (s *LocalStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		e = localEntry{expiresAt: s.deadline(ttl)}
	}
	e.counter++
	s.values[key] = e
	return e.counter, nil
}

func (s *LocalStore) Append(ctx context.Context, key, item string, maxLen int64, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok || expired(l.expiresAt, s.now()) {
		l = localList{expiresAt: s.deadline(ttl)}
	}
	l.items = append(l.items, item)
	if maxLen > 0 && int64(len(l.items)) > maxLen {
		l.items = l.items[int64(len(l.items))-maxLen:]
	}
	s.lists[key] = l
	return int64(len(l.items)), nil
}

func (s *LocalStore) DrainAndDelete(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	delete(s.lists, key)
	if !ok || expired(l.expiresAt, s.now()) {
		return nil, nil
	}
	return l.items, nil
}

func (s *LocalStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return true, nil
	}
	if l, ok := s.lists[key]; ok && !expired(l.expiresAt, s.now()) {
		return true, nil
	}
	return false, nil
}

func (s *LocalStore) HealthCheck(ctx context.Context, timeout time.Duration) error {
	return nil
}

func (s *LocalStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}
