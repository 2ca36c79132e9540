package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redteam-academy/api/model"
	"github.com/redteam-academy/api/utils/cache"
)

var (
	// ErrSessionNotFound means a session ID is unknown or its TTL has lapsed
	ErrSessionNotFound = errors.New("session not found or expired")
	// ErrSessionBusy means another request currently holds the session
	ErrSessionBusy = errors.New("session is busy, try again")
)

const (
	sessionKeyFmt     = "chat:session:%s"
	sessionLockFmt    = "chat:session:lock:%s"
	sessionLockTTL    = 30 * time.Second
	sessionLockRetry  = 50 * time.Millisecond
	sessionLockWaitTO = 5 * time.Second
)

// SessionStore persists chat sessions outside the request lifecycle.
// Mutations on the same session ID are serialized: concurrent Update calls
// never interleave read-modify-write cycles or drop history entries.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

// RedisSessionStore keeps sessions in Redis under a sliding TTL. Per-session
// serialization uses a SetNX lock, the same pattern the cron manager uses
// for cross-instance job locks.
type RedisSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

// NewRedisSessionStore creates a Redis-backed session store
func NewRedisSessionStore(redisCache *cache.RedisCache, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{cache: redisCache, ttl: ttl}
}

func (s *RedisSessionStore) Create(ctx context.Context, session *model.Session) error {
	key := fmt.Sprintf(sessionKeyFmt, session.ID)
	if err := s.cache.SetJSON(ctx, key, session, s.ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	key := fmt.Sprintf(sessionKeyFmt, id)

	var session model.Session
	if err := s.cache.GetJSON(ctx, key, &session); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	// Sliding expiration: any access keeps an active session alive
	if err := s.cache.Expire(ctx, key, s.ttl); err != nil {
		return nil, err
	}

	return &session, nil
}

// Update loads the session, applies fn under a per-session lock and writes
// the result back with a refreshed TTL.
func (s *RedisSessionStore) Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	lockKey := fmt.Sprintf(sessionLockFmt, id)

	if err := s.acquireLock(ctx, lockKey); err != nil {
		return nil, err
	}
	defer s.cache.Delete(context.WithoutCancel(ctx), lockKey)

	key := fmt.Sprintf(sessionKeyFmt, id)

	var session model.Session
	if err := s.cache.GetJSON(ctx, key, &session); err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if err := fn(&session); err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, &session, s.ttl); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, fmt.Sprintf(sessionKeyFmt, id))
}

// acquireLock polls SetNX until the lock is won or the wait budget runs out.
// The lock TTL guards against a crashed holder wedging the session forever.
func (s *RedisSessionStore) acquireLock(ctx context.Context, lockKey string) error {
	deadline := time.Now().Add(sessionLockWaitTO)

	for {
		ok, err := s.cache.SetNX(ctx, lockKey, "1", sessionLockTTL)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrSessionBusy
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sessionLockRetry):
		}
	}
}

// MemorySessionStore is the in-process fallback used when REDIS_URL is not
// configured, and the store the chat tests run against. Sessions expire
// lazily on access.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
	ttl      time.Duration
	now      func() time.Time
}

type memorySession struct {
	mu        sync.Mutex
	session   model.Session
	expiresAt time.Time
}

// NewMemorySessionStore creates an in-memory session store
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*memorySession),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = &memorySession{
		session:   cloneSession(session),
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*model.Session, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.expiresAt = s.now().Add(s.ttl)
	copied := cloneSession(&entry.session)
	return &copied, nil
}

func (s *MemorySessionStore) Update(_ context.Context, id string, fn func(*model.Session) error) (*model.Session, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	// Per-session mutex: concurrent updates to the same session serialize
	// here while other sessions proceed in parallel.
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := cloneSession(&entry.session)
	if err := fn(&working); err != nil {
		return nil, err
	}

	entry.session = working
	entry.expiresAt = s.now().Add(s.ttl)

	copied := cloneSession(&working)
	return &copied, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemorySessionStore) lookup(id string) (*memorySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	entry.mu.Lock()
	expired := s.now().After(entry.expiresAt)
	entry.mu.Unlock()

	if expired {
		delete(s.sessions, id)
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func cloneSession(in *model.Session) model.Session {
	out := *in
	out.History = make([]model.Turn, len(in.History))
	copy(out.History, in.History)
	return out
}
