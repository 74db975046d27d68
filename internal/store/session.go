package store

import (
	"context"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/mnemoshq/mnemos/internal/memerr"
	"github.com/mnemoshq/mnemos/internal/model"
)

// RistrettoSessionStore keeps per-session interaction logs in an
// in-process TTL cache. Entries evict on memory pressure or TTL, which is
// exactly the contract of the short-term tier; callers treat a miss as an
// empty session.
type RistrettoSessionStore struct {
	cache   *ristretto.Cache
	ttl     time.Duration
	maxSize int

	mu     sync.Mutex
	closed bool
}

// NewRistrettoSessionStore builds a session store holding at most
// maxCostMB megabytes of interaction data. maxSize caps the number of
// interactions retained per session.
func NewRistrettoSessionStore(maxCostMB int64, ttl time.Duration, maxSize int) (*RistrettoSessionStore, error) {
	if maxCostMB <= 0 {
		maxCostMB = 64
	}
	if maxSize <= 0 {
		maxSize = 20
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     maxCostMB << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoSessionStore{
		cache:   cache,
		ttl:     ttl,
		maxSize: maxSize,
	}, nil
}

func sessionKey(ownerID, sessionID string) string {
	return ownerID + "/" + sessionID
}

// Append adds an interaction to the session log, trimming the log to the
// configured cap (oldest first) and resetting the session TTL.
func (s *RistrettoSessionStore) Append(ctx context.Context, ownerID, sessionID string, in model.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return memerr.Unavailable("session store", nil)
	}

	if in.Timestamp.IsZero() {
		in.Timestamp = time.Now().UTC()
	}

	key := sessionKey(ownerID, sessionID)
	log := s.read(key)
	log = append(log, in)
	if len(log) > s.maxSize {
		log = log[len(log)-s.maxSize:]
	}

	cost := int64(0)
	for _, it := range log {
		cost += int64(len(it.Input) + len(it.Output))
	}
	if cost == 0 {
		cost = 1
	}

	s.cache.SetWithTTL(key, log, cost, s.ttl)
	// Sets are async; wait so a read-after-write in the same request sees
	// the appended entry.
	s.cache.Wait()
	return nil
}

// Interactions returns the session log in chronological order. A missing
// or evicted session is an empty log, not an error.
func (s *RistrettoSessionStore) Interactions(ctx context.Context, ownerID, sessionID string, limit int) ([]model.Interaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, memerr.Unavailable("session store", nil)
	}

	log := s.read(sessionKey(ownerID, sessionID))
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]model.Interaction, len(log))
	copy(out, log)
	return out, nil
}

// Clear drops a session log.
func (s *RistrettoSessionStore) Clear(ctx context.Context, ownerID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return memerr.Unavailable("session store", nil)
	}
	s.cache.Del(sessionKey(ownerID, sessionID))
	s.cache.Wait()
	return nil
}

func (s *RistrettoSessionStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return memerr.Unavailable("session store", nil)
	}
	return nil
}

func (s *RistrettoSessionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.cache.Close()
	return nil
}

func (s *RistrettoSessionStore) read(key string) []model.Interaction {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil
	}
	log, ok := v.([]model.Interaction)
	if !ok {
		return nil
	}
	return log
}
