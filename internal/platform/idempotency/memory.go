package idempotency

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how often expired records are scanned for.
const sweepEvery = time.Minute

// MemoryStore keeps records for a single instance. A restart forgets them,
// so a retry after a deploy is processed again.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]Record
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Reserve claims key for fingerprint, or reports the existing claim.
func (s *MemoryStore) Reserve(_ context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (State, Record, error) {
	id := sha256Hex([]byte(key))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweep(now)

	existing, ok := s.live(id, now)
	switch {
	case !ok:
		rec := Record{Fingerprint: fingerprint, ExpiresAt: now.Add(ttlOrDefault(ttl))}
		s.records[id] = rec
		return StateNew, rec, nil
	case existing.Fingerprint != fingerprint:
		return StateNew, Record{}, ErrFingerprintMismatch
	case existing.Completed:
		return StateCompleted, existing, nil
	default:
		return StatePending, existing, nil
	}
}

// Complete stores resp for replay until now+ttl.
func (s *MemoryStore) Complete(_ context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	id := sha256Hex([]byte(key))
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.live(id, now); ok && existing.Fingerprint != fingerprint {
		return ErrFingerprintMismatch
	}
	resp.Header = replayableHeaders(resp.Header)
	resp.Body = append([]byte(nil), resp.Body...)
	s.records[id] = Record{Fingerprint: fingerprint, Completed: true, Response: resp, ExpiresAt: now.Add(ttlOrDefault(ttl))}
	return nil
}

// Release drops a pending claim so the client may retry.
func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, sha256Hex([]byte(key)))
	s.mu.Unlock()
	return nil
}

// Len counts stored records, expired ones included until the next sweep.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) live(id string, now time.Time) (Record, bool) {
	rec, ok := s.records[id]
	if !ok || !now.Before(rec.ExpiresAt) {
		return Record{}, false
	}
	return rec, true
}

func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepEvery {
		return
	}
	s.lastSweep = now
	for id, rec := range s.records {
		if !now.Before(rec.ExpiresAt) {
			delete(s.records, id)
		}
	}
}

func ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return DefaultTTL
	}
	return ttl
}
