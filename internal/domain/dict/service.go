package dict

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// lookupTTL bounds how long a code lookup is served from memory.
// Dictionary sets change by migration, not at runtime, so staleness this
// short is invisible in practice.
const lookupTTL = 5 * time.Minute

type lookupEntry struct {
	name    string
	ok      bool
	expires time.Time
}

// Service provides dictionary lookups for the form and for record
// validation. Code lookups are cached: record submission checks every
// coded field, so the same handful of codes is asked for over and over.
type Service struct {
	repo Repository
	ttl  time.Duration

	mu      sync.RWMutex
	lookups map[string]lookupEntry
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, ttl: lookupTTL, lookups: make(map[string]lookupEntry)}
}

// Search returns active items of a set matching the query.
func (s *Service) Search(ctx context.Context, setCode, query string, limit, offset int) ([]*Item, int, error) {
	setCode = strings.TrimSpace(setCode)
	if setCode == "" {
		return nil, 0, fmt.Errorf("set_code is required")
	}
	return s.repo.Search(ctx, setCode, strings.TrimSpace(query), limit, offset)
}

// ItemExists reports whether a code is an active member of a set.
func (s *Service) ItemExists(ctx context.Context, setCode, code string) (bool, error) {
	_, ok, err := s.lookup(ctx, setCode, strings.TrimSpace(code))
	return ok, err
}

// ItemName returns the display name of an active code, if it exists.
func (s *Service) ItemName(ctx context.Context, setCode, code string) (string, bool, error) {
	return s.lookup(ctx, setCode, strings.TrimSpace(code))
}

// lookup answers a code lookup from the cache, falling back to the repo.
// Negative results are cached too, so a misspelled code does not hit the
// database on every save.
func (s *Service) lookup(ctx context.Context, setCode, code string) (string, bool, error) {
	key := setCode + "|" + code

	s.mu.RLock()
	entry, hit := s.lookups[key]
	s.mu.RUnlock()
	if hit && time.Now().Before(entry.expires) {
		return entry.name, entry.ok, nil
	}

	name, ok, err := s.repo.Name(ctx, setCode, code)
	if err != nil {
		return "", false, err
	}

	s.mu.Lock()
	s.lookups[key] = lookupEntry{name: name, ok: ok, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return name, ok, nil
}

// Sets lists every set code that has active items.
func (s *Service) Sets(ctx context.Context) ([]string, error) {
	return s.repo.Sets(ctx)
}
