// Package session keeps the last URL seen per requester session so a failed
// acquisition can be replayed. State lives in process memory only.
package session

import (
	"sync"

	"github.com/islamibragimov/url-downloader-bot/workers/downloader/internal/domain"
)

// Store maps session ids to the most recent URL.
type Store struct {
	mu   sync.RWMutex
	last map[string]string
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{last: make(map[string]string)}
}

// Record replaces the URL stored for id.
func (s *Store) Record(id, url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[id] = url
}

// Last returns the URL recorded for id.
func (s *Store) Last(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	url, ok := s.last[id]
	return url, ok
}

// Require returns the URL recorded for id or domain.ErrSessionStateEmpty.
func (s *Store) Require(id string) (string, error) {
	url, ok := s.Last(id)
	if !ok {
		return "", domain.ErrSessionStateEmpty
	}
	return url, nil
}

// Clear forgets id. Clearing an unknown id is a no-op.
func (s *Store) Clear(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.last, id)
}

// Len returns the number of sessions with a recorded URL.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.last)
}
