package authclient

import "sync"

// TokenStore holds the current access token. Implementations must be safe
// for concurrent use.
type TokenStore interface {
	Get() string
	Set(token string)
	Clear()
}

type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryTokenStore) Clear() {
	s.Set("")
}
