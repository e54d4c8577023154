package config

import "sync"

// Store holds the current configuration behind a mutex-guarded pointer so
// it can be hot-swapped without restarting. Components read a consistent
// snapshot via Current; Reload replaces the whole object atomically.
type Store struct {
	mu     sync.RWMutex
	config *Config
	params *Params
}

// NewStore creates a store over an initial configuration.
func NewStore(cfg *Config, params *Params) *Store {
	if params == nil {
		params = &Params{}
	}
	return &Store{config: cfg, params: params}
}

// Current returns the active configuration. Callers must not mutate it.
func (s *Store) Current() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// CurrentParams returns the active strategy parameters.
func (s *Store) CurrentParams() *Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Reload swaps in a new configuration object.
func (s *Store) Reload(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
}

// ReloadParams swaps in new strategy parameters.
func (s *Store) ReloadParams(params *Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if params != nil {
		s.params = params
	}
}
