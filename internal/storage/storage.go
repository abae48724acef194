package storage

import (
	"errors"
	"sync"

	"github.com/eugenenazirov/siteconfig/internal/resolver"
)

var (
	// ErrEmpty indicates nothing has been published yet.
	ErrEmpty = errors.New("no resolved configuration has been published")
	// ErrUnresolved indicates an attempt to publish a zero Config.
	ErrUnresolved = errors.New("cannot publish an unresolved configuration")
)

// Storage publishes a resolved configuration to its consumer and reads it back.
type Storage interface {
	Save(cfg resolver.Config) error
	Load() (resolver.Config, error)
}

// MemoryStorage keeps the published configuration in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu  sync.RWMutex
	cfg resolver.Config
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Load returns the published configuration. Config values are immutable, so
// the same value can be handed to every caller.
func (s *MemoryStorage) Load() (resolver.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cfg.IsZero() {
		return resolver.Config{}, ErrEmpty
	}
	return s.cfg, nil
}

// Save publishes cfg.
func (s *MemoryStorage) Save(cfg resolver.Config) error {
	if cfg.IsZero() {
		return ErrUnresolved
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	return nil
}
