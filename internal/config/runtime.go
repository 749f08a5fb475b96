package config

import (
	"sync"

	"github.com/policyfence/policyfence/internal/reliability"
)

// RuntimeManager holds the few settings that may change while serving.
// Resolved route policies are immutable after startup; the counter-store
// failure strategy is operational and stays tunable.
type RuntimeManager struct {
	mu       sync.RWMutex
	strategy reliability.Strategy
}

func NewRuntimeManager(initial reliability.Strategy) *RuntimeManager {
	if !initial.Valid() {
		initial = reliability.FailOpen
	}
	return &RuntimeManager{strategy: initial}
}

func (m *RuntimeManager) FailStrategy() reliability.Strategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.strategy
}

func (m *RuntimeManager) SetFailStrategy(s reliability.Strategy) bool {
	if !s.Valid() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategy = s
	return true
}
