package worker

import (
	"fmt"
	"sync"

	"github.com/ngnhng/taskhost/activity"
)

func newRegistry() *hashMapRegistry {
	return &hashMapRegistry{
		entries: make(map[string]activity.Activity),
	}
}

type hashMapRegistry struct {
	mu      sync.RWMutex
	entries map[string]activity.Activity
}

func (m *hashMapRegistry) get(name string) (activity.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActivityNotRegistered, name)
	}
	return entry, nil
}

func (m *hashMapRegistry) set(name string, act activity.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, name)
	}
	if act == nil {
		return fmt.Errorf("entry %q is not an activity", name)
	}

	m.entries[name] = act
	return nil
}

func (m *hashMapRegistry) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
