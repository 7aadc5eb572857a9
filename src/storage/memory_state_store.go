package storage

import (
	"sync"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

// MemoryStateStore holds states for the lifetime of the process.
type MemoryStateStore struct {
	states map[string]datamodels.SignalState
	mutex  sync.RWMutex
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{
		states: make(map[string]datamodels.SignalState),
	}
}

func (m *MemoryStateStore) Load(symbol string) (datamodels.SignalState, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if state, ok := m.states[symbol]; ok {
		return state.Copy(), nil
	}
	return datamodels.NewSignalState(symbol), nil
}

func (m *MemoryStateStore) Save(state datamodels.SignalState) error {
	if state.Symbol == "" {
		return errors.Wrap(errors.ErrPersistenceFailure, "state has no symbol")
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states[state.Symbol] = state.Copy()
	return nil
}

func (m *MemoryStateStore) LoadAll() (map[string]datamodels.SignalState, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	out := make(map[string]datamodels.SignalState, len(m.states))
	for symbol, state := range m.states {
		out[symbol] = state.Copy()
	}
	return out, nil
}

func (m *MemoryStateStore) ClearAll() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.states = make(map[string]datamodels.SignalState)
	return nil
}
