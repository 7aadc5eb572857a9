package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stockbot/src/datamodels"
	"stockbot/src/utils/errors"
)

// FileStateStore keeps all states in a single JSON object keyed by symbol.
type FileStateStore struct {
	path          string
	mirror        StateMirror
	mirrorTimeout time.Duration
	mutex         sync.Mutex
}

type FileStateStoreBuilder struct {
	path          string
	mirror        StateMirror
	mirrorTimeout time.Duration
}

func NewFileStateStoreBuilder(path string) *FileStateStoreBuilder {
	return &FileStateStoreBuilder{
		path:          path,
		mirrorTimeout: 30 * time.Second,
	}
}

func (b *FileStateStoreBuilder) WithMirror(mirror StateMirror, timeout time.Duration) *FileStateStoreBuilder {
	b.mirror = mirror
	if timeout > 0 {
		b.mirrorTimeout = timeout
	}
	return b
}

// Build restores the file from the mirror when it is missing locally, then
// creates an empty collection if there is still nothing on disk.
func (b *FileStateStoreBuilder) Build() (*FileStateStore, error) {
	if b.path == "" {
		return nil, errors.New("state file path is required")
	}
	store := &FileStateStore{
		path:          b.path,
		mirror:        b.mirror,
		mirrorTimeout: b.mirrorTimeout,
	}

	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapef(errors.ErrPersistenceFailure, err, "create state directory %s", dir)
		}
	}

	if _, err := os.Stat(b.path); os.IsNotExist(err) {
		if store.mirror != nil {
			ctx, cancel := context.WithTimeout(context.Background(), store.mirrorTimeout)
			restored, pullErr := store.mirror.Pull(ctx, b.path)
			cancel()
			if pullErr != nil {
				slog.Warn("Failed to restore state file from mirror", "path", b.path, "error", pullErr)
			} else if restored {
				slog.Info("Restored state file from mirror", "path", b.path)
				return store, nil
			}
		}
		slog.Info("Creating new state file", "path", b.path)
		if err := store.writeRecords(map[string]json.RawMessage{}); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func (s *FileStateStore) Path() string {
	return s.path
}

func (s *FileStateStore) Load(symbol string) (datamodels.SignalState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.readRecords()
	if err != nil {
		slog.Warn("State file unreadable, using fresh state", "symbol", symbol, "error", err)
		return datamodels.NewSignalState(symbol), err
	}

	raw, ok := records[symbol]
	if !ok {
		slog.Info("Creating new state", "symbol", symbol)
		return datamodels.NewSignalState(symbol), nil
	}

	state, err := decodeRecord(symbol, raw)
	if err != nil {
		slog.Warn("State record corrupt, using fresh state", "symbol", symbol, "error", err)
		return datamodels.NewSignalState(symbol), err
	}
	return state, nil
}

func (s *FileStateStore) Save(state datamodels.SignalState) error {
	if state.Symbol == "" {
		return errors.Wrap(errors.ErrPersistenceFailure, "state has no symbol")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	records, err := s.readRecords()
	if err != nil {
		slog.Warn("State file unreadable, starting a new collection", "error", err)
		s.preserveCorruptFile()
		records = map[string]json.RawMessage{}
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapef(errors.ErrPersistenceFailure, err, "encode state for %s", state.Symbol)
	}
	records[state.Symbol] = raw

	if err := s.writeRecords(records); err != nil {
		return err
	}
	slog.Info("Saved state", "symbol", state.Symbol)

	s.pushToMirror()
	return nil
}

func (s *FileStateStore) LoadAll() (map[string]datamodels.SignalState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	states := make(map[string]datamodels.SignalState)
	records, err := s.readRecords()
	if err != nil {
		return states, err
	}

	var corrupt []error
	for symbol, raw := range records {
		state, err := decodeRecord(symbol, raw)
		if err != nil {
			corrupt = append(corrupt, err)
			continue
		}
		states[symbol] = state
	}
	return states, errors.Join(corrupt...)
}

func (s *FileStateStore) ClearAll() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	slog.Warn("Clearing all states", "path", s.path)
	if err := s.writeRecords(map[string]json.RawMessage{}); err != nil {
		return err
	}
	s.pushToMirror()
	return nil
}

func (s *FileStateStore) readRecords() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]json.RawMessage{}, nil
	}
	if err != nil {
		return nil, errors.Wrapef(errors.ErrStateCorrupt, err, "read %s", s.path)
	}

	records := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrapef(errors.ErrStateCorrupt, err, "decode %s", s.path)
	}
	if records == nil {
		// a literal null
		records = map[string]json.RawMessage{}
	}
	return records, nil
}

func (s *FileStateStore) writeRecords(records map[string]json.RawMessage) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrapef(errors.ErrPersistenceFailure, err, "encode %s", s.path)
	}
	data = append(data, '\n')
	if err := writeFileAtomic(s.path, data, 0644); err != nil {
		return errors.WrapE(errors.ErrPersistenceFailure, err)
	}
	return nil
}

// preserveCorruptFile keeps unreadable bytes next to the state file before they are overwritten.
func (s *FileStateStore) preserveCorruptFile() {
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return
	}
	backup := fmt.Sprintf("%s.corrupt-%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	if err := writeFileAtomic(backup, data, 0644); err != nil {
		slog.Error("Failed to preserve corrupt state file", "path", s.path, "error", err)
		return
	}
	slog.Warn("Preserved corrupt state file", "backup", backup)
}

func (s *FileStateStore) pushToMirror() {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.mirrorTimeout)
	defer cancel()
	if err := s.mirror.Push(ctx, s.path); err != nil {
		slog.Warn("Failed to push state file to mirror", "path", s.path, "error", err)
	}
}

func decodeRecord(symbol string, raw json.RawMessage) (datamodels.SignalState, error) {
	var state datamodels.SignalState
	if err := json.Unmarshal(raw, &state); err != nil {
		return state, errors.Wrapef(errors.ErrStateCorrupt, err, "decode record %s", symbol)
	}
	if state.Symbol == "" {
		state.Symbol = symbol
	}
	if state.Symbol != symbol {
		return state, errors.Wrapf(errors.ErrStateCorrupt, "record %s holds symbol %s", symbol, state.Symbol)
	}
	if err := state.Validate(); err != nil {
		return state, err
	}
	return state, nil
}

// writeFileAtomic writes to a temp file in the target directory, syncs it and renames it over path.
// The temp file never outlives a failed write.
func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", tmpName)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmpName)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return errors.Wrapf(err, "chmod %s", tmpName)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(err, "rename %s to %s", tmpName, path)
	}
	return nil
}
