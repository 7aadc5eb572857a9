package storage

import (
	"context"
	"log/slog"

	"stockbot/src/datamodels"
)

// StateStore persists one SignalState per symbol.
type StateStore interface {
	// Load always returns a usable state. Missing records come back in initial form; so do
	// unreadable ones, together with an ErrStateCorrupt error saying what was discarded.
	Load(symbol string) (datamodels.SignalState, error)
	// Save replaces the record for state.Symbol and leaves every other record as it was.
	Save(state datamodels.SignalState) error
	LoadAll() (map[string]datamodels.SignalState, error)
	ClearAll() error
}

// StateMirror copies the state file to and from a remote location.
type StateMirror interface {
	Push(ctx context.Context, localPath string) error
	// Pull returns false when there is nothing to restore.
	Pull(ctx context.Context, localPath string) (bool, error)
}

func BuildStateStore(ctx context.Context, config *datamodels.StorageConfig) (StateStore, error) {
	builder := NewFileStateStoreBuilder(config.StateFile)
	if config.Bucket != "" {
		mirror, err := NewBucketMirror(ctx, config.Bucket, config.Object)
		if err != nil {
			return nil, err
		}
		slog.Info("State mirror enabled", "bucket", config.Bucket, "object", config.Object)
		builder = builder.WithMirror(mirror, config.MirrorTimeout)
	}
	store, err := builder.Build()
	if err != nil {
		return nil, err
	}
	return store, nil
}
