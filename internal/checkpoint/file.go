package checkpoint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// FileBackend persists all run checkpoints to a single msgpack file,
// keyed by run id, using the same tmp-then-rename write discipline as
// the teacher's saveCheckpoint (pkg/pipeline/checkpoint.go). This is the
// default backend (spec.md's target/run-checkpoint.msgpack).
type FileBackend struct {
	path string
	mu   sync.Mutex
}

// NewFileBackend builds a FileBackend persisting to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Save(_ context.Context, cp *RunCheckpoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.loadAll()
	if err != nil {
		return fmt.Errorf("load checkpoint store: %w", err)
	}
	all[cp.RunID] = *cp
	return b.saveAll(all)
}

func (b *FileBackend) Load(_ context.Context, runID string) (*RunCheckpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.loadAll()
	if err != nil {
		return nil, fmt.Errorf("load checkpoint store: %w", err)
	}
	cp, ok := all[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cp, nil
}

func (b *FileBackend) Clear(_ context.Context, runID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	all, err := b.loadAll()
	if err != nil {
		return fmt.Errorf("load checkpoint store: %w", err)
	}
	delete(all, runID)
	return b.saveAll(all)
}

func (b *FileBackend) loadAll() (map[string]RunCheckpoint, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return make(map[string]RunCheckpoint), nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return make(map[string]RunCheckpoint), nil
	}
	var all map[string]RunCheckpoint
	if err := msgpack.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	if all == nil {
		all = make(map[string]RunCheckpoint)
	}
	return all, nil
}

func (b *FileBackend) saveAll(all map[string]RunCheckpoint) error {
	data, err := msgpack.Marshal(all)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return err
	}
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
