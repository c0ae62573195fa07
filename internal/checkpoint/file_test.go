package checkpoint_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/addresskit/addresskit/internal/checkpoint"
)

func TestFileBackend_SaveLoadRoundTrip(t *testing.T) {
	b := checkpoint.NewFileBackend(filepath.Join(t.TempDir(), "run-checkpoint.msgpack"))
	cp := &checkpoint.RunCheckpoint{
		RunID:          "run-2026q1",
		State:          checkpoint.StateLoading,
		CoveredRegions: []string{"NSW", "VIC"},
		CurrentRegion:  "NSW",
		CurrentTable:   "ADDRESS_DETAIL",
		RowsIngested:   12345,
	}

	if err := b.Save(context.Background(), cp); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := b.Load(context.Background(), "run-2026q1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.State != checkpoint.StateLoading || got.CurrentRegion != "NSW" || got.RowsIngested != 12345 {
		t.Errorf("Load() = %+v, want matching fields to %+v", got, cp)
	}
}

func TestFileBackend_LoadMissingReturnsErrNotFound(t *testing.T) {
	b := checkpoint.NewFileBackend(filepath.Join(t.TempDir(), "run-checkpoint.msgpack"))

	_, err := b.Load(context.Background(), "no-such-run")
	if !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Load() err = %v, want ErrNotFound", err)
	}
}

func TestFileBackend_ClearRemovesEntry(t *testing.T) {
	b := checkpoint.NewFileBackend(filepath.Join(t.TempDir(), "run-checkpoint.msgpack"))
	cp := &checkpoint.RunCheckpoint{RunID: "run-a", State: checkpoint.StateFetching}
	if err := b.Save(context.Background(), cp); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := b.Clear(context.Background(), "run-a"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := b.Load(context.Background(), "run-a"); !errors.Is(err, checkpoint.ErrNotFound) {
		t.Errorf("Load after Clear = %v, want ErrNotFound", err)
	}
}

func TestFileBackend_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run-checkpoint.msgpack")

	first := checkpoint.NewFileBackend(path)
	if err := first.Save(context.Background(), &checkpoint.RunCheckpoint{RunID: "run-b", State: checkpoint.StateComplete}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	second := checkpoint.NewFileBackend(path)
	got, err := second.Load(context.Background(), "run-b")
	if err != nil {
		t.Fatalf("Load from a fresh backend instance: %v", err)
	}
	if !got.Done() {
		t.Errorf("Done() = false, want true for a Complete checkpoint")
	}
}
