package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"chess-puzzle-bot/internal/domain"
)

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	snap, err := store.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Chats) != 0 || snap.Chats == nil {
		t.Fatalf("expected empty initialised registry, got %+v", snap)
	}
}

func TestFileStoreSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	store := NewFileStore(path)
	ctx := context.Background()

	snap := domain.EmptySnapshot()
	snap.Chats[10] = domain.ChatRecord{SentPuzzleIDs: []string{"x"}, DailyOptIn: true}
	snap.Posted = []string{"x"}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatal(err)
	}

	got, version, err := store.LoadVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != currentVersion {
		t.Fatalf("expected version %d, got %d", currentVersion, version)
	}
	if rec := got.Chats[10]; !rec.DailyOptIn || len(rec.SentPuzzleIDs) != 1 {
		t.Fatalf("unexpected record %+v", rec)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	got, err = store.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Chats) != 0 {
		t.Fatalf("expected empty registry after delete, got %+v", got.Chats)
	}
}

func TestFileStoreLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(`{"5":["a"]}`), 0o600); err != nil {
		t.Fatal(err)
	}
	snap, version, err := NewFileStore(path).LoadVersion(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Fatalf("expected version 0, got %d", version)
	}
	if last, ok := snap.Chats[5].LastPuzzleID(); !ok || last != "a" {
		t.Fatalf("unexpected chat %+v", snap.Chats[5])
	}
}

func TestFileStoreCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	if err := os.WriteFile(path, []byte(`{broken`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileStore(path).Load(context.Background()); !errors.Is(err, domain.ErrCorruptRegistry) {
		t.Fatalf("expected ErrCorruptRegistry, got %v", err)
	}
}
