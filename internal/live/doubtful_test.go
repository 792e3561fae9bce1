package live

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileDoubtfulStoreRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "doubtful")
	store := NewFileDoubtfulStore(dir)
	key := DoubtfulKey(4, 17)

	flags, err := store.Load(key)
	if err != nil || len(flags) != 0 {
		t.Fatalf("expected empty flags before the first save, got %v %v", flags, err)
	}

	if err := store.Save(key, map[uint]bool{3: true, 5: false, 8: true}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "session-4-17.json")); err != nil {
		t.Fatalf("expected one file per session and participant: %v", err)
	}

	flags, err = NewFileDoubtfulStore(dir).Load(key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(flags) != 2 || !flags[3] || !flags[8] {
		t.Fatalf("unexpected flags %v", flags)
	}

	other, err := store.Load(DoubtfulKey(4, 18))
	if err != nil || len(other) != 0 {
		t.Fatalf("expected other participants unaffected, got %v %v", other, err)
	}
}

func TestFileDoubtfulStoreRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "session-1-2.json"), []byte("{"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileDoubtfulStore(dir).Load(DoubtfulKey(1, 2)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestMemoryDoubtfulStoreCopies(t *testing.T) {
	store := NewMemoryDoubtfulStore()
	flags := map[uint]bool{1: true}
	if err := store.Save("k", flags); err != nil {
		t.Fatalf("save: %v", err)
	}
	flags[2] = true
	got, _ := store.Load("k")
	if len(got) != 1 {
		t.Fatalf("expected the store to keep its own copy, got %v", got)
	}
}
