package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"sorting-hat/internal/domain"
)

func TestFileRepo_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted_users.json")

	repo := NewFileResultRepository(path, zap.NewNop())
	ctx := context.Background()
	if err := repo.Set(ctx, "u1", domain.Gryffindor); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Set(ctx, "u2", domain.Slytherin); err != nil {
		t.Fatalf("set: %v", err)
	}

	reloaded := NewFileResultRepository(path, zap.NewNop())
	if reloaded.Size() != 2 {
		t.Fatalf("expected 2 entries after reload, got %d", reloaded.Size())
	}
	if key, ok := reloaded.Get("u1"); !ok || key != domain.Gryffindor {
		t.Fatalf("expected u1=GRYFFINDOR, got %q ok=%v", key, ok)
	}
	if key, ok := reloaded.Get("u2"); !ok || key != domain.Slytherin {
		t.Fatalf("expected u2=SLYTHERIN, got %q ok=%v", key, ok)
	}
}

func TestFileRepo_MissingFileIsEmptyStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.json")
	repo := NewFileResultRepository(path, zap.NewNop())
	if repo.Size() != 0 {
		t.Fatalf("expected empty store, got %d", repo.Size())
	}
}

func TestFileRepo_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted_users.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	repo := NewFileResultRepository(path, zap.NewNop())
	if repo.Size() != 0 {
		t.Fatalf("expected empty store on corrupt file, got %d", repo.Size())
	}

	// The store must stay usable and persist over the corrupt file.
	if err := repo.Set(context.Background(), "u1", domain.Ravenclaw); err != nil {
		t.Fatalf("set after corrupt load: %v", err)
	}
	reloaded := NewFileResultRepository(path, zap.NewNop())
	if key, ok := reloaded.Get("u1"); !ok || key != domain.Ravenclaw {
		t.Fatalf("expected recovered store to round-trip, got %q ok=%v", key, ok)
	}
}

func TestFileRepo_UnknownHouseKeyIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted_users.json")
	data := `{"u1": "GRYFFINDOR", "u2": "DURMSTRANG"}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	repo := NewFileResultRepository(path, zap.NewNop())
	if repo.Size() != 1 {
		t.Fatalf("expected 1 valid entry, got %d", repo.Size())
	}
	if !repo.Contains("u1") || repo.Contains("u2") {
		t.Fatalf("unexpected entries: %v", repo.All())
	}
}

func TestFileRepo_RemovePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted_users.json")
	repo := NewFileResultRepository(path, zap.NewNop())
	ctx := context.Background()

	if err := repo.Set(ctx, "u1", domain.Hufflepuff); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.Remove(ctx, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	reloaded := NewFileResultRepository(path, zap.NewNop())
	if reloaded.Contains("u1") {
		t.Fatalf("expected removal to persist")
	}
}

func TestFileRepo_UnwritablePathDegradesToMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "sorted_users.json")
	repo := NewFileResultRepository(path, zap.NewNop())

	if err := repo.Set(context.Background(), "u1", domain.Gryffindor); err != nil {
		t.Fatalf("set must not fail on unwritable path: %v", err)
	}
	if key, ok := repo.Get("u1"); !ok || key != domain.Gryffindor {
		t.Fatalf("expected in-memory result despite write failure, got %q ok=%v", key, ok)
	}
}

func TestFileRepo_AllReturnsACopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sorted_users.json")
	repo := NewFileResultRepository(path, zap.NewNop())
	if err := repo.Set(context.Background(), "u1", domain.Gryffindor); err != nil {
		t.Fatalf("set: %v", err)
	}

	all := repo.All()
	all["u2"] = domain.Slytherin
	if repo.Contains("u2") {
		t.Fatalf("mutating the snapshot must not touch the store")
	}
}
