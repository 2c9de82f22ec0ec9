package staging

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestAcquireCreatesLockedArea(t *testing.T) {
	root := t.TempDir()

	area, err := Acquire(root, "run-1")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer area.Release()

	if area.Dir() != filepath.Join(root, "skupix-run-1") {
		t.Fatalf("Dir = %q", area.Dir())
	}
	if info, err := os.Stat(area.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("expected area directory to exist: %v", err)
	}

	if _, err := Acquire(root, "run-1"); !errors.Is(err, ErrAreaLocked) {
		t.Fatalf("second Acquire err = %v, want ErrAreaLocked", err)
	}
}

func TestAcquireRequiresRunID(t *testing.T) {
	if _, err := Acquire(t.TempDir(), "  "); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestReleaseRemovesAreaAndIsIdempotent(t *testing.T) {
	root := t.TempDir()
	area, err := Acquire(root, "run-2")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if _, err := area.Write("A1.jpg", 0, []byte("jpeg")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := area.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := area.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if _, err := os.Stat(area.Dir()); !os.IsNotExist(err) {
		t.Fatal("area directory should be gone")
	}
	if _, err := os.Stat(area.Dir() + lockSuffix); !os.IsNotExist(err) {
		t.Fatal("lock file should be gone")
	}
	if _, err := area.Write("A2.jpg", 1, []byte("x")); !errors.Is(err, ErrReleased) {
		t.Fatalf("Write after release err = %v, want ErrReleased", err)
	}
}

func TestWriteLastRowWins(t *testing.T) {
	area, err := Acquire(t.TempDir(), "run-3")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer area.Release()

	// Row 5 lands first, row 2 finishes later and must not replace it.
	if ok, err := area.Write("SKU.jpg", 5, []byte("later")); err != nil || !ok {
		t.Fatalf("Write row 5: ok=%v err=%v", ok, err)
	}
	if ok, err := area.Write("SKU.jpg", 2, []byte("earlier")); err != nil || ok {
		t.Fatalf("Write row 2: ok=%v err=%v", ok, err)
	}
	if ok, err := area.Write("SKU.jpg", 7, []byte("latest")); err != nil || !ok {
		t.Fatalf("Write row 7: ok=%v err=%v", ok, err)
	}

	got, err := os.ReadFile(filepath.Join(area.Dir(), "SKU.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "latest" {
		t.Fatalf("content = %q, want latest", got)
	}
	if area.Len() != 1 {
		t.Fatalf("Len = %d, want 1", area.Len())
	}
}

func TestWriteConcurrentDuplicatesKeepHighestIndex(t *testing.T) {
	area, err := Acquire(t.TempDir(), "run-4")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer area.Release()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			if _, err := area.Write("dup.jpg", idx, []byte{byte(idx)}); err != nil {
				t.Errorf("Write %d: %v", idx, err)
			}
		}(i)
	}
	wg.Wait()

	got, err := os.ReadFile(filepath.Join(area.Dir(), "dup.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != 31 {
		t.Fatalf("content = %v, want [31]", got)
	}
}

func TestWriteRejectsNestedNames(t *testing.T) {
	area, err := Acquire(t.TempDir(), "run-5")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer area.Release()

	for _, name := range []string{"", "..", "a/b.jpg", "../escape.jpg"} {
		if _, err := area.Write(name, 0, []byte("x")); err == nil {
			t.Errorf("expected error for name %q", name)
		}
	}
}
