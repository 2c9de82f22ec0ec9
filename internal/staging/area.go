// Package staging manages the per-run working areas that hold encoded
// artifacts until they are archived.
//
// Each area lives at <root>/skupix-<runID> and is guarded by an exclusive
// lock on the sibling file <root>/skupix-<runID>.lock, so cleanup commands can
// tell abandoned areas from ones a live run still owns.
package staging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"skupix/internal/fileutil"
)

const (
	dirPrefix  = "skupix-"
	lockSuffix = ".lock"
)

// ErrAreaLocked is returned when another process already owns the area.
var ErrAreaLocked = errors.New("working area locked")

// ErrReleased is returned by Write after Release.
var ErrReleased = errors.New("working area released")

// Area is a locked, run-scoped directory. Writes are last-write-wins by row
// index: a name already committed by a later row is never replaced by an
// earlier one, whatever order concurrent workers finish in.
type Area struct {
	dir  string
	lock *flock.Flock

	mu       sync.Mutex
	owners   map[string]int
	released bool
}

// Acquire creates the working area for runID under root and locks it. An empty
// root falls back to the OS temp dir.
func Acquire(root, runID string) (*Area, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("acquire working area: run id is required")
	}
	root = strings.TrimSpace(root)
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("acquire working area: create root: %w", err)
	}

	dir := filepath.Join(root, dirPrefix+runID)
	lock := flock.New(dir + lockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire working area: lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAreaLocked, dir)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
		return nil, fmt.Errorf("acquire working area: %w", err)
	}

	return &Area{dir: dir, lock: lock, owners: make(map[string]int)}, nil
}

// Dir returns the absolute or root-relative path of the area.
func (a *Area) Dir() string {
	return a.dir
}

// Write stores data under name on behalf of row index. It reports whether the
// bytes were committed; false means a later row already owns name.
func (a *Area) Write(name string, index int, data []byte) (bool, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return false, fmt.Errorf("invalid artifact name %q", name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return false, ErrReleased
	}
	if owner, ok := a.owners[name]; ok && owner > index {
		return false, nil
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(a.dir, name), data, 0o644); err != nil {
		return false, fmt.Errorf("write artifact %s: %w", name, err)
	}
	a.owners[name] = index
	return true, nil
}

// Len returns the number of distinct artifacts committed so far.
func (a *Area) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.owners)
}

// Release removes the area and drops its lock. It is safe to call more than once.
func (a *Area) Release() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	a.released = true

	var errs []error
	if err := os.RemoveAll(a.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove working area: %w", err))
	}
	if err := a.lock.Unlock(); err != nil {
		errs = append(errs, fmt.Errorf("unlock working area: %w", err))
	}
	if err := os.Remove(a.lock.Path()); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("remove lock file: %w", err))
	}
	return errors.Join(errs...)
}
