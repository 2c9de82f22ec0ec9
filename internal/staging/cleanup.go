package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"skupix/internal/logging"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes working areas under root older than maxAge. Areas whose
// lock is still held by a running process are skipped regardless of age.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		lock := flock.New(dirPath + lockSuffix)
		ok, err := lock.TryLock()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !ok {
			result.Skipped = append(result.Skipped, dirPath)
			if logger != nil {
				logger.Debug("working area still in use",
					logging.String("path", dirPath),
					logging.String(logging.FieldEventType, "workdir_cleanup_skipped"),
				)
			}
			continue
		}

		removeErr := os.RemoveAll(dirPath)
		_ = lock.Unlock()
		if removeErr == nil {
			_ = os.Remove(lock.Path())
		}

		if removeErr != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: removeErr})
			logging.WarnWithContext(logger, "failed to remove stale working area", "workdir_cleanup_failed",
				logging.String("path", dirPath),
				logging.Error(removeErr),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		if logger != nil {
			logger.Info("removed stale working area",
				logging.String("path", dirPath),
				logging.Duration("age", time.Since(info.ModTime())),
				logging.String(logging.FieldEventType, "workdir_cleanup"),
			)
		}
	}

	return result
}

// ListDirectories returns every working area under root with its metadata.
func ListDirectories(root string) ([]DirInfo, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), dirPrefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		size, files := dirSize(dirPath)

		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			RunID:   strings.TrimPrefix(entry.Name(), dirPrefix),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
			InUse:   inUse(dirPath),
		})
	}

	return dirs, nil
}

// DirInfo contains metadata about a working area.
type DirInfo struct {
	Name    string
	RunID   string
	Path    string
	ModTime time.Time
	Size    int64
	Files   int
	InUse   bool
}

func inUse(dirPath string) bool {
	if _, err := os.Stat(dirPath + lockSuffix); err != nil {
		return false
	}
	lock := flock.New(dirPath + lockSuffix)
	ok, err := lock.TryLock()
	if err != nil {
		return false
	}
	if !ok {
		return true
	}
	_ = lock.Unlock()
	return false
}

// dirSize totals the regular files below path, best effort.
func dirSize(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
