package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RetentionTarget names the log files eligible for pruning: regular files in
// Dir whose base name matches Pattern (all files when empty), minus Exclude.
type RetentionTarget struct {
	Dir     string
	Pattern string
	Exclude []string
}

// CleanupOldLogs deletes target files last modified more than retentionDays
// ago and returns what it removed. retentionDays <= 0 keeps everything.
// Failures are logged and skipped.
func CleanupOldLogs(logger *slog.Logger, retentionDays int, target RetentionTarget) []string {
	dir := strings.TrimSpace(target.Dir)
	if retentionDays <= 0 || dir == "" {
		return nil
	}
	pattern := strings.TrimSpace(target.Pattern)
	if pattern == "" {
		pattern = "*"
	}
	candidates, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil
	}

	keep := make([]string, 0, len(target.Exclude))
	for _, path := range target.Exclude {
		if abs, err := filepath.Abs(strings.TrimSpace(path)); err == nil {
			keep = append(keep, abs)
		}
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	var removed []string
	for _, candidate := range candidates {
		path, err := filepath.Abs(candidate)
		if err != nil || slices.Contains(keep, path) {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil || !info.Mode().IsRegular() || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log file could not be removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check permissions on log_dir"),
				String(FieldImpact, "log directory keeps growing"),
			)
			continue
		}
		removed = append(removed, path)
	}
	if len(removed) > 0 && logger != nil {
		logger.Debug("old logs pruned",
			Int("count", len(removed)),
			Int("retention_days", retentionDays),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
