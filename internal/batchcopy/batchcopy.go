// Package batchcopy copies a list of named image files into numbered
// subfolders (images1, images2, ...) of a fixed size.
package batchcopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"skupix/internal/fileutil"
	"skupix/internal/logging"
)

// Defaults for Options.
const (
	DefaultPerFolder    = 2000
	DefaultStartIndex   = 1
	DefaultFolderPrefix = "images"
)

// Options configures Copy.
type Options struct {
	Names     []string
	SourceDir string
	TargetDir string

	PerFolder    int
	StartIndex   int
	FolderPrefix string
	// Verify re-reads each copy and compares SHA-256 with the source.
	Verify bool

	Logger *slog.Logger
	// Progress, if set, is called after each file is copied.
	Progress func(done, total int)
}

// Folder describes one numbered output folder.
type Folder struct {
	Name  string
	Path  string
	Files int
}

// Result summarises a Copy.
type Result struct {
	Requested int
	Missing   []string
	Copied    int
	Folders   []Folder
}

// Plan splits names into those present as regular files in sourceDir and
// those that are not, keeping input order in both.
func Plan(names []string, sourceDir string) (existing, missing []string) {
	for _, name := range names {
		info, err := os.Stat(filepath.Join(sourceDir, name))
		if err == nil && info.Mode().IsRegular() {
			existing = append(existing, name)
			continue
		}
		missing = append(missing, name)
	}
	return existing, missing
}

// FolderName returns the name of the folder at position n (0-based) of a copy.
func FolderName(prefix string, start, n int) string {
	return prefix + strconv.Itoa(start+n)
}

func (o Options) withDefaults() Options {
	if o.PerFolder <= 0 {
		o.PerFolder = DefaultPerFolder
	}
	if o.StartIndex <= 0 {
		o.StartIndex = DefaultStartIndex
	}
	if strings.TrimSpace(o.FolderPrefix) == "" {
		o.FolderPrefix = DefaultFolderPrefix
	}
	return o
}

// Copy copies every existing name from SourceDir into numbered folders under
// TargetDir, PerFolder files per folder, preserving mode and modification
// time. Names absent from SourceDir are reported in Result.Missing and
// skipped. The first copy error stops the run; the partial Result is returned
// with it.
func Copy(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if strings.TrimSpace(opts.SourceDir) == "" || strings.TrimSpace(opts.TargetDir) == "" {
		return nil, errors.New("batch copy: source and target directories are required")
	}
	for _, name := range opts.Names {
		if name != filepath.Base(name) {
			return nil, fmt.Errorf("batch copy: %q is not a plain file name", name)
		}
	}
	logger := logging.NewComponentLogger(opts.Logger, "batchcopy")

	existing, missing := Plan(opts.Names, opts.SourceDir)
	result := &Result{Requested: len(opts.Names), Missing: missing}
	logger.Info("batch copy planned",
		logging.Int("requested", len(opts.Names)),
		logging.Int("found", len(existing)),
		logging.Int("missing", len(missing)),
		logging.String(logging.FieldEventType, "batch_planned"),
	)

	copyFn := fileutil.CopyFilePreserve
	if opts.Verify {
		copyFn = fileutil.CopyFileVerified
	}

	for i := 0; i < len(existing); i += opts.PerFolder {
		batch := existing[i:min(i+opts.PerFolder, len(existing))]
		name := FolderName(opts.FolderPrefix, opts.StartIndex, i/opts.PerFolder)
		folder := Folder{Name: name, Path: filepath.Join(opts.TargetDir, name)}
		if err := os.MkdirAll(folder.Path, 0o755); err != nil {
			return result, fmt.Errorf("batch copy: create %s: %w", folder.Path, err)
		}

		for _, img := range batch {
			if err := ctx.Err(); err != nil {
				result.Folders = appendFolder(result.Folders, folder)
				return result, err
			}
			src := filepath.Join(opts.SourceDir, img)
			dst := filepath.Join(folder.Path, img)
			if err := copyFn(src, dst); err != nil {
				result.Folders = appendFolder(result.Folders, folder)
				return result, fmt.Errorf("batch copy: %s: %w", img, err)
			}
			folder.Files++
			result.Copied++
			if opts.Progress != nil {
				opts.Progress(result.Copied, len(existing))
			}
		}

		result.Folders = append(result.Folders, folder)
		logger.Info("batch folder filled",
			logging.String("folder", folder.Name),
			logging.Int("files", folder.Files),
			logging.String(logging.FieldEventType, "batch_folder_done"),
		)
	}
	return result, nil
}

func appendFolder(folders []Folder, f Folder) []Folder {
	if f.Files == 0 {
		return folders
	}
	return append(folders, f)
}
