package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultPoll = 250 * time.Millisecond

// TailOptions controls Tail.
type TailOptions struct {
	// Limit is the number of matching lines printed from the end of the file;
	// zero or less prints none and only follows.
	Limit  int
	Follow bool
	Poll   time.Duration
	Filter Filter
}

// Tail emits the last Limit matching lines of path, then, with Follow set,
// every matching line appended until ctx ends. Cancellation during follow is
// a normal stop and returns nil.
func Tail(ctx context.Context, path string, opts TailOptions, emit func(line string) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("log path %q is a directory", path)
	}

	lines, offset, err := lastMatching(file, opts.Limit, opts.Filter)
	if err != nil {
		return err
	}
	for _, line := range lines {
		if err := emit(line); err != nil {
			return err
		}
	}
	if !opts.Follow {
		return nil
	}
	return follow(ctx, file, offset, opts, emit)
}

// lastMatching scans the whole file keeping a ring of the last limit matches
// and returns the offset of the end of the last complete line.
func lastMatching(r io.Reader, limit int, filter Filter) ([]string, int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var ring []string
	if limit > 0 {
		ring = make([]string, 0, limit)
	}
	start := 0
	var offset int64

	for {
		line, n, complete, err := readLine(reader)
		if complete {
			offset += int64(n)
			if limit > 0 && filter.Match(line) {
				if len(ring) < limit {
					ring = append(ring, line)
				} else {
					ring[start] = line
					start = (start + 1) % limit
				}
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read log file: %w", err)
		}
	}

	out := make([]string, 0, len(ring))
	out = append(out, ring[start:]...)
	out = append(out, ring[:start]...)
	return out, offset, nil
}

func follow(ctx context.Context, file *os.File, offset int64, opts TailOptions, emit func(string) error) error {
	poll := opts.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat log file: %w", err)
		}
		if info.Size() < offset {
			// Truncated; start over from the top.
			offset = 0
		}
		if info.Size() == offset {
			continue
		}
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return fmt.Errorf("seek log file: %w", err)
		}
		reader := bufio.NewReaderSize(file, 64*1024)
		for {
			line, n, complete, err := readLine(reader)
			if complete {
				offset += int64(n)
				if opts.Filter.Match(line) {
					if err := emit(line); err != nil {
						return err
					}
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return fmt.Errorf("read log file: %w", err)
			}
		}
	}
}

// readLine returns the next newline-terminated line without its terminator
// and the number of bytes consumed. A trailing fragment with no newline is
// reported incomplete so follow mode re-reads it once the writer finishes.
func readLine(reader *bufio.Reader) (string, int, bool, error) {
	raw, err := reader.ReadString('\n')
	if err != nil {
		return raw, len(raw), false, err
	}
	n := len(raw)
	line := raw[:n-1]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	return line, n, true, nil
}
