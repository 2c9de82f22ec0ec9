package logs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Filter selects records from a JSON log file. Zero fields match everything.
type Filter struct {
	// RunID matches records whose run_id equals it or starts with it.
	RunID string
	// MinLevel drops records below it; nil keeps every level.
	MinLevel slog.Leveler
	Event    string
}

type record struct {
	Level string `json:"level"`
	RunID string `json:"run_id"`
	Event string `json:"event_type"`
}

func (f Filter) empty() bool {
	return f.RunID == "" && f.Event == "" && f.MinLevel == nil
}

// Match reports whether line passes the filter. Lines that are not JSON
// objects only pass an empty filter.
func (f Filter) Match(line string) bool {
	if f.empty() {
		return true
	}
	var rec record
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return false
	}
	if f.RunID != "" && !strings.HasPrefix(rec.RunID, f.RunID) {
		return false
	}
	if f.Event != "" && rec.Event != f.Event {
		return false
	}
	return f.MinLevel == nil || parseLevel(rec.Level) >= f.MinLevel.Level()
}

// LevelFilter turns a --level value into Filter.MinLevel. An empty name
// means no level filtering.
func LevelFilter(name string) (slog.Leveler, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	level, ok := ParseLevel(name)
	if !ok {
		return nil, fmt.Errorf("unknown level %q", name)
	}
	return level, nil
}

// ParseLevel maps a level name onto slog levels; unknown names are debug so
// they never hide records.
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug", "":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelDebug, false
}

func parseLevel(name string) slog.Level {
	level, _ := ParseLevel(name)
	return level
}
