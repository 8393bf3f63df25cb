package logging

import (
	"strings"
	"sync"
)

// Recent is a WriteSyncer that keeps the last N log lines in memory so the
// dashboard can show them.
type Recent struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewRecent(max int) *Recent {
	if max < 1 {
		max = 1
	}
	return &Recent{max: max}
}

func (r *Recent) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines = append(r.lines, line)
	}
	if over := len(r.lines) - r.max; over > 0 {
		r.lines = append(r.lines[:0:0], r.lines[over:]...)
	}
	return len(p), nil
}

func (r *Recent) Sync() error { return nil }

// Lines returns a copy of the retained lines, oldest first.
func (r *Recent) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}
