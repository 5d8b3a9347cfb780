package shell

import "sync"

// History is the location stack the shell reads its current path from.
type History interface {
	Push(path string)
	Replace(path string)
	Current() string
}

// MemoryHistory is an in-process History. The live server keeps one per
// browser session; the browser mirrors it with pushState.
type MemoryHistory struct {
	mu      sync.Mutex
	entries []string
}

// NewMemoryHistory creates a history positioned at initial ("/" if empty).
func NewMemoryHistory(initial string) *MemoryHistory {
	if initial == "" {
		initial = "/"
	}
	return &MemoryHistory{entries: []string{initial}}
}

// Push appends a new entry.
func (h *MemoryHistory) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, path)
}

// Replace overwrites the current entry.
func (h *MemoryHistory) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[len(h.entries)-1] = path
}

// Current returns the current entry.
func (h *MemoryHistory) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[len(h.entries)-1]
}

// Len returns the number of entries.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}
