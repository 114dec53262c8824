// Package activity keeps a bounded in-memory log of recent sync requests.
package activity

import (
	"sync"
	"time"

	"github.com/gammazero/deque"
)

// DefaultWindow is how long entries are retained.
const DefaultWindow = 48 * time.Hour

// Entry is one received request.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
}

// Option configures a Log.
type Option func(*Log)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

// Log is a time-windowed, oldest-first record of requests.
// It is safe for concurrent use.
type Log struct {
	mu         sync.Mutex
	entries    deque.Deque[Entry]
	window     time.Duration
	maxEntries int
	now        func() time.Time
}

// New creates a Log retaining entries younger than window. maxEntries <= 0
// disables the count bound.
func New(window time.Duration, maxEntries int, opts ...Option) *Log {
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Log{
		window:     window,
		maxEntries: maxEntries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Add records a request and evicts expired or excess entries.
func (l *Log) Add(name, url string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.entries.PushBack(Entry{Timestamp: now, Name: name, URL: url})
	l.prune(now)
	for l.maxEntries > 0 && l.entries.Len() > l.maxEntries {
		l.entries.PopFront()
	}
}

// List returns the retained entries, oldest first.
func (l *Log) List() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	out := make([]Entry, l.entries.Len())
	for i := range out {
		out[i] = l.entries.At(i)
	}
	return out
}

// Len returns the number of retained entries without pruning.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}

// prune drops entries older than the window from the front.
// Entries are appended in arrival order, so the front is always oldest.
func (l *Log) prune(now time.Time) {
	for l.entries.Len() > 0 && now.Sub(l.entries.Front().Timestamp) > l.window {
		l.entries.PopFront()
	}
}
