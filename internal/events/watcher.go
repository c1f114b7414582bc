package events

import (
	"log"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval coalesces bursts of filesystem events into a single
// refresh signal (spec.md §4.10, design target ~300ms).
const debounceInterval = 300 * time.Millisecond

// pollFallbackInterval is the poll cadence used when the OS watcher
// cannot be started at all. It is intentionally fast (seconds, not tens
// of seconds) since it is standing in for the watcher entirely.
const pollFallbackInterval = 2 * time.Second

// pollSafetyNetInterval is the poll cadence run alongside a working
// watcher, as a backstop against missed or coalesced OS events.
const pollSafetyNetInterval = 60 * time.Second

// Watcher watches a sessions directory and publishes debounced
// SessionsRefreshed events to bus.
type Watcher struct {
	dir string
	bus *Bus

	stop chan struct{}
}

// NewWatcher returns a Watcher for sessionsDir, publishing to bus.
func NewWatcher(sessionsDir string, bus *Bus) *Watcher {
	return &Watcher{dir: sessionsDir, bus: bus, stop: make(chan struct{})}
}

// Start begins watching in a background goroutine. Call Stop to end it.
func (w *Watcher) Start() {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("events: fsnotify unavailable, falling back to polling: %v", err)
		go w.pollLoop(pollFallbackInterval)
		return
	}
	if err := fsw.Add(w.dir); err != nil {
		log.Printf("events: watching %s: %v, falling back to polling", w.dir, err)
		fsw.Close()
		go w.pollLoop(pollFallbackInterval)
		return
	}
	go w.watchLoop(fsw)
	go w.pollLoop(pollSafetyNetInterval)
}

// Stop ends the watcher's goroutines.
func (w *Watcher) Stop() {
	close(w.stop)
}

func (w *Watcher) watchLoop(fsw *fsnotify.Watcher) {
	defer fsw.Close()

	var debounce *time.Timer
	fire := func() {
		w.bus.Publish(Event{Kind: SessionsRefreshed})
	}

	for {
		select {
		case <-w.stop:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case _, ok := <-fsw.Events:
			if !ok {
				return
			}
			if debounce == nil {
				debounce = time.AfterFunc(debounceInterval, fire)
			} else {
				debounce.Reset(debounceInterval)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Printf("events: watcher error: %v", err)
		}
	}
}

func (w *Watcher) pollLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.bus.Publish(Event{Kind: SessionsRefreshed})
		}
	}
}
