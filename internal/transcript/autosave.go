package transcript

import (
	"sync"
	"time"

	"github.com/rkowalczyk/chatpane/internal/session"
	"github.com/rkowalczyk/chatpane/internal/surface"
)

// Report summarizes one SaveAll pass.
type Report struct {
	Saved    []string
	Pruned   []string
	Failures map[string]error
}

// SaveAll persists every still-attached chat surface in the registry.
// Sessions whose pane was closed externally are pruned from the registry and
// skipped; one session's write failure never stops the others.
func SaveAll(logger *Logger, reg *session.Registry, surfaces *surface.Manager) Report {
	report := Report{Failures: map[string]error{}}
	for _, id := range reg.IDs() {
		s, ok := surfaces.ChatIfLive(id)
		if !ok {
			reg.Prune(id)
			report.Pruned = append(report.Pruned, session.ShortID(id))
			continue
		}
		path, err := logger.Save(s.Lines(), s.Name())
		if err != nil {
			report.Failures[session.ShortID(id)] = err
			continue
		}
		if path != "" {
			report.Saved = append(report.Saved, path)
		}
	}
	return report
}

// AutoSaver fires a notification on a fixed interval. The notification is
// delivered to the TUI event loop, which performs the actual save pass, so
// surface state is only ever touched from one place.
type AutoSaver struct {
	interval time.Duration
	notify   func()

	mu   sync.Mutex
	stop chan struct{}
}

// NewAutoSaver returns a stopped AutoSaver that calls notify every interval
// once started.
func NewAutoSaver(interval time.Duration, notify func()) *AutoSaver {
	return &AutoSaver{interval: interval, notify: notify}
}

// Start begins the periodic schedule. Starting a running saver is a no-op.
func (a *AutoSaver) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil || a.interval <= 0 {
		return
	}
	stop := make(chan struct{})
	a.stop = stop
	go func() {
		ticker := time.NewTicker(a.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.notify()
			case <-stop:
				return
			}
		}
	}()
}

// Stop halts the schedule. Stopping an already-stopped saver is a no-op.
func (a *AutoSaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop == nil {
		return
	}
	close(a.stop)
	a.stop = nil
}

// Running reports whether the schedule is active.
func (a *AutoSaver) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stop != nil
}
