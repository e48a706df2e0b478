// Package session tracks live chat sessions: which ids exist, which display
// surface each one owns, and which session is current. All state is held by
// an explicit Registry value constructed at startup; nothing here survives a
// process restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rkowalczyk/chatpane/internal/surface"
)

// ErrNotFound reports a prefix that resolves to no registered session.
var ErrNotFound = errors.New("session not found")

// ErrAmbiguous reports a prefix shared by more than one registered session.
// Resolution never silently picks the first match.
var ErrAmbiguous = errors.New("session prefix is ambiguous")

// Remote is the slice of the generation client the registry needs. Session
// creation and teardown go through the remote first; the registry mutates
// only after the remote confirms.
type Remote interface {
	StartSession(ctx context.Context) (string, error)
	EndSession(ctx context.Context, sessionID string) (string, error)
}

// Status describes whether a session's surface still has a live pane.
type Status int

const (
	StatusActive Status = iota
	StatusDetached
)

func (s Status) String() string {
	if s == StatusDetached {
		return "detached"
	}
	return "active"
}

// Info is one row of a session listing.
type Info struct {
	ID     string
	Prefix string
	Status Status
}

// Registry owns the session map and the current-session pointer.
type Registry struct {
	remote   Remote
	surfaces *surface.Manager
	order    []string
	current  string
}

// NewRegistry returns an empty registry backed by the given remote and
// surface manager.
func NewRegistry(remote Remote, surfaces *surface.Manager) *Registry {
	return &Registry{remote: remote, surfaces: surfaces}
}

// Create starts a session at the remote, registers the returned id, creates
// its chat surface, and makes it current. A remote failure leaves the
// registry untouched.
func (r *Registry) Create(ctx context.Context) (string, error) {
	id, err := r.remote.StartSession(ctx)
	if err != nil {
		return "", err
	}
	r.order = append(r.order, id)
	r.surfaces.Chat(id)
	r.current = id
	return id, nil
}

// List returns every registered session in creation order.
func (r *Registry) List() []Info {
	infos := make([]Info, 0, len(r.order))
	for _, id := range r.order {
		status := StatusDetached
		if _, ok := r.surfaces.ChatIfLive(id); ok {
			status = StatusActive
		}
		infos = append(infos, Info{ID: id, Prefix: ShortID(id), Status: status})
	}
	return infos
}

// Resolve maps a user-typed prefix to the full session id it abbreviates.
func (r *Registry) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("empty prefix: %w", ErrNotFound)
	}
	var match string
	for _, id := range r.order {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if match != "" {
			return "", fmt.Errorf("%q: %w", prefix, ErrAmbiguous)
		}
		match = id
	}
	if match == "" {
		return "", fmt.Errorf("%q: %w", prefix, ErrNotFound)
	}
	return match, nil
}

// Switch makes the session addressed by prefix current, re-attaching or
// recreating its surface if the pane was closed.
func (r *Registry) Switch(prefix string) (string, error) {
	id, err := r.Resolve(prefix)
	if err != nil {
		return "", err
	}
	r.surfaces.Chat(id)
	r.current = id
	return id, nil
}

// End tears the session down at the remote, then removes it here. The remote
// confirmation message is returned for display. If the ended session was
// current, the current pointer is cleared.
func (r *Registry) End(ctx context.Context, prefix string) (string, error) {
	id, err := r.Resolve(prefix)
	if err != nil {
		return "", err
	}
	msg, err := r.remote.EndSession(ctx, id)
	if err != nil {
		return "", err
	}
	r.remove(id)
	return msg, nil
}

// Prune drops a session whose surface was destroyed externally, without a
// remote round trip. Autosave uses it to clear stale entries.
func (r *Registry) Prune(id string) {
	r.remove(id)
}

func (r *Registry) remove(id string) {
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.surfaces.DropChat(id)
	if r.current == id {
		r.current = ""
	}
}

// Current returns the current session id, or "" when no session is current.
func (r *Registry) Current() string { return r.current }

// Has reports whether the id is registered.
func (r *Registry) Has(id string) bool {
	for _, existing := range r.order {
		if existing == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the registered ids in creation order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int { return len(r.order) }

// ShortID returns the 8-character addressing prefix for a session id.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
