// Package surface owns the transcript display surfaces: the singleton Ask
// surface for one-shot prompts and one Chat surface per session. A surface is
// purely a rendering target — an ordered line buffer mirrored by a TUI pane —
// and holds no remote state.
package surface

import (
	"errors"
	"time"
)

// WaitingPlaceholder is shown at the bottom of a surface while a request is
// in flight. Transcript saving strips it, so it never reaches disk.
const WaitingPlaceholder = "Waiting for Gemini response..."

// Separator divides turns on the Ask surface, newest turn above it.
const Separator = "---"

// ErrDetached reports a write against a surface whose backing pane was
// closed. Callers are expected to obtain a fresh surface from the Manager.
var ErrDetached = errors.New("surface detached")

// Kind distinguishes the two surface layouts.
type Kind int

const (
	// KindAsk is the singleton reverse-chronological surface.
	KindAsk Kind = iota
	// KindChat is a per-session chronological surface.
	KindChat
)

// Role identifies who authored a turn.
type Role int

const (
	RoleUser Role = iota
	RoleModel
)

// Surface is one transcript view. Turns are immutable once written: they are
// only ever prepended (Ask) or appended (Chat) as whole blocks.
type Surface struct {
	kind     Kind
	name     string
	lines    []string
	attached bool
	waiting  bool

	// Clock feeds turn timestamps; tests pin it.
	Clock func() time.Time
}

// NewAsk returns an attached Ask surface with the given pane name.
func NewAsk(name string) *Surface {
	return &Surface{kind: KindAsk, name: name, attached: true, Clock: time.Now}
}

// NewChat returns an attached Chat surface with the given pane name.
func NewChat(name string) *Surface {
	return &Surface{kind: KindChat, name: name, attached: true, Clock: time.Now}
}

func (s *Surface) Kind() Kind   { return s.kind }
func (s *Surface) Name() string { return s.name }

// Attached reports whether the backing pane still exists. A detached surface
// must never be written to; the Manager hands out a replacement instead.
func (s *Surface) Attached() bool { return s.attached }

// Detach marks the backing pane as gone (the user closed it).
func (s *Surface) Detach() { s.attached = false }

// Lines returns a copy of the surface content, including the waiting
// placeholder when a request is in flight.
func (s *Surface) Lines() []string {
	out := append([]string(nil), s.lines...)
	if s.waiting {
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, WaitingPlaceholder)
	}
	return out
}

// Empty reports whether any turn has been written yet.
func (s *Surface) Empty() bool { return len(s.lines) == 0 }

// Waiting reports whether the in-flight placeholder is showing.
func (s *Surface) Waiting() bool { return s.waiting }

// SetWaiting toggles the in-flight placeholder at the bottom of the surface.
func (s *Surface) SetWaiting(on bool) { s.waiting = on }

// WriteTurn formats a turn with the given role header and records it. Ask
// surfaces take the new block at the very top, with a separator before the
// older content only when older content exists; Chat surfaces append at the
// bottom. Writing to a detached surface is refused.
func (s *Surface) WriteTurn(f Format, role Role, body []string) error {
	if !s.attached {
		return ErrDetached
	}
	block := make([]string, 0, len(body)+1)
	block = append(block, f.Header(role, s.Clock()))
	block = append(block, body...)

	switch s.kind {
	case KindAsk:
		if len(s.lines) == 0 {
			s.lines = block
			return nil
		}
		joined := make([]string, 0, len(block)+len(s.lines)+3)
		joined = append(joined, block...)
		joined = append(joined, "", Separator, "")
		joined = append(joined, s.lines...)
		s.lines = joined
	case KindChat:
		if len(s.lines) > 0 {
			s.lines = append(s.lines, "")
		}
		s.lines = append(s.lines, block...)
	}
	return nil
}
