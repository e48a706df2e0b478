package surface

import (
	"strings"
	"testing"
	"time"
)

func testFormat() Format {
	f := DefaultFormat()
	return f
}

func pinClock(s *Surface) {
	s.Clock = func() time.Time {
		return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	}
}

func TestAskSurfaceNewestTurnOnTop(t *testing.T) {
	t.Parallel()

	f := testFormat()
	s := NewAsk(AskSurfaceName)
	pinClock(s)

	if err := s.WriteTurn(f, RoleUser, []string{"first question"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}
	lines := s.Lines()
	if lines[0] != "## You:" {
		t.Fatalf("expected header as first line, got %q", lines[0])
	}
	for _, line := range lines {
		if line == Separator {
			t.Fatal("separator must not appear before the first turn")
		}
	}

	if err := s.WriteTurn(f, RoleModel, []string{"first answer"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}
	lines = s.Lines()
	if lines[0] != "## Gemini:" {
		t.Fatalf("newest turn header must be the first line, got %q", lines[0])
	}

	var separators int
	for _, line := range lines {
		if line == Separator {
			separators++
		}
	}
	if separators != 1 {
		t.Fatalf("expected exactly one separator between two turns, got %d", separators)
	}
	sepIdx := -1
	for i, line := range lines {
		if line == Separator {
			sepIdx = i
		}
	}
	older := strings.Join(lines[sepIdx:], "\n")
	if !strings.Contains(older, "first question") {
		t.Fatalf("older turn must sit below the separator, got %q", older)
	}
}

func TestChatSurfaceAppendsChronologically(t *testing.T) {
	t.Parallel()

	f := testFormat()
	s := NewChat("gemini-chat-1a2b3c4d")
	pinClock(s)

	if err := s.WriteTurn(f, RoleUser, []string{"hello"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}
	if err := s.WriteTurn(f, RoleModel, []string{"hi there"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}

	lines := s.Lines()
	if lines[0] != "## You:" || lines[1] != "hello" {
		t.Fatalf("first turn must stay on top for chat surfaces, got %#v", lines[:2])
	}
	last := lines[len(lines)-1]
	if last != "hi there" {
		t.Fatalf("newest chat turn belongs at the bottom, got %q", last)
	}
	for _, line := range lines {
		if line == Separator {
			t.Fatal("chat surfaces do not use the ask separator")
		}
	}
}

func TestWriteTurnDetachedRefused(t *testing.T) {
	t.Parallel()

	s := NewChat("gemini-chat-dead")
	s.Detach()
	if err := s.WriteTurn(testFormat(), RoleUser, []string{"hello"}); err != ErrDetached {
		t.Fatalf("expected ErrDetached, got %v", err)
	}
	if !s.Empty() {
		t.Fatal("detached surface must not record content")
	}
}

func TestHeaderTimestamps(t *testing.T) {
	t.Parallel()

	f := testFormat()
	f.Timestamps = true
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	got := f.Header(RoleUser, now)
	want := "[2025-03-14 09:26:53] ## You:"
	if got != want {
		t.Fatalf("Header() = %q, want %q", got, want)
	}
}

func TestHeaderCustomTemplate(t *testing.T) {
	t.Parallel()

	f := Format{
		Template:     "<MARKER><ROLENAME><ROLEPROMPT> <TIMESTAMP>",
		Marker:       ">> ",
		UserName:     "me",
		ModelName:    "bot",
		PromptSuffix: " says",
	}
	got := f.Header(RoleModel, time.Now())
	if got != ">> bot says " {
		t.Fatalf("Header() = %q", got)
	}
}

func TestWaitingPlaceholderToggles(t *testing.T) {
	t.Parallel()

	f := testFormat()
	s := NewChat("gemini-chat-1a2b3c4d")
	pinClock(s)
	if err := s.WriteTurn(f, RoleUser, []string{"hello"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}

	s.SetWaiting(true)
	lines := s.Lines()
	if lines[len(lines)-1] != WaitingPlaceholder {
		t.Fatalf("placeholder missing at the bottom: %#v", lines)
	}
	if lines[len(lines)-2] != "" {
		t.Fatal("placeholder should follow a blank line")
	}

	s.SetWaiting(false)
	lines = s.Lines()
	if lines[len(lines)-1] == WaitingPlaceholder {
		t.Fatal("placeholder should disappear once the reply lands")
	}
}

func TestHighlightIdempotent(t *testing.T) {
	t.Parallel()

	f := testFormat()
	lines := []string{
		"## You:",
		"what is a monad",
		"",
		"## Gemini:",
		"a monoid in the category of endofunctors",
	}

	once := f.Highlight(lines)
	twice := f.Highlight(once)
	if len(once) != len(twice) {
		t.Fatalf("line count changed across passes: %d vs %d", len(once), len(twice))
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Fatalf("line %d differs between passes:\n once=%q\ntwice=%q", i, once[i], twice[i])
		}
	}
	for i, line := range twice {
		if got := StripANSI(line); got != lines[i] {
			t.Fatalf("highlighting altered text at line %d: %q", i, got)
		}
	}
}

func TestIsHeaderLineWithTimestamp(t *testing.T) {
	t.Parallel()

	f := testFormat()
	if !f.IsHeaderLine("[2025-03-14 09:26:53] ## Gemini:") {
		t.Fatal("timestamped header not recognized")
	}
	if f.IsHeaderLine("plain body text mentioning ## You: later") {
		t.Fatal("headers must start the line")
	}
}

func TestManagerRecreatesClosedSurfaces(t *testing.T) {
	t.Parallel()

	m := NewManager(testFormat())

	ask := m.Ask()
	if err := ask.WriteTurn(m.Format(), RoleUser, []string{"hello"}); err != nil {
		t.Fatalf("WriteTurn() error = %v", err)
	}
	if m.Ask() != ask {
		t.Fatal("attached ask surface should be reused")
	}

	ask.Detach()
	fresh := m.Ask()
	if fresh == ask {
		t.Fatal("closed ask surface must be replaced, not reused")
	}
	if !fresh.Empty() {
		t.Fatal("replacement surface starts empty")
	}
	if fresh.Name() != AskSurfaceName {
		t.Fatalf("ask surface keeps its fixed name, got %q", fresh.Name())
	}
}

func TestManagerChatNaming(t *testing.T) {
	t.Parallel()

	m := NewManager(testFormat())
	s := m.Chat("1a2b3c4d-ef56-7890")
	if s.Name() != "gemini-chat-1a2b3c4d" {
		t.Fatalf("chat pane name derives from the id prefix, got %q", s.Name())
	}

	if again := m.Chat("1a2b3c4d-ef56-7890"); again != s {
		t.Fatal("live chat surface should be reused")
	}

	s.Detach()
	if _, ok := m.ChatIfLive("1a2b3c4d-ef56-7890"); ok {
		t.Fatal("ChatIfLive must not report a detached surface")
	}
	if replacement := m.Chat("1a2b3c4d-ef56-7890"); replacement == s {
		t.Fatal("detached chat surface must be replaced")
	}
}
