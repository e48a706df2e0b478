package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkowalczyk/chatpane/internal/filter"
	"github.com/rkowalczyk/chatpane/internal/session"
	"github.com/rkowalczyk/chatpane/internal/surface"
	"github.com/rkowalczyk/chatpane/internal/transcript"
)

type fakeClient struct {
	reply    string
	err      error
	prompts  []string
	messages []string
	startErr error
	endErr   error
	nextID   int
	sessions map[string]bool
}

func newFakeClient(reply string) *fakeClient {
	return &fakeClient{reply: reply, sessions: map[string]bool{}}
}

func (c *fakeClient) Generate(_ context.Context, prompt, _ string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.reply, c.err
}

func (c *fakeClient) StartSession(context.Context) (string, error) {
	if c.startErr != nil {
		return "", c.startErr
	}
	c.nextID++
	id := fmt.Sprintf("%08d-fixture-session", c.nextID)
	c.sessions[id] = true
	return id, nil
}

func (c *fakeClient) SendMessage(_ context.Context, sessionID, message, _ string) (string, error) {
	if !c.sessions[sessionID] {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	c.messages = append(c.messages, message)
	return c.reply, c.err
}

func (c *fakeClient) EndSession(_ context.Context, sessionID string) (string, error) {
	if c.endErr != nil {
		return "", c.endErr
	}
	if !c.sessions[sessionID] {
		return "", fmt.Errorf("unknown session %s", sessionID)
	}
	delete(c.sessions, sessionID)
	return fmt.Sprintf("Session %s ended.", sessionID), nil
}

func (c *fakeClient) Name() string { return "fake" }

func newTestModel(t *testing.T, client *fakeClient) *model {
	t.Helper()
	surfaces := surface.NewManager(surface.DefaultFormat())
	registry := session.NewRegistry(client, surfaces)
	logger := transcript.NewLogger(t.TempDir())
	logger.Now = func() time.Time { return time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC) }
	m := New(Config{
		Client:   client,
		Registry: registry,
		Surfaces: surfaces,
		Logger:   logger,
		Rules:    []filter.Rule{{Old: "token", New: "credential"}},
		Model:    "gemini-test",
	})
	return m.(*model)
}

func TestSubmitAskRecordsFilteredUserTurn(t *testing.T) {
	client := newFakeClient("fine")
	m := newTestModel(t, client)

	if cmd := m.submitAsk("my token please"); cmd == nil {
		t.Fatal("ask submission should return a command")
	}
	if !m.askBusy {
		t.Fatal("ask submission should mark the ask pane busy")
	}

	ask := m.config.Surfaces.Ask()
	joined := strings.Join(ask.Lines(), "\n")
	if !strings.Contains(joined, "my credential please") {
		t.Fatalf("replacement not applied to recorded turn:\n%s", joined)
	}
	if strings.Contains(joined, "token") {
		t.Fatalf("original word leaked into the transcript:\n%s", joined)
	}
	if !ask.Waiting() {
		t.Fatal("waiting placeholder should show while the request is in flight")
	}
}

func TestAskJobSendsPromptVerbatim(t *testing.T) {
	client := newFakeClient("the answer")
	runner := askJob(client, "already filtered", "gemini-test")

	msg, err := runner(context.Background())
	if err != nil {
		t.Fatalf("runner failed: %v", err)
	}
	result, ok := msg.(askResultMsg)
	if !ok {
		t.Fatalf("unexpected message type %T", msg)
	}
	if result.answer != "the answer" {
		t.Fatalf("answer mismatch, got %q", result.answer)
	}
	if len(client.prompts) != 1 || client.prompts[0] != "already filtered" {
		t.Fatalf("prompt not passed through unchanged: %v", client.prompts)
	}
}

func TestAskResultWritesModelTurnAndClearsWaiting(t *testing.T) {
	client := newFakeClient("fine")
	m := newTestModel(t, client)
	m.submitAsk("question")

	m.Update(askResultMsg{answer: "line one\nline two"})

	ask := m.config.Surfaces.Ask()
	if ask.Waiting() {
		t.Fatal("waiting placeholder should clear once the reply lands")
	}
	if m.askBusy {
		t.Fatal("busy flag should clear once the reply lands")
	}
	joined := strings.Join(ask.Lines(), "\n")
	if !strings.Contains(joined, "line one\nline two") {
		t.Fatalf("reply body missing from transcript:\n%s", joined)
	}
	// Newest turn first: the reply header sits above the question.
	if strings.Index(joined, "line one") > strings.Index(joined, "question") {
		t.Fatalf("reply should be prepended above the question:\n%s", joined)
	}
}

func TestAskErrorSurfacesVendorMessageVerbatim(t *testing.T) {
	client := newFakeClient("")
	m := newTestModel(t, client)
	m.submitAsk("question")

	m.Update(askResultMsg{err: errors.New("API key not valid. Please pass a valid API key.")})

	if m.errorMessage != "API key not valid. Please pass a valid API key." {
		t.Fatalf("vendor message altered: %q", m.errorMessage)
	}
	ask := m.config.Surfaces.Ask()
	if ask.Waiting() {
		t.Fatal("waiting placeholder should clear on failure")
	}
	if got := strings.Join(ask.Lines(), "\n"); strings.Contains(got, "API key not valid") {
		t.Fatalf("error should not be written as a model turn:\n%s", got)
	}
}

func TestChatResultForEndedSessionIsDropped(t *testing.T) {
	client := newFakeClient("late reply")
	m := newTestModel(t, client)

	m.startSession()
	id := m.config.Registry.Current()
	if id == "" {
		t.Fatal("session should be current after start")
	}
	m.submitChat("hello")
	m.endSession(session.ShortID(id))

	m.Update(chatResultMsg{sessionID: id, answer: "late reply"})

	if m.config.Registry.Has(id) {
		t.Fatal("ended session should not be re-registered")
	}
	if _, ok := m.config.Surfaces.ChatIfLive(id); ok {
		t.Fatal("ended session should not regain a surface")
	}
}

func TestChatResultAppendsReply(t *testing.T) {
	client := newFakeClient("reply body")
	m := newTestModel(t, client)
	m.startSession()
	id := m.config.Registry.Current()
	m.submitChat("first message")

	m.Update(chatResultMsg{sessionID: id, answer: "reply body"})

	chat := m.config.Surfaces.Chat(id)
	joined := strings.Join(chat.Lines(), "\n")
	if strings.Index(joined, "first message") > strings.Index(joined, "reply body") {
		t.Fatalf("chat turns should stay chronological:\n%s", joined)
	}
	if chat.Waiting() {
		t.Fatal("waiting placeholder should clear once the reply lands")
	}
}

func TestStartSessionFailureLeavesRegistryEmpty(t *testing.T) {
	client := newFakeClient("")
	client.startErr = errors.New("quota exceeded")
	m := newTestModel(t, client)

	m.startSession()

	if m.config.Registry.Len() != 0 {
		t.Fatalf("registry should stay empty, has %d sessions", m.config.Registry.Len())
	}
	if m.errorMessage != "quota exceeded" {
		t.Fatalf("remote error not surfaced, got %q", m.errorMessage)
	}
}

func TestAutosaveMessageSweepsSessions(t *testing.T) {
	client := newFakeClient("fine")
	m := newTestModel(t, client)

	m.startSession()
	id := m.config.Registry.Current()
	chat := m.config.Surfaces.Chat(id)
	if err := chat.WriteTurn(m.config.Surfaces.Format(), surface.RoleUser, []string{"keep this"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	m.startSession()
	closed := m.config.Registry.Current()
	m.config.Surfaces.Chat(closed).Detach()

	m.Update(AutosaveMsg{})

	entries, err := os.ReadDir(m.config.Logger.Dir())
	if err != nil {
		t.Fatalf("reading log dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one transcript on disk, got %d", len(entries))
	}
	if name := entries[0].Name(); !strings.HasPrefix(name, "gemini-chat-"+session.ShortID(id)) {
		t.Fatalf("unexpected transcript name %q", name)
	}
	if m.config.Registry.Has(closed) {
		t.Fatal("session with a closed pane should be pruned during autosave")
	}
}

func TestBufferSelectionSendsAskPrompt(t *testing.T) {
	client := newFakeClient("fine")
	m := newTestModel(t, client)
	path := filepath.Join(t.TempDir(), "draft.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma\n"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	m.loadBuffer(path)
	m.stage = stageBuffer

	m.handleBufferKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("v")})
	m.handleBufferKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	_, cmd := m.handleBufferKey(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("sending a selection should launch the ask job")
	}

	if m.stage != stageTranscript || m.target != viewAsk {
		t.Fatalf("selection send should land on the ask pane, stage=%v target=%v", m.stage, m.target)
	}
	joined := strings.Join(m.config.Surfaces.Ask().Lines(), "\n")
	if !strings.Contains(joined, "alpha\nbeta") {
		t.Fatalf("selected lines missing from the recorded turn:\n%s", joined)
	}
	if strings.Contains(joined, "gamma") {
		t.Fatalf("unselected line leaked into the prompt:\n%s", joined)
	}
}

func TestDetachedPaneIsRecreatedOnNextAsk(t *testing.T) {
	client := newFakeClient("fine")
	m := newTestModel(t, client)
	m.submitAsk("first")
	m.Update(askResultMsg{answer: "reply"})

	m.config.Surfaces.Ask().Detach()
	m.submitAsk("second")

	ask := m.config.Surfaces.Ask()
	if !ask.Attached() {
		t.Fatal("a fresh attached surface should replace the closed one")
	}
	joined := strings.Join(ask.Lines(), "\n")
	if strings.Contains(joined, "first") {
		t.Fatalf("content of the closed pane should be gone:\n%s", joined)
	}
	if !strings.Contains(joined, "second") {
		t.Fatalf("new prompt missing from the recreated pane:\n%s", joined)
	}
}
