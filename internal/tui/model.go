package tui

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"

	"github.com/rkowalczyk/chatpane/internal/filter"
	"github.com/rkowalczyk/chatpane/internal/gemini"
	"github.com/rkowalczyk/chatpane/internal/session"
	"github.com/rkowalczyk/chatpane/internal/surface"
	"github.com/rkowalczyk/chatpane/internal/transcript"
)

// Config wires runtime options into the TUI program.
type Config struct {
	Client   gemini.Client
	Registry *session.Registry
	Surfaces *surface.Manager
	Logger   *transcript.Logger
	Rules    []filter.Rule
	Model    string

	// BufferPath optionally names a text file opened into the scratch pane
	// for send-selection and send-buffer.
	BufferPath string
}

// New returns a tea.Model ready to be mounted into a Program.
func New(config Config) tea.Model {
	composer := textinput.New()
	composer.Placeholder = composerAskPlaceholder
	composer.CharLimit = 0
	composer.Width = 70

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	m := &model{
		config:        config,
		stage:         stageTranscript,
		mode:          modeNormal,
		target:        viewAsk,
		composer:      composer,
		spinner:       spin,
		viewport:      vp,
		jobs:          newJobBus(),
		busyChats:     map[string]bool{},
		infoMessage:   "Press a to ask Gemini, n to start a chat session, ? for help.",
		viewportDirty: true,
	}
	if config.BufferPath != "" {
		m.loadBuffer(config.BufferPath)
	}
	return m
}

type model struct {
	config Config
	stage  stage
	mode   interactionMode
	target viewTarget

	composer     textinput.Model
	composerMode composerMode
	spinner      spinner.Model
	viewport     viewport.Model
	jobs         *jobBus

	askBusy   bool
	busyChats map[string]bool
	saving    bool

	bufferName      string
	bufferLines     []string
	cursorLine      int
	selectionAnchor int
	selectionActive bool

	sessionCursor int

	viewportDirty bool
	lineCount     int

	infoMessage  string
	errorMessage string
	helpVisible  bool
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			m.markViewportDirty()
			return m, cmd
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyEsc:
			return m.handleEscape()
		}
		return m.handleKey(msg)
	case tea.MouseMsg:
		if m.stage == stageTranscript || m.stage == stageBuffer {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	case jobSignalMsg:
		return m, nil
	case jobResultEnvelope:
		if msg.Payload == nil {
			return m, nil
		}
		return m.Update(msg.Payload)
	case askResultMsg:
		return m.handleAskResult(msg)
	case chatResultMsg:
		return m.handleChatResult(msg)
	case saveResultMsg:
		m.saving = false
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			m.infoMessage = "Transcript save failed."
			return m, nil
		}
		if msg.path == "" {
			m.infoMessage = "Nothing to save."
			return m, nil
		}
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Transcript saved to %s", msg.path)
		return m, nil
	case AutosaveMsg:
		return m.runSaveAll(true)
	case tea.WindowSizeMsg:
		newWidth := msg.Width - viewportHorizontalPadding
		if newWidth < minViewportWidth {
			newWidth = minViewportWidth
		}
		m.viewport.Width = newWidth
		height := msg.Height - 6
		if height < 5 {
			height = 5
		}
		m.viewport.Height = height
		m.composer.Width = newWidth
		m.markViewportDirty()
		return m, nil
	}
	return m, nil
}

func (m *model) busy() bool {
	return m.askBusy || m.saving || len(m.busyChats) > 0
}

func (m *model) handleEscape() (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageCompose:
		m.stage = stageTranscript
		m.composer.SetValue("")
		m.composer.Blur()
		m.infoMessage = "Prompt canceled."
		return m, nil
	case stageSessions:
		m.stage = stageTranscript
		return m, nil
	case stageBuffer:
		if m.mode == modeHighlight {
			m.mode = modeNormal
			m.selectionActive = false
			m.infoMessage = "Highlight mode disabled."
			m.markViewportDirty()
			return m, nil
		}
		m.stage = stageTranscript
		m.markViewportDirty()
		return m, nil
	default:
		return m, tea.Quit
	}
}

func (m *model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageCompose:
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(key)
		if key.Type == tea.KeyEnter {
			value := strings.TrimSpace(m.composer.Value())
			m.composer.SetValue("")
			m.composer.Blur()
			m.stage = stageTranscript
			if value == "" {
				m.infoMessage = "Empty prompt discarded."
				return m, cmd
			}
			var send tea.Cmd
			if m.composerMode == composerAsk {
				send = m.submitAsk(value)
			} else {
				send = m.submitChat(value)
			}
			return m, tea.Batch(cmd, send)
		}
		return m, cmd
	case stageSessions:
		return m.handleSessionsKey(key)
	case stageBuffer:
		return m.handleBufferKey(key)
	case stageTranscript:
		return m.handleTranscriptKey(key)
	default:
		return m, nil
	}
}

func (m *model) handleTranscriptKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "a":
		if m.config.Client == nil {
			m.infoMessage = "Gemini is not configured. Set an API key first."
			return m, nil
		}
		m.stage = stageCompose
		m.composerMode = composerAsk
		m.composer.Placeholder = composerAskPlaceholder
		m.composer.SetValue("")
		m.composer.Focus()
		return m, textinput.Blink
	case "c":
		if m.config.Client == nil {
			m.infoMessage = "Gemini is not configured. Set an API key first."
			return m, nil
		}
		if m.config.Registry.Current() == "" {
			m.infoMessage = "No current session. Press n to start one."
			return m, nil
		}
		m.stage = stageCompose
		m.composerMode = composerChat
		m.composer.Placeholder = composerChatPlaceholder
		m.composer.SetValue("")
		m.composer.Focus()
		return m, textinput.Blink
	case "n":
		return m.startSession()
	case "e":
		current := m.config.Registry.Current()
		if current == "" {
			m.infoMessage = "No current session to end."
			return m, nil
		}
		return m.endSession(session.ShortID(current))
	case "l":
		if m.config.Registry.Len() == 0 {
			m.infoMessage = "No sessions yet. Press n to start one."
			return m, nil
		}
		m.stage = stageSessions
		m.sessionCursor = 0
		return m, nil
	case "tab":
		if m.target == viewAsk {
			m.target = viewChat
		} else {
			m.target = viewAsk
		}
		m.viewport.SetYOffset(0)
		m.markViewportDirty()
		return m, nil
	case "b":
		if len(m.bufferLines) == 0 {
			m.infoMessage = "No buffer loaded. Start with -open <file>."
			return m, nil
		}
		m.stage = stageBuffer
		m.mode = modeNormal
		m.selectionActive = false
		m.markViewportDirty()
		return m, nil
	case "w":
		return m.saveCurrent()
	case "W":
		return m.runSaveAll(false)
	case "X":
		s := m.viewedSurface()
		if s == nil {
			m.infoMessage = "Nothing to close."
			return m, nil
		}
		s.Detach()
		m.infoMessage = fmt.Sprintf("Closed pane %s. A fresh one is created on next use.", s.Name())
		m.markViewportDirty()
		return m, nil
	case "g":
		m.viewport.SetYOffset(0)
		return m, nil
	case "G":
		m.refreshViewportIfDirty()
		m.viewport.GotoBottom()
		return m, nil
	case "?":
		m.helpVisible = !m.helpVisible
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return m, cmd
}

func (m *model) handleSessionsKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	infos := m.config.Registry.List()
	switch key.String() {
	case "up", "k":
		if m.sessionCursor > 0 {
			m.sessionCursor--
		}
		return m, nil
	case "down", "j":
		if m.sessionCursor < len(infos)-1 {
			m.sessionCursor++
		}
		return m, nil
	case "enter":
		if m.sessionCursor >= len(infos) {
			return m, nil
		}
		info := infos[m.sessionCursor]
		if _, err := m.config.Registry.Switch(info.Prefix); err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.stage = stageTranscript
		m.target = viewChat
		m.errorMessage = ""
		m.infoMessage = fmt.Sprintf("Session %s is now current.", info.Prefix)
		m.viewport.SetYOffset(0)
		m.markViewportDirty()
		return m, nil
	case "e":
		if m.sessionCursor >= len(infos) {
			return m, nil
		}
		prefix := infos[m.sessionCursor].Prefix
		m.stage = stageTranscript
		return m.endSession(prefix)
	case "x":
		if m.sessionCursor >= len(infos) {
			return m, nil
		}
		info := infos[m.sessionCursor]
		if s, ok := m.config.Surfaces.ChatIfLive(info.ID); ok {
			s.Detach()
			m.infoMessage = fmt.Sprintf("Closed pane for session %s.", info.Prefix)
		}
		return m, nil
	}
	return m, nil
}

func (m *model) handleBufferKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "g":
		m.setCursorLine(0)
		return m, nil
	case "G":
		m.setCursorLine(len(m.bufferLines) - 1)
		return m, nil
	case "v":
		m.toggleHighlightMode()
		return m, nil
	case "enter", "i":
		text := strings.TrimSpace(m.selectedText())
		if text == "" {
			m.infoMessage = "Select lines with v before sending."
			return m, nil
		}
		m.mode = modeNormal
		m.selectionActive = false
		m.stage = stageTranscript
		m.target = viewAsk
		m.markViewportDirty()
		return m, m.submitAsk(text)
	case "A":
		text := strings.TrimSpace(strings.Join(m.bufferLines, "\n"))
		if text == "" {
			m.infoMessage = "Buffer is empty."
			return m, nil
		}
		m.stage = stageTranscript
		m.target = viewAsk
		m.markViewportDirty()
		return m, m.submitAsk(text)
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(key)
	return m, cmd
}

// submitAsk records the outgoing turn on the Ask surface and launches the
// remote call. The replacement filter runs exactly once, here, so the text
// sent over the wire matches the text written to the transcript.
func (m *model) submitAsk(text string) tea.Cmd {
	if m.config.Client == nil {
		m.infoMessage = "Gemini is not configured. Set an API key first."
		return nil
	}
	if m.askBusy {
		m.infoMessage = "A prompt is already in flight."
		return nil
	}
	prompt := filter.Apply(text, m.config.Rules)
	ask := m.config.Surfaces.Ask()
	if err := ask.WriteTurn(m.config.Surfaces.Format(), surface.RoleUser, splitBody(prompt)); err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	ask.SetWaiting(true)
	m.askBusy = true
	m.target = viewAsk
	m.errorMessage = ""
	m.infoMessage = "Asking Gemini…"
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindAsk, askJob(m.config.Client, prompt, m.config.Model)))
}

func (m *model) submitChat(text string) tea.Cmd {
	current := m.config.Registry.Current()
	if current == "" {
		m.infoMessage = "No current session. Press n to start one."
		return nil
	}
	if m.busyChats[current] {
		m.infoMessage = "This session is waiting on a reply."
		return nil
	}
	message := filter.Apply(text, m.config.Rules)
	chat := m.config.Surfaces.Chat(current)
	if err := chat.WriteTurn(m.config.Surfaces.Format(), surface.RoleUser, splitBody(message)); err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	chat.SetWaiting(true)
	m.busyChats[current] = true
	m.target = viewChat
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Waiting on session %s…", session.ShortID(current))
	m.markViewportDirty()
	return tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindChat, chatJob(m.config.Client, current, message, m.config.Model)))
}

func (m *model) handleAskResult(msg askResultMsg) (tea.Model, tea.Cmd) {
	m.askBusy = false
	ask := m.config.Surfaces.Ask()
	ask.SetWaiting(false)
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		m.infoMessage = "Ask failed. Press a to retry."
		m.markViewportDirty()
		return m, nil
	}
	if err := ask.WriteTurn(m.config.Surfaces.Format(), surface.RoleModel, splitBody(msg.answer)); err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = "Answer ready."
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return m, nil
}

func (m *model) handleChatResult(msg chatResultMsg) (tea.Model, tea.Cmd) {
	delete(m.busyChats, msg.sessionID)
	// The session may have been ended while the reply was in flight.
	if !m.config.Registry.Has(msg.sessionID) {
		return m, nil
	}
	chat := m.config.Surfaces.Chat(msg.sessionID)
	chat.SetWaiting(false)
	if msg.err != nil {
		m.errorMessage = msg.err.Error()
		m.infoMessage = "Message failed. Press c to retry."
		m.markViewportDirty()
		return m, nil
	}
	if err := chat.WriteTurn(m.config.Surfaces.Format(), surface.RoleModel, splitBody(msg.answer)); err != nil {
		m.errorMessage = err.Error()
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Reply on session %s.", session.ShortID(msg.sessionID))
	m.markViewportDirty()
	return m, nil
}

// startSession runs the remote call synchronously. Registry mutation has to
// happen on the event loop, and session setup is a single cheap round trip.
func (m *model) startSession() (tea.Model, tea.Cmd) {
	if m.config.Client == nil {
		m.infoMessage = "Gemini is not configured. Set an API key first."
		return m, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
	defer cancel()
	id, err := m.config.Registry.Create(ctx)
	if err != nil {
		m.errorMessage = err.Error()
		m.infoMessage = "Could not start a session."
		return m, nil
	}
	m.target = viewChat
	m.errorMessage = ""
	m.infoMessage = fmt.Sprintf("Session %s started. Press c to chat.", session.ShortID(id))
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return m, nil
}

func (m *model) endSession(prefix string) (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithTimeout(context.Background(), remoteCallTimeout)
	defer cancel()
	confirmation, err := m.config.Registry.End(ctx, prefix)
	if err != nil {
		m.errorMessage = err.Error()
		m.infoMessage = "Could not end the session."
		return m, nil
	}
	m.errorMessage = ""
	m.infoMessage = confirmation
	if m.config.Registry.Current() == "" && m.target == viewChat {
		m.target = viewAsk
	}
	m.viewport.SetYOffset(0)
	m.markViewportDirty()
	return m, nil
}

func (m *model) saveCurrent() (tea.Model, tea.Cmd) {
	s := m.viewedSurface()
	if s == nil {
		m.infoMessage = "Nothing to save."
		return m, nil
	}
	if m.saving {
		m.infoMessage = "A save is already running."
		return m, nil
	}
	m.saving = true
	m.infoMessage = "Saving transcript…"
	return m, tea.Batch(m.spinner.Tick, m.jobs.Start(jobKindSave, saveJob(m.config.Logger, s.Lines(), s.Name())))
}

// runSaveAll performs one full save pass inline. Autosave ticks arrive here
// as messages, so the registry and surfaces are only mutated on the event
// loop.
func (m *model) runSaveAll(auto bool) (tea.Model, tea.Cmd) {
	report := transcript.SaveAll(m.config.Logger, m.config.Registry, m.config.Surfaces)
	parts := []string{}
	if len(report.Saved) > 0 {
		parts = append(parts, fmt.Sprintf("%d transcript(s) saved", len(report.Saved)))
	}
	if len(report.Pruned) > 0 {
		parts = append(parts, fmt.Sprintf("%d closed session(s) pruned", len(report.Pruned)))
	}
	if len(report.Failures) > 0 {
		failed := make([]string, 0, len(report.Failures))
		for prefix, err := range report.Failures {
			failed = append(failed, fmt.Sprintf("%s: %v", prefix, err))
		}
		m.errorMessage = strings.Join(failed, "; ")
		parts = append(parts, fmt.Sprintf("%d failed", len(report.Failures)))
	}
	switch {
	case len(parts) == 0 && auto:
		// Quiet tick, nothing changed.
	case len(parts) == 0:
		m.infoMessage = "Nothing to save."
	case auto:
		m.infoMessage = "Autosave: " + strings.Join(parts, ", ") + "."
	default:
		m.infoMessage = strings.Join(parts, ", ") + "."
	}
	m.markViewportDirty()
	return m, nil
}

func (m *model) viewedSurface() *surface.Surface {
	switch m.target {
	case viewAsk:
		return m.config.Surfaces.Ask()
	case viewChat:
		current := m.config.Registry.Current()
		if current == "" {
			return nil
		}
		return m.config.Surfaces.Chat(current)
	}
	return nil
}

func (m *model) loadBuffer(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		m.errorMessage = err.Error()
		m.infoMessage = "Could not open the buffer file."
		return
	}
	m.bufferName = path
	m.bufferLines = splitBody(strings.TrimRight(string(data), "\n"))
	m.infoMessage = fmt.Sprintf("Loaded %s. Press b to open the buffer pane.", path)
}

func splitBody(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}

func (m *model) moveCursor(delta int) {
	m.setCursorLine(m.cursorLine + delta)
}

func (m *model) setCursorLine(line int) {
	if len(m.bufferLines) == 0 {
		return
	}
	if line < 0 {
		line = 0
	}
	if line >= len(m.bufferLines) {
		line = len(m.bufferLines) - 1
	}
	m.cursorLine = line
	if m.mode != modeHighlight {
		m.selectionActive = false
	}
	m.markViewportDirty()
	m.refreshViewportIfDirty()
	m.ensureCursorVisible()
}

func (m *model) toggleHighlightMode() {
	switch m.mode {
	case modeHighlight:
		m.mode = modeNormal
		m.selectionActive = false
		m.infoMessage = "Highlight mode disabled."
	default:
		if len(m.bufferLines) == 0 {
			return
		}
		m.mode = modeHighlight
		m.selectionAnchor = m.cursorLine
		m.selectionActive = true
		m.infoMessage = "Highlight mode enabled. Move to expand, Enter to send."
	}
	m.markViewportDirty()
}

func (m *model) selectionRange() (int, int, bool) {
	if !m.selectionActive || m.mode != modeHighlight || len(m.bufferLines) == 0 {
		return 0, 0, false
	}
	start, end := m.selectionAnchor, m.cursorLine
	if start > end {
		start, end = end, start
	}
	return start, end, true
}

func (m *model) selectedText() string {
	start, end, ok := m.selectionRange()
	if !ok {
		if len(m.bufferLines) == 0 {
			return ""
		}
		return m.bufferLines[m.cursorLine]
	}
	return strings.Join(m.bufferLines[start:end+1], "\n")
}

func (m *model) ensureCursorVisible() {
	if m.cursorLine < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursorLine)
		return
	}
	lowerBound := m.viewport.YOffset + m.viewport.Height - 1
	if m.cursorLine > lowerBound {
		target := m.cursorLine - m.viewport.Height + 1
		if target < 0 {
			target = 0
		}
		m.viewport.SetYOffset(target)
	}
}

func (m *model) markViewportDirty() {
	m.viewportDirty = true
}

func (m *model) refreshViewportIfDirty() {
	if m.viewportDirty {
		m.refreshViewport()
	}
}

// refreshViewport rebuilds the viewport content while holding the scroll
// offset steady, so a transcript write never yanks the reader away from the
// line they were on.
func (m *model) refreshViewport() {
	m.viewportDirty = false
	prevYOffset := m.viewport.YOffset

	var content string
	switch m.stage {
	case stageBuffer:
		content = m.buildBufferContent()
	default:
		content = m.buildTranscriptContent()
	}
	m.lineCount = strings.Count(content, "\n") + 1
	m.viewport.SetContent(content)
	m.viewport.SetYOffset(m.clampYOffset(prevYOffset))
}

func (m *model) buildTranscriptContent() string {
	s := m.viewedSurface()
	if s == nil {
		return helperStyle.Render("No session is current. Press n to start one or Tab for the Ask pane.")
	}
	lines := s.Lines()
	if len(lines) == 0 {
		if s.Kind() == surface.KindAsk {
			return helperStyle.Render("The Ask pane is empty. Press a to send a prompt.")
		}
		return helperStyle.Render("No turns yet. Press c to send the first message.")
	}
	format := m.config.Surfaces.Format()
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		if format.IsHeaderLine(line) || line == surface.Separator {
			wrapped = append(wrapped, line)
			continue
		}
		wrapped = append(wrapped, wordwrap.String(line, m.wrapWidth()))
	}
	rewrapped := splitBody(strings.Join(wrapped, "\n"))
	styled := format.Highlight(rewrapped)
	for i, line := range styled {
		if line == surface.Separator {
			styled[i] = separatorStyle.Render(line)
		} else if line == surface.WaitingPlaceholder {
			styled[i] = helperStyle.Render(fmt.Sprintf("%s %s", m.spinner.View(), line))
		}
	}
	return strings.Join(styled, "\n")
}

func (m *model) buildBufferContent() string {
	if len(m.bufferLines) == 0 {
		return helperStyle.Render("Buffer is empty.")
	}
	start, end, hasSelection := m.selectionRange()
	lines := make([]string, len(m.bufferLines))
	for idx, line := range m.bufferLines {
		line = wordwrap.String(line, m.wrapWidth())
		inSelection := hasSelection && idx >= start && idx <= end
		switch {
		case idx == m.cursorLine:
			lines[idx] = currentLineStyle.Render(line)
		case inSelection:
			lines[idx] = selectionLineStyle.Render(line)
		default:
			lines[idx] = line
		}
	}
	return strings.Join(lines, "\n")
}

func (m *model) wrapWidth() int {
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}
	if width < 20 {
		width = 20
	}
	return width
}

func (m *model) clampYOffset(offset int) int {
	maxOffset := m.lineCount - m.viewport.Height
	if m.viewport.Height <= 0 {
		maxOffset = m.lineCount - 1
	}
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset < 0 {
		return 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}
