package surface

// AskSurfaceName is the fixed pane name of the singleton Ask surface.
const AskSurfaceName = "gemini-ask"

const chatSurfacePrefix = "gemini-chat-"

// Manager reconciles logical transcripts with presentation panes. It hands
// out the singleton Ask surface and per-session Chat surfaces, lazily
// recreating any surface whose pane was closed so a stale handle is never
// reused.
type Manager struct {
	format Format
	ask    *Surface
	chats  map[string]*Surface
}

// NewManager returns a Manager rendering with the given format.
func NewManager(format Format) *Manager {
	return &Manager{
		format: format,
		chats:  map[string]*Surface{},
	}
}

// Format returns the header format shared by every surface.
func (m *Manager) Format() Format { return m.format }

// Ask returns the singleton Ask surface, creating a fresh one when it was
// never created or its pane was closed. Content of a closed pane is gone;
// the replacement starts empty.
func (m *Manager) Ask() *Surface {
	if m.ask == nil || !m.ask.Attached() {
		m.ask = NewAsk(AskSurfaceName)
	}
	return m.ask
}

// Chat returns the surface for the given session id, creating or recreating
// it as needed. The pane name is derived from the id's 8-character prefix.
func (m *Manager) Chat(sessionID string) *Surface {
	if s, ok := m.chats[sessionID]; ok && s.Attached() {
		return s
	}
	s := NewChat(chatSurfacePrefix + shortPrefix(sessionID))
	m.chats[sessionID] = s
	return s
}

// ChatIfLive returns the existing, still-attached surface for a session
// without creating one. Autosave uses this to skip externally closed panes.
func (m *Manager) ChatIfLive(sessionID string) (*Surface, bool) {
	s, ok := m.chats[sessionID]
	if !ok || !s.Attached() {
		return nil, false
	}
	return s, true
}

// DropChat forgets a session's surface after the session ends.
func (m *Manager) DropChat(sessionID string) {
	delete(m.chats, sessionID)
}

func shortPrefix(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
