package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rkowalczyk/chatpane/internal/session"
	"github.com/rkowalczyk/chatpane/internal/surface"
)

func (m *model) View() string {
	switch m.stage {
	case stageCompose:
		return m.viewCompose()
	case stageSessions:
		return m.viewSessions()
	case stageBuffer:
		return m.viewBuffer()
	default:
		return m.viewTranscript()
	}
}

func (m *model) viewTranscript() string {
	m.refreshViewportIfDirty()
	parts := []string{m.heroView(), m.sessionMeterView(), m.viewport.View()}
	if m.errorMessage != "" {
		parts = append(parts, errorStyle.Render(m.errorMessage))
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	parts = append(parts, m.keyLegendView())
	if m.helpVisible {
		parts = append(parts, m.helpView())
	}
	return joinNonEmpty(parts)
}

func (m *model) viewCompose() string {
	var b strings.Builder
	if m.composerMode == composerAsk {
		b.WriteString(sectionHeaderStyle.Render("Ask Gemini"))
	} else {
		prefix := session.ShortID(m.config.Registry.Current())
		b.WriteString(sectionHeaderStyle.Render(fmt.Sprintf("Message Session %s", prefix)))
	}
	b.WriteRune('\n')
	b.WriteString(m.composer.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Press Enter to send, Esc to cancel."))
	return m.frameWithHero(b.String())
}

func (m *model) viewSessions() string {
	rows := []string{sectionHeaderStyle.Render("Sessions")}
	infos := m.config.Registry.List()
	current := m.config.Registry.Current()
	for idx, info := range infos {
		cursor := " "
		if idx == m.sessionCursor {
			cursor = ">"
		}
		marker := " "
		if info.ID == current {
			marker = "*"
		}
		row := fmt.Sprintf(" %s %s %s  %s", cursor, marker, info.Prefix, info.Status)
		if idx == m.sessionCursor {
			row = currentLineStyle.Render(row)
		} else if info.Status == session.StatusDetached {
			row = helperStyle.Render(row)
		}
		rows = append(rows, row)
	}
	rows = append(rows, "", helperStyle.Render("Enter switches, e ends, x closes the pane, Esc returns."))
	return m.frameWithHero(strings.Join(rows, "\n"))
}

func (m *model) viewBuffer() string {
	m.refreshViewportIfDirty()
	parts := []string{
		sectionHeaderStyle.Render(fmt.Sprintf("Buffer %s", m.bufferName)),
		m.viewport.View(),
		helperStyle.Render("v selects lines, Enter sends the selection, A sends everything, Esc returns."),
	}
	if m.infoMessage != "" {
		parts = append(parts, helperStyle.Render(m.infoMessage))
	}
	return joinNonEmpty(parts)
}

func (m *model) heroView() string {
	logo := logoStyle.Render(strings.Join(logoArtLines, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, logo, taglineStyle.Render(heroTagline))
}

func (m *model) frameWithHero(body string) string {
	return joinNonEmpty([]string{m.heroView(), body})
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}

func (m *model) sessionMeterView() string {
	paneLabel := surface.AskSurfaceName
	if m.target == viewChat {
		if s := m.viewedSurface(); s != nil {
			paneLabel = s.Name()
		} else {
			paneLabel = "no session"
		}
	}
	stats := []string{
		fmt.Sprintf("Pane %s", paneLabel),
		fmt.Sprintf("Sessions %d", m.config.Registry.Len()),
	}
	if current := m.config.Registry.Current(); current != "" {
		stats = append(stats, fmt.Sprintf("Current %s", session.ShortID(current)))
	}
	switch {
	case m.config.Client == nil:
		stats = append(stats, "Gemini offline")
	case m.busy():
		stats = append(stats, "Gemini working…")
	default:
		stats = append(stats, "Gemini idle")
	}
	return statusBarStyle.Render(strings.Join(stats, "  •  "))
}

type keyHint struct {
	Key         string
	Description string
}

func (m *model) keyLegendView() string {
	hints := []keyHint{
		{"a", "Ask a one-shot prompt"},
		{"n", "New chat session"},
		{"c", "Message current session"},
		{"l", "List sessions"},
		{"tab", "Toggle Ask/Chat pane"},
		{"b", "Open buffer pane"},
		{"w", "Save this transcript"},
		{"W", "Save all transcripts"},
		{"e", "End current session"},
		{"X", "Close this pane"},
		{"g/G", "Top or bottom"},
		{"?", "Toggle help"},
	}
	rows := []string{}
	const columns = 3
	for i := 0; i < len(hints); i += columns {
		end := i + columns
		if end > len(hints) {
			end = len(hints)
		}
		var cells []string
		for _, hint := range hints[i:end] {
			key := keyStyle.Render(hint.Key)
			desc := keyDescStyle.Render(" " + hint.Description)
			cells = append(cells, lipgloss.JoinHorizontal(lipgloss.Top, key, desc))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return legendBoxStyle.Render(strings.Join(rows, "\n"))
}

func (m *model) helpView() string {
	lines := []string{
		sectionHeaderStyle.Render("How the panes work"),
		helperStyle.Render("• Ask answers land newest-on-top with a --- separator between turns; chat sessions grow downward."),
		helperStyle.Render("• Sessions are addressed by the first 8 characters of their id; closing a pane with X or x keeps the session, ending it with e does not."),
		helperStyle.Render("• w writes the visible transcript to the log directory with a timestamped name; W sweeps every live session at once."),
		helperStyle.Render("• With -open <file>, b shows the buffer: v starts a line selection and Enter sends it as an Ask prompt."),
		helperStyle.Render("• Outgoing text passes through the configured word replacements exactly once before it is sent or recorded."),
	}
	return helpBoxStyle.Render(strings.Join(lines, "\n"))
}

var (
	sectionHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helperStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	separatorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	statusBarStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6")).Padding(0, 1)
	keyStyle           = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#ffd166")).Padding(0, 1)
	keyDescStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0def4"))
	legendBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#56526e")).Padding(1, 2)
	helpBoxStyle       = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("#7f5af0")).Padding(1, 2)
	currentLineStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#8ecae6"))
	selectionLineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#0f0f0f")).Background(lipgloss.Color("#bde0fe"))

	logoStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4fc1ff")).Padding(0, 1)
	taglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Italic(true)
	logoArtLines = []string{
		`       _           _                           `,
		`  ___ | |__   __ _| |_ _ __   __ _ _ __   ___  `,
		` / __|| '_ \ / _' | __| '_ \ / _' | '_ \ / _ \ `,
		`| (__ | | | | (_| | |_| |_) | (_| | | | |  __/ `,
		` \___||_| |_|\__,_|\__| .__/ \__,_|_| |_|\___| `,
		`                      |_|                      `,
	}
)
