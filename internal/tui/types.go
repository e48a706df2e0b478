package tui

type stage int

const (
	stageTranscript stage = iota
	stageCompose
	stageBuffer
	stageSessions
)

// viewTarget selects which transcript the main viewport mirrors.
type viewTarget int

const (
	viewAsk viewTarget = iota
	viewChat
)

type composerMode int

const (
	composerAsk composerMode = iota
	composerChat
)

type interactionMode int

const (
	modeNormal interactionMode = iota
	modeHighlight
)

const heroTagline = "One pane for every Gemini conversation."

const (
	minViewportWidth          = 40
	viewportHorizontalPadding = 4
)

const (
	composerAskPlaceholder  = "Ask Gemini anything…"
	composerChatPlaceholder = "Message the current session…"
)
