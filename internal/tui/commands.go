package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkowalczyk/chatpane/internal/gemini"
	"github.com/rkowalczyk/chatpane/internal/transcript"
)

const remoteCallTimeout = 2 * time.Minute

type askResultMsg struct {
	answer string
	err    error
}

type chatResultMsg struct {
	sessionID string
	answer    string
	err       error
}

type saveResultMsg struct {
	label string
	path  string
	err   error
}

// AutosaveMsg asks the model to run one save pass over every live session.
// The autosave timer delivers it through Program.Send so all surface and
// registry mutation stays on the event loop.
type AutosaveMsg struct{}

func askJob(client gemini.Client, prompt, model string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, remoteCallTimeout)
		defer cancel()
		answer, err := client.Generate(ctx, prompt, model)
		return askResultMsg{answer: answer, err: err}, err
	}
}

func chatJob(client gemini.Client, sessionID, message, model string) jobRunner {
	return func(parent context.Context) (tea.Msg, error) {
		ctx, cancel := context.WithTimeout(parent, remoteCallTimeout)
		defer cancel()
		answer, err := client.SendMessage(ctx, sessionID, message, model)
		return chatResultMsg{sessionID: sessionID, answer: answer, err: err}, err
	}
}

func saveJob(logger *transcript.Logger, lines []string, label string) jobRunner {
	snapshot := append([]string(nil), lines...)
	return func(parent context.Context) (tea.Msg, error) {
		path, err := logger.Save(snapshot, label)
		return saveResultMsg{label: label, path: path, err: err}, err
	}
}
