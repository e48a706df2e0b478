package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rkowalczyk/chatpane/internal/config"
	"github.com/rkowalczyk/chatpane/internal/gemini"
	"github.com/rkowalczyk/chatpane/internal/session"
	"github.com/rkowalczyk/chatpane/internal/surface"
	"github.com/rkowalczyk/chatpane/internal/transcript"
	"github.com/rkowalczyk/chatpane/internal/tui"
)

func main() {
	configPath := flag.String("config", defaultConfigPath(), "path to the chatpane TOML configuration file")
	model := flag.String("model", "", "override the configured Gemini model")
	keySource := flag.String("key-source", "", "API key file or environment variable name")
	logDir := flag.String("log-dir", "", "override the transcript log directory")
	openPath := flag.String("open", "", "open a text file into the scratch buffer pane")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil && !os.IsNotExist(err) {
		fmt.Println("configuration error:", err)
		os.Exit(1)
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *keySource != "" {
		cfg.KeySource = *keySource
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir()
	}

	var client gemini.Client
	client, err = gemini.New(gemini.Config{KeySource: cfg.KeySource})
	if err != nil {
		fmt.Println("Gemini disabled:", err)
		client = nil
	}

	surfaces := surface.NewManager(cfg.Format())
	registry := session.NewRegistry(client, surfaces)
	logger := transcript.NewLogger(cfg.LogDir)

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Client:     client,
			Registry:   registry,
			Surfaces:   surfaces,
			Logger:     logger,
			Rules:      cfg.Rules(),
			Model:      cfg.Model,
			BufferPath: *openPath,
		}),
		opts...,
	)

	saver := transcript.NewAutoSaver(cfg.AutosaveInterval.Duration, func() {
		program.Send(tui.AutosaveMsg{})
	})
	if cfg.Autosave {
		saver.Start()
	}

	_, runErr := program.Run()
	saver.Stop()
	// One final sweep so nothing typed during the session is lost.
	transcript.SaveAll(logger, registry, surfaces)
	if runErr != nil {
		fmt.Println("program error:", runErr)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "chatpane", "config.toml")
	}
	return filepath.Join(".", "chatpane.toml")
}

func defaultLogDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "chatpane", "logs")
	}
	return filepath.Join(".", "chatpane-logs")
}
