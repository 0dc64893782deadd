package tui

import (
	"fmt"
	"io"
	"log"

	"crawlchat/internal/api"
	"crawlchat/internal/config"
	"crawlchat/internal/logging"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the interactive chat (inline, output scrolls with the
// terminal).
func Run(version string, cfg *config.Config) error {
	restore, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer restore()

	var client api.ChatAPI
	if err := cfg.Validate(); err != nil {
		logging.Warn("chat disabled: %v", err)
	} else {
		client = api.NewClient(cfg)
	}

	p := tea.NewProgram(newModel(version, cfg, client))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// setupLogging points the default logger at cfg.LogFile, since stdout
// belongs to the program. Without a log file, logs are dropped.
func setupLogging(cfg *config.Config) (func(), error) {
	level := logging.ParseLevel(cfg.LogLevel)

	var l *logging.Logger
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "crawlchat")
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		l = logging.Wrap(log.Default(), f, level)
	} else {
		l = logging.New(io.Discard, level)
	}

	prev := logging.SetDefault(l)
	return func() {
		logging.SetDefault(prev)
		_ = l.Close()
	}, nil
}
