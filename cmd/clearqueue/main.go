// Command clearqueue is the terminal dashboard for the triage engine. It
// wires the engine to the bundled TUI and runs until the user quits.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clearqueue/clearqueue"
	"github.com/clearqueue/clearqueue/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "clearqueue:", err)
		os.Exit(1)
	}
}

func run() error {
	// Log to a file so structured output doesn't fight the TUI renderer
	// for the terminal.
	logTarget := os.Getenv("CLEARQUEUE_LOG_FILE")
	logOut := os.Stderr
	if logTarget != "" {
		f, err := os.OpenFile(logTarget, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		logOut = f
	}
	level := slog.LevelWarn
	if os.Getenv("CLEARQUEUE_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: level}))

	// The engine signals state changes into this channel; the TUI listens
	// and re-reads snapshots. Buffered with drop-on-full: a pending signal
	// already forces a redraw, so coalescing is fine.
	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	eng, err := clearqueue.New(
		clearqueue.WithLogger(logger),
		clearqueue.WithOnChange(notify),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := eng.Mount(ctx); err != nil {
		// Surface-error policy: start anyway and show the error in the
		// status bar; the poll timer keeps retrying.
		logger.Warn("initial fetch failed", "error", err)
	}
	defer eng.Unmount()

	program := tea.NewProgram(tui.New(eng, changed), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
