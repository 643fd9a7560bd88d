// =============================================================================
// lineeditor.go - Console Line Input
// =============================================================================
//
// Reads console input with history and line editing when stdin is a
// terminal, and falls back to a plain scanner when it is a pipe or a dumb
// terminal, so the console can also be scripted:
//
//	printf '/join dallas\nhello\n/quit\n' | chatobserver
//
// History is stored in ~/.chatobserver_history. Only slash-commands that
// carry no message text are saved, so chat does not end up on disk.
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ergochat/readline"
	"golang.org/x/term"
)

const (
	// historyFileName is the history file in the user's home directory.
	historyFileName = ".chatobserver_history"

	// historySize is the number of entries kept.
	historySize = 500
)

// LineEditor reads one line of input at a time.
type LineEditor struct {
	interactive bool

	// rl is the readline instance; nil when not interactive.
	rl *readline.Instance

	// scanner reads stdin when not interactive.
	scanner *bufio.Scanner

	// prompts is where the non-interactive prompt is written.
	prompts io.Writer
}

// NewLineEditor creates a line editor on stdin. Readline is used only when
// stdin is a terminal that can handle it.
func NewLineEditor() *LineEditor {
	isInteractive := term.IsTerminal(int(os.Stdin.Fd())) && os.Getenv("TERM") != "dumb"

	if !isInteractive {
		return newScannerEditor()
	}

	rl, err := readline.NewFromConfig(&readline.Config{
		HistoryFile:            filepath.Join(homeDir(), historyFileName),
		HistoryLimit:           historySize,
		DisableAutoSaveHistory: true,
		Prompt:                 "",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: readline init failed (%v), using basic input\n", err)
		return newScannerEditor()
	}

	return &LineEditor{interactive: true, rl: rl}
}

func newScannerEditor() *LineEditor {
	return &LineEditor{
		scanner: bufio.NewScanner(os.Stdin),
		prompts: os.Stdout,
	}
}

// GetLine shows prompt and returns the next line without its newline.
// io.EOF is returned at end of input and when the user presses Ctrl-C or
// Ctrl-D at an interactive prompt.
func (le *LineEditor) GetLine(prompt string) (string, error) {
	if le.interactive {
		return le.getInteractiveLine(prompt)
	}
	return le.getNonInteractiveLine(prompt)
}

func (le *LineEditor) getInteractiveLine(prompt string) (string, error) {
	le.rl.SetPrompt(prompt)

	line, err := le.rl.Readline()
	if err != nil {
		if errors.Is(err, readline.ErrInterrupt) {
			return "", io.EOF
		}
		return "", err
	}

	if shouldSaveHistory(line) {
		le.rl.SaveToHistory(strings.TrimSpace(line))
	}
	return line, nil
}

func (le *LineEditor) getNonInteractiveLine(prompt string) (string, error) {
	if le.prompts != nil {
		fmt.Fprint(le.prompts, prompt)
	}

	if !le.scanner.Scan() {
		if err := le.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return le.scanner.Text(), nil
}

// shouldSaveHistory reports whether line goes into the history file.
func shouldSaveHistory(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "/") || len(trimmed) == 1 {
		return false
	}
	keyword, _, _ := strings.Cut(strings.ToLower(trimmed), " ")
	switch keyword {
	case "/w", "/whisper", "/me":
		return false
	}
	return true
}

// Close releases the terminal.
func (le *LineEditor) Close() {
	if le.rl != nil {
		le.rl.Close()
		le.rl = nil
	}
}

// IsInteractive reports whether readline is in use.
func (le *LineEditor) IsInteractive() bool {
	return le.interactive
}

// homeDir returns the user's home directory, or "." if it is unknown.
func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}
