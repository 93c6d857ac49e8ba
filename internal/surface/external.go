package surface

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"mledit/internal/content"
	"mledit/internal/session"
)

// ErrNoEditor is returned when no editor command is configured.
var ErrNoEditor = errors.New("surface: no editor configured")

// EditorCommand returns the user's editor from $VISUAL or $EDITOR, falling
// back to vi.
func EditorCommand() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return "vi"
}

// External edits text in an external editor process.
type External struct {
	// Command is the editor command line. The file path is appended.
	Command string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewExternal returns an external editor attached to the process terminal.
func NewExternal(command string) *External {
	return &External{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// Edit writes text to a temporary file, runs the editor on it and returns
// the file contents afterwards. A single trailing newline added by the
// editor is removed when text had none.
func (e *External) Edit(ctx context.Context, text string, kind content.Kind) (string, error) {
	args := strings.Fields(e.Command)
	if len(args) == 0 {
		return "", ErrNoEditor
	}

	ext := ".txt"
	if kind.Structured() {
		ext = ".json"
	}
	f, err := os.CreateTemp("", "mledit-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, args[0], append(args[1:], path)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = e.Stdin, e.Stdout, e.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("run editor %s: %w", args[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read temp file: %w", err)
	}
	edited := string(data)
	if !strings.HasSuffix(text, "\n") {
		edited = strings.TrimSuffix(edited, "\n")
	}
	return edited, nil
}

// EditSession runs the open session's text through the editor and saves the
// result. Read-only sessions are rejected before the editor starts.
func (e *External) EditSession(ctx context.Context, s *session.Session) (session.Result, error) {
	v := s.View()
	if !v.Visible {
		return session.Result{}, nil
	}
	if v.ReadOnly {
		return session.Result{}, session.ErrReadOnly
	}

	edited, err := e.Edit(ctx, v.Text, v.Kind)
	if err != nil {
		s.Cancel()
		return session.Result{}, err
	}
	if err := s.SetText(edited); err != nil {
		return session.Result{}, err
	}
	return s.Save()
}
