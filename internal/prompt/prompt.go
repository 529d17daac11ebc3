// Package prompt collects interactive input behind an interface so
// commands can be driven by tests and non-interactive runs.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/calebmarsh/hostup/internal/errors"
)

// Prompter asks the user for values. Every method blocks until the user
// answers or cancels.
type Prompter interface {
	// Input asks for a single line. An empty answer falls back to def.
	Input(title, def string) (string, error)
	// Secret asks for a value without echoing it.
	Secret(title string) (string, error)
	// Confirm asks a yes/no question.
	Confirm(title string, def bool) (bool, error)
	// Select asks the user to pick one of options.
	Select(title string, options []string) (string, error)
}

// Interactive reports whether stdin is attached to a terminal.
func Interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Terminal is the huh-backed Prompter used in interactive sessions.
type Terminal struct{}

// NewTerminal creates a terminal prompter.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) Input(title, def string) (string, error) {
	value := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", cancelled(err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		value = def
	}
	return value, nil
}

func (t *Terminal) Secret(title string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				EchoMode(huh.EchoModePassword).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", cancelled(err)
	}
	return strings.TrimSpace(value), nil
}

func (t *Terminal) Confirm(title string, def bool) (bool, error) {
	value := def
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return false, cancelled(err)
	}
	return value, nil
}

func (t *Terminal) Select(title string, options []string) (string, error) {
	if len(options) == 0 {
		return "", errors.New(errors.ErrConfig, "Nothing to select from", "")
	}
	opts := make([]huh.Option[string], len(options))
	for i, o := range options {
		opts[i] = huh.NewOption(o, o)
	}
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(title).
				Options(opts...).
				Value(&value),
		),
	)
	if err := form.Run(); err != nil {
		return "", cancelled(err)
	}
	return value, nil
}

// NonInteractive answers prompts without a terminal: defaults are
// accepted and anything without a default is an error.
type NonInteractive struct{}

// NewNonInteractive creates a prompter for flag-driven runs.
func NewNonInteractive() *NonInteractive {
	return &NonInteractive{}
}

func (n *NonInteractive) Input(title, def string) (string, error) {
	if def != "" {
		return def, nil
	}
	return "", errors.New(errors.ErrConfig,
		"No value for "+strings.ToLower(title)+" in a non-interactive run",
		"Pass the value as a flag")
}

func (n *NonInteractive) Secret(title string) (string, error) {
	return "", errors.New(errors.ErrConfig,
		"Cannot prompt for "+strings.ToLower(title)+" in a non-interactive run",
		"Provide the value through the environment")
}

func (n *NonInteractive) Confirm(title string, def bool) (bool, error) {
	return def, nil
}

func (n *NonInteractive) Select(title string, options []string) (string, error) {
	if len(options) == 1 {
		return options[0], nil
	}
	return "", errors.New(errors.ErrConfig,
		"Cannot choose among "+fmt.Sprint(len(options))+" options in a non-interactive run",
		"Narrow the choice with a flag")
}

func cancelled(err error) error {
	return errors.WrapWithCode(err, errors.ErrConfig,
		fmt.Sprintf("Prompt cancelled: %v", err),
		"Re-run the command or pass the value as a flag")
}
