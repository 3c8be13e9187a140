package ui

import (
	"errors"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a prompt needs a terminal and has none.
var ErrNotInteractive = errors.New("not running in a terminal")

// Prompter asks the user questions on the terminal.
type Prompter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewPrompter creates a prompter on stdin/stdout. It fails when stdin is not
// a terminal.
func NewPrompter() (*Prompter, error) {
	if !IsInteractive(os.Stdin) {
		return nil, ErrNotInteractive
	}
	return &Prompter{stdin: os.Stdin, stdout: os.Stdout}, nil
}

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// AskConfirm prompts for yes/no confirmation
func (p *Prompter) AskConfirm(label string, defaultYes bool) (bool, error) {
	def := "n"
	if defaultYes {
		def = "y"
	}
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Default:   def,
		Stdin:     p.stdin,
		Stdout:    p.stdout,
	}

	_, err := prompt.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort):
		return false, nil
	default:
		return false, err
	}
}
