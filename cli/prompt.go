package cli

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

var errEmptyInput = errors.New("you must enter something")

// Ask reads a non-empty line from the terminal, without surrounding spaces.
func (PromptChooser) Ask(label string) (string, error) {
	text, err := PromptString(label)

	return strings.TrimSpace(text), err
}

// Confirm asks a yes/no question on the terminal.
func (PromptChooser) Confirm(label string) (bool, error) {
	return PromptConfirm(label)
}

// PromptConfirm asks a yes/no question. A "no" is not an error.
func PromptConfirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
	}

	_, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// PromptString asks for a non-empty string.
func PromptString(label string) (string, error) {
	return promptString(label, os.Stdin, os.Stdout)
}

func promptString(label string, in io.ReadCloser, out io.WriteCloser) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Validate: nonEmpty,
		Stdin:    in,
		Stdout:   out,
	}

	return prompt.Run()
}

func nonEmpty(s string) error {
	if strings.TrimSpace(s) == "" {
		return errEmptyInput
	}

	return nil
}

// IsInterrupt reports whether err is the user pressing ^C or ^D at a prompt.
func IsInterrupt(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF)
}
