// Package cli holds terminal helpers for the interactive commands.
package cli

import (
	"slices"
	"strings"

	"facette.io/natsort"
	"github.com/manifoldco/promptui"
)

// Quit is offered as the first choice of SelectInput.
const Quit = "[Quit]"

// Other is offered as the last choice of SelectInput, to type an input that
// is not listed.
const Other = "[Other]"

// Chooser picks one of several choices.
type Chooser interface {
	Choose(label string, choices []string) (string, error)
}

// Prompter is a Chooser that can also read free text and yes/no answers.
type Prompter interface {
	Chooser
	Ask(label string) (string, error)
	Confirm(label string) (bool, error)
}

// PromptChooser is a Chooser backed by an interactive promptui select.
type PromptChooser struct{}

var _ Prompter = PromptChooser{}

// Choose shows the choices, filtered by prefix as the user types.
func (PromptChooser) Choose(label string, choices []string) (string, error) {
	sel := &promptui.Select{
		Label: label,
		Items: choices,
		Searcher: func(input string, index int) bool {
			if input == "" {
				return false
			}

			return strings.HasPrefix(strings.ToLower(choices[index]), strings.ToLower(input))
		},
	}

	_, value, err := sel.Run()

	return value, err
}

// SortedChoices returns the distinct choices in natural order, so that
// "STEP2" comes before "STEP10".
func SortedChoices(choices ...string) []string {
	out := slices.Clone(choices)
	natsort.Sort(out)

	return slices.Compact(out)
}

// SelectInput asks p for one of choices, offered in natural order between
// Quit and Other. Picking Other reads the input as text. Picking Quit asks
// for confirmation, and declining offers the choices again. It reports false
// once the user quits.
func SelectInput(p Prompter, label string, choices ...string) (string, bool, error) {
	items := append([]string{Quit}, SortedChoices(choices...)...)
	items = append(items, Other)

	for {
		value, err := p.Choose(label, items)
		if err != nil {
			return "", false, err
		}

		switch value {
		case Quit:
			quit, err := p.Confirm("Quit")
			if err != nil {
				return "", false, err
			}

			if quit {
				return "", false, nil
			}
		case Other:
			text, err := p.Ask("Input")
			if err != nil {
				return "", false, err
			}

			return text, true, nil
		default:
			return value, true, nil
		}
	}
}

// MultiSelect asks repeatedly until the user picks done, and returns the
// selections in the order of choices.
func MultiSelect(chooser Chooser, label string, choices ...string) ([]string, error) {
	const done = "[Done]"

	if len(choices) == 0 {
		return nil, nil
	}

	remaining := SortedChoices(choices...)
	selected := make(map[string]bool, len(remaining))

	for len(remaining) > 0 {
		value, err := chooser.Choose(label, append([]string{done}, remaining...))
		if err != nil {
			return nil, err
		}

		if value == done {
			break
		}

		selected[value] = true
		remaining = slices.DeleteFunc(remaining, func(s string) bool { return s == value })
	}

	var out []string

	for _, c := range choices {
		if selected[c] {
			out = append(out, c)
			delete(selected, c)
		}
	}

	return out, nil
}
