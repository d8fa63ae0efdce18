// Package prompt abstracts interactive input behind a capability so
// non-interactive runs can inject scripted answers.
package prompt

import (
	"fmt"
	"strings"

	"github.com/chzyer/readline"

	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

// Prompter asks the operator for input.
type Prompter interface {
	// Ask prompts for a free-form value.
	Ask(question string) (string, error)

	// Confirm prompts for a yes/no answer.
	Confirm(question string) (bool, error)
}

// Terminal prompts on the controlling terminal via readline.
type Terminal struct{}

// Ask reads one line of input.
func (Terminal) Ask(question string) (string, error) {
	rl, err := readline.New(question + " ")
	if err != nil {
		return "", dberrors.Wrap(dberrors.KindUnknown, err, "cannot open terminal for prompting")
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		return "", dberrors.Wrap(dberrors.KindUnknown, err, "prompt aborted")
	}
	return strings.TrimSpace(line), nil
}

// Confirm reads a y/n answer; anything but y/yes is false.
func (t Terminal) Confirm(question string) (bool, error) {
	answer, err := t.Ask(question + " [y/N]")
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}

// Scripted answers from a fixed queue and fails fast on an unexpected
// prompt. Used by tests and CI runs.
type Scripted struct {
	Answers []string
	next    int

	// Asked records every question, for assertions.
	Asked []string
}

// Ask pops the next scripted answer.
func (s *Scripted) Ask(question string) (string, error) {
	s.Asked = append(s.Asked, question)
	if s.next >= len(s.Answers) {
		return "", fmt.Errorf("unexpected prompt: %q", question)
	}
	answer := s.Answers[s.next]
	s.next++
	return answer, nil
}

// Confirm pops the next scripted answer as a yes/no.
func (s *Scripted) Confirm(question string) (bool, error) {
	answer, err := s.Ask(question)
	if err != nil {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
