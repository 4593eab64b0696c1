// Package prompt implements the interactive yes/no confirmation gate.
// The gate is an interface so the reconciler can be driven by scripted
// answers in tests and by preset answers in batch use.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Answer is a pre-seeded confirmation answer
type Answer int

const (
	// AnswerNone means ask the operator interactively
	AnswerNone Answer = iota
	// AnswerYes accepts every confirmation without asking
	AnswerYes
	// AnswerNo declines every confirmation without asking
	AnswerNo
)

// Prompter asks the operator to confirm an action
type Prompter interface {
	// Confirm presents question and blocks until the operator answers.
	// Returns true on an affirmative answer.
	Confirm(question string) (bool, error)
}

var promptColor = color.New(color.FgYellow, color.Bold)

// TerminalPrompter reads answers from a terminal. When Preset is yes or
// no it answers immediately without reading input.
type TerminalPrompter struct {
	In     io.Reader
	Out    io.Writer
	Preset Answer
}

// Confirm asks question and reads y/yes/n/no, case-insensitively,
// re-prompting on anything else. There is no timeout: the prompt blocks
// until an answer arrives or input is closed.
func (p *TerminalPrompter) Confirm(question string) (bool, error) {
	switch p.Preset {
	case AnswerYes:
		return true, nil
	case AnswerNo:
		return false, nil
	}

	scanner := bufio.NewScanner(p.In)
	for {
		fmt.Fprintf(p.Out, "%s %s ", question, promptColor.Sprint("(y/n):"))

		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return false, fmt.Errorf("read answer: %w", err)
			}
			return false, fmt.Errorf("no answer: input closed")
		}

		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		// Anything else: ask again
	}
}
