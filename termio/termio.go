// Package termio drives a golang.org/x/term.Terminal through a fixed
// menu of REPL meta-commands — the `stats`, `reset`, `quit` entries the
// SSH-served alush prompt offers under `:menu` alongside ordinary
// script evaluation. Grounded in the teacher's
// termio/termio.go, which solves the identical "read a line, dispatch
// on an exact match from a small fixed set" problem for its own
// terminal-driven account flows; rewired here onto golang.org/x/term
// instead of the deprecated golang.org/x/crypto/ssh/terminal the
// teacher used, matching the package the teacher's own game.go
// actually calls for session terminals.
package termio

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/term"
)

// MetaCommand is one named action reachable from the REPL's meta-command
// menu (e.g. ":stats" printing a heap diagnostics table).
type MetaCommand func(*term.Terminal) error

// RunMenu prints the available meta-command names and loops reading
// lines from t until one matches a key in commands, then runs it and
// returns. Unrecognized lines are silently re-prompted, mirroring a
// shell's behavior on an empty or malformed sub-prompt.
func RunMenu(t *term.Terminal, commands map[string]MetaCommand) error {
	names := make(sort.StringSlice, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Sort(names)
	prompt := fmt.Sprintf("[%s]\n\n", strings.Join(names, " or "))
	for {
		fmt.Fprint(t, prompt)
		line, err := t.ReadLine()
		if err != nil {
			return err
		}
		if cmd, found := commands[line]; found {
			return cmd(t)
		}
	}
}

// Confirm prompts with one of options (case-insensitively matched) and
// returns the canonical option chosen — used by the `:menu` `reset`
// entry to confirm discarding the current heap.
func Confirm(t *term.Terminal, prompt string, options []string) (string, error) {
	for {
		fmt.Fprintf(t, "%s [%s]\n\n", prompt, strings.Join(options, "/"))
		line, err := t.ReadLine()
		if err != nil {
			return "", err
		}
		for _, option := range options {
			if strings.EqualFold(line, option) {
				return option, nil
			}
		}
	}
}
