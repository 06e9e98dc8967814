package repl

import (
	"slices"
	"strings"
)

// Completer suggests commands for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over commands, which may contain
// subcommand paths such as "log clean".
func NewCompleter(commands []string) *Completer {
	c := &Completer{commands: slices.Clone(commands)}
	slices.Sort(c.commands)
	c.commands = slices.Compact(c.commands)
	return c
}

// Complete returns the commands starting with prefix, sorted.
func (c *Completer) Complete(prefix string) []string {
	var suggestions []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			suggestions = append(suggestions, cmd)
		}
	}
	return suggestions
}
