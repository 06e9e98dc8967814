package command

import (
	"path/filepath"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/baumanab/delta/internal/cli/repl"
)

// ShellCommand runs deltasnap commands interactively with the global flags
// of the shell invocation applied to every line.
func ShellCommand() *cli.Command {
	return &cli.Command{
		Name:  "shell",
		Usage: "Run commands interactively",
		Action: func(c *cli.Context) error {
			prefix := inheritedFlags(c)
			r := repl.New(repl.Config{
				Input:       c.App.Reader,
				Output:      c.App.Writer,
				Prompt:      "deltasnap> ",
				Commands:    commandPaths(App().Commands, ""),
				HistoryFile: filepath.Join(filepath.Dir(c.String("config")), "history"),
				Exec: func(args []string) error {
					app := App()
					app.Writer = c.App.Writer
					app.ErrWriter = c.App.ErrWriter
					app.Reader = c.App.Reader
					return app.RunContext(c.Context, append(append([]string{app.Name}, prefix...), args...))
				},
			})
			return r.Run()
		},
	}
}

// inheritedFlags renders the global flags set on the shell invocation.
func inheritedFlags(c *cli.Context) []string {
	var args []string
	for _, name := range []string{"config", "table", "output", "checksum-dir"} {
		if v := c.String(name); v != "" {
			args = append(args, "--"+name, v)
		}
	}
	for _, name := range []string{"wide", "no-headers", "trust-checksums", "verbose"} {
		if c.Bool(name) {
			args = append(args, "--"+name)
		}
	}
	if n := c.Int("partitions"); n != 0 {
		args = append(args, "--partitions", strconv.Itoa(n))
	}
	for _, name := range []string{"file-retention", "txn-retention"} {
		if d := c.Duration(name); d != 0 {
			args = append(args, "--"+name, d.String())
		}
	}
	return args
}

func commandPaths(cmds []*cli.Command, parent string) []string {
	var out []string
	for _, cmd := range cmds {
		if cmd.Name == "shell" {
			continue
		}
		path := cmd.Name
		if parent != "" {
			path = parent + " " + cmd.Name
		}
		out = append(out, path)
		out = append(out, commandPaths(cmd.Subcommands, path)...)
	}
	return out
}
