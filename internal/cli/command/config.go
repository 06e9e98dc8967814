package command

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/baumanab/delta/internal/cli/config"
)

// ConfigCommand manages the CLI config file.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the CLI configuration",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: configShowAction,
			},
			{
				Name:  "path",
				Usage: "Print the config file location",
				Action: func(c *cli.Context) error {
					_, err := fmt.Fprintln(c.App.Writer, c.String("config"))
					return err
				},
			},
			{
				Name:      "alias",
				Usage:     "Register a short name for a table root",
				ArgsUsage: "NAME ROOT",
				Action:    configAliasAction,
			},
			{
				Name:      "unalias",
				Usage:     "Remove a table alias",
				ArgsUsage: "NAME",
				Action:    configUnaliasAction,
			},
		},
	}
}

type aliasRow struct {
	Alias string `table:"ALIAS"`
	Root  string `table:"ROOT"`
}

func configShowAction(c *cli.Context) error {
	cfg := cliConfig(c)
	if formatName(c, cfg) != "table" {
		return render(c, cfg, nil)
	}
	settings := map[string]any{
		"server":                cfg.Server,
		"output":                cfg.Output,
		"replay.num_partitions": cfg.Replay.NumPartitions,
		"replay.file_retention": cfg.Replay.FileRetention.String(),
	}
	if err := render(c, settings, nil); err != nil {
		return err
	}
	if len(cfg.Tables) == 0 {
		return nil
	}
	fmt.Fprintln(c.App.Writer)
	return render(c, aliasRows(cfg), nil)
}

func aliasRows(cfg *config.CLIConfig) []aliasRow {
	names := make([]string, 0, len(cfg.Tables))
	for name := range cfg.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([]aliasRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, aliasRow{Alias: name, Root: cfg.Tables[name]})
	}
	return rows
}

func configAliasAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("alias: expected NAME ROOT")
	}
	name := c.Args().Get(0)
	root, err := filepath.Abs(c.Args().Get(1))
	if err != nil {
		return err
	}
	cfg := cliConfig(c)
	cfg.Tables[name] = root
	if err := config.Save(cfg, c.String("config")); err != nil {
		return err
	}
	cliLogger(c).Info("alias saved", "alias", name, "root", root)
	return render(c, aliasRows(cfg), nil)
}

func configUnaliasAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("unalias: expected NAME")
	}
	name := c.Args().First()
	cfg := cliConfig(c)
	if _, ok := cfg.Tables[name]; !ok {
		return fmt.Errorf("unalias: no alias %q", name)
	}
	delete(cfg.Tables, name)
	return config.Save(cfg, c.String("config"))
}
