package command

import (
	"github.com/urfave/cli/v2"
)

// CheckpointCommand writes a checkpoint of a version.
func CheckpointCommand() *cli.Command {
	return &cli.Command{
		Name:   "checkpoint",
		Usage:  "Write a checkpoint holding the reconciled state of a version",
		Flags:  []cli.Flag{versionFlag()},
		Action: checkpointAction,
	}
}

func checkpointAction(c *cli.Context) error {
	tbl, snap, err := openSnapshot(c, true)
	if err != nil {
		return err
	}
	if err := tbl.Checkpoint(c.Context, snap); err != nil {
		return err
	}
	files, err := snap.NumOfFiles(c.Context)
	if err != nil {
		return err
	}
	return render(c, map[string]any{
		"table":   tbl.Name(),
		"version": snap.Version(),
		"files":   files,
	}, nil)
}

// LogCommand groups log maintenance commands.
func LogCommand() *cli.Command {
	return &cli.Command{
		Name:  "log",
		Usage: "Transaction log maintenance",
		Subcommands: []*cli.Command{
			{
				Name:  "clean",
				Usage: "Delete log files no longer needed to rebuild the newest versions",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "retain",
						Usage: "number of newest versions that must stay reconstructible",
						Value: 10,
					},
				},
				Action: logCleanAction,
			},
		},
	}
}

type removedRow struct {
	Path string `json:"path" table:"REMOVED"`
}

func logCleanAction(c *cli.Context) error {
	tbl, err := openTable(c)
	if err != nil {
		return err
	}
	removed, err := tbl.Clean(c.Context, c.Int64("retain"))
	if err != nil {
		return err
	}
	rows := make([]removedRow, 0, len(removed))
	for _, p := range removed {
		rows = append(rows, removedRow{Path: p})
	}
	cliLogger(c).Info("log cleaned", "table", tbl.Name(), "removed", len(removed))
	return render(c, rows, nil)
}
