package command

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/baumanab/delta/internal/cli/config"
	"github.com/baumanab/delta/internal/cli/output"
	"github.com/baumanab/delta/internal/infra/buildinfo"
	"github.com/baumanab/delta/internal/telemetry/logger"
)

const (
	metaConfig = "config"
	metaLogger = "logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "deltasnap",
		Usage:   "Reconstruct and inspect table snapshots from their transaction log",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			SnapshotCommand(),
			FilesCommand(),
			TombstonesCommand(),
			TxnsCommand(),
			PropertiesCommand(),
			ChecksumCommand(),
			VerifyCommand(),
			CheckpointCommand(),
			LogCommand(),
			RemoteCommand(),
			ConfigCommand(),
			ShellCommand(),
			VersionCommand(),
		},
		Before: before,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Usage:   "CLI config file",
			EnvVars: []string{"DELTASNAP_CLI_CONFIG"},
			Value:   config.DefaultConfigPath(),
		},
		&cli.StringFlag{
			Name:    "table",
			Aliases: []string{"t"},
			Usage:   "table root directory or alias from the config file",
			EnvVars: []string{"DELTASNAP_TABLE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show all columns",
		},
		&cli.BoolFlag{
			Name:  "no-headers",
			Usage: "omit the table header row",
		},
		&cli.IntFlag{
			Name:  "partitions",
			Usage: "replay partitions (0 uses the config file)",
		},
		&cli.DurationFlag{
			Name:  "file-retention",
			Usage: "drop tombstones older than this (0 uses the config file)",
		},
		&cli.DurationFlag{
			Name:  "txn-retention",
			Usage: "drop transactions not updated within this window (0 keeps all)",
		},
		&cli.StringFlag{
			Name:  "checksum-dir",
			Usage: "directory holding .crc files (default: the table's log directory)",
		},
		&cli.BoolFlag{
			Name:  "trust-checksums",
			Usage: "answer summaries from a stored checksum without replaying",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "log replay progress to stderr",
		},
	}
}

func before(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if _, err := output.ParseFormat(formatName(c, cfg)); err != nil {
		return err
	}

	level := "warn"
	if c.Bool("verbose") {
		level = "debug"
	}
	l, err := logger.New(logger.Config{Level: level, Format: "text", Output: c.App.ErrWriter})
	if err != nil {
		return err
	}

	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata[metaConfig] = cfg
	c.App.Metadata[metaLogger] = l
	return nil
}

func formatName(c *cli.Context, cfg *config.CLIConfig) string {
	if f := c.String("output"); f != "" {
		return f
	}
	return cfg.Output
}

func cliConfig(c *cli.Context) *config.CLIConfig {
	if cfg, ok := c.App.Metadata[metaConfig].(*config.CLIConfig); ok {
		return cfg
	}
	return config.Default()
}

func cliLogger(c *cli.Context) *slog.Logger {
	if l, ok := c.App.Metadata[metaLogger].(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// render writes data in the selected output format. tableView, when not
// nil, replaces data for the table format.
func render(c *cli.Context, data, tableView any) error {
	format, err := output.ParseFormat(formatName(c, cliConfig(c)))
	if err != nil {
		return err
	}
	if format == output.FormatTable && tableView != nil {
		data = tableView
	}
	var f output.Formatter = output.NewFormatter(format, c.Bool("wide"))
	if tf, ok := f.(*output.TableFormatter); ok {
		tf.NoHeaders = c.Bool("no-headers")
	}
	return f.Format(c.App.Writer, data)
}

func millis(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// stderrFile returns the error writer when it is a file, for terminal
// detection.
func stderrFile(c *cli.Context) *os.File {
	f, _ := c.App.ErrWriter.(*os.File)
	return f
}
