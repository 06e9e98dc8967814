package command

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/baumanab/delta/internal/cli/output"
	"github.com/baumanab/delta/internal/core/domain"
	"github.com/baumanab/delta/internal/core/replay"
	"github.com/baumanab/delta/internal/core/snapshot"
	"github.com/baumanab/delta/internal/storage"
	"github.com/baumanab/delta/internal/storage/crcstore"
)

var errNoTable = errors.New("no table given: use --table ROOT or an alias from the config file")

// openTable builds a storage.Table for --table using the replay settings
// from flags over the config file.
func openTable(c *cli.Context) (*storage.Table, error) {
	cfg := cliConfig(c)
	arg := c.String("table")
	if arg == "" {
		return nil, errNoTable
	}
	root := cfg.ResolveTable(arg)
	log := cliLogger(c)

	dir := c.String("checksum-dir")
	if dir == "" {
		dir = filepath.Join(root, domain.LogDirName)
	}
	files, err := crcstore.New(dir, log)
	if err != nil {
		return nil, err
	}

	rcfg := replayConfig(c, time.Now())
	return storage.OpenTable(storage.TableConfig{
		Name:           tableName(arg, root),
		Root:           root,
		Snapshot:       snapshot.Config{Replay: rcfg, Logger: log},
		Checksums:      storage.NewFileChecksumStore(files),
		TrustChecksums: c.Bool("trust-checksums"),
		Logger:         log,
	})
}

func tableName(arg, root string) string {
	if arg != root {
		return arg
	}
	return filepath.Base(filepath.Clean(root))
}

func replayConfig(c *cli.Context, now time.Time) replay.Config {
	cfg := cliConfig(c)
	fileRet := c.Duration("file-retention")
	if fileRet == 0 {
		fileRet = cfg.Replay.FileRetention
	}
	rcfg := replay.ConfigFromRetention(now, fileRet, c.Duration("txn-retention"))
	rcfg.NumPartitions = c.Int("partitions")
	if rcfg.NumPartitions == 0 {
		rcfg.NumPartitions = cfg.Replay.NumPartitions
	}
	rcfg.Histogram = true
	return rcfg
}

func versionFlag() cli.Flag {
	return &cli.Int64Flag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "table version (negative for latest)",
		Value:   -1,
	}
}

// openSnapshot opens the requested version and forces the replay behind a
// spinner when stderr is a terminal.
func openSnapshot(c *cli.Context, replayNow bool) (*storage.Table, *snapshot.Snapshot, error) {
	tbl, err := openTable(c)
	if err != nil {
		return nil, nil, err
	}
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := tbl.Open(ctx, c.Int64("version"))
	if err != nil {
		return nil, nil, err
	}
	if !replayNow || snap.Kind() == snapshot.Empty {
		return tbl, snap, nil
	}

	spin := output.NewTerminalSpinner(stderrFile(c), fmt.Sprintf("replaying %s at version %d", tbl.Name(), snap.Version()))
	spin.Start()
	start := time.Now()
	if _, err := snap.State(ctx); err != nil {
		spin.Fail("replay failed")
		return nil, nil, err
	}
	spin.Success(fmt.Sprintf("replayed version %d in %s", snap.Version(), time.Since(start).Round(time.Millisecond)))
	return tbl, snap, nil
}

type snapshotView struct {
	Table            string `table:"TABLE"`
	Version          int64  `table:"VERSION"`
	Kind             string `table:"KIND"`
	MinReaderVersion int    `table:"MIN_READER"`
	MinWriterVersion int    `table:"MIN_WRITER"`
	MetadataID       string `table:"METADATA_ID"`
	Format           string `table:"FORMAT"`
	PartitionColumns string `table:"PARTITION_COLUMNS"`
	Size             int64  `table:"SIZE,bytes"`
	NumFiles         int64  `table:"FILES"`
	NumRemoves       int64  `table:"TOMBSTONES"`
	NumMetadata      int64  `table:"METADATA_ACTIONS,wide"`
	NumProtocol      int64  `table:"PROTOCOL_ACTIONS,wide"`
	NumTransactions  int64  `table:"TRANSACTIONS"`
	Checkpoint       int64  `table:"CHECKPOINT,wide"`
	Deltas           int    `table:"DELTAS,wide"`
}

type snapshotDoc struct {
	Table      string                    `json:"table"`
	Version    int64                     `json:"version"`
	Kind       string                    `json:"kind"`
	Protocol   domain.Protocol           `json:"protocol"`
	Metadata   domain.Metadata           `json:"metadata"`
	Summary    summaryDoc                `json:"summary"`
	Histogram  *domain.FileSizeHistogram `json:"histogram,omitempty"`
	Checkpoint int64                     `json:"checkpoint"`
	Deltas     int                       `json:"deltas"`
}

type summaryDoc struct {
	SizeInBytes        int64 `json:"sizeInBytes"`
	NumFiles           int64 `json:"numFiles"`
	NumRemoves         int64 `json:"numRemoves"`
	NumMetadata        int64 `json:"numMetadata"`
	NumProtocol        int64 `json:"numProtocol"`
	NumSetTransactions int64 `json:"numSetTransactions"`
}

// SnapshotCommand prints the summary of one version.
func SnapshotCommand() *cli.Command {
	return &cli.Command{
		Name:   "snapshot",
		Usage:  "Show the protocol, metadata and counters of a table version",
		Flags:  []cli.Flag{versionFlag()},
		Action: snapshotAction,
	}
}

func snapshotAction(c *cli.Context) error {
	tbl, snap, err := openSnapshot(c, !c.Bool("trust-checksums"))
	if err != nil {
		return err
	}
	ctx := c.Context
	proto, err := snap.Protocol(ctx)
	if err != nil {
		return err
	}
	md, err := snap.Metadata(ctx)
	if err != nil {
		return err
	}
	sum, err := snap.Summary(ctx)
	if err != nil {
		return err
	}

	doc := snapshotDoc{
		Table:    tbl.Name(),
		Version:  snap.Version(),
		Kind:     snap.Kind().String(),
		Protocol: proto,
		Metadata: md,
		Summary: summaryDoc{
			SizeInBytes:        sum.SizeInBytes,
			NumFiles:           sum.NumOfFiles,
			NumRemoves:         sum.NumOfRemoves,
			NumMetadata:        sum.NumOfMetadata,
			NumProtocol:        sum.NumOfProtocol,
			NumSetTransactions: sum.NumOfSetTransactions,
		},
		Histogram:  sum.Histogram,
		Checkpoint: -1,
	}
	if seg := snap.Segment(); seg != nil {
		doc.Checkpoint = seg.CheckpointVersion()
		doc.Deltas = len(seg.Deltas)
	}

	view := &snapshotView{
		Table:            doc.Table,
		Version:          doc.Version,
		Kind:             doc.Kind,
		MinReaderVersion: proto.MinReaderVersion,
		MinWriterVersion: proto.MinWriterVersion,
		MetadataID:       md.ID,
		Format:           md.Format.Provider,
		PartitionColumns: strings.Join(md.PartitionColumns, ","),
		Size:             sum.SizeInBytes,
		NumFiles:         sum.NumOfFiles,
		NumRemoves:       sum.NumOfRemoves,
		NumMetadata:      sum.NumOfMetadata,
		NumProtocol:      sum.NumOfProtocol,
		NumTransactions:  sum.NumOfSetTransactions,
		Checkpoint:       doc.Checkpoint,
		Deltas:           doc.Deltas,
	}
	return render(c, doc, view)
}

type fileRow struct {
	Path             string            `table:"PATH"`
	Size             int64             `table:"SIZE,bytes"`
	ModificationTime time.Time         `table:"MODIFIED"`
	DataChange       bool              `table:"DATA_CHANGE,wide"`
	PartitionValues  map[string]string `table:"PARTITION_VALUES"`
	Stats            string            `table:"STATS,wide"`
}

// FilesCommand lists live files.
func FilesCommand() *cli.Command {
	return &cli.Command{
		Name:   "files",
		Usage:  "List the live data files of a table version",
		Flags:  []cli.Flag{versionFlag()},
		Action: filesAction,
	}
}

func filesAction(c *cli.Context) error {
	_, snap, err := openSnapshot(c, true)
	if err != nil {
		return err
	}
	seq, err := snap.AllFiles(c.Context)
	if err != nil {
		return err
	}
	files := []domain.AddFile{}
	rows := []fileRow{}
	for f := range seq {
		files = append(files, f)
		rows = append(rows, fileRow{
			Path:             f.Path,
			Size:             f.Size,
			ModificationTime: millis(f.ModificationTime),
			DataChange:       f.DataChange,
			PartitionValues:  f.PartitionValues,
			Stats:            f.Stats,
		})
	}
	return render(c, files, rows)
}

type tombstoneRow struct {
	Path              string    `table:"PATH"`
	DeletionTimestamp time.Time `table:"DELETED"`
	Size              *int64    `table:"SIZE,bytes"`
	DataChange        bool      `table:"DATA_CHANGE,wide"`
	Extended          bool      `table:"EXTENDED,wide"`
}

// TombstonesCommand lists unexpired removes.
func TombstonesCommand() *cli.Command {
	return &cli.Command{
		Name:   "tombstones",
		Usage:  "List the unexpired tombstones of a table version",
		Flags:  []cli.Flag{versionFlag()},
		Action: tombstonesAction,
	}
}

func tombstonesAction(c *cli.Context) error {
	_, snap, err := openSnapshot(c, true)
	if err != nil {
		return err
	}
	seq, err := snap.Tombstones(c.Context)
	if err != nil {
		return err
	}
	removes := []domain.RemoveFile{}
	rows := []tombstoneRow{}
	for r := range seq {
		removes = append(removes, r)
		rows = append(rows, tombstoneRow{
			Path:              r.Path,
			DeletionTimestamp: millis(r.DeletionTimestamp),
			Size:              r.Size,
			DataChange:        r.DataChange,
			Extended:          r.ExtendedFileMetadata,
		})
	}
	return render(c, removes, rows)
}

type txnRow struct {
	AppID       string    `table:"APP_ID"`
	Version     int64     `table:"VERSION"`
	LastUpdated time.Time `table:"LAST_UPDATED"`
}

// TxnsCommand lists surviving application transactions.
func TxnsCommand() *cli.Command {
	return &cli.Command{
		Name:    "txns",
		Aliases: []string{"transactions"},
		Usage:   "List the application transaction versions of a table version",
		Flags:   []cli.Flag{versionFlag()},
		Action:  txnsAction,
	}
}

func txnsAction(c *cli.Context) error {
	_, snap, err := openSnapshot(c, true)
	if err != nil {
		return err
	}
	txns, err := snap.SetTransactions(c.Context)
	if err != nil {
		return err
	}
	if txns == nil {
		txns = []domain.SetTransaction{}
	}
	rows := make([]txnRow, 0, len(txns))
	for _, t := range txns {
		row := txnRow{AppID: t.AppID, Version: t.Version}
		if t.LastUpdated != nil {
			row.LastUpdated = millis(*t.LastUpdated)
		}
		rows = append(rows, row)
	}
	return render(c, txns, rows)
}

// PropertiesCommand prints the table configuration.
func PropertiesCommand() *cli.Command {
	return &cli.Command{
		Name:    "properties",
		Aliases: []string{"props"},
		Usage:   "Show the table properties, including the protocol versions",
		Flags:   []cli.Flag{versionFlag()},
		Action:  propertiesAction,
	}
}

func propertiesAction(c *cli.Context) error {
	_, snap, err := openSnapshot(c, false)
	if err != nil {
		return err
	}
	props, err := snap.Properties(c.Context)
	if err != nil {
		return err
	}
	return render(c, props, nil)
}
