package domain

import (
	"fmt"
	"maps"
)

// ActionKind names the populated arm of an Action.
type ActionKind uint8

// Action kinds. The numeric values are persisted by the log file codec.
const (
	KindUnknown ActionKind = iota
	KindAdd
	KindRemove
	KindProtocol
	KindMetadata
	KindTxn
)

// String returns the lowercase action name used in errors and logs.
func (k ActionKind) String() string {
	switch k {
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	case KindProtocol:
		return "protocol"
	case KindMetadata:
		return "metadata"
	case KindTxn:
		return "txn"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AddFile marks a data file as live.
type AddFile struct {
	Path             string            `json:"path"`
	PartitionValues  map[string]string `json:"partitionValues,omitempty"`
	Size             int64             `json:"size"`
	ModificationTime int64             `json:"modificationTime"`
	DataChange       bool              `json:"dataChange"`
	Stats            string            `json:"stats,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// Remove converts the add into a tombstone deleted at ts (epoch millis).
func (a *AddFile) Remove(ts int64, dataChange bool) *RemoveFile {
	size := a.Size
	return &RemoveFile{
		Path:                 a.Path,
		DeletionTimestamp:    ts,
		DataChange:           dataChange,
		ExtendedFileMetadata: true,
		PartitionValues:      maps.Clone(a.PartitionValues),
		Size:                 &size,
		Tags:                 maps.Clone(a.Tags),
	}
}

// RemoveFile is a tombstone for a previously added file.
type RemoveFile struct {
	Path                 string            `json:"path"`
	DeletionTimestamp    int64             `json:"deletionTimestamp"`
	DataChange           bool              `json:"dataChange"`
	ExtendedFileMetadata bool              `json:"extendedFileMetadata,omitempty"`
	PartitionValues      map[string]string `json:"partitionValues,omitempty"`
	Size                 *int64            `json:"size,omitempty"`
	Tags                 map[string]string `json:"tags,omitempty"`
}

// Protocol declares the minimum reader and writer versions a client needs.
type Protocol struct {
	MinReaderVersion int `json:"minReaderVersion"`
	MinWriterVersion int `json:"minWriterVersion"`
}

// Versions a table is created with when nothing else is requested.
const (
	DefaultMinReaderVersion = 1
	DefaultMinWriterVersion = 2
)

// DefaultProtocol is the minimum protocol for a new table.
func DefaultProtocol() Protocol {
	return Protocol{
		MinReaderVersion: DefaultMinReaderVersion,
		MinWriterVersion: DefaultMinWriterVersion,
	}
}

// Format describes the data file encoding.
type Format struct {
	Provider string            `json:"provider"`
	Options  map[string]string `json:"options,omitempty"`
}

// Metadata carries the table schema and configuration.
type Metadata struct {
	ID               string            `json:"id"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	Format           Format            `json:"format"`
	SchemaString     string            `json:"schemaString,omitempty"`
	PartitionColumns []string          `json:"partitionColumns,omitempty"`
	Configuration    map[string]string `json:"configuration,omitempty"`
	CreatedTime      *int64            `json:"createdTime,omitempty"`
}

// SetTransaction records the last version committed by an application.
type SetTransaction struct {
	AppID       string `json:"appId"`
	Version     int64  `json:"version"`
	LastUpdated *int64 `json:"lastUpdated,omitempty"`
}

// Action is one log record. Exactly one field is set in a valid action.
// The JSON form wraps the payload in its kind name, e.g. {"add":{...}}.
type Action struct {
	Add      *AddFile        `json:"add,omitempty"`
	Remove   *RemoveFile     `json:"remove,omitempty"`
	Protocol *Protocol       `json:"protocol,omitempty"`
	Metadata *Metadata       `json:"metaData,omitempty"`
	Txn      *SetTransaction `json:"txn,omitempty"`
}

// Kind returns the populated arm, or KindUnknown when zero or several are set.
func (a Action) Kind() ActionKind {
	kind, n := KindUnknown, 0
	if a.Add != nil {
		kind, n = KindAdd, n+1
	}
	if a.Remove != nil {
		kind, n = KindRemove, n+1
	}
	if a.Protocol != nil {
		kind, n = KindProtocol, n+1
	}
	if a.Metadata != nil {
		kind, n = KindMetadata, n+1
	}
	if a.Txn != nil {
		kind, n = KindTxn, n+1
	}
	if n != 1 {
		return KindUnknown
	}
	return kind
}

// Path returns the file path of an add or remove, or "" for path-less kinds.
func (a Action) Path() string {
	switch {
	case a.Add != nil:
		return a.Add.Path
	case a.Remove != nil:
		return a.Remove.Path
	}
	return ""
}

// Validate checks the single-arm invariant and the fields each kind requires.
func (a Action) Validate() error {
	switch a.Kind() {
	case KindAdd:
		if a.Add.Path == "" {
			return ErrMalformedLogRecord.WithDetails("add without path")
		}
		if a.Add.Size < 0 {
			return ErrMalformedLogRecord.WithDetails("add with negative size")
		}
	case KindRemove:
		if a.Remove.Path == "" {
			return ErrMalformedLogRecord.WithDetails("remove without path")
		}
	case KindProtocol:
		if a.Protocol.MinReaderVersion < 1 || a.Protocol.MinWriterVersion < 1 {
			return ErrMalformedLogRecord.WithDetails("protocol versions must be positive")
		}
	case KindMetadata:
		if a.Metadata.ID == "" {
			return ErrMalformedLogRecord.WithDetails("metadata without id")
		}
	case KindTxn:
		if a.Txn.AppID == "" {
			return ErrMalformedLogRecord.WithDetails("txn without appId")
		}
	default:
		return ErrMalformedLogRecord.WithDetails("record must carry exactly one action")
	}
	return nil
}

// WithPath returns a copy of a path-keyed action with its path replaced.
// Other kinds are returned unchanged.
func (a Action) WithPath(path string) Action {
	switch {
	case a.Add != nil:
		add := *a.Add
		add.Path = path
		return Action{Add: &add}
	case a.Remove != nil:
		rm := *a.Remove
		rm.Path = path
		return Action{Remove: &rm}
	}
	return a
}
