package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/baumanab/delta/internal/core/domain"
)

// ProtocolGate decides whether this reader can serve a table protocol.
type ProtocolGate interface {
	IsSupported(p domain.Protocol) bool
}

// Highest protocol versions this build reads.
const (
	MaxReaderVersion = 2
	MaxWriterVersion = 5
)

// VersionRangeGate accepts protocols up to the given versions.
type VersionRangeGate struct {
	MaxReaderVersion int
	MaxWriterVersion int
}

// DefaultGate accepts what this build supports.
func DefaultGate() VersionRangeGate {
	return VersionRangeGate{MaxReaderVersion: MaxReaderVersion, MaxWriterVersion: MaxWriterVersion}
}

// IsSupported implements ProtocolGate.
func (g VersionRangeGate) IsSupported(p domain.Protocol) bool {
	return p.MinReaderVersion <= g.MaxReaderVersion && p.MinWriterVersion <= g.MaxWriterVersion
}

func unsupported(g ProtocolGate, p domain.Protocol) error {
	err := &domain.UnsupportedProtocolError{Protocol: p}
	if vr, ok := g.(VersionRangeGate); ok {
		err.MaxReaderVersion, err.MaxWriterVersion = vr.MaxReaderVersion, vr.MaxWriterVersion
	}
	return err
}

// SchemaValidator inspects table metadata and returns advisory warnings.
// Warnings never block snapshot construction.
type SchemaValidator interface {
	Validate(ctx context.Context, md domain.Metadata) []string
}

// DeprecatedTypeValidator reports columns of types readers should avoid.
type DeprecatedTypeValidator struct{}

var deprecatedTypes = map[string]string{
	"void":             "void columns cannot hold data",
	"null":             "void columns cannot hold data",
	"interval":         "calendar intervals are not a storable type",
	"calendarinterval": "calendar intervals are not a storable type",
}

// schemaField mirrors one element of the JSON schema string.
type schemaField struct {
	Name string          `json:"name"`
	Type json.RawMessage `json:"type"`
}

type schemaType struct {
	Type        string          `json:"type"`
	Fields      []schemaField   `json:"fields"`
	ElementType json.RawMessage `json:"elementType"`
	KeyType     json.RawMessage `json:"keyType"`
	ValueType   json.RawMessage `json:"valueType"`
}

// Validate implements SchemaValidator.
func (DeprecatedTypeValidator) Validate(_ context.Context, md domain.Metadata) []string {
	if md.SchemaString == "" {
		return nil
	}
	var warnings []string
	if err := walkSchema("", json.RawMessage(md.SchemaString), &warnings); err != nil {
		warnings = append(warnings, fmt.Sprintf("schema is not parseable: %v", err))
	}
	return warnings
}

func walkSchema(column string, raw json.RawMessage, warnings *[]string) error {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		lower := strings.ToLower(name)
		if reason, ok := deprecatedTypes[lower]; ok {
			*warnings = append(*warnings, fmt.Sprintf("column %s: %s", column, reason))
		} else if strings.HasPrefix(lower, "char(") || strings.HasPrefix(lower, "varchar(") {
			*warnings = append(*warnings, fmt.Sprintf("column %s: %s is read as string", column, name))
		}
		return nil
	}

	var t schemaType
	if err := json.Unmarshal(raw, &t); err != nil {
		return err
	}
	switch t.Type {
	case "struct":
		for _, f := range t.Fields {
			if err := walkSchema(joinColumn(column, f.Name), f.Type, warnings); err != nil {
				return err
			}
		}
	case "array":
		return walkSchema(joinColumn(column, "element"), t.ElementType, warnings)
	case "map":
		if err := walkSchema(joinColumn(column, "key"), t.KeyType, warnings); err != nil {
			return err
		}
		return walkSchema(joinColumn(column, "value"), t.ValueType, warnings)
	}
	return nil
}

func joinColumn(parent, child string) string {
	if parent == "" {
		return child
	}
	return parent + "." + child
}
