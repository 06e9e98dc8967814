// Package output renders CLI results as aligned tables, JSON or YAML, and
// draws a spinner on terminals while a replay runs.
//
// Struct fields drive table columns through the `table` tag:
//
//	Path string `table:"PATH"`
//	Size int64  `table:"SIZE,bytes"`   // rendered with go-humanize
//	Tags map[string]string `table:"TAGS,wide"` // only with --wide
//	Raw  string `table:"-"`
package output
