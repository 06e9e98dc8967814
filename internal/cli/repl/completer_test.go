package repl

import (
	"reflect"
	"testing"
)

func TestCompleter_Complete(t *testing.T) {
	c := NewCompleter([]string{"snapshot", "log clean", "log", "files", "snapshot"})

	tests := []struct {
		prefix string
		want   []string
	}{
		{"log", []string{"log", "log clean"}},
		{"log c", []string{"log clean"}},
		{"s", []string{"snapshot"}},
		{"", []string{"files", "log", "log clean", "snapshot"}},
		{"remote", nil},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			if got := c.Complete(tt.prefix); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Complete(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}
