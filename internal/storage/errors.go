package storage

import (
	"fmt"
	"strings"
)

// WriteError records one natural key that could not be written.
type WriteError struct {
	Table string
	Key   string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s key=%s: %v", e.Table, e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// FormatKey renders key values as "a/b/c" for reports.
func FormatKey(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "/")
}
