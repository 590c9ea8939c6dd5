// Package sqlgen renders merged records as batched, idempotent upsert
// statements. Each statement is complete on its own and safe to re-run: the
// conflict target makes a replay overwrite (or skip) instead of duplicating.
package sqlgen

import (
	"fmt"
	"strings"
)

// Row is one tuple, in TableDescriptor.Columns order. Values may be nil, any
// integer or float, string, bool, time.Time (rendered as a date) or Raw.
type Row []any

// Raw is a pre-rendered SQL expression emitted verbatim, e.g. a sub-select.
type Raw string

// TableDescriptor is everything needed to render an upsert for one table.
type TableDescriptor struct {
	// Table is the fully-qualified name, e.g. "public.dim_tempo".
	Table   string
	Columns []string
	// ConflictColumns form the natural key the store enforces.
	ConflictColumns []string
	// UpdateColumns are overwritten on conflict. Empty means do nothing.
	UpdateColumns []string
	// UpdateExpr overrides the assignment of a column. {new} is the incoming
	// value and {old} the stored one, e.g. "COALESCE({new}, {old})".
	UpdateExpr map[string]string
	// BatchSize is the default number of tuples per statement.
	BatchSize int
}

// Validate checks that every key and update column is a declared column.
func (t TableDescriptor) Validate() error {
	if strings.TrimSpace(t.Table) == "" {
		return fmt.Errorf("sqlgen: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("sqlgen: %s: no columns", t.Table)
	}
	if len(t.ConflictColumns) == 0 {
		return fmt.Errorf("sqlgen: %s: no conflict columns", t.Table)
	}
	known := make(map[string]bool, len(t.Columns))
	for _, c := range t.Columns {
		known[c] = true
	}
	for _, group := range [][]string{t.ConflictColumns, t.UpdateColumns} {
		for _, c := range group {
			if !known[c] {
				return fmt.Errorf("sqlgen: %s: unknown column %s", t.Table, c)
			}
		}
	}
	for c := range t.UpdateExpr {
		if !known[c] {
			return fmt.Errorf("sqlgen: %s: update expression for unknown column %s", t.Table, c)
		}
	}
	return nil
}

// KeyOf returns the conflict-column values of row, for error reports.
func (t TableDescriptor) KeyOf(row Row) []any {
	out := make([]any, 0, len(t.ConflictColumns))
	for _, k := range t.ConflictColumns {
		for i, c := range t.Columns {
			if c == k && i < len(row) {
				out = append(out, row[i])
			}
		}
	}
	return out
}

func (t TableDescriptor) assignment(c, newRef, oldRef string) string {
	expr, ok := t.UpdateExpr[c]
	if !ok {
		return newRef
	}
	return strings.NewReplacer("{new}", newRef, "{old}", oldRef).Replace(expr)
}

// baseName is the table name without its schema.
func (t TableDescriptor) baseName() string {
	name := strings.TrimSpace(t.Table)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
