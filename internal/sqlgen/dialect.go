package sqlgen

import (
	"fmt"
	"strings"

	"bpmastats/internal/ddl"
)

// Render builds one upsert statement covering rows. rows must be non-empty
// and each row must have len(t.Columns) values.
func Render(f ddl.Flavor, t TableDescriptor, rows []Row) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", fmt.Errorf("sqlgen: %s: no rows", t.Table)
	}
	tuples := make([]string, 0, len(rows))
	for i, r := range rows {
		if len(r) != len(t.Columns) {
			return "", fmt.Errorf("sqlgen: %s: row %d has %d values, want %d", t.Table, i, len(r), len(t.Columns))
		}
		vals := make([]string, len(r))
		for j, v := range r {
			lit, err := Literal(f, v)
			if err != nil {
				return "", fmt.Errorf("sqlgen: %s: row %d column %s: %w", t.Table, i, t.Columns[j], err)
			}
			vals[j] = lit
		}
		tuples = append(tuples, "("+strings.Join(vals, ", ")+")")
	}

	switch f {
	case ddl.Postgres, ddl.SQLite:
		return renderOnConflict(f, t, tuples), nil
	case ddl.MySQL:
		return renderOnDuplicate(t, tuples), nil
	case ddl.MSSQL:
		return renderMerge(t, tuples), nil
	}
	return "", fmt.Errorf("sqlgen: unsupported dialect %q", f)
}

// RenderRow renders a single-tuple statement, used to replay a failed batch
// key by key.
func RenderRow(f ddl.Flavor, t TableDescriptor, row Row) (string, error) {
	return Render(f, t, []Row{row})
}

func renderOnConflict(f ddl.Flavor, t TableDescriptor, tuples []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n  %s\nON CONFLICT (%s) ",
		ddl.QuoteFQN(f, t.Table), ddl.QuoteList(f, t.Columns),
		strings.Join(tuples, ",\n  "), ddl.QuoteList(f, t.ConflictColumns))
	if len(t.UpdateColumns) == 0 {
		b.WriteString("DO NOTHING;")
		return b.String()
	}
	table := ddl.QuoteIdent(f, t.baseName())
	sets := make([]string, len(t.UpdateColumns))
	for i, c := range t.UpdateColumns {
		q := ddl.QuoteIdent(f, c)
		sets[i] = q + " = " + t.assignment(c, "EXCLUDED."+q, table+"."+q)
	}
	b.WriteString("DO UPDATE SET ")
	b.WriteString(strings.Join(sets, ", "))
	b.WriteByte(';')
	return b.String()
}

func renderOnDuplicate(t TableDescriptor, tuples []string) string {
	f := ddl.MySQL
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES\n  %s\nON DUPLICATE KEY UPDATE ",
		ddl.QuoteFQN(f, t.Table), ddl.QuoteList(f, t.Columns), strings.Join(tuples, ",\n  "))
	if len(t.UpdateColumns) == 0 {
		// No-op assignment keeps the existing row.
		q := ddl.QuoteIdent(f, t.ConflictColumns[0])
		b.WriteString(q + " = " + q + ";")
		return b.String()
	}
	sets := make([]string, len(t.UpdateColumns))
	for i, c := range t.UpdateColumns {
		q := ddl.QuoteIdent(f, c)
		sets[i] = q + " = " + t.assignment(c, "VALUES("+q+")", q)
	}
	b.WriteString(strings.Join(sets, ", "))
	b.WriteByte(';')
	return b.String()
}

func renderMerge(t TableDescriptor, tuples []string) string {
	f := ddl.MSSQL
	on := make([]string, len(t.ConflictColumns))
	for i, c := range t.ConflictColumns {
		q := ddl.QuoteIdent(f, c)
		on[i] = "tgt." + q + " = src." + q
	}
	src := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		src[i] = "src." + ddl.QuoteIdent(f, c)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "MERGE INTO %s WITH (HOLDLOCK) AS tgt\nUSING (VALUES\n  %s\n) AS src (%s)\nON %s\n",
		ddl.QuoteFQN(f, t.Table), strings.Join(tuples, ",\n  "),
		ddl.QuoteList(f, t.Columns), strings.Join(on, " AND "))
	if len(t.UpdateColumns) > 0 {
		sets := make([]string, len(t.UpdateColumns))
		for i, c := range t.UpdateColumns {
			q := ddl.QuoteIdent(f, c)
			sets[i] = "tgt." + q + " = " + t.assignment(c, "src."+q, "tgt."+q)
		}
		b.WriteString("WHEN MATCHED THEN UPDATE SET " + strings.Join(sets, ", ") + "\n")
	}
	fmt.Fprintf(&b, "WHEN NOT MATCHED THEN INSERT (%s) VALUES (%s);",
		ddl.QuoteList(f, t.Columns), strings.Join(src, ", "))
	return b.String()
}
