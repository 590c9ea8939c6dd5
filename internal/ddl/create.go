// Package ddl defines a small model for SQL DDL and renders CREATE TABLE
// statements from it for each supported flavor.
//
// Every statement is safe to re-run: Postgres, SQLite and MySQL get CREATE
// TABLE IF NOT EXISTS, SQL Server gets an IF OBJECT_ID(...) IS NULL guard.
// ColumnDef.Default is raw SQL; the caller is responsible for its dialect
// correctness.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders an idempotent CREATE TABLE for t.
//
// A column is rendered as:
//
//	<Name> <Type> [NOT NULL] [DEFAULT <Default>] [CHECK (<Check>)]
//
// followed by PRIMARY KEY (...) and one UNIQUE (...) per Unique entry.
func BuildCreateTableSQL(f Flavor, t TableDef) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	known := make(map[string]bool, len(t.Columns))
	cols := make([]string, 0, len(t.Columns)+1+len(t.Unique))
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		if strings.TrimSpace(c.Type) == "" {
			return "", fmt.Errorf("ddl: column %s missing Type", name)
		}
		known[name] = true

		var sb strings.Builder
		sb.WriteString(QuoteIdent(f, name))
		sb.WriteByte(' ')
		sb.WriteString(MapType(f, c.Type))

		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}

		def := strings.TrimSpace(c.Default)
		if c.AutoUUID {
			def = autoUUID(f)
		}
		if def != "" {
			sb.WriteString(" DEFAULT ")
			sb.WriteString(def)
		}
		if chk := strings.TrimSpace(c.Check); chk != "" {
			sb.WriteString(" CHECK (")
			sb.WriteString(strings.ReplaceAll(chk, "%s", QuoteIdent(f, name)))
			sb.WriteByte(')')
		}

		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, name)
		}
	}

	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", QuoteList(f, pks)))
	}
	for _, u := range t.Unique {
		if len(u) == 0 {
			continue
		}
		for _, c := range u {
			if !known[c] {
				return "", fmt.Errorf("ddl: unique constraint on unknown column %s in table %s", c, fqn)
			}
		}
		cols = append(cols, fmt.Sprintf("UNIQUE (%s)", QuoteList(f, u)))
	}

	q := QuoteFQN(f, fqn)
	if f == MSSQL {
		return fmt.Sprintf(
			"IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n  CREATE TABLE %s (\n    %s\n  );\nEND;",
			strings.ReplaceAll(q, "'", "''"), q, strings.Join(cols, ",\n    "),
		), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n);", q, strings.Join(cols, ",\n  ")), nil
}

// BuildScript renders every table in order, separated by blank lines.
func BuildScript(f Flavor, defs []TableDef) (string, error) {
	stmts := make([]string, 0, len(defs))
	for _, d := range defs {
		s, err := BuildCreateTableSQL(f, d)
		if err != nil {
			return "", err
		}
		stmts = append(stmts, s)
	}
	return strings.Join(stmts, "\n\n") + "\n", nil
}
