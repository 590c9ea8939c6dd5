package ddl

import "strings"

// QuoteIdent quotes a single identifier segment for f.
func QuoteIdent(f Flavor, id string) string {
	switch f {
	case MySQL:
		return "`" + strings.ReplaceAll(id, "`", "``") + "`"
	case MSSQL:
		return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
	default:
		return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
	}
}

// QuoteFQN quotes each dotted segment of a table name. SQLite has no schemas,
// so only the last segment is kept there.
func QuoteFQN(f Flavor, fqn string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, QuoteIdent(f, p))
	}
	if f == SQLite && len(out) > 1 {
		out = out[len(out)-1:]
	}
	return strings.Join(out, ".")
}

// QuoteList quotes and comma-joins column names.
func QuoteList(f Flavor, cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = QuoteIdent(f, c)
	}
	return strings.Join(q, ", ")
}
