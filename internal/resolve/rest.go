package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"bpmastats/internal/postgrest"
	"bpmastats/internal/textnorm"
)

// restCandidates bounds how many ilike hits are checked for an exact match.
const restCandidates = 10

// likeEscaper neutralizes LIKE wildcards. PostgREST turns "*" into "%"
// with no escape, so it becomes a one-character wildcard and the candidates
// are compared exactly afterwards.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `_`)

// RESTSource looks species up through PostgREST with a case-insensitive
// ilike filter, keeping only rows whose name key equals the lookup.
type RESTSource struct {
	c     *postgrest.Client
	table string
}

// NewRESTSource queries table (a bare name, e.g. dim_especies_fauna) via c.
func NewRESTSource(c *postgrest.Client, table string) *RESTSource {
	return &RESTSource{c: c, table: table}
}

func (s *RESTSource) Lookup(ctx context.Context, field Field, name string) (string, bool, error) {
	col := field.Column()
	rows, err := s.c.Select(ctx, s.table, url.Values{
		"select": {"id," + col},
		col:      {"ilike." + likeEscaper.Replace(name)},
		"limit":  {fmt.Sprint(restCandidates)},
	})
	if err != nil {
		return "", false, err
	}
	for _, row := range rows {
		v, ok := row[col].(string)
		if !ok || row["id"] == nil || textnorm.NameKey(v) != name {
			continue
		}
		return fmt.Sprint(row["id"]), true, nil
	}
	return "", false, nil
}
