package postgrest

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"bpmastats/internal/sqlgen"
	"bpmastats/internal/storage"
)

// Result counts the outcome of one Apply.
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
	Failed    int
}

// Writer applies descriptor rows incrementally: select by key, then POST
// when absent or PATCH by key when present.
type Writer struct {
	c *Client
}

// NewWriter returns a Writer over c.
func NewWriter(c *Client) *Writer { return &Writer{c: c} }

// Apply writes rows one natural key at a time. A failing key becomes a
// WriteError and the rest still run. Columns with an update expression keep
// the stored value when the incoming one is NULL. The returned error is
// non-nil only when ctx is done.
func (w *Writer) Apply(ctx context.Context, t sqlgen.TableDescriptor, rows []sqlgen.Row) (Result, []*storage.WriteError, error) {
	var (
		res   Result
		werrs []*storage.WriteError
	)
	table := baseName(t.Table)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return res, werrs, err
		}
		outcome, err := w.applyRow(ctx, t, table, row)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return res, werrs, cerr
			}
			res.Failed++
			werrs = append(werrs, &storage.WriteError{
				Table: t.Table,
				Key:   storage.FormatKey(t.KeyOf(row)),
				Err:   err,
			})
			continue
		}
		switch outcome {
		case inserted:
			res.Inserted++
		case updated:
			res.Updated++
		default:
			res.Unchanged++
		}
	}
	log.Printf("rest: %s inserted=%d updated=%d unchanged=%d failed=%d",
		table, res.Inserted, res.Updated, res.Unchanged, res.Failed)
	return res, werrs, nil
}

type outcome int

const (
	unchanged outcome = iota
	inserted
	updated
)

func (w *Writer) applyRow(ctx context.Context, t sqlgen.TableDescriptor, table string, row sqlgen.Row) (outcome, error) {
	if len(row) != len(t.Columns) {
		return unchanged, fmt.Errorf("row has %d values for %d columns", len(row), len(t.Columns))
	}
	values := make(map[string]any, len(row))
	for i, c := range t.Columns {
		v, err := jsonValue(row[i])
		if err != nil {
			return unchanged, fmt.Errorf("column %s: %w", c, err)
		}
		values[c] = v
	}

	filter := url.Values{}
	for _, k := range t.ConflictColumns {
		filter.Set(k, filterValue(values[k]))
	}

	query := url.Values{}
	for k, vs := range filter {
		query[k] = vs
	}
	query.Set("select", strings.Join(t.ConflictColumns, ","))
	query.Set("limit", "1")
	found, err := w.c.Select(ctx, table, query)
	if err != nil {
		return unchanged, err
	}

	if len(found) == 0 {
		if err := w.c.Insert(ctx, table, values); err != nil {
			return unchanged, err
		}
		return inserted, nil
	}

	patch := make(map[string]any, len(t.UpdateColumns))
	for _, c := range t.UpdateColumns {
		v := values[c]
		if _, preserve := t.UpdateExpr[c]; preserve && v == nil {
			continue
		}
		patch[c] = v
	}
	if len(patch) == 0 {
		return unchanged, nil
	}
	if err := w.c.Update(ctx, table, filter, patch); err != nil {
		return unchanged, err
	}
	return updated, nil
}

// jsonValue maps a row value onto its JSON form. Raw SQL cannot travel over
// REST.
func jsonValue(v any) (any, error) {
	switch x := v.(type) {
	case sqlgen.Raw:
		return nil, fmt.Errorf("raw SQL value is not supported over REST")
	case time.Time:
		return x.Format("2006-01-02"), nil
	case *string:
		if x == nil {
			return nil, nil
		}
		return *x, nil
	default:
		return v, nil
	}
}

func filterValue(v any) string {
	if v == nil {
		return "is.null"
	}
	return "eq." + fmt.Sprint(v)
}

func baseName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
