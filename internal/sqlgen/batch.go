package sqlgen

import (
	"fmt"

	"bpmastats/internal/ddl"
)

// Default tuples per statement.
const (
	DefaultBatchSize       = 100
	DefaultRescueBatchSize = 50
	DefaultDimBatchSize    = 500
)

// Statement is one rendered, independently executable upsert.
type Statement struct {
	Table string
	// Seq is the 1-based position in the run's statement stream.
	Seq  int
	Rows []Row
	SQL  string

	// Desc and Flavor allow a failed batch to be replayed row by row.
	Desc   TableDescriptor
	Flavor ddl.Flavor
}

// Replay renders one statement per row of s.
func (s Statement) Replay() ([]string, error) {
	out := make([]string, 0, len(s.Rows))
	for _, row := range s.Rows {
		sql, err := RenderRow(s.Flavor, s.Desc, row)
		if err != nil {
			return nil, err
		}
		out = append(out, sql)
	}
	return out, nil
}

// Partition splits items into consecutive chunks of at most size. The last
// chunk carries the remainder; 250 items at 100 give 100, 100, 50.
func Partition[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultBatchSize
	}
	out := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end:end])
	}
	return out
}

// Batcher numbers statements across every table of a run.
type Batcher struct {
	Flavor ddl.Flavor
	seq    int
}

// NewBatcher returns a Batcher for flavor f.
func NewBatcher(f ddl.Flavor) *Batcher { return &Batcher{Flavor: f} }

// Batch renders rows for t. size <= 0 falls back to t.BatchSize, then to
// DefaultBatchSize.
func (b *Batcher) Batch(t TableDescriptor, rows []Row, size int) ([]Statement, error) {
	if size <= 0 {
		size = t.BatchSize
	}
	chunks := Partition(rows, size)
	out := make([]Statement, 0, len(chunks))
	for _, chunk := range chunks {
		sql, err := Render(b.Flavor, t, chunk)
		if err != nil {
			return nil, fmt.Errorf("batch %d: %w", b.seq+1, err)
		}
		b.seq++
		out = append(out, Statement{
			Table:  t.Table,
			Seq:    b.seq,
			Rows:   chunk,
			SQL:    sql,
			Desc:   t,
			Flavor: b.Flavor,
		})
	}
	return out, nil
}

// Total is the number of statements rendered so far.
func (b *Batcher) Total() int { return b.seq }
