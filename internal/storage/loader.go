package storage

import (
	"context"
	"log"
	"time"

	"bpmastats/internal/sqlgen"
)

// Summary counts what Apply did.
type Summary struct {
	Statements int
	Rows       int
	// Replayed is the number of statements that failed as a batch and were
	// retried row by row.
	Replayed int
	Failed   int
}

// Apply executes stmts in order. When a batch fails, its rows are replayed
// one statement per row; every row that still fails becomes a WriteError and
// the remaining statements still run. The returned error is non-nil only
// when ctx is done.
func Apply(ctx context.Context, repo Execer, stmts []sqlgen.Statement) (Summary, []*WriteError, error) {
	var (
		sum         Summary
		werrs       []*WriteError
		start       = time.Now()
		lastFlushTS = start
	)

	for _, st := range stmts {
		if err := ctx.Err(); err != nil {
			return sum, werrs, err
		}

		err := repo.Exec(ctx, st.SQL)
		if err != nil {
			log.Printf("loader: batch %d on %s failed, replaying %d rows: %v", st.Seq, st.Table, len(st.Rows), err)
			sum.Replayed++
			ok, rowErrs := replay(ctx, repo, st)
			if cerr := ctx.Err(); cerr != nil {
				return sum, werrs, cerr
			}
			sum.Rows += ok
			sum.Failed += len(rowErrs)
			werrs = append(werrs, rowErrs...)
			continue
		}

		sum.Statements++
		sum.Rows += len(st.Rows)

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(len(st.Rows)) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: table=%s rps=%.0f rows=%d total_rows=%d elapsed=%s",
			st.Seq,
			st.Table,
			rps,
			len(st.Rows),
			sum.Rows,
			now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
	}
	return sum, werrs, nil
}

func replay(ctx context.Context, repo Execer, st sqlgen.Statement) (int, []*WriteError) {
	var (
		ok    int
		werrs []*WriteError
	)
	sqls, rerr := st.Replay()
	for i, row := range st.Rows {
		err := rerr
		if err == nil {
			err = repo.Exec(ctx, sqls[i])
		}
		if err != nil {
			werrs = append(werrs, &WriteError{Table: st.Table, Key: FormatKey(st.Desc.KeyOf(row)), Err: err})
			continue
		}
		ok++
	}
	return ok, werrs
}
