package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"bpmastats/internal/ddl"
	"bpmastats/internal/schema"
	"bpmastats/internal/sqlgen"
	"bpmastats/internal/storage"
)

/*
Package-level test helpers (TB-aware)
*/

func newRepo(tb testing.TB) *Repository {
	tb.Helper()
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: "file::memory:"})
	if err != nil {
		tb.Fatalf("open sqlite memory: %v", err)
	}
	tb.Cleanup(closeFn)
	if err := storage.EnsureSchema(context.Background(), r, mustStatements(tb)); err != nil {
		tb.Fatalf("EnsureSchema: %v", err)
	}
	return r
}

func mustStatements(tb testing.TB) []string {
	tb.Helper()
	stmts, err := schema.Model{}.Statements(ddl.SQLite)
	if err != nil {
		tb.Fatalf("Statements: %v", err)
	}
	return stmts
}

func mustApply(tb testing.TB, r *Repository, desc sqlgen.TableDescriptor, rows ...sqlgen.Row) (storage.Summary, []*storage.WriteError) {
	tb.Helper()
	sts, err := sqlgen.NewBatcher(ddl.SQLite).Batch(desc, rows, 0)
	if err != nil {
		tb.Fatalf("Batch: %v", err)
	}
	sum, werrs, err := storage.Apply(context.Background(), r, sts)
	if err != nil {
		tb.Fatalf("Apply: %v", err)
	}
	return sum, werrs
}

func count(tb testing.TB, db *sql.DB, table string) int {
	tb.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		tb.Fatalf("count %s: %v", table, err)
	}
	return n
}

/*
Unit tests
*/

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

// TestSchemaIsRerunnable applies the schema twice.
func TestSchemaIsRerunnable(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	if err := storage.EnsureSchema(context.Background(), r, mustStatements(t)); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}
}

// TestUpsertIsIdempotent replays the same load and expects the same state,
// with the later quantity winning.
func TestUpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	m := schema.Model{}
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		mustApply(t, r, m.Tempo(), sqlgen.Row{202401, 2024, 1, "JAN", jan})
		mustApply(t, r, m.Indicador(), sqlgen.Row{"flagrantes", "Flagrantes", schema.CategoryOcorrencias})
		_, werrs := mustApply(t, r, m.IndicadorFact(), sqlgen.Row{202401, "flagrantes", 5 + 2*i})
		if len(werrs) != 0 {
			t.Fatalf("pass %d write errors: %v", i, werrs)
		}
	}

	db := r.DB()
	if n := count(t, db, "dim_tempo"); n != 1 {
		t.Fatalf("dim_tempo rows: got %d want 1", n)
	}
	if n := count(t, db, "fact_indicador_mensal_bpma"); n != 1 {
		t.Fatalf("fact rows: got %d want 1", n)
	}
	var valor int
	if err := db.QueryRow("SELECT valor FROM fact_indicador_mensal_bpma").Scan(&valor); err != nil {
		t.Fatalf("select: %v", err)
	}
	if valor != 7 {
		t.Fatalf("valor: got %d want 7", valor)
	}
}

// TestRescueKeepsResolvedSpecies checks that a NULL species id never
// overwrites a stored one.
func TestRescueKeepsResolvedSpecies(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	desc := schema.Model{}.ResgateFact()

	mustApply(t, r, desc, sqlgen.Row{202312, "sp-1", "Ramphastos toco", "Tucano", 4})
	mustApply(t, r, desc, sqlgen.Row{202312, nil, "Ramphastos toco", "Tucano-toco", 6})

	var (
		id      sql.NullString
		popular string
		qty     int
	)
	err := r.DB().QueryRow(
		"SELECT id_especie_fauna, nome_popular, quantidade FROM fact_resgate_fauna_especie_mensal WHERE nome_cientifico = ?",
		"Ramphastos toco",
	).Scan(&id, &popular, &qty)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id.String != "sp-1" || popular != "Tucano-toco" || qty != 6 {
		t.Fatalf("row: got id=%v popular=%q qty=%d", id, popular, qty)
	}
}

// TestConstraintFailureIsolatedPerKey feeds one parcel that violates the
// days check and expects only that key to fail.
func TestConstraintFailureIsolatedPerKey(t *testing.T) {
	t.Parallel()

	r := newRepo(t)
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	sum, werrs := mustApply(t, r, schema.Model{}.FeriasFact(),
		sqlgen.Row{"100", 2024, 1, start, start.AddDate(0, 0, 9), 10, nil},
		sqlgen.Row{"200", 2024, 1, start, start, 0, nil},
		sqlgen.Row{"300", 2024, 2, start, start, 1, "SEI-1"},
	)
	if len(werrs) != 1 || werrs[0].Key != "200/2024/1" {
		t.Fatalf("write errors: %v", werrs)
	}
	if sum.Rows != 2 || sum.Replayed != 1 {
		t.Fatalf("summary: %#v", sum)
	}
	if n := count(t, r.DB(), "fact_ferias_parcela"); n != 2 {
		t.Fatalf("rows: got %d want 2", n)
	}
}
