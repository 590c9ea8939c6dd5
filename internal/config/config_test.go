package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"bpmastats/internal/ddl"
)

func TestPipeline_Decode(t *testing.T) {
	t.Parallel()

	const js = `{
	  "job": "bpma_2024",
	  "source": { "kind": "file", "file": { "path": "BPMA_2024.xlsx" }, "sheets": ["2024"] },
	  "layout": { "window": 10, "month_col_from": 2, "month_col_to": 14, "skip_blank_rows": true },
	  "extract": { "zero_policy": "keep", "year": 2024 },
	  "resolver": {
	    "kind": "inline",
	    "options": { "scientific": { "boa constrictor": "sp-1" }, "common": { "jiboia": "sp-1", "n": 3 } }
	  },
	  "output": { "targets": ["files", "storage"], "dialect": "sqlite", "dir": "out", "prefix": "BPMA" },
	  "storage": { "kind": "sqlite", "db": { "dsn": "file:bpma.db", "auto_create_table": true } },
	  "rest": { "url": "https://x.supabase.co", "max_retries": 2 },
	  "runtime": { "batch_size": 80, "rescue_batch_size": 40, "part_size": 5 }
	}`

	p, err := Decode(strings.NewReader(js))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if p.Job != "bpma_2024" || p.Source.File.Path != "BPMA_2024.xlsx" {
		t.Fatalf("top-level: got %#v", p)
	}
	if !reflect.DeepEqual(p.Source.Sheets, []string{"2024"}) {
		t.Fatalf("sheets: got %#v", p.Source.Sheets)
	}
	wantLayout := Layout{Window: 10, MonthColFrom: 2, MonthColTo: 14, SkipBlankRows: true}
	if p.Layout != wantLayout {
		t.Fatalf("layout: got %#v want %#v", p.Layout, wantLayout)
	}
	if p.Extract != (Extract{ZeroPolicy: "keep", Year: 2024}) {
		t.Fatalf("extract: got %#v", p.Extract)
	}
	wantCommon := map[string]string{"jiboia": "sp-1"}
	if got := p.Resolver.Options.StringMap("common"); !reflect.DeepEqual(got, wantCommon) {
		t.Fatalf("inline common: got %#v want %#v", got, wantCommon)
	}
	if !p.HasTarget(TargetStorage) || p.HasTarget(TargetREST) {
		t.Fatalf("targets: got %#v", p.Output.Targets)
	}
	if !p.Storage.DB.AutoCreateTable || p.REST.MaxRetries != 2 {
		t.Fatalf("storage/rest: got %#v %#v", p.Storage, p.REST)
	}
	if p.Runtime != (RuntimeConfig{BatchSize: 80, RescueBatchSize: 40, PartSize: 5}) {
		t.Fatalf("runtime: got %#v", p.Runtime)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := Decode(strings.NewReader(`{"job":"x","parser":{"kind":"csv"}}`))
	if err == nil || !strings.Contains(err.Error(), "parser") {
		t.Fatalf("want unknown field error, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "p.json")
	if err := os.WriteFile(path, []byte(`{"job":"j"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Load(path)
	if err != nil || p.Job != "j" {
		t.Fatalf("Load: got %#v, %v", p, err)
	}
	if _, err := Load(filepath.Join(dir, "missing.json")); err == nil {
		t.Fatalf("want error for missing file")
	}
}

func TestPipeline_Dialect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		dialect string
		kind    string
		want    ddl.Flavor
		wantErr bool
	}{
		{"default", "", "", ddl.Postgres, false},
		{"from_storage", "", "mssql", ddl.MSSQL, false},
		{"explicit_wins", "mysql", "postgres", ddl.MySQL, false},
		{"alias", "sqlserver", "", ddl.MSSQL, false},
		{"unknown", "oracle", "", "", true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := Pipeline{Output: Output{Dialect: tc.dialect}, Storage: Storage{Kind: tc.kind}}
			got, err := p.Dialect()
			if (err != nil) != tc.wantErr {
				t.Fatalf("err: got %v wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("got %#v want %#v", got, tc.want)
			}
		})
	}
}

func TestResolverKindDefaultsToNone(t *testing.T) {
	t.Parallel()

	if got := (Pipeline{}).ResolverKind(); got != ResolverNone {
		t.Fatalf("got %q want %q", got, ResolverNone)
	}
	if got := (Pipeline{Resolver: Resolver{Kind: " SQL-Embedded "}}).ResolverKind(); got != ResolverEmbedded {
		t.Fatalf("got %q want %q", got, ResolverEmbedded)
	}
}

// -----------------------------------------------------------------------------
// Options helpers
// -----------------------------------------------------------------------------

func TestOptions_Getters(t *testing.T) {
	t.Parallel()

	o := Options{
		"s":   "x",
		"b":   true,
		"n":   float64(7),
		"i":   3,
		"arr": []any{"a", 1, "b"},
		"m":   map[string]any{"k": "v", "skip": false},
	}

	if got := o.String("s", "d"); got != "x" {
		t.Fatalf("String: got %q", got)
	}
	if got := o.String("b", "d"); got != "d" {
		t.Fatalf("String wrong type: got %q", got)
	}
	if !o.Bool("b", false) || o.Bool("missing", false) {
		t.Fatalf("Bool mismatch")
	}
	if o.Int("n", 0) != 7 || o.Int("i", 0) != 3 || o.Int("s", 9) != 9 {
		t.Fatalf("Int mismatch")
	}
	if got := o.StringSlice("arr"); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice: got %#v", got)
	}
	if got := o.StringMap("m"); !reflect.DeepEqual(got, map[string]string{"k": "v"}) {
		t.Fatalf("StringMap: got %#v", got)
	}
	if got := o.StringMap("missing"); got == nil || len(got) != 0 {
		t.Fatalf("StringMap missing: got %#v", got)
	}
}

func TestOptions_UnmarshalNull(t *testing.T) {
	t.Parallel()

	p, err := Decode(strings.NewReader(`{"resolver":{"kind":"inline","options":null}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if p.Resolver.Options == nil {
		t.Fatalf("null options should decode to an empty map")
	}
}

// -----------------------------------------------------------------------------
// Environment
// -----------------------------------------------------------------------------

// Env tests mutate process state and therefore do not run in parallel.

func TestLoadEnv_MissingFileIsNotAnError(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if err := LoadEnv(""); err != nil {
		t.Fatalf("LoadEnv empty: %v", err)
	}
}

func TestLoadEnvAndApply(t *testing.T) {
	for _, k := range []string{"SUPABASE_URL", "VITE_SUPABASE_URL", "SUPABASE_SERVICE_ROLE_KEY",
		"VITE_SUPABASE_SERVICE_ROLE_KEY", "VITE_SUPABASE_ANON_KEY"} {
		t.Setenv(k, "")
	}

	path := filepath.Join(t.TempDir(), ".env")
	body := "VITE_SUPABASE_URL=https://proj.supabase.co\n" +
		"VITE_SUPABASE_ANON_KEY=anon\n" +
		"VITE_SUPABASE_SERVICE_ROLE_KEY=service\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	// godotenv does not override variables that are already present, even
	// when empty. t.Setenv above restores them afterwards.
	for _, k := range []string{"VITE_SUPABASE_URL", "VITE_SUPABASE_ANON_KEY", "VITE_SUPABASE_SERVICE_ROLE_KEY"} {
		os.Unsetenv(k)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}

	url, key := SupabaseFromEnv()
	if url != "https://proj.supabase.co" || key != "service" {
		t.Fatalf("SupabaseFromEnv: got %q %q", url, key)
	}

	p := Pipeline{REST: REST{APIKey: "explicit"}}
	p.ApplyEnv()
	if p.REST.URL != "https://proj.supabase.co" || p.REST.APIKey != "explicit" {
		t.Fatalf("ApplyEnv: got %#v", p.REST)
	}
}
