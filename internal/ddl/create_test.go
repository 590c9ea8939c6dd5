package ddl

import (
	"strconv"
	"strings"
	"testing"
)

// TestBuildCreateTableSQL verifies the rendered statement per flavor and the
// errors surfaced for invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tempo := TableDef{
		FQN: "public.dim_tempo",
		Columns: []ColumnDef{
			{Name: "id", Type: "int", PrimaryKey: true},
			{Name: "mes", Type: "smallint", Check: "%s BETWEEN 1 AND 12"},
			{Name: "mes_abreviacao", Type: "text", Nullable: true},
		},
		Unique: [][]string{{"id", "mes"}},
	}

	tests := []struct {
		name        string
		flavor      Flavor
		def         TableDef
		wantSQL     string
		wantErr     bool
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			flavor:      Postgres,
			def:         TableDef{FQN: "  ", Columns: []ColumnDef{{Name: "id", Type: "int"}}},
			wantErr:     true,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			flavor:      Postgres,
			def:         TableDef{FQN: "public.t"},
			wantErr:     true,
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			flavor:      Postgres,
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "", Type: "int"}}},
			wantErr:     true,
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			flavor:      Postgres,
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			wantErr:     true,
			errContains: "missing Type",
		},
		{
			name:   "unique on unknown column returns error",
			flavor: Postgres,
			def: TableDef{
				FQN:     "t",
				Columns: []ColumnDef{{Name: "id", Type: "int"}},
				Unique:  [][]string{{"nope"}},
			},
			wantErr:     true,
			errContains: "unknown column nope",
		},
		{
			name:    "postgres",
			flavor:  Postgres,
			def:     tempo,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"public\".\"dim_tempo\" (\n  \"id\" INTEGER NOT NULL,\n  \"mes\" SMALLINT NOT NULL CHECK (\"mes\" BETWEEN 1 AND 12),\n  \"mes_abreviacao\" TEXT,\n  PRIMARY KEY (\"id\"),\n  UNIQUE (\"id\", \"mes\")\n);",
		},
		{
			name:    "sqlite drops the schema",
			flavor:  SQLite,
			def:     tempo,
			wantSQL: "CREATE TABLE IF NOT EXISTS \"dim_tempo\" (\n  \"id\" INTEGER NOT NULL,\n  \"mes\" INTEGER NOT NULL CHECK (\"mes\" BETWEEN 1 AND 12),\n  \"mes_abreviacao\" TEXT,\n  PRIMARY KEY (\"id\"),\n  UNIQUE (\"id\", \"mes\")\n);",
		},
		{
			name:    "mysql",
			flavor:  MySQL,
			def:     tempo,
			wantSQL: "CREATE TABLE IF NOT EXISTS `public`.`dim_tempo` (\n  `id` INT NOT NULL,\n  `mes` SMALLINT NOT NULL CHECK (`mes` BETWEEN 1 AND 12),\n  `mes_abreviacao` VARCHAR(255),\n  PRIMARY KEY (`id`),\n  UNIQUE (`id`, `mes`)\n);",
		},
		{
			name:    "mssql guard",
			flavor:  MSSQL,
			def:     TableDef{FQN: "dbo.t", Columns: []ColumnDef{{Name: "id", Type: "uuid", PrimaryKey: true, AutoUUID: true}}},
			wantSQL: "IF OBJECT_ID(N'[dbo].[t]', N'U') IS NULL\nBEGIN\n  CREATE TABLE [dbo].[t] (\n    [id] UNIQUEIDENTIFIER NOT NULL DEFAULT NEWID(),\n    PRIMARY KEY ([id])\n  );\nEND;",
		},
		{
			name:    "postgres uuid default",
			flavor:  Postgres,
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id", Type: "uuid", AutoUUID: true}}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"t\" (\n  \"id\" UUID NOT NULL DEFAULT gen_random_uuid()\n);",
		},
		{
			name:    "raw default is trimmed",
			flavor:  Postgres,
			def:     TableDef{FQN: "t", Columns: []ColumnDef{{Name: "n", Type: "int", Default: "  0  "}}},
			wantSQL: "CREATE TABLE IF NOT EXISTS \"t\" (\n  \"n\" INTEGER NOT NULL DEFAULT 0\n);",
		},
	}

	for _, tt := range tests {
		tt := tt // capture range variable
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gotSQL, err := BuildCreateTableSQL(tt.flavor, tt.def)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BuildCreateTableSQL() error = nil, want non-nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("BuildCreateTableSQL() error = %q, want substring %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("BuildCreateTableSQL() unexpected error = %v", err)
			}
			if gotSQL != tt.wantSQL {
				t.Fatalf("BuildCreateTableSQL() =\n%s\nwant:\n%s", gotSQL, tt.wantSQL)
			}
		})
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		flavor Flavor
		in     string
		want   string
	}{
		{Postgres, "public.users", `"public"."users"`},
		{Postgres, `sch."t"`, `"sch"."""t"""`},
		{Postgres, ".public..users.", `"public"."users"`},
		{SQLite, "public.users", `"users"`},
		{MySQL, "db.us`ers", "`db`.`us``ers`"},
		{MSSQL, "dbo.a]b", "[dbo].[a]]b]"},
		{Postgres, "", ""},
	}
	for _, tt := range tests {
		if got := QuoteFQN(tt.flavor, tt.in); got != tt.want {
			t.Fatalf("QuoteFQN(%s, %q) = %q, want %q", tt.flavor, tt.in, got, tt.want)
		}
	}
}

func TestParseFlavor(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]Flavor{"": Postgres, "PG": Postgres, "sqlite3": SQLite, "mariadb": MySQL, "sqlserver": MSSQL} {
		got, err := ParseFlavor(in)
		if err != nil || got != want {
			t.Fatalf("ParseFlavor(%q) = %q,%v want %q", in, got, err, want)
		}
	}
	if _, err := ParseFlavor("oracle"); err == nil {
		t.Fatal("ParseFlavor(oracle): expected error")
	}
}

// benchmarkSink is a package-level variable used to prevent the compiler from
// optimizing away the results of BuildCreateTableSQL in benchmarks.
var benchmarkSink string

// BenchmarkBuildCreateTableSQL_LargeSchema measures rendering a wide table.
func BenchmarkBuildCreateTableSQL_LargeSchema(b *testing.B) {
	cols := make([]ColumnDef, 0, 64)
	for i := 0; i < 64; i++ {
		cols = append(cols, ColumnDef{Name: "col_" + strconv.Itoa(i), Type: "text", Nullable: true})
	}
	def := TableDef{FQN: "large_table", Columns: cols}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		sql, err := BuildCreateTableSQL(Postgres, def)
		if err != nil {
			b.Fatalf("BuildCreateTableSQL() error = %v", err)
		}
		benchmarkSink = sql
	}
}
