package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validPipeline() Pipeline {
	return Pipeline{
		Job:      "bpma",
		Source:   Source{Kind: "file", File: SourceFile{Path: "BPMA_2024.xlsx"}},
		Resolver: Resolver{Kind: ResolverEmbedded},
		Output:   Output{Targets: []string{TargetFiles}, Dir: "out"},
	}
}

func TestValidatePipeline_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidatePipeline(validPipeline()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestValidatePipeline_Findings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(p *Pipeline)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing_job", func(p *Pipeline) { p.Job = " " }, SeverityError, "job", "must not be empty"},
		{"source_kind", func(p *Pipeline) { p.Source.Kind = "http" }, SeverityError, "source.kind", "unsupported"},
		{"source_path", func(p *Pipeline) { p.Source.File.Path = "" }, SeverityError, "source.file.path", "non-empty path"},
		{"source_ext", func(p *Pipeline) { p.Source.File.Path = "x.ods" }, SeverityWarning, "source.file.path", ".ods"},
		{"empty_sheet", func(p *Pipeline) { p.Source.Sheets = []string{"2024", ""} }, SeverityError, "source.sheets[1]", "empty"},
		{"window", func(p *Pipeline) { p.Layout.Window = -1 }, SeverityError, "layout.window", "negative"},
		{"month_cols", func(p *Pipeline) { p.Layout.MonthColFrom, p.Layout.MonthColTo = 9, 3 }, SeverityError, "layout.month_col_to", "before"},
		{"zero_policy", func(p *Pipeline) { p.Extract.ZeroPolicy = "sum" }, SeverityError, "extract.zero_policy", "unknown zero policy"},
		{"year", func(p *Pipeline) { p.Extract.Year = 24 }, SeverityError, "extract.year", "out of range"},
		{"no_targets", func(p *Pipeline) { p.Output.Targets = nil }, SeverityError, "output.targets", "at least one"},
		{"bad_target", func(p *Pipeline) { p.Output.Targets = []string{"files", "kafka"} }, SeverityError, "output.targets[1]", "kafka"},
		{"bad_dialect", func(p *Pipeline) { p.Output.Dialect = "oracle" }, SeverityError, "output.dialect", "unknown dialect"},
		{"storage_kind", func(p *Pipeline) { p.Output.Targets = []string{TargetStorage} }, SeverityError, "storage.kind", "must not be empty"},
		{"storage_dsn", func(p *Pipeline) {
			p.Output.Targets = []string{TargetStorage}
			p.Storage.Kind = "postgres"
		}, SeverityError, "storage.db.dsn", "must not be empty"},
		{"dialect_mismatch", func(p *Pipeline) {
			p.Output.Targets = []string{TargetStorage}
			p.Output.Dialect = "mysql"
			p.Storage = Storage{Kind: "postgres", DB: DBConfig{DSN: "postgres://x"}}
		}, SeverityError, "output.dialect", "does not match"},
		{"auto_create_unused", func(p *Pipeline) { p.Storage.DB.AutoCreateTable = true }, SeverityWarning, "storage.db.auto_create_table", "no effect"},
		{"mssql_public", func(p *Pipeline) { p.Output.Dialect = "mssql" }, SeverityWarning, "output.schema", "dbo"},
		{"rest_url", func(p *Pipeline) {
			p.Output.Targets = []string{TargetREST}
			p.Resolver.Kind = ResolverNone
		}, SeverityError, "rest.url", "SUPABASE_URL"},
		{"s3_bucket", func(p *Pipeline) { p.Output.Sink = "s3" }, SeverityError, "output.s3.bucket", "bucket"},
		{"s3_keys", func(p *Pipeline) {
			p.Output.Sink = "s3"
			p.Output.S3 = OutputS3{Bucket: "b", AccessKeyID: "id"}
		}, SeverityError, "output.s3.access_key_id", "together"},
		{"sink", func(p *Pipeline) { p.Output.Sink = "ftp" }, SeverityError, "output.sink", "ftp"},
		{"prefix", func(p *Pipeline) { p.Output.Prefix = "a/b" }, SeverityError, "output.prefix", "separators"},
		{"embedded_over_rest", func(p *Pipeline) {
			p.Output.Targets = []string{TargetREST}
			p.REST = REST{URL: "https://x", APIKey: "k"}
		}, SeverityError, "resolver.kind", "sql-embedded"},
		{"resolver_unknown", func(p *Pipeline) { p.Resolver.Kind = "ldap" }, SeverityError, "resolver.kind", "unknown"},
		{"resolver_driver", func(p *Pipeline) {
			p.Resolver = Resolver{Kind: ResolverSQL, Driver: "mysql", DSN: "x"}
		}, SeverityError, "resolver.driver", "mysql"},
		{"resolver_dsn", func(p *Pipeline) {
			p.Resolver = Resolver{Kind: ResolverSQL, Driver: "sqlite"}
		}, SeverityError, "resolver.dsn", "dsn"},
		{"inline_empty", func(p *Pipeline) { p.Resolver = Resolver{Kind: ResolverInline} }, SeverityWarning, "resolver.options", "unmatched"},
		{"runtime", func(p *Pipeline) { p.Runtime.PartSize = -2 }, SeverityError, "runtime.part_size", "negative"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := validPipeline()
			tc.mutate(&p)
			issues := ValidatePipeline(p)
			if !hasIssue(t, issues, tc.sev, tc.path, tc.msg) {
				t.Fatalf("want %s at %s containing %q; got %+v", tc.sev, tc.path, tc.msg, issues)
			}
		})
	}
}

func TestValidatePipeline_StorageTargetOK(t *testing.T) {
	t.Parallel()

	p := validPipeline()
	p.Output = Output{Targets: []string{TargetFiles, TargetStorage}, Schema: "dbo"}
	p.Storage = Storage{Kind: "mssql", DB: DBConfig{DSN: "sqlserver://sa:pw@localhost?database=bpma", AutoCreateTable: true}}
	issues := ValidatePipeline(p)
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}
}

func TestIssueErrorAndHasErrors(t *testing.T) {
	t.Parallel()

	w := Issue{Severity: SeverityWarning, Path: "a", Message: "m"}
	e := Issue{Severity: SeverityError, Path: "b", Message: "n"}
	if got := e.Error(); got != "error at b: n" {
		t.Fatalf("Error: got %q", got)
	}
	if HasErrors([]Issue{w}) || !HasErrors([]Issue{w, e}) {
		t.Fatalf("HasErrors mismatch")
	}
}
