package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"bpmastats/internal/ddl"
	"bpmastats/internal/extract"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the config (e.g. "output.targets[1]").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate p. REST credentials are expected to be applied from the environment
// beforehand (see Pipeline.ApplyEnv).
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels metrics, part headers and the manifest",
		})
	}
	issues = append(issues, validateSource(p.Source)...)
	issues = append(issues, validateLayout(p.Layout)...)
	issues = append(issues, validateExtract(p.Extract)...)
	issues = append(issues, validateOutput(p)...)
	issues = append(issues, validateResolver(p)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
	}
	if s.Kind != "file" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unsupported source kind %q; only \"file\" is implemented", s.Kind),
		})
	}

	path := strings.TrimSpace(s.File.Path)
	if path == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.file.path",
			Message:  "file source requires a non-empty path",
		})
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".csv":
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.file.path",
			Message:  fmt.Sprintf("extension %q is neither .xlsx nor .csv; the file is read as a workbook", filepath.Ext(path)),
		})
	}
	for i, name := range s.Sheets {
		if strings.TrimSpace(name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("source.sheets[%d]", i),
				Message:  "sheet name must not be empty",
			})
		}
	}
	return issues
}

func validateLayout(l Layout) []Issue {
	var issues []Issue
	if l.Window < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "layout.window",
			Message:  "window must not be negative",
		})
	}
	if l.MonthColFrom < 0 || l.MonthColTo < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "layout.month_col_from",
			Message:  "month column bounds must not be negative",
		})
	} else if l.MonthColTo > 0 && l.MonthColFrom > l.MonthColTo {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "layout.month_col_to",
			Message:  fmt.Sprintf("month_col_to=%d is before month_col_from=%d", l.MonthColTo, l.MonthColFrom),
		})
	}
	return issues
}

func validateExtract(e Extract) []Issue {
	var issues []Issue
	if _, err := extract.ParseZeroPolicy(e.ZeroPolicy); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "extract.zero_policy",
			Message:  err.Error(),
		})
	}
	if e.Year != 0 && (e.Year < 1900 || e.Year > 2999) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "extract.year",
			Message:  fmt.Sprintf("year %d is out of range", e.Year),
		})
	}
	return issues
}

func validateOutput(p Pipeline) []Issue {
	var issues []Issue
	o := p.Output

	if len(o.Targets) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.targets",
			Message:  "at least one target (files, storage, rest) is required",
		})
	}
	for i, t := range o.Targets {
		switch strings.ToLower(strings.TrimSpace(t)) {
		case TargetFiles, TargetStorage, TargetREST:
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("output.targets[%d]", i),
				Message:  fmt.Sprintf("unknown target %q", t),
			})
		}
	}

	flavor, err := p.Dialect()
	if err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.dialect",
			Message:  err.Error(),
		})
	}

	if p.HasTarget(TargetStorage) {
		issues = append(issues, validateStorage(p.Storage)...)
		if err == nil && strings.TrimSpace(o.Dialect) != "" {
			if sk, serr := ddl.ParseFlavor(p.Storage.Kind); serr == nil && sk != flavor {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "output.dialect",
					Message:  fmt.Sprintf("dialect %s does not match storage.kind %s", flavor, sk),
				})
			}
		}
	} else if p.Storage.DB.AutoCreateTable {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.db.auto_create_table",
			Message:  "auto_create_table has no effect without the storage target",
		})
	}

	if flavor == ddl.MSSQL {
		if s := strings.TrimSpace(o.Schema); s == "" || strings.EqualFold(s, "public") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "output.schema",
				Message:  "SQL Server databases usually have no \"public\" schema; consider \"dbo\"",
			})
		}
	}

	if p.HasTarget(TargetREST) {
		issues = append(issues, validateREST(p.REST, "rest target")...)
	}

	if p.HasTarget(TargetFiles) {
		switch strings.ToLower(strings.TrimSpace(o.Sink)) {
		case "", "fs":
		case "s3":
			if strings.TrimSpace(o.S3.Bucket) == "" {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "output.s3.bucket",
					Message:  "s3 sink requires a bucket",
				})
			}
			if (o.S3.AccessKeyID == "") != (o.S3.SecretAccessKey == "") {
				issues = append(issues, Issue{
					Severity: SeverityError,
					Path:     "output.s3.access_key_id",
					Message:  "access_key_id and secret_access_key must be set together",
				})
			}
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.sink",
				Message:  fmt.Sprintf("unknown sink %q; use fs or s3", o.Sink),
			})
		}
		if strings.ContainsAny(o.Prefix, `/\`) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.prefix",
				Message:  "prefix must not contain path separators",
			})
		}
	}
	if o.TopSpecies < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.top_species",
			Message:  "top_species must not be negative",
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		return append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty for the storage target",
		})
	}
	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	return issues
}

func validateREST(r REST, user string) []Issue {
	var issues []Issue
	if strings.TrimSpace(r.URL) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rest.url",
			Message:  user + " requires rest.url or SUPABASE_URL",
		})
	}
	if strings.TrimSpace(r.APIKey) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rest.api_key",
			Message:  user + " requires rest.api_key or a SUPABASE key variable",
		})
	}
	if r.MaxRetries < 0 || r.TimeoutSeconds < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "rest.max_retries",
			Message:  "max_retries and timeout_seconds must not be negative",
		})
	}
	return issues
}

func validateResolver(p Pipeline) []Issue {
	var issues []Issue
	r := p.Resolver

	switch p.ResolverKind() {
	case ResolverNone:
	case ResolverInline:
		if len(r.Options.StringMap("scientific")) == 0 && len(r.Options.StringMap("common")) == 0 {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "resolver.options",
				Message:  "inline resolver has no scientific or common mappings; every species stays unmatched",
			})
		}
	case ResolverSQL:
		switch r.Driver {
		case "postgres", "sqlite":
		default:
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "resolver.driver",
				Message:  fmt.Sprintf("sql resolver driver %q is not supported; use postgres or sqlite", r.Driver),
			})
		}
		if strings.TrimSpace(r.DSN) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "resolver.dsn",
				Message:  "sql resolver requires a dsn",
			})
		}
	case ResolverREST:
		issues = append(issues, validateREST(p.REST, "rest resolver")...)
	case ResolverEmbedded:
		if p.HasTarget(TargetREST) {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "resolver.kind",
				Message:  "sql-embedded sub-selects cannot be sent over REST; use the rest or sql resolver",
			})
		}
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "resolver.kind",
			Message:  fmt.Sprintf("unknown resolver kind %q", r.Kind),
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	check := func(path string, v int) {
		if v < 0 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "runtime." + path,
				Message:  path + " must not be negative",
			})
		}
	}
	check("batch_size", r.BatchSize)
	check("rescue_batch_size", r.RescueBatchSize)
	check("dim_batch_size", r.DimBatchSize)
	check("part_size", r.PartSize)
	check("max_issues", r.MaxIssues)
	return issues
}
