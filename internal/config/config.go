// Package config defines the JSON configuration model of a bpmastats run:
// where the workbook comes from, how sections are scanned, how species are
// resolved and where statements go.
//
// Example (trimmed):
//
//	{
//	  "job":      "bpma_2024",
//	  "source":   { "kind": "file", "file": { "path": "BPMA_2024.xlsx" } },
//	  "extract":  { "zero_policy": "omit" },
//	  "resolver": { "kind": "sql-embedded" },
//	  "output":   { "targets": ["files"], "dialect": "postgres", "dir": "out" },
//	  "runtime":  { "batch_size": 100, "part_size": 20 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"bpmastats/internal/ddl"
)

// Pipeline is the top-level object decoded from a pipeline file.
type Pipeline struct {
	// Job labels metrics, part headers and the manifest.
	Job string `json:"job"`

	Source   Source        `json:"source"`
	Layout   Layout        `json:"layout"`
	Extract  Extract       `json:"extract"`
	Resolver Resolver      `json:"resolver"`
	Output   Output        `json:"output"`
	Storage  Storage       `json:"storage"`
	REST     REST          `json:"rest"`
	Runtime  RuntimeConfig `json:"runtime"`
}

// Source identifies the workbook. Current kind: "file" (.xlsx or .csv).
type Source struct {
	Kind string     `json:"kind"`
	File SourceFile `json:"file"`

	// Sheets lists sheets to process by exact name. When empty, every sheet
	// named after a four-digit year is processed.
	Sheets []string `json:"sheets"`
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path"`
}

// Layout tunes the section scanner. Zero values select the defaults.
type Layout struct {
	Window        int  `json:"window"`
	MonthColFrom  int  `json:"month_col_from"`
	MonthColTo    int  `json:"month_col_to"`
	SkipBlankRows bool `json:"skip_blank_rows"`
}

// Extract tunes value extraction.
type Extract struct {
	// ZeroPolicy is "omit" (default) or "keep".
	ZeroPolicy string `json:"zero_policy"`

	// Year is used for sheets whose name carries no year.
	Year int `json:"year"`
}

// Resolver kinds.
const (
	ResolverNone     = "none"
	ResolverInline   = "inline"
	ResolverSQL      = "sql"
	ResolverREST     = "rest"
	ResolverEmbedded = "sql-embedded"
)

// Resolver configures species resolution for rescue facts.
type Resolver struct {
	// Kind is one of none, inline, sql, rest, sql-embedded. Empty means none.
	Kind string `json:"kind"`

	// Table is the species dimension, default "dim_especies_fauna".
	Table string `json:"table"`

	// Driver and DSN are used by the "sql" kind (driver postgres or sqlite).
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`

	// Options carries kind-specific settings. The "inline" kind reads the
	// "scientific" and "common" name → id objects.
	Options Options `json:"options"`
}

// Output targets.
const (
	TargetFiles   = "files"
	TargetStorage = "storage"
	TargetREST    = "rest"
)

// Output selects what a run produces.
type Output struct {
	// Targets is any of "files" (part files, schema.sql, report, manifest),
	// "storage" (execute against storage.kind) and "rest" (PostgREST).
	Targets []string `json:"targets"`

	// Dialect of the rendered SQL. Defaults to storage.kind, then postgres.
	Dialect string `json:"dialect"`

	// Schema qualifies every table, default "public".
	Schema string `json:"schema"`

	// Prefix names the part files: <prefix>_PARTE_<i>_DE_<n>.sql.
	Prefix string `json:"prefix"`

	// Title goes in each part header.
	Title string `json:"title"`

	// Sink is "fs" (default, under Dir) or "s3".
	Sink string   `json:"sink"`
	Dir  string   `json:"dir"`
	S3   OutputS3 `json:"s3"`

	// TopSpecies bounds the species list of the report.
	TopSpecies int `json:"top_species"`
}

// OutputS3 configures the "s3" sink. Credentials fall back to the default
// AWS chain when empty.
type OutputS3 struct {
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	Endpoint        string `json:"endpoint"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	PathStyle       bool   `json:"path_style"`
}

// Storage selects the database statements are executed against.
type Storage struct {
	// Kind is postgres, sqlite, mysql or mssql.
	Kind string   `json:"kind"`
	DB   DBConfig `json:"db"`
}

// DBConfig configures the database target.
type DBConfig struct {
	DSN string `json:"dsn"`

	// AutoCreateTable executes the schema script before loading.
	AutoCreateTable bool `json:"auto_create_table"`
}

// REST configures the PostgREST endpoint used by the "rest" target and
// resolver. URL and APIKey fall back to the Supabase environment variables.
type REST struct {
	URL                string `json:"url"`
	APIKey             string `json:"api_key"`
	Schema             string `json:"schema"`
	TimeoutSeconds     int    `json:"timeout_seconds"`
	MaxRetries         int    `json:"max_retries"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
}

// RuntimeConfig controls batching and diagnostics. Zero values fall back to
// environment variables, then to built-in defaults.
type RuntimeConfig struct {
	BatchSize       int `json:"batch_size"`
	RescueBatchSize int `json:"rescue_batch_size"`
	DimBatchSize    int `json:"dim_batch_size"`
	PartSize        int `json:"part_size"`

	// MaxIssues caps the issue messages printed in the end-of-run summary.
	MaxIssues int `json:"max_issues"`
}

// Load decodes the pipeline file at path.
func Load(path string) (Pipeline, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pipeline{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads one pipeline from r. Unknown fields are rejected.
func Decode(r io.Reader) (Pipeline, error) {
	var p Pipeline
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return Pipeline{}, fmt.Errorf("decode config: %w", err)
	}
	return p, nil
}

// HasTarget reports whether output.targets lists t.
func (p Pipeline) HasTarget(t string) bool {
	for _, x := range p.Output.Targets {
		if strings.EqualFold(strings.TrimSpace(x), t) {
			return true
		}
	}
	return false
}

// Dialect is output.dialect, else storage.kind, else postgres.
func (p Pipeline) Dialect() (ddl.Flavor, error) {
	if s := strings.TrimSpace(p.Output.Dialect); s != "" {
		return ddl.ParseFlavor(s)
	}
	return ddl.ParseFlavor(p.Storage.Kind)
}

// ResolverKind is resolver.kind with the empty value mapped to "none".
func (p Pipeline) ResolverKind() string {
	k := strings.ToLower(strings.TrimSpace(p.Resolver.Kind))
	if k == "" {
		return ResolverNone
	}
	return k
}

// Options fetches typed values from a free-form JSON map, returning the
// provided default when a key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// StringMap returns the object at key with its string values. Non-string
// values are ignored; a missing key yields an empty map.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		switch m := v.(type) {
		case map[string]any:
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		case map[string]string:
			for k, s := range m {
				res[k] = s
			}
		}
	}
	return res
}

// StringSlice returns the string elements of the array at key, or nil.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to an empty, non-nil map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
