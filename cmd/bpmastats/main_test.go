package main

import (
	"path/filepath"
	"testing"

	"bpmastats/internal/config"
)

// TestShippedPipelines loads every config under configs/pipelines and
// expects it to validate once the Supabase credentials come from env.
func TestShippedPipelines(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-key")

	paths, err := filepath.Glob("../../configs/pipelines/*.json")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(paths) == 0 {
		t.Fatalf("no pipeline configs found")
	}
	for _, path := range paths {
		p, err := config.Load(path)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		p.ApplyEnv()
		if issues := config.ValidatePipeline(p); config.HasErrors(issues) {
			t.Fatalf("%s: %v", path, issues)
		}
	}
}

func TestDefaultPipelineTargets(t *testing.T) {
	p, err := config.Load("../../configs/pipelines/bpma.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Job != "bpma" || !p.HasTarget(config.TargetFiles) || p.ResolverKind() != config.ResolverEmbedded {
		t.Fatalf("got %#v", p)
	}
	flavor, err := p.Dialect()
	if err != nil || flavor != "postgres" {
		t.Fatalf("dialect: got %q, %v", flavor, err)
	}
}
