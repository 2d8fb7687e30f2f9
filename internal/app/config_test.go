package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NEO4J_URI", "bolt://localhost:7687")
	t.Setenv("NEO4J_PASSWORD", "secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig("", nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Graph.User != "neo4j" {
		t.Fatalf("graph.user = %q", cfg.Graph.User)
	}
	if cfg.Graph.BatchSize != 200 || cfg.Graph.MaxRetries != 3 {
		t.Fatalf("graph batching = %d/%d", cfg.Graph.BatchSize, cfg.Graph.MaxRetries)
	}
	if cfg.LLM.Model != "llama3.1" || cfg.LLM.Timeout != 60*time.Second {
		t.Fatalf("llm defaults = %q/%v", cfg.LLM.Model, cfg.LLM.Timeout)
	}
	if cfg.Relation.LLM.MinConfidence != 0.65 {
		t.Fatalf("minConfidence = %v", cfg.Relation.LLM.MinConfidence)
	}
	if cfg.Relation.Cooccur.Window != "chunk" || cfg.Relation.Cooccur.MinPMI != 0 {
		t.Fatalf("cooccur = %+v", cfg.Relation.Cooccur)
	}
	if len(cfg.Relation.LLM.PredicateSet) != len(DefaultPredicates) {
		t.Fatalf("predicates = %v", cfg.Relation.LLM.PredicateSet)
	}
	if cfg.Pipeline.Parallelism != 4 || cfg.Server.Addr != ":8080" {
		t.Fatalf("pipeline/server defaults = %d/%q", cfg.Pipeline.Parallelism, cfg.Server.Addr)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	setRequiredEnv(t)
	path := writeConfig(t, `
graph:
  batchSize: 50
llm:
  endpoint: http://ollama:11434
  model: mistral
relation:
  cooccur:
    minPmi: 1.5
  llm:
    minConfidence: 0.8
    predicateSet: [is_a, uses]
pipeline:
  inputDir: /data/chunks
  parallelism: 2
server:
  addr: ":9090"
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Graph.BatchSize != 50 {
		t.Fatalf("batchSize = %d", cfg.Graph.BatchSize)
	}
	if cfg.LLM.Endpoint != "http://ollama:11434" || cfg.LLM.Model != "mistral" {
		t.Fatalf("llm = %+v", cfg.LLM)
	}
	if cfg.Relation.Cooccur.MinPMI != 1.5 {
		t.Fatalf("minPmi = %v", cfg.Relation.Cooccur.MinPMI)
	}
	if len(cfg.Relation.LLM.PredicateSet) != 2 {
		t.Fatalf("predicateSet = %v", cfg.Relation.LLM.PredicateSet)
	}
	if cfg.Pipeline.InputDir != "/data/chunks" || cfg.Pipeline.Parallelism != 2 {
		t.Fatalf("pipeline = %+v", cfg.Pipeline)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LLM_MODEL", "phi3")
	t.Setenv("PIPELINE_PARALLELISM", "8")
	path := writeConfig(t, `
llm:
  model: mistral
pipeline:
  parallelism: 2
`)

	cfg, err := LoadConfig(path, nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.Model != "phi3" {
		t.Fatalf("model = %q, env must win", cfg.LLM.Model)
	}
	if cfg.Pipeline.Parallelism != 8 {
		t.Fatalf("parallelism = %d, env must win", cfg.Pipeline.Parallelism)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name string
		prep func(t *testing.T) string
	}{
		{
			"missing uri",
			func(t *testing.T) string {
				t.Setenv("NEO4J_URI", "")
				t.Setenv("NEO4J_PASSWORD", "secret")
				return ""
			},
		},
		{
			"missing password",
			func(t *testing.T) string {
				t.Setenv("NEO4J_URI", "bolt://localhost:7687")
				t.Setenv("NEO4J_PASSWORD", "")
				return ""
			},
		},
		{
			"bad minConfidence",
			func(t *testing.T) string {
				setRequiredEnv(t)
				return writeConfig(t, "relation:\n  llm:\n    minConfidence: 2\n")
			},
		},
		{
			"bad batchSize",
			func(t *testing.T) string {
				setRequiredEnv(t)
				return writeConfig(t, "graph:\n  batchSize: -1\n")
			},
		},
		{
			"bad parallelism",
			func(t *testing.T) string {
				setRequiredEnv(t)
				return writeConfig(t, "pipeline:\n  parallelism: 0\n")
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := tc.prep(t)
			if _, err := LoadConfig(path, nil); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	setRequiredEnv(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil); err == nil {
		t.Fatal("expected read error for missing file")
	}
}
