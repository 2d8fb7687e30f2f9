package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seifer44/lexigraph/internal/platform/envutil"
	"github.com/seifer44/lexigraph/internal/platform/logger"
)

// Config is read once at startup. Credentials and endpoints may always be
// overridden through the environment so they never have to live in the file.
type Config struct {
	Graph    GraphConfig    `yaml:"graph"`
	LLM      LLMConfig      `yaml:"llm"`
	Relation RelationConfig `yaml:"relation"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
}

type GraphConfig struct {
	URI        string `yaml:"uri"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Database   string `yaml:"database"`
	BatchSize  int    `yaml:"batchSize"`
	MaxRetries int    `yaml:"maxRetries"`
}

type LLMConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"maxRetries"`
}

type CooccurConfig struct {
	Window string  `yaml:"window"`
	MinPMI float64 `yaml:"minPmi"`
}

type RelationLLMConfig struct {
	PredicateSet  []string `yaml:"predicateSet"`
	MinConfidence float64  `yaml:"minConfidence"`
}

type RelationConfig struct {
	Cooccur CooccurConfig     `yaml:"cooccur"`
	LLM     RelationLLMConfig `yaml:"llm"`
}

type PipelineConfig struct {
	InputDir    string `yaml:"inputDir"`
	Watch       bool   `yaml:"watch"`
	Parallelism int    `yaml:"parallelism"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultPredicates is the closed relation vocabulary used when the config
// file does not set one. Unknown predicates collapse to "related_to".
var DefaultPredicates = []string{
	"is_a", "part_of", "uses", "causes", "enables",
	"depends_on", "contrasts_with", "related_to",
}

func LoadConfig(path string, log *logger.Logger) (Config, error) {
	cfg := Config{
		Graph: GraphConfig{
			User:       "neo4j",
			BatchSize:  200,
			MaxRetries: 3,
		},
		LLM: LLMConfig{
			Model:       "llama3.1",
			Temperature: 0.1,
			Timeout:     60 * time.Second,
			MaxRetries:  3,
		},
		Relation: RelationConfig{
			Cooccur: CooccurConfig{Window: "chunk"},
			LLM: RelationLLMConfig{
				MinConfidence: 0.65,
			},
		},
		Pipeline: PipelineConfig{Parallelism: 4},
		Server:   ServerConfig{Addr: ":8080"},
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if len(cfg.Relation.LLM.PredicateSet) == 0 {
		cfg.Relation.LLM.PredicateSet = append([]string(nil), DefaultPredicates...)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	if log != nil {
		log.Info("Config loaded",
			"graph_uri", cfg.Graph.URI,
			"graph_database", cfg.Graph.Database,
			"llm_endpoint", cfg.LLM.Endpoint,
			"llm_model", cfg.LLM.Model,
			"parallelism", cfg.Pipeline.Parallelism,
		)
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment wiring replace connection endpoints and
// credentials without touching the config file.
func applyEnvOverrides(cfg *Config) {
	cfg.Graph.URI = envutil.String("NEO4J_URI", cfg.Graph.URI)
	cfg.Graph.User = envutil.String("NEO4J_USER", cfg.Graph.User)
	cfg.Graph.Password = envutil.String("NEO4J_PASSWORD", cfg.Graph.Password)
	cfg.Graph.Database = envutil.String("NEO4J_DATABASE", cfg.Graph.Database)
	cfg.LLM.Endpoint = envutil.String("LLM_ENDPOINT", cfg.LLM.Endpoint)
	cfg.LLM.Model = envutil.String("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.Timeout = envutil.Duration("LLM_TIMEOUT", cfg.LLM.Timeout)
	cfg.Pipeline.InputDir = envutil.String("PIPELINE_INPUT_DIR", cfg.Pipeline.InputDir)
	cfg.Pipeline.Parallelism = envutil.Int("PIPELINE_PARALLELISM", cfg.Pipeline.Parallelism)
	cfg.Server.Addr = envutil.String("SERVER_ADDR", cfg.Server.Addr)
}

func (c Config) validate() error {
	if c.Graph.URI == "" {
		return fmt.Errorf("config: graph.uri is required (or NEO4J_URI)")
	}
	if c.Graph.Password == "" {
		return fmt.Errorf("config: graph.password is required (or NEO4J_PASSWORD)")
	}
	if c.Graph.BatchSize < 1 {
		return fmt.Errorf("config: graph.batchSize must be positive, got %d", c.Graph.BatchSize)
	}
	if c.Graph.MaxRetries < 1 {
		return fmt.Errorf("config: graph.maxRetries must be positive, got %d", c.Graph.MaxRetries)
	}
	if c.LLM.MaxRetries < 1 {
		return fmt.Errorf("config: llm.maxRetries must be positive, got %d", c.LLM.MaxRetries)
	}
	if c.Relation.LLM.MinConfidence < 0 || c.Relation.LLM.MinConfidence > 1 {
		return fmt.Errorf("config: relation.llm.minConfidence must be in [0,1], got %v", c.Relation.LLM.MinConfidence)
	}
	if c.Pipeline.Parallelism < 1 {
		return fmt.Errorf("config: pipeline.parallelism must be >= 1, got %d", c.Pipeline.Parallelism)
	}
	return nil
}
