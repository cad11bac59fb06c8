package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ArtifactPolicy controls which candidate artifact paths writeArtifact is
// allowed to write, beyond the mandatory files named in spec §6 (prompt.md,
// response.md, status.json are never excluded). The codergen handler writes
// through writeArtifact; the tool handler carries a Policy but writes no
// artifact files.
type ArtifactPolicy struct {
	ExcludeGlobs []string `yaml:"exclude_globs" json:"exclude_globs"`
}

// Config holds engine-internal tunables, loaded from an optional YAML file.
// This is not application configuration (env/dotfile loading is an
// out-of-scope external collaborator) — just the handful of knobs the
// engine and task runner need to operate.
type Config struct {
	WorkerPoolSize     int            `yaml:"worker_pool_size" json:"worker_pool_size"`
	ToolTimeoutSeconds int            `yaml:"tool_timeout_seconds" json:"tool_timeout_seconds"`
	Artifacts          ArtifactPolicy `yaml:"artifacts" json:"artifacts"`
}

// DefaultConfig returns the engine's built-in tunables.
func DefaultConfig() Config {
	return Config{
		WorkerPoolSize:     4,
		ToolTimeoutSeconds: 300,
	}
}

const configSchemaJSON = `{
  "type": "object",
  "properties": {
    "worker_pool_size": {"type": "integer", "minimum": 1},
    "tool_timeout_seconds": {"type": "integer", "minimum": 1},
    "artifacts": {
      "type": "object",
      "properties": {
        "exclude_globs": {"type": "array", "items": {"type": "string"}}
      }
    }
  }
}`

// LoadConfig reads and validates a YAML config file, filling in defaults for
// any field the file omits.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("engine: read config %q: %w", path, err)
	}

	// Validate against the JSON Schema by round-tripping through a
	// generic map, since the schema validator operates on JSON-shaped data
	// and our source file is YAML.
	var generic map[string]any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return Config{}, fmt.Errorf("engine: parse config %q: %w", path, err)
	}
	if err := validateConfigSchema(generic); err != nil {
		return Config{}, fmt.Errorf("engine: invalid config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("engine: decode config %q: %w", path, err)
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = DefaultConfig().WorkerPoolSize
	}
	if cfg.ToolTimeoutSeconds <= 0 {
		cfg.ToolTimeoutSeconds = DefaultConfig().ToolTimeoutSeconds
	}
	return cfg, nil
}

func validateConfigSchema(doc map[string]any) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", strings.NewReader(configSchemaJSON)); err != nil {
		return err
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return err
	}
	return schema.Validate(doc)
}
