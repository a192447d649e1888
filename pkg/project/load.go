// SPDX-License-Identifier: MPL-2.0

package project

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/botvelocity/bv/internal/fsutil"

	"gopkg.in/yaml.v3"
)

// legacyEnvironmentKey is accepted as an alias of environment_dir.
const legacyEnvironmentKey = "venv_dir"

// Load reads and structurally validates the descriptor at path. Workdir
// existence is not checked here; call Validate with the project root for that.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Path: path, Problems: []string{fmt.Sprintf("Config not found at %s", path)}, Err: err}
		}
		return nil, &ConfigError{Path: path, Problems: []string{fmt.Sprintf("unable to read config %s: %v", path, err)}, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Path = path
		}
		return nil, err
	}
	return cfg, nil
}

// Parse decodes descriptor bytes and runs syntax-level validation.
func Parse(data []byte) (*Config, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("invalid YAML: %v", err)}, Err: err}
	}

	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &ConfigError{Problems: []string{"Configuration root must be a mapping"}}
	}

	cfg, problems := decode(root)
	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode maps the generic YAML tree onto Config, reporting shape problems
// (missing required keys, wrong container types) rather than value problems.
func decode(root map[string]any) (*Config, []string) {
	var problems []string
	cfg := &Config{EnvironmentDir: DefaultEnvironmentDir}

	for _, field := range []string{"name", "version"} {
		if _, ok := root[field]; !ok {
			problems = append(problems, fmt.Sprintf("Missing required field '%s'", field))
		}
	}
	cfg.Name = scalarString(root["name"])
	cfg.Version = scalarString(root["version"])

	switch eps := root["entrypoints"].(type) {
	case nil:
	case []any:
		for i, item := range eps {
			m, ok := item.(map[string]any)
			if !ok {
				problems = append(problems, fmt.Sprintf("project.entrypoints[%d] must be a mapping", i))
				continue
			}
			cfg.Entrypoints = append(cfg.Entrypoints, EntryPoint{
				Name:    scalarString(m["name"]),
				Command: scalarString(m["command"]),
				Workdir: scalarString(m["workdir"]),
				Default: truthy(m["default"]),
				Input:   InputMode(scalarString(m["input"])),
			})
		}
	default:
		problems = append(problems, "entrypoints must be a list")
	}

	key := "environment_dir"
	envDir, ok := root[key]
	if !ok {
		key = legacyEnvironmentKey
		envDir, ok = root[key]
	}
	if ok && envDir != nil {
		s, isString := envDir.(string)
		if !isString {
			problems = append(problems, fmt.Sprintf("%s must be a string", key))
		} else {
			cfg.EnvironmentDir = s
		}
	}

	switch orch := root["orchestrator"].(type) {
	case nil:
	case map[string]any:
		if u := scalarString(orch["url"]); u != "" {
			cfg.Orchestrator = &OrchestratorConfig{URL: u}
		}
	default:
		problems = append(problems, "orchestrator must be a mapping")
	}

	return cfg, problems
}

// scalarString renders a YAML scalar as a string; absent and null become "".
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case bool:
		if !s {
			return ""
		}
		return "true"
	default:
		return fmt.Sprint(s)
	}
}

func truthy(v any) bool {
	switch b := v.(type) {
	case nil:
		return false
	case bool:
		return b
	case string:
		return b != ""
	case int:
		return b != 0
	case float64:
		return b != 0
	default:
		return true
	}
}

// Marshal renders cfg with a stable key order.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding project config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding project config: %w", err)
	}
	return buf.Bytes(), nil
}

// Save serializes cfg and atomically replaces the descriptor at path.
func Save(path string, cfg *Config) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data, 0o644)
}
