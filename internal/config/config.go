package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config is a nested mapping loaded from a single YAML file, addressed by
// dotted key paths such as "database.host".
type Config struct {
	path string
	data map[string]any
}

// Load reads and parses the YAML file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var data map[string]any
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &Config{path: path, data: data}, nil
}

// Path returns the file path this Config was loaded from.
func (c *Config) Path() string { return c.path }

// Get walks the dotted key path, returning the value and whether every
// segment was found.
func (c *Config) Get(keyPath string) (any, bool) {
	if c == nil {
		return nil, false
	}
	var cur any = c.data
	for _, seg := range strings.Split(keyPath, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Decode looks up keyPath and decodes it into out using mapstructure,
// letting a Task author consume a config subsection as a typed struct
// rather than a raw map.
func (c *Config) Decode(keyPath string, out any) error {
	v, ok := c.Get(keyPath)
	if !ok {
		return fmt.Errorf("config: no such key %q", keyPath)
	}
	return mapstructure.Decode(v, out)
}

// MergeDefaults deep-merges defaults under base, with base winning on
// conflicting leaf values. task.NewClass uses it to merge a class's
// CONFIG_DEFAULTS over those of its bases; it is not applied to a loaded
// Config.
func MergeDefaults(base, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(defaults)+len(base))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range base {
		if existing, ok := out[k].(map[string]any); ok {
			if incoming, ok := v.(map[string]any); ok {
				out[k] = MergeDefaults(incoming, existing)
				continue
			}
		}
		out[k] = v
	}
	return out
}
