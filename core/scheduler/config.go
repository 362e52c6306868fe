package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lddl/core/model"
)

// LoadScenario loads a ScenarioConfig from a JSON or YAML file.
func LoadScenario(path string) (model.ScenarioConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.ScenarioConfig{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg model.ScenarioConfig
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return model.ScenarioConfig{}, fmt.Errorf("unsupported scenario format: %s", ext)
	}
	return cfg, err
}

// DecodeScenario reads a ScenarioConfig from r.
func DecodeScenario(r io.Reader, format string) (model.ScenarioConfig, error) {
	var cfg model.ScenarioConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
