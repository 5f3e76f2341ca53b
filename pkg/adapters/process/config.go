package process

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tool is one allow-listed command.
type Tool struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Env         map[string]string `yaml:"env" json:"env"`
	Description string            `yaml:"description" json:"description"`
	// Timeout is a Go duration string; empty uses the runner default.
	Timeout string `yaml:"timeout" json:"timeout"`
}

func (t Tool) timeout() (time.Duration, error) {
	if t.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(t.Timeout)
	if err != nil {
		return 0, fmt.Errorf("tool %s: invalid timeout %q: %w", t.Name, t.Timeout, err)
	}
	return d, nil
}

// ConfigFile is the layout of tools.yaml.
type ConfigFile struct {
	Tools []Tool `yaml:"tools" json:"tools"`
}

// LoadTools reads a tools file (YAML, or JSON by extension). A missing file
// yields an empty allow-list.
func LoadTools(path string) (map[string]Tool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Tool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tools config: %w", err)
	}

	var cfg ConfigFile
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	tools := make(map[string]Tool, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		if tool.Name == "" || tool.Command == "" {
			return nil, fmt.Errorf("parse %s: tools need a name and a command", path)
		}
		if _, err := tool.timeout(); err != nil {
			return nil, err
		}
		tools[tool.Name] = tool
	}
	return tools, nil
}
