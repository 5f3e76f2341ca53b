package overlay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ConfigFiles are the file names looked up in an overlay directory, in order.
var ConfigFiles = []string{"overlay.yaml", "overlay.yml", "kustomization.yaml"}

// Config is the overlay configuration document.
type Config struct {
	Bases      []string          `yaml:"bases" json:"bases"`
	Patches    []PatchRef        `yaml:"patches,omitempty" json:"patches,omitempty"`
	Vars       map[string]string `yaml:"vars,omitempty" json:"vars,omitempty"`
	NamePrefix string            `yaml:"namePrefix,omitempty" json:"namePrefix,omitempty"`
	NameSuffix string            `yaml:"nameSuffix,omitempty" json:"nameSuffix,omitempty"`
}

// PatchRef is a patch file, either global or scoped to the base file named by Target.
type PatchRef struct {
	Target string `yaml:"target,omitempty" json:"target,omitempty"`
	Patch  string `yaml:"patch" json:"patch"`
}

// Global reports whether the patch applies to every matching base.
func (p PatchRef) Global() bool {
	return p.Target == ""
}

// UnmarshalYAML accepts a bare path as a global patch.
func (p *PatchRef) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		p.Target = ""
		return node.Decode(&p.Patch)
	}
	type plain PatchRef
	var v plain
	if err := node.Decode(&v); err != nil {
		return err
	}
	if v.Patch == "" {
		return fmt.Errorf("line %d: patch entry needs a patch path", node.Line)
	}
	*p = PatchRef(v)
	return nil
}

// Load reads the overlay configuration of dir.
func Load(dir string) (*Config, error) {
	path, err := configPath(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(cfg.Bases) == 0 {
		return nil, fmt.Errorf("%s: no bases listed", path)
	}
	return &cfg, nil
}

// IsOverlay reports whether dir holds an overlay configuration.
func IsOverlay(dir string) bool {
	_, err := configPath(dir)
	return err == nil
}

func configPath(dir string) (string, error) {
	for _, name := range ConfigFiles {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoConfig, dir)
}
