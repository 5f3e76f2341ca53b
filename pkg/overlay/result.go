package overlay

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/actorflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Result holds the workflows produced by a build, one per base file.
// It implements ports.WorkflowLoader.
type Result struct {
	names     []string
	aliases   map[string]string
	docs      map[string]document
	workflows map[string]*domain.Workflow
}

func newResult() *Result {
	return &Result{
		aliases:   make(map[string]string),
		docs:      make(map[string]document),
		workflows: make(map[string]*domain.Workflow),
	}
}

func (r *Result) add(baseFile, name string, doc document, wf *domain.Workflow) {
	r.names = append(r.names, name)
	r.aliases[baseFile] = name
	r.docs[name] = doc
	r.workflows[name] = wf
}

// Names returns the output file names in base order.
func (r *Result) Names() []string {
	return append([]string(nil), r.names...)
}

// Workflow returns a copy of the named output. The original base file name is accepted too.
func (r *Result) Workflow(name string) (*domain.Workflow, bool) {
	key := path.Base(filepath.ToSlash(name))
	if alias, ok := r.aliases[key]; ok && r.workflows[key] == nil {
		key = alias
	}
	wf, ok := r.workflows[key]
	if !ok {
		return nil, false
	}
	return wf.Clone(), true
}

// Load implements ports.WorkflowLoader.
func (r *Result) Load(_ context.Context, name string) (*domain.Workflow, error) {
	wf, ok := r.Workflow(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, name)
	}
	return wf, nil
}

// List implements ports.WorkflowLoader.
func (r *Result) List(context.Context) ([]string, error) {
	return r.Names(), nil
}

// Marshal encodes the named output as YAML, or as JSON when its name ends in .json.
func (r *Result) Marshal(name string) ([]byte, error) {
	wf, ok := r.workflows[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, name)
	}
	if strings.EqualFold(filepath.Ext(name), ".json") {
		data, err := json.MarshalIndent(wf, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
	return yaml.Marshal(wf)
}

// WriteDir writes every output into dir, creating it if needed.
func (r *Result) WriteDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for _, name := range r.names {
		data, err := r.Marshal(name)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}
