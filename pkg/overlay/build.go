package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/aretw0/actorflow/internal/logging"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Builder produces merged workflows from overlay directories.
type Builder struct {
	logger *slog.Logger
	vars   map[string]string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger configures a logger for the Builder.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = logger
	}
}

// WithVars adds variables that take precedence over the ones in overlay.yaml.
func WithVars(vars map[string]string) Option {
	return func(b *Builder) {
		b.vars = vars
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build is New(opts...).Build(ctx, dir).
func Build(ctx context.Context, dir string, opts ...Option) (*Result, error) {
	return New(opts...).Build(ctx, dir)
}

// Build merges the overlay in dir. Bases are never modified; the build either
// produces every output or fails as a whole.
func (b *Builder) Build(ctx context.Context, dir string) (*Result, error) {
	return b.build(ctx, dir, make(map[string]bool))
}

type baseDoc struct {
	file string
	doc  document
}

type patchDoc struct {
	ref   PatchRef
	top   map[string]any
	steps []map[string]any
}

func (b *Builder) build(ctx context.Context, dir string, visiting map[string]bool) (*Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if visiting[abs] {
		return nil, &CycleError{Dir: dir}
	}
	visiting[abs] = true
	defer delete(visiting, abs)

	cfg, err := Load(dir)
	if err != nil {
		return nil, err
	}

	bases, err := b.loadBases(ctx, dir, cfg.Bases, visiting)
	if err != nil {
		return nil, err
	}
	baseFiles := make([]string, 0, len(bases))
	known := make(map[string]bool, len(bases))
	for _, base := range bases {
		if known[base.file] {
			return nil, fmt.Errorf("overlay %s: base file %s listed twice", dir, base.file)
		}
		known[base.file] = true
		baseFiles = append(baseFiles, base.file)
	}

	patches := make([]patchDoc, 0, len(cfg.Patches))
	for _, ref := range cfg.Patches {
		if !ref.Global() && !known[filepath.Base(ref.Target)] {
			return nil, fmt.Errorf("patch %s: target %s is not a base of %s", ref.Patch, ref.Target, dir)
		}
		doc, err := readDocument(filepath.Join(dir, ref.Patch))
		if err != nil {
			return nil, fmt.Errorf("patch %s: %w", ref.Patch, err)
		}
		p := patchDoc{ref: ref, steps: doc.steps(), top: make(map[string]any)}
		// Top-level fields other than the steps and the name merge into each target.
		for k, v := range doc {
			if k != keySteps && k != "name" {
				p.top[k] = v
			}
		}
		patches = append(patches, p)
	}

	vars := make(map[string]string, len(cfg.Vars)+len(b.vars))
	maps.Copy(vars, cfg.Vars)
	maps.Copy(vars, b.vars)
	ren := newRenamer(cfg.NamePrefix, cfg.NameSuffix, baseFiles)

	res := newResult()
	applied := make([]bool, len(patches))
	for _, base := range bases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := base.doc.clone()
		steps := doc.steps()
		for n, p := range patches {
			if !applies(p, base.file, steps) {
				continue
			}
			merged, err := mergeSteps(steps, p.steps, p.ref.Patch)
			if err != nil {
				return nil, err
			}
			steps = merged
			mergeMaps(doc, p.top)
			applied[n] = true
			b.logger.Debug("patch applied", "patch", p.ref.Patch, "base", base.file)
		}
		doc.setSteps(steps)
		substituteAll(map[string]any(doc), vars)
		ren.apply(doc)

		out := ren.fileName(base.file)
		wf, err := decodeWorkflow(doc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", out, err)
		}
		if err := wf.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", out, err)
		}
		res.add(base.file, out, doc, wf)
	}

	for n, p := range patches {
		if applied[n] {
			continue
		}
		// A global patch that touches no base can only insert, and its first
		// insert has nothing to anchor to.
		if vertex, ok := firstInsert(p.steps); ok {
			return nil, &OrphanVertexError{File: p.ref.Patch, Vertex: vertex}
		}
		b.logger.Warn("patch matched no base", "patch", p.ref.Patch, "overlay", dir)
	}
	b.logger.Info("overlay built", "overlay", dir, "outputs", len(res.names), "patches", len(patches))
	return res, nil
}

// applies reports whether p targets the base: scoped patches by file name, global
// patches by sharing at least one vertex with it.
func applies(p patchDoc, baseFile string, steps []map[string]any) bool {
	if !p.ref.Global() {
		return filepath.Base(p.ref.Target) == baseFile
	}
	present := make(map[string]bool, len(steps))
	for _, s := range steps {
		present[vertexOf(s)] = true
	}
	for _, s := range p.steps {
		if v := vertexOf(s); v != "" && present[v] {
			return true
		}
	}
	return false
}

// firstInsert returns the vertex of the first step that is not a $delete.
func firstInsert(steps []map[string]any) (string, bool) {
	for _, s := range steps {
		if !deleted(s) {
			return vertexOf(s), true
		}
	}
	return "", false
}

func (b *Builder) loadBases(ctx context.Context, dir string, entries []string, visiting map[string]bool) ([]baseDoc, error) {
	var out []baseDoc
	for _, entry := range entries {
		path := filepath.Join(dir, entry)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("base %s: %w", entry, err)
		}

		if !info.IsDir() {
			doc, err := readDocument(path)
			if err != nil {
				return nil, fmt.Errorf("base %s: %w", entry, err)
			}
			out = append(out, baseDoc{file: filepath.Base(path), doc: doc})
			continue
		}

		if IsOverlay(path) {
			sub, err := b.build(ctx, path, visiting)
			if err != nil {
				return nil, fmt.Errorf("base %s: %w", entry, err)
			}
			for _, name := range sub.names {
				out = append(out, baseDoc{file: name, doc: sub.docs[name].clone()})
			}
			continue
		}

		files, err := workflowFiles(path)
		if err != nil {
			return nil, fmt.Errorf("base %s: %w", entry, err)
		}
		for _, f := range files {
			doc, err := readDocument(filepath.Join(path, f))
			if err != nil {
				return nil, fmt.Errorf("base %s: %w", filepath.Join(entry, f), err)
			}
			out = append(out, baseDoc{file: f, doc: doc})
		}
	}
	return out, nil
}

// workflowFiles lists the YAML and JSON files directly under dir, sorted.
func workflowFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// readDocument decodes a YAML (or JSON) file into generic maps.
func readDocument(path string) (document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc, nil
}

var argumentsType = reflect.TypeOf(domain.Arguments{})

// argumentsHook lets mapstructure fill domain.Arguments from raw list, map or scalar values.
func argumentsHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != argumentsType {
		return data, nil
	}
	return domain.ArgumentsOf(data), nil
}

func decodeWorkflow(doc document) (*domain.Workflow, error) {
	var wf domain.Workflow
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       argumentsHook,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           &wf,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(map[string]any(doc)); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	return &wf, nil
}
