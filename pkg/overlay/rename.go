package overlay

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/aretw0/actorflow/internal/runtime"
)

// renamer applies namePrefix/nameSuffix to workflow names and to the files that
// call/runWorkflow actions reference, keeping cross-references consistent.
type renamer struct {
	prefix string
	suffix string
	files  map[string]string
}

func newRenamer(prefix, suffix string, baseFiles []string) renamer {
	r := renamer{prefix: prefix, suffix: suffix, files: make(map[string]string, len(baseFiles))}
	for _, f := range baseFiles {
		r.files[f] = r.fileName(f)
	}
	return r
}

// fileName renames "deploy.yaml" to "<prefix>deploy<suffix>.yaml".
func (r renamer) fileName(file string) string {
	ext := filepath.Ext(file)
	return r.prefix + strings.TrimSuffix(file, ext) + r.suffix + ext
}

func (r renamer) apply(doc document) {
	if name, ok := doc["name"].(string); ok && name != "" {
		doc["name"] = r.prefix + name + r.suffix
	}
	for _, step := range doc.steps() {
		actions, _ := step["actions"].([]any)
		for _, raw := range actions {
			a, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			switch a["method"] {
			case runtime.MethodCall, runtime.MethodRunWorkflow:
				a["arguments"] = r.renameArgs(a["arguments"])
			}
		}
	}
}

func (r renamer) renameArgs(args any) any {
	switch t := args.(type) {
	case string:
		return r.ref(t)
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				t[0] = r.ref(s)
			}
		}
	case map[string]any:
		if s, ok := t["workflow"].(string); ok {
			t["workflow"] = r.ref(s)
		}
	}
	return args
}

// ref renames a reference only when it points at one of the overlay's own bases.
func (r renamer) ref(s string) string {
	out, ok := r.files[path.Base(s)]
	if !ok {
		return s
	}
	return path.Join(path.Dir(s), out)
}
