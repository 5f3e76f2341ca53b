package domain

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeWorkflow parses a workflow document. Names ending in .json are read as
// JSON, everything else as YAML.
func DecodeWorkflow(name string, data []byte) (*Workflow, error) {
	var wf Workflow
	var err error
	if strings.EqualFold(filepath.Ext(name), ".json") {
		err = json.Unmarshal(data, &wf)
	} else {
		err = yaml.Unmarshal(data, &wf)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}
	return &wf, nil
}
