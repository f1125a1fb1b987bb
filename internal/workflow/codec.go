package workflow

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/playbook/internal/types"
)

// Marshal serializes a workflow definition to "json" or "yaml". Both formats
// round-trip losslessly through Unmarshal.
func Marshal(w types.WorkflowDefinition, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		return json.MarshalIndent(w, "", "  ")
	case "yaml", "yml":
		return yaml.Marshal(w)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// Unmarshal parses a workflow definition from "json" or "yaml".
func Unmarshal(data []byte, format string) (types.WorkflowDefinition, error) {
	var w types.WorkflowDefinition
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &w); err != nil {
			return w, fmt.Errorf("parse workflow json: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &w); err != nil {
			return w, fmt.Errorf("parse workflow yaml: %w", err)
		}
	default:
		return w, fmt.Errorf("unsupported format: %s", format)
	}
	return w, nil
}

// WriteFile serializes the workflow in the given format and writes it to
// path.
func WriteFile(path string, w types.WorkflowDefinition, format string) error {
	data, err := Marshal(w, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write workflow file: %w", err)
	}
	return nil
}

// ReadFile loads a workflow definition, inferring the format from the file
// extension (".yaml"/".yml" is YAML, everything else JSON).
func ReadFile(path string) (types.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.WorkflowDefinition{}, fmt.Errorf("read workflow file: %w", err)
	}
	format := "json"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return Unmarshal(data, format)
}
