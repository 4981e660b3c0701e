// Package graphdef loads DAG definitions from JSON, YAML or Graphviz DOT.
package graphdef

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatDOT  Format = "dot"
)

var ErrUnknownFormat = errors.New("unknown graph format")

// FormatFromPath picks a format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".dot", ".gv":
		return FormatDOT, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

func Load(path string) (orchestrator.GraphDefinition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return orchestrator.GraphDefinition{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return orchestrator.GraphDefinition{}, fmt.Errorf("read graph: %w", err)
	}
	return Parse(data, format)
}

func Parse(data []byte, format Format) (orchestrator.GraphDefinition, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(data)
	case FormatYAML:
		return ParseYAML(data)
	case FormatDOT:
		return ParseDOT(string(data))
	default:
		return orchestrator.GraphDefinition{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func ParseJSON(data []byte) (orchestrator.GraphDefinition, error) {
	var def orchestrator.GraphDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return orchestrator.GraphDefinition{}, fmt.Errorf("failed to parse JSON graph: %w", err)
	}
	return def, nil
}

// ParseYAML reads the same shape as the JSON form. The nodes mapping is
// walked as a yaml.Node so declaration order is kept.
func ParseYAML(data []byte) (orchestrator.GraphDefinition, error) {
	var raw struct {
		Nodes yaml.Node           `yaml:"nodes"`
		Edges []orchestrator.Edge `yaml:"edges"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return orchestrator.GraphDefinition{}, fmt.Errorf("failed to parse YAML graph: %w", err)
	}

	def := orchestrator.GraphDefinition{Edges: raw.Edges}
	if raw.Nodes.Kind == 0 {
		return def, nil
	}
	if raw.Nodes.Kind != yaml.MappingNode {
		return orchestrator.GraphDefinition{}, fmt.Errorf("line %d: nodes must be a mapping keyed by node id", raw.Nodes.Line)
	}

	seen := map[string]struct{}{}
	for i := 0; i+1 < len(raw.Nodes.Content); i += 2 {
		key, val := raw.Nodes.Content[i], raw.Nodes.Content[i+1]

		var body struct {
			Role string `yaml:"role"`
		}
		if err := val.Decode(&body); err != nil {
			return orchestrator.GraphDefinition{}, fmt.Errorf("node %q: %w", key.Value, err)
		}
		if _, dup := seen[key.Value]; dup {
			return orchestrator.GraphDefinition{}, fmt.Errorf("%w: %q", orchestrator.ErrDuplicateNode, key.Value)
		}
		seen[key.Value] = struct{}{}
		def.Nodes = append(def.Nodes, orchestrator.NodeSpec{ID: key.Value, Role: body.Role})
	}
	return def, nil
}

// Hash identifies a definition by the sha256 of its canonical JSON form.
func Hash(def orchestrator.GraphDefinition) (string, error) {
	b, err := json.Marshal(def)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(bytes.TrimSpace(b))
	return hex.EncodeToString(sum[:]), nil
}
