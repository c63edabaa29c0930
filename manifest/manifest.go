// Package manifest defines the workflow manifest data model and its
// JSON/YAML deserialization.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wasmgraph/wasmgraph/errors"
)

// ComponentName identifies a dependency within a manifest.
type ComponentName string

// NodeId identifies a node within a manifest.
type NodeId string

// InputName identifies a named input parameter.
type InputName string

// FunctionName identifies an exported function of a component.
type FunctionName string

// Node names a component and an exported function to invoke, together
// with literal inputs encoded as text.
type Node struct {
	Run  FunctionName        `json:"run" yaml:"run"`
	Use  ComponentName       `json:"use" yaml:"use"`
	With map[InputName]string `json:"with,omitempty" yaml:"with,omitempty"`
}

// Edge wires one node's output to another node's named input parameter.
type Edge struct {
	Input  InputName `json:"input" yaml:"input"`
	Source NodeId    `json:"source" yaml:"source"`
	Target NodeId    `json:"target" yaml:"target"`
}

// Manifest is the external, read-only workflow description.
type Manifest struct {
	Dependencies map[ComponentName]string `json:"dependencies" yaml:"dependencies"`
	Nodes        map[NodeId]Node          `json:"nodes" yaml:"nodes"`
	Edges        []Edge                   `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// Load reads and deserializes a manifest from path, picking JSON or
// YAML by file extension ("." json -> JSON, .yaml/.yml -> YAML).
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidData, err, "read manifest "+path)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse deserializes manifest bytes, dispatching on ext (as returned
// by filepath.Ext, including the leading dot).
func Parse(data []byte, ext string) (*Manifest, error) {
	var m Manifest

	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.ParseFailed("manifest (json)", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, errors.ParseFailed("manifest (yaml)", err)
		}
	default:
		return nil, errors.InvalidInput(errors.PhaseParse, "unknown manifest extension "+ext)
	}

	return &m, nil
}
