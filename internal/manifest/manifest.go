// Package manifest parses and validates the declarative JSON pipeline
// description the authoring tool produces.
package manifest

import (
	"fmt"
	"strings"
)

// ExecutionMode selects how long the runtime keeps iterating.
type ExecutionMode string

const (
	// ModeContinuous runs until a shutdown signal arrives.
	ModeContinuous ExecutionMode = "continuous"
	// ModeSingleShot runs exactly one iteration and exits.
	ModeSingleShot ExecutionMode = "single_shot"
)

// Block is one block instance entry: a unique id, the implementation
// type/version to load, and the instance configuration map.
type Block struct {
	ID      string         `json:"id"`
	Type    string         `json:"type"`
	Version string         `json:"version"`
	Config  map[string]any `json:"config"`
}

// Endpoint addresses one pin on one block instance.
type Endpoint struct {
	Node string
	Pin  string
}

// String renders the endpoint in its manifest form.
func (e Endpoint) String() string { return e.Node + "." + e.Pin }

// ParseEndpoint splits a "node.pin" address. The pin name is everything
// after the last dot, so node ids themselves may contain dots.
func ParseEndpoint(s string) (Endpoint, error) {
	idx := strings.LastIndex(s, ".")
	if idx <= 0 || idx == len(s)-1 {
		return Endpoint{}, fmt.Errorf("endpoint %q is not of the form node.pin", s)
	}
	return Endpoint{Node: s[:idx], Pin: s[idx+1:]}, nil
}

// Connection wires a source output pin to a destination input pin.
type Connection struct {
	From Endpoint
	To   Endpoint
}

// RuntimeConfig carries the manifest's runtime-level settings.
type RuntimeConfig struct {
	BlockLibraryPath string        `json:"block_library_path"`
	LogLevel         string        `json:"log_level"`
	ExecutionMode    ExecutionMode `json:"execution_mode"`
}

// Manifest is the parsed, structurally valid pipeline description.
type Manifest struct {
	Blocks      []Block
	Connections []Connection
	Runtime     RuntimeConfig

	byID map[string]*Block
}

// Block returns the block entry with the given instance id.
func (m *Manifest) Block(id string) (*Block, bool) {
	b, ok := m.byID[id]
	return b, ok
}

// ParseError is the fatal, pre-resource-touch manifest error class. Path
// names the manifest file (empty for in-memory input) and Location names
// the offending block or connection where one is known.
type ParseError struct {
	Reason   string
	Path     string
	Location string
}

func (e *ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString("manifest")
	if e.Path != "" {
		sb.WriteString(" " + e.Path)
	}
	if e.Location != "" {
		sb.WriteString(", " + e.Location)
	}
	sb.WriteString(": " + e.Reason)
	return sb.String()
}
