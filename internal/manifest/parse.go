package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// rawManifest matches the JSON wire shape. Older authoring tool releases
// emitted block entries under "nodes"; both spellings are accepted, with
// "blocks" winning when both are present.
type rawManifest struct {
	Blocks      []Block         `json:"blocks"`
	Nodes       []Block         `json:"nodes"`
	Connections []rawConnection `json:"connections"`
	Runtime     RuntimeConfig   `json:"runtime_config"`
}

type rawConnection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Parse reads and structurally validates a manifest file. It is a pure
// function over the file contents: no libraries are located or loaded.
// Semantic validation against the block catalog happens in Validate.
func Parse(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Reason: err.Error(), Path: path}
	}
	m, err := ParseBytes(data)
	if err != nil {
		if pe, ok := err.(*ParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return m, nil
}

// ParseBytes structurally validates an in-memory manifest document.
func ParseBytes(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	blocks := raw.Blocks
	if len(blocks) == 0 {
		blocks = raw.Nodes
	}
	if len(blocks) == 0 {
		return nil, &ParseError{Reason: "no block entries"}
	}

	m := &Manifest{
		Blocks:  blocks,
		Runtime: raw.Runtime,
		byID:    make(map[string]*Block, len(blocks)),
	}

	for i := range m.Blocks {
		b := &m.Blocks[i]
		switch {
		case b.ID == "":
			return nil, &ParseError{Reason: "block entry missing id", Location: fmt.Sprintf("blocks[%d]", i)}
		case b.Type == "":
			return nil, &ParseError{Reason: "block entry missing type", Location: "block " + b.ID}
		case b.Version == "":
			return nil, &ParseError{Reason: "block entry missing version", Location: "block " + b.ID}
		}
		if _, dup := m.byID[b.ID]; dup {
			return nil, &ParseError{Reason: "duplicate block id", Location: "block " + b.ID}
		}
		m.byID[b.ID] = b
	}

	for i, rc := range raw.Connections {
		loc := fmt.Sprintf("connections[%d]", i)
		from, err := ParseEndpoint(rc.From)
		if err != nil {
			return nil, &ParseError{Reason: err.Error(), Location: loc}
		}
		to, err := ParseEndpoint(rc.To)
		if err != nil {
			return nil, &ParseError{Reason: err.Error(), Location: loc}
		}
		m.Connections = append(m.Connections, Connection{From: from, To: to})
	}

	switch m.Runtime.ExecutionMode {
	case "", ModeContinuous, ModeSingleShot:
	default:
		return nil, &ParseError{
			Reason:   fmt.Sprintf("unknown execution_mode %q", m.Runtime.ExecutionMode),
			Location: "runtime_config",
		}
	}

	return m, nil
}
