package orchestrator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

type NodeSpec struct {
	ID   string
	Role string
}

type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// GraphDefinition is the caller-supplied DAG. Nodes keep their declaration
// order; on the wire they are an object keyed by node id:
//
//	{"nodes": {"n1": {"role": "planner"}}, "edges": [{"from": "n1", "to": "n2"}]}
type GraphDefinition struct {
	Nodes []NodeSpec
	Edges []Edge
}

type nodeBody struct {
	Role string `json:"role"`
}

func (g GraphDefinition) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"nodes":{`)
	for i, n := range g.Nodes {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n.ID)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(nodeBody{Role: n.Role})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString(`},"edges":`)

	edges := g.Edges
	if edges == nil {
		edges = []Edge{}
	}
	b, err := json.Marshal(edges)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (g *GraphDefinition) UnmarshalJSON(b []byte) error {
	var raw struct {
		Nodes json.RawMessage `json:"nodes"`
		Edges []Edge          `json:"edges"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	nodes, err := decodeOrderedNodes(raw.Nodes)
	if err != nil {
		return err
	}

	g.Nodes = nodes
	g.Edges = raw.Edges
	return nil
}

// decodeOrderedNodes walks the nodes object token by token so declaration
// order survives decoding.
func decodeOrderedNodes(raw json.RawMessage) ([]NodeSpec, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("graph nodes must be an object keyed by node id")
	}

	seen := map[string]struct{}{}
	var out []NodeSpec
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v in nodes", tok)
		}

		var body nodeBody
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("node %q: %w", id, err)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, id)
		}
		seen[id] = struct{}{}
		out = append(out, NodeSpec{ID: id, Role: body.Role})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}
