package graphdef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/awalterschulze/gographviz"
	"github.com/awalterschulze/gographviz/ast"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
)

// ErrInvalidDOT is matched by every DOT parse failure.
var ErrInvalidDOT = errors.New("invalid DOT graph")

var errSubgraph = fmt.Errorf("%w: subgraphs are not supported", ErrInvalidDOT)

// ParseDOT reads a digraph whose nodes carry a role attribute:
//
//	digraph review { n1 [role="planner"]; n2 [role="writer"]; n1 -> n2 -> n3; }
//
// The parsed statements are walked directly rather than through
// gographviz.Analyse, which only accepts Graphviz's own attribute names and
// does not keep statement order. Nodes appear in first-mention order and
// edges in text order, so fan-in follows what the author wrote.
func ParseDOT(dot string) (orchestrator.GraphDefinition, error) {
	graph, err := gographviz.ParseString(dot)
	if err != nil {
		return orchestrator.GraphDefinition{}, fmt.Errorf("%w: %v", ErrInvalidDOT, err)
	}
	if graph.Type != ast.DIGRAPH {
		return orchestrator.GraphDefinition{}, fmt.Errorf("%w: graph must be a digraph", ErrInvalidDOT)
	}

	b := dotBuilder{index: map[string]int{}}
	for _, stmt := range graph.StmtList {
		switch s := stmt.(type) {
		case *ast.NodeStmt:
			b.node(unquote(s.NodeID.ID.String()), s.Attrs.GetMap())
		case *ast.EdgeStmt:
			if err := b.edges(s); err != nil {
				return orchestrator.GraphDefinition{}, err
			}
		case *ast.SubGraph:
			return orchestrator.GraphDefinition{}, errSubgraph
		}
	}
	return b.def, nil
}

type dotBuilder struct {
	def   orchestrator.GraphDefinition
	index map[string]int
}

// node declares id on first mention. A later statement may fill in the role.
func (b *dotBuilder) node(id string, attrs map[string]string) {
	role := getAttr(attrs, "role")
	if role == "" {
		role = getAttr(attrs, "label")
	}

	if i, ok := b.index[id]; ok {
		if role != "" {
			b.def.Nodes[i].Role = role
		}
		return
	}
	b.index[id] = len(b.def.Nodes)
	b.def.Nodes = append(b.def.Nodes, orchestrator.NodeSpec{ID: id, Role: role})
}

// edges expands "a -> b -> c" into a->b, b->c.
func (b *dotBuilder) edges(s *ast.EdgeStmt) error {
	from, err := locationID(s.Source)
	if err != nil {
		return err
	}
	b.node(from, nil)

	for _, rh := range s.EdgeRHS {
		to, err := locationID(rh.Destination)
		if err != nil {
			return err
		}
		b.node(to, nil)
		b.def.Edges = append(b.def.Edges, orchestrator.Edge{From: from, To: to})
		from = to
	}
	return nil
}

func locationID(loc ast.Location) (string, error) {
	n, ok := loc.(*ast.NodeID)
	if !ok {
		return "", errSubgraph
	}
	return unquote(n.ID.String()), nil
}

func getAttr(attrs map[string]string, key string) string {
	return unquote(strings.TrimSpace(attrs[key]))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
