package orchestrator

import (
	"fmt"
	"strings"
)

// Plan is a compiled, acyclic graph definition. It is immutable and safe to
// share between concurrent executions.
type Plan struct {
	def   GraphDefinition
	index map[string]int
	order []int
	preds [][]int // per node, predecessor indexes in edge order
	sinks []int
}

// Compile validates def and orders its nodes with Kahn's algorithm. Ready
// nodes leave a FIFO queue, seeded in declaration order, so the order is
// deterministic for a given definition.
func Compile(def GraphDefinition) (*Plan, error) {
	n := len(def.Nodes)
	if n == 0 {
		return nil, ErrEmptyGraph
	}

	index := make(map[string]int, n)
	for i, node := range def.Nodes {
		if strings.TrimSpace(node.ID) == "" {
			return nil, fmt.Errorf("%w: node %d has an empty id", ErrInvalidGraph, i)
		}
		if strings.TrimSpace(node.Role) == "" {
			return nil, fmt.Errorf("%w: node %q has no role", ErrInvalidGraph, node.ID)
		}
		if _, dup := index[node.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, node.ID)
		}
		index[node.ID] = i
	}

	inDegree := make([]int, n)
	succ := make([][]int, n)
	preds := make([][]int, n)
	hasOut := make([]bool, n)

	for _, edge := range def.Edges {
		from, ok := index[edge.From]
		if !ok {
			return nil, &UnknownNodeError{NodeID: edge.From, Edge: edge}
		}
		to, ok := index[edge.To]
		if !ok {
			return nil, &UnknownNodeError{NodeID: edge.To, Edge: edge}
		}
		succ[from] = append(succ[from], to)
		preds[to] = append(preds[to], from)
		inDegree[to]++
		hasOut[from] = true
	}

	queue := make([]int, 0, n)
	for i := range n {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		order = append(order, cur)
		for _, next := range succ[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) < n {
		var unresolved []string
		for i, d := range inDegree {
			if d > 0 {
				unresolved = append(unresolved, def.Nodes[i].ID)
			}
		}
		return nil, &CycleError{Unresolved: unresolved}
	}

	var sinks []int
	for i := range n {
		if !hasOut[i] {
			sinks = append(sinks, i)
		}
	}

	return &Plan{
		def:   cloneDefinition(def),
		index: index,
		order: order,
		preds: preds,
		sinks: sinks,
	}, nil
}

func (p *Plan) Len() int { return len(p.def.Nodes) }

// Definition returns a copy of the compiled definition.
func (p *Plan) Definition() GraphDefinition { return cloneDefinition(p.def) }

// Order returns node ids in execution order.
func (p *Plan) Order() []string { return p.ids(p.order) }

// Sinks returns the ids of nodes with no outgoing edge, in declaration order.
func (p *Plan) Sinks() []string { return p.ids(p.sinks) }

// Predecessors returns the sources of every edge into id, in edge order.
func (p *Plan) Predecessors(id string) []string {
	i, ok := p.index[id]
	if !ok {
		return nil
	}
	return p.ids(p.preds[i])
}

func (p *Plan) Role(id string) string {
	i, ok := p.index[id]
	if !ok {
		return ""
	}
	return p.def.Nodes[i].Role
}

func (p *Plan) IsSink(id string) bool {
	i, ok := p.index[id]
	if !ok {
		return false
	}
	for _, s := range p.sinks {
		if s == i {
			return true
		}
	}
	return false
}

func (p *Plan) ids(idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = p.def.Nodes[j].ID
	}
	return out
}

func cloneDefinition(def GraphDefinition) GraphDefinition {
	return GraphDefinition{
		Nodes: append([]NodeSpec(nil), def.Nodes...),
		Edges: append([]Edge(nil), def.Edges...),
	}
}
