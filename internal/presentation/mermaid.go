// Package presentation renders compiled plans for humans.
package presentation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/awmpietro/golang-llm-orchestration-case/internal/orchestrator"
)

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Mermaid draws plan as a top-down flowchart. Nodes are labelled
// "id (role)" and sinks are drawn as stadiums.
func Mermaid(plan *orchestrator.Plan) string {
	def := plan.Definition()
	ids := mermaidIDs(def.Nodes)

	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, n := range def.Nodes {
		label := escapeLabel(fmt.Sprintf("%s (%s)", n.ID, n.Role))
		if plan.IsSink(n.ID) {
			fmt.Fprintf(&b, "    %s([\"%s\"])\n", ids[n.ID], label)
			continue
		}
		fmt.Fprintf(&b, "    %s[\"%s\"]\n", ids[n.ID], label)
	}
	for _, e := range def.Edges {
		fmt.Fprintf(&b, "    %s --> %s\n", ids[e.From], ids[e.To])
	}
	return b.String()
}

// mermaidIDs maps node ids to identifiers Mermaid accepts, keeping them
// readable and unique.
func mermaidIDs(nodes []orchestrator.NodeSpec) map[string]string {
	out := make(map[string]string, len(nodes))
	used := map[string]struct{}{}
	for i, n := range nodes {
		base := unsafeID.ReplaceAllString(n.ID, "_")
		id := base
		for suffix := i; ; suffix++ {
			if _, taken := used[id]; !taken && id != "" && !strings.EqualFold(id, "end") {
				break
			}
			id = fmt.Sprintf("%s_%d", base, suffix)
		}
		used[id] = struct{}{}
		out[n.ID] = id
	}
	return out
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
