// Package mermaidascii renders mermaid graph definitions as ASCII dependency
// trees. It understands the subset the plan command generates: an optional
// "graph TD" header, bare node lines, and "A -->|label| B" edges. Datasets
// have several independent roots, so the output is a forest, and a node with
// several parents is repeated under each.
package mermaidascii

import (
	"fmt"
	"strings"

	orderedmap "github.com/elliotchance/orderedmap/v2"
)

// edge is one parent -> child link with an optional label.
type edge struct {
	to    string
	label string
}

// model is the parsed graph: nodes in first-seen order, each with its
// outgoing edges in declaration order.
type model struct {
	nodes    *orderedmap.OrderedMap[string, []edge]
	indegree map[string]int
}

func newModel() *model {
	return &model{
		nodes:    orderedmap.NewOrderedMap[string, []edge](),
		indegree: make(map[string]int),
	}
}

func (m *model) addNode(name string) {
	if _, ok := m.nodes.Get(name); !ok {
		m.nodes.Set(name, nil)
	}
}

// addEdge links two nodes, declaring them as needed. A repeated parent/child
// pair keeps its first declaration.
func (m *model) addEdge(from, to, label string) {
	m.addNode(from)
	m.addNode(to)

	edges, _ := m.nodes.Get(from)
	for _, e := range edges {
		if e.to == to {
			return
		}
	}
	m.nodes.Set(from, append(edges, edge{to: to, label: label}))
	m.indegree[to]++
}

// roots returns the nodes with no incoming edges, in first-seen order.
func (m *model) roots() []string {
	var roots []string
	for el := m.nodes.Front(); el != nil; el = el.Next() {
		if m.indegree[el.Key] == 0 {
			roots = append(roots, el.Key)
		}
	}
	return roots
}

func (m *model) children(name string) []edge {
	edges, _ := m.nodes.Get(name)
	return edges
}

// parse reads a mermaid graph definition into a model. Header lines
// ("graph TD", "flowchart LR") and "%%" comments are skipped; everything
// else must be a node or edge line.
func parse(input string) (*model, error) {
	m := newModel()

	for _, raw := range strings.Split(input, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		if line == "graph" || line == "flowchart" ||
			strings.HasPrefix(line, "graph ") || strings.HasPrefix(line, "flowchart ") {
			continue
		}

		from, rest, found := strings.Cut(line, "-->")
		if !found {
			if strings.ContainsAny(line, " \t") {
				return nil, fmt.Errorf("cannot parse line %q", line)
			}
			m.addNode(line)
			continue
		}

		from = strings.TrimSpace(from)
		rest = strings.TrimSpace(rest)

		var label string
		if strings.HasPrefix(rest, "|") {
			end := strings.Index(rest[1:], "|")
			if end < 0 {
				return nil, fmt.Errorf("unterminated edge label in %q", line)
			}
			label = rest[1 : end+1]
			rest = strings.TrimSpace(rest[end+2:])
		}

		to := rest
		if from == "" || to == "" || strings.ContainsAny(from+to, " \t") {
			return nil, fmt.Errorf("cannot parse edge %q", line)
		}
		m.addEdge(from, to, label)
	}

	if m.nodes.Len() == 0 {
		return nil, fmt.Errorf("empty graph definition")
	}
	return m, nil
}
