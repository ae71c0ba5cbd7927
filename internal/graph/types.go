// Package graph provides dependency graph structures and ordering algorithms
// for scheduling relation loads.
package graph

import (
	orderedmap "github.com/elliotchance/orderedmap/v2"
)

// Node represents a relation in the dependency graph.
type Node struct {
	Name      string // Relation name, also the base name of its data file
	KeyColumn string // Primary key column of the relation
}

// Edge represents a parent -> child dependency between relations.
type Edge struct {
	From string // Parent relation name
	To   string // Child relation name
}

// EdgeMeta describes the foreign key backing an edge. Edges added without
// metadata constrain ordering only and cannot be verified against the sink.
type EdgeMeta struct {
	ForeignKey   string // FK column in the child relation
	ReferenceKey string // Key column in the parent relation the FK points at
}

// Graph is the dependency structure for one dataset. Relations keep their
// registration order so that topological sorting is deterministic across
// runs, no matter how ties between ready relations fall.
type Graph struct {
	nodes        *orderedmap.OrderedMap[string, *Node]
	children     map[string][]string // relation -> child relations (outgoing edges)
	parents      map[string][]string // relation -> parent relations (incoming edges)
	edgeMetadata map[Edge]*EdgeMeta
}

// NewGraph creates a new empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:        orderedmap.NewOrderedMap[string, *Node](),
		children:     make(map[string][]string),
		parents:      make(map[string][]string),
		edgeMetadata: make(map[Edge]*EdgeMeta),
	}
}

// AddNode adds a relation to the graph. Re-adding an existing name replaces
// the stored node but keeps its original position in the registration order.
func (g *Graph) AddNode(name, keyColumn string) {
	g.nodes.Set(name, &Node{Name: name, KeyColumn: keyColumn})
}

// AddEdge adds a parent -> child ordering constraint without foreign key
// metadata. It also maintains the reverse mapping for parent lookups.
func (g *Graph) AddEdge(parent, child string) {
	g.children[parent] = append(g.children[parent], child)
	g.parents[child] = append(g.parents[child], parent)
}

// AddEdgeWithMeta adds a parent -> child edge backed by a foreign key.
func (g *Graph) AddEdgeWithMeta(parent, child, foreignKey, referenceKey string) {
	g.AddEdge(parent, child)
	g.edgeMetadata[Edge{From: parent, To: child}] = &EdgeMeta{
		ForeignKey:   foreignKey,
		ReferenceKey: referenceKey,
	}
}

// GetChildren returns all direct children of a relation.
func (g *Graph) GetChildren(parent string) []string {
	return g.children[parent]
}

// GetParents returns all direct parents of a relation.
func (g *Graph) GetParents(child string) []string {
	return g.parents[child]
}

// GetNode returns the node for a given relation name, or nil if not found.
func (g *Graph) GetNode(name string) *Node {
	node, ok := g.nodes.Get(name)
	if !ok {
		return nil
	}
	return node
}

// GetEdgeMeta returns foreign key metadata for an edge, or nil when the edge
// is ordering-only or absent.
func (g *Graph) GetEdgeMeta(parent, child string) *EdgeMeta {
	return g.edgeMetadata[Edge{From: parent, To: child}]
}

// HasNode returns true if the graph contains a relation with the given name.
func (g *Graph) HasNode(name string) bool {
	_, ok := g.nodes.Get(name)
	return ok
}

// HasEdge returns true if a parent -> child edge exists.
func (g *Graph) HasEdge(parent, child string) bool {
	for _, c := range g.children[parent] {
		if c == child {
			return true
		}
	}
	return false
}

// NodeCount returns the number of relations in the graph.
func (g *Graph) NodeCount() int {
	return g.nodes.Len()
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.children {
		count += len(children)
	}
	return count
}

// AllNodes returns all relation names in registration order.
func (g *Graph) AllNodes() []string {
	return g.nodes.Keys()
}

// AllEdges returns all edges, grouped by parent in registration order.
func (g *Graph) AllEdges() []Edge {
	var edges []Edge
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		for _, child := range g.children[el.Key] {
			edges = append(edges, Edge{From: el.Key, To: child})
		}
	}
	return edges
}

// Roots returns all relations with no parents, in registration order. A
// dataset usually has several independent roots.
func (g *Graph) Roots() []string {
	var roots []string
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		if len(g.parents[el.Key]) == 0 {
			roots = append(roots, el.Key)
		}
	}
	return roots
}

// LeafNodes returns all relations with no children, in registration order.
func (g *Graph) LeafNodes() []string {
	var leaves []string
	for el := g.nodes.Front(); el != nil; el = el.Next() {
		if len(g.children[el.Key]) == 0 {
			leaves = append(leaves, el.Key)
		}
	}
	return leaves
}

// InDegree returns the number of incoming edges (parents) for a relation.
func (g *Graph) InDegree(name string) int {
	return len(g.parents[name])
}

// OutDegree returns the number of outgoing edges (children) for a relation.
func (g *Graph) OutDegree(name string) int {
	return len(g.children[name])
}

// Key returns the primary key column for a relation. Relations registered
// without an explicit key column default to "id".
func (g *Graph) Key(name string) string {
	if node, ok := g.nodes.Get(name); ok && node.KeyColumn != "" {
		return node.KeyColumn
	}
	return "id"
}
