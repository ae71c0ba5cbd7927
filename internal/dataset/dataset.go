// Package dataset defines the built-in ISA-95 dataset registry: which
// relations belong to each automation level, the foreign keys between them,
// and the extra ordering constraints that cannot be expressed as a single
// foreign key. The registry is the sole source of truth for load order,
// truncation order and referential integrity checks.
package dataset

import (
	"fmt"
	"strings"

	"github.com/mesdata/isaload/internal/graph"
	"github.com/mesdata/isaload/internal/sqlutil"
)

// Unit is one loadable relation. The name doubles as the target table name
// and as the base name of the CSV file that feeds it.
type Unit struct {
	Name      string
	KeyColumn string // Primary key column; empty for relations without one
}

// Reference declares a foreign key from a child relation into a parent
// relation. Non-self references double as dependency edges; self references
// (Child == Parent) are checked for integrity but impose no ordering.
type Reference struct {
	Child     string
	FKColumn  string
	Parent    string
	ParentKey string
}

// IsSelf reports whether the reference points back into its own relation.
func (r Reference) IsSelf() bool {
	return r.Child == r.Parent
}

// String renders the reference in child.fk -> parent.key form.
func (r Reference) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", r.Child, r.FKColumn, r.Parent, r.ParentKey)
}

// OrderingEdge forces a parent-before-child load order without declaring a
// verifiable foreign key. Used where a child draws from several relations at
// once (polymorphic references) and no single-column check is possible.
type OrderingEdge struct {
	Parent string
	Child  string
}

// Dataset is one ISA-95 level: an ordered set of units plus the references
// and ordering edges between them. Unit declaration order is meaningful; it
// breaks ties when the load order is computed.
type Dataset struct {
	Level         int
	Name          string
	Description   string
	Units         []Unit
	References    []Reference
	OrderingEdges []OrderingEdge
}

// UnitNames returns the unit names in declaration order.
func (d *Dataset) UnitNames() []string {
	names := make([]string, len(d.Units))
	for i, u := range d.Units {
		names[i] = u.Name
	}
	return names
}

// HasUnit reports whether a unit with the given name is declared.
func (d *Dataset) HasUnit(name string) bool {
	for _, u := range d.Units {
		if u.Name == name {
			return true
		}
	}
	return false
}

// LookupUnit returns the declared unit with the given name.
func (d *Dataset) LookupUnit(name string) (Unit, bool) {
	for _, u := range d.Units {
		if u.Name == name {
			return u, true
		}
	}
	return Unit{}, false
}

// FileName returns the CSV file name a unit is loaded from, relative to the
// data directory.
func (d *Dataset) FileName(unit string) string {
	return unit + ".csv"
}

// IntegrityReferences returns the references that can be verified with an
// anti-join, in declaration order. That is every declared reference; self
// references are verifiable even though they carry no ordering.
func (d *Dataset) IntegrityReferences() []Reference {
	return d.References
}

// BuildGraph assembles the dependency graph for this dataset and validates
// it. Non-self references become edges with foreign key metadata, ordering
// edges become plain edges, and repeated parent/child pairs collapse into a
// single edge so in-degrees stay correct.
func (d *Dataset) BuildGraph() (*graph.Graph, error) {
	g := graph.NewGraph()

	for _, u := range d.Units {
		g.AddNode(u.Name, u.KeyColumn)
	}

	for _, ref := range d.References {
		if ref.IsSelf() {
			continue
		}
		if g.HasEdge(ref.Parent, ref.Child) {
			continue
		}
		g.AddEdgeWithMeta(ref.Parent, ref.Child, ref.FKColumn, ref.ParentKey)
	}

	for _, edge := range d.OrderingEdges {
		if g.HasEdge(edge.Parent, edge.Child) {
			continue
		}
		g.AddEdge(edge.Parent, edge.Child)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", d.Name, err)
	}

	return g, nil
}

// LoadOrder returns the deterministic order in which units are loaded:
// parents first, ties resolved by declaration order.
func (d *Dataset) LoadOrder() ([]string, error) {
	g, err := d.BuildGraph()
	if err != nil {
		return nil, err
	}
	return g.LoadOrder()
}

// TruncateOrder returns the deterministic order in which units are emptied:
// children first, the reverse of the load order.
func (d *Dataset) TruncateOrder() ([]string, error) {
	g, err := d.BuildGraph()
	if err != nil {
		return nil, err
	}
	return g.TruncateOrder()
}

// Validate checks the dataset declaration for internal consistency: unit
// names must be unique valid identifiers, every reference and ordering edge
// must point at declared units, and the resulting dependency graph must be
// acyclic. Called at startup so a broken registry fails before any unit is
// touched.
func (d *Dataset) Validate() error {
	var problems []string

	seen := make(map[string]bool, len(d.Units))
	for _, u := range d.Units {
		if !sqlutil.IsValidIdentifier(u.Name) {
			problems = append(problems, fmt.Sprintf("unit %q is not a valid identifier", u.Name))
		}
		if seen[u.Name] {
			problems = append(problems, fmt.Sprintf("unit %q declared more than once", u.Name))
		}
		seen[u.Name] = true
		if u.KeyColumn != "" && !sqlutil.IsValidIdentifier(u.KeyColumn) {
			problems = append(problems, fmt.Sprintf("unit %q has invalid key column %q", u.Name, u.KeyColumn))
		}
	}

	for _, ref := range d.References {
		if !seen[ref.Child] {
			problems = append(problems, fmt.Sprintf("reference %s names undeclared child unit %q", ref, ref.Child))
		}
		if !seen[ref.Parent] {
			problems = append(problems, fmt.Sprintf("reference %s names undeclared parent unit %q", ref, ref.Parent))
		}
		if !sqlutil.IsValidIdentifier(ref.FKColumn) {
			problems = append(problems, fmt.Sprintf("reference %s has invalid FK column %q", ref, ref.FKColumn))
		}
		if !sqlutil.IsValidIdentifier(ref.ParentKey) {
			problems = append(problems, fmt.Sprintf("reference %s has invalid parent key column %q", ref, ref.ParentKey))
		}
	}

	for _, edge := range d.OrderingEdges {
		if !seen[edge.Parent] {
			problems = append(problems, fmt.Sprintf("ordering edge %s -> %s names undeclared parent unit", edge.Parent, edge.Child))
		}
		if !seen[edge.Child] {
			problems = append(problems, fmt.Sprintf("ordering edge %s -> %s names undeclared child unit", edge.Parent, edge.Child))
		}
		if edge.Parent == edge.Child {
			problems = append(problems, fmt.Sprintf("ordering edge %s -> %s is a self loop", edge.Parent, edge.Child))
		}
	}

	// Only attempt the cycle check on a structurally sound declaration
	if len(problems) == 0 {
		if _, err := d.BuildGraph(); err != nil {
			problems = append(problems, err.Error())
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("dataset %s: %s", d.Name, strings.Join(problems, "; "))
	}
	return nil
}
