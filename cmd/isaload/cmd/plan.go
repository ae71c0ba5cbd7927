package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mesdata/isaload/internal/dataset"
	"github.com/mesdata/isaload/internal/mermaidascii"
	"github.com/mesdata/isaload/internal/report"
	"github.com/spf13/cobra"
)

// outputWriter is used for printing reports, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// setOutputWriter sets the output writer (used for testing)
func setOutputWriter(w io.Writer) {
	outputWriter = w
}

// resetOutputWriter resets output to stdout (used for testing)
func resetOutputWriter() {
	outputWriter = os.Stdout
}

var planLevel int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the dependency plan for a dataset level",
	Long: `Plan renders the dependency graph of one dataset level as an ASCII tree
and prints the load and truncate orders derived from it.

The plan shows:
  - Visual dependency tree (parents above children)
  - Load order (parent relations first)
  - Truncate order (child relations first)
  - Declared references and ordering-only edges

The plan is computed from the built-in registry alone; neither the config
file nor the database is read.

Example:
  isaload plan --level 2`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().IntVarP(&planLevel, "level", "l", 0,
		"Dataset level to plan, 1-4 (required)")
	planCmd.MarkFlagRequired("level")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	// Validate the compiled-in registry before touching anything else
	if err := dataset.ValidateAll(); err != nil {
		return fmt.Errorf("dataset registry validation failed: %w", err)
	}

	ds, err := dataset.ByLevel(planLevel)
	if err != nil {
		return err
	}

	loadOrder, err := ds.LoadOrder()
	if err != nil {
		return fmt.Errorf("failed to compute load order: %w", err)
	}
	truncateOrder, err := ds.TruncateOrder()
	if err != nil {
		return fmt.Errorf("failed to compute truncate order: %w", err)
	}

	// Render the dependency tree from mermaid syntax
	diagram, err := mermaidascii.RenderDiagram(generateMermaidSyntax(ds), nil)
	if err != nil {
		return fmt.Errorf("failed to render dependency tree: %w", err)
	}

	report.NewRenderer(outputWriter).Plan(ds, diagram, loadOrder, truncateOrder)
	return nil
}

// generateMermaidSyntax renders a dataset's dependency graph in mermaid
// notation for the ASCII tree renderer.
func generateMermaidSyntax(ds *dataset.Dataset) string {
	var sb strings.Builder

	sb.WriteString("graph TD\n")

	// Declare every unit so parentless relations still appear as roots
	for _, u := range ds.Units {
		sb.WriteString(fmt.Sprintf("    %s\n", u.Name))
	}

	// Non-self references are dependency edges, labeled by their FK column
	for _, ref := range ds.References {
		if ref.IsSelf() {
			continue
		}
		sb.WriteString(fmt.Sprintf("    %s -->|%s| %s\n", ref.Parent, ref.FKColumn, ref.Child))
	}

	for _, e := range ds.OrderingEdges {
		sb.WriteString(fmt.Sprintf("    %s -->|order| %s\n", e.Parent, e.Child))
	}

	return sb.String()
}
