package mermaidascii

import (
	"fmt"
	"strings"
)

// Config controls rendering. UseAscii switches the tree connectors from
// box-drawing runes to plain ASCII for terminals without Unicode support.
type Config struct {
	UseAscii bool
}

// DefaultConfig returns the default rendering configuration.
func DefaultConfig() *Config {
	return &Config{}
}

type glyphs struct {
	tee   string
	elbow string
	pipe  string
	blank string
}

var (
	unicodeGlyphs = glyphs{tee: "├── ", elbow: "└── ", pipe: "│   ", blank: "    "}
	asciiGlyphs   = glyphs{tee: "|-- ", elbow: "`-- ", pipe: "|   ", blank: "    "}
)

// RenderDiagram renders a mermaid graph definition as an ASCII tree, one root
// per top-level branch. If config is nil, default configuration is used.
func RenderDiagram(input string, config *Config) (string, error) {
	if config == nil {
		config = DefaultConfig()
	}

	m, err := parse(input)
	if err != nil {
		return "", fmt.Errorf("failed to parse graph: %w", err)
	}

	roots := m.roots()
	if len(roots) == 0 {
		return "", fmt.Errorf("graph has no root nodes")
	}

	g := unicodeGlyphs
	if config.UseAscii {
		g = asciiGlyphs
	}

	var sb strings.Builder
	onPath := make(map[string]bool)
	for _, root := range roots {
		sb.WriteString(root)
		sb.WriteByte('\n')
		if err := renderSubtree(&sb, m, root, "", g, onPath); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}

// renderSubtree writes the children of a node, recursing depth-first. The
// onPath set catches cycles, which cannot be drawn as a tree.
func renderSubtree(sb *strings.Builder, m *model, node, prefix string, g glyphs, onPath map[string]bool) error {
	onPath[node] = true
	defer delete(onPath, node)

	edges := m.children(node)
	for i, e := range edges {
		connector, childPrefix := g.tee, prefix+g.pipe
		if i == len(edges)-1 {
			connector, childPrefix = g.elbow, prefix+g.blank
		}

		label := ""
		if e.label != "" {
			label = fmt.Sprintf(" (%s)", e.label)
		}
		fmt.Fprintf(sb, "%s%s%s%s\n", prefix, connector, e.to, label)

		if onPath[e.to] {
			return fmt.Errorf("cycle through %q", e.to)
		}
		if err := renderSubtree(sb, m, e.to, childPrefix, g, onPath); err != nil {
			return err
		}
	}
	return nil
}
