package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/joule/pkg/domain"
	"github.com/aretw0/joule/pkg/workflow"
)

const startID = "start"

// Overlay marks the position of a session on the diagram.
type Overlay struct {
	Workflow domain.WorkflowName
	Step     int
}

// OverlayFor returns the overlay of s.
func OverlayFor(s *domain.Session) *Overlay {
	return &Overlay{Workflow: s.Workflow(), Step: s.StepIndex()}
}

// GenerateMermaid produces a Mermaid flowchart of the workflows in c.
// It applies semantic styling:
// - Free conversation: ((Circle))
// - Validated step: [/Parallelogram/]
// - Completion: [[Subroutine]]
// - Default: [Rectangle]
// Steps before the overlay position are styled as visited, the position itself as current.
func GenerateMermaid(c *workflow.Catalog, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	fmt.Fprintf(&sb, "    %s((\"%s\"))\n", startID, domain.WorkflowNone)

	var visited []string
	current := ""
	if overlay != nil && overlay.Workflow == domain.WorkflowNone {
		current = startID
	}

	for _, name := range c.Names() {
		if name == domain.WorkflowNone {
			continue
		}
		steps := c.Steps(name)
		fmt.Fprintf(&sb, "    subgraph %s [\"%s\"]\n", sanitizeMermaidID(string(name)), name)
		for _, step := range steps {
			id := stepID(name, step.ID)
			opener, closer := "[", "]"
			if step.Validator != nil {
				opener, closer = "[/", "/]"
			}
			label := step.ID
			if step.Field != "" {
				label = fmt.Sprintf("%s <br/> %s", step.ID, step.Field)
			}
			fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", id, opener, strings.ReplaceAll(label, "\"", "'"), closer)
		}
		done := stepID(name, "complete")
		fmt.Fprintf(&sb, "        %s[[\"complete\"]]\n", done)
		sb.WriteString("    end\n")

		first := done
		if len(steps) > 0 {
			first = stepID(name, steps[0].ID)
		}
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", startID, name, first)
		for i, step := range steps {
			next := done
			if i+1 < len(steps) {
				next = stepID(name, steps[i+1].ID)
			}
			fmt.Fprintf(&sb, "    %s --> %s\n", stepID(name, step.ID), next)
		}

		if overlay == nil || overlay.Workflow != name {
			continue
		}
		visited = append(visited, startID)
		for i, step := range steps {
			switch {
			case i < overlay.Step:
				visited = append(visited, stepID(name, step.ID))
			case i == overlay.Step:
				current = stepID(name, step.ID)
			}
		}
		if overlay.Step >= len(steps) {
			current = done
		}
	}

	// Apply Overlay Styles
	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		for _, id := range visited {
			fmt.Fprintf(&sb, "    class %s visited;\n", id)
		}
		if current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", current)
		}
	}

	return sb.String()
}

func stepID(w domain.WorkflowName, step string) string {
	return sanitizeMermaidID(string(w) + "_" + step)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
