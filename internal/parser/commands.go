package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/OCAP2/luxreplay/internal/util"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Debug annotation verbs. They draw on the viewer and never reach the engine.
const (
	AnnotateCircle = "dc"
	AnnotateX      = "dx"
	AnnotateLine   = "dl"
)

// ErrInvalidAnnotation marks an annotation whose arguments cannot be drawn.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// IsAnnotation reports whether cmd is a debug annotation.
func IsAnnotation(cmd string) bool {
	switch util.Verb(cmd) {
	case AnnotateCircle, AnnotateX, AnnotateLine:
		return true
	default:
		return false
	}
}

// SplitCommands separates one turn's commands into annotations and the
// commands the engine must process. Both keep their recorded order.
func SplitCommands(cmds []core.CommandEntry) (annotations, simulation []core.CommandEntry) {
	for _, c := range cmds {
		if IsAnnotation(c.Command) {
			annotations = append(annotations, c)
		} else {
			simulation = append(simulation, c)
		}
	}
	return annotations, simulation
}

// Annotation is a drawable debug annotation. Circle and X marks have one
// point, lines have two.
type Annotation struct {
	Kind    string
	Team    core.Team
	Points  []core.Position
	Command string
}

// ParseAnnotation parses the arguments of an annotation command:
// "dc x y", "dx x y" or "dl x1 y1 x2 y2".
func ParseAnnotation(entry core.CommandEntry) (Annotation, error) {
	fields := strings.Fields(entry.Command)
	a := Annotation{Team: core.Team(entry.AgentID), Command: entry.Command}
	if len(fields) == 0 {
		return a, fmt.Errorf("%w: empty command", ErrInvalidAnnotation)
	}
	a.Kind = fields[0]

	var want int
	switch a.Kind {
	case AnnotateCircle, AnnotateX:
		want = 3
	case AnnotateLine:
		want = 5
	default:
		return a, fmt.Errorf("%w: %q is not an annotation", ErrInvalidAnnotation, a.Kind)
	}
	if len(fields) != want {
		return a, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidAnnotation, a.Kind, want-1, len(fields)-1)
	}

	for i := 1; i < want; i += 2 {
		x, err := parseIntFromFloat(fields[i])
		if err != nil {
			return a, fmt.Errorf("%w: x %q: %v", ErrInvalidAnnotation, fields[i], err)
		}
		y, err := parseIntFromFloat(fields[i+1])
		if err != nil {
			return a, fmt.Errorf("%w: y %q: %v", ErrInvalidAnnotation, fields[i+1], err)
		}
		a.Points = append(a.Points, core.Position{X: int(x), Y: int(y)})
	}
	return a, nil
}

// ParseAnnotations parses every drawable annotation of a frame. Undrawable
// ones are logged and skipped; they stay in the frame as recorded.
func (p *Parser) ParseAnnotations(entries []core.CommandEntry) []Annotation {
	out := make([]Annotation, 0, len(entries))
	for _, e := range entries {
		a, err := ParseAnnotation(e)
		if err != nil {
			p.logger.Debug("Skipping annotation", "command", e.Command, "agent", e.AgentID, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}
