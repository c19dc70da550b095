package ns

import (
	"fmt"

	"github.com/san-kum/dropsim/internal/mesh"
)

// Condition is the physical nature of a domain side.
type Condition int

const (
	// Wall is a no-slip, no-penetration solid.
	Wall Condition = iota
	// Outflow leaves the velocity free and fixes the pressure to zero.
	Outflow
	// Axis is the axis of revolution.
	Axis
	// Symmetry is a free-slip plane.
	Symmetry
)

var conditionNames = map[Condition]string{
	Wall:     "wall",
	Outflow:  "outflow",
	Axis:     "axis",
	Symmetry: "symmetry",
}

func (c Condition) String() string {
	if s, ok := conditionNames[c]; ok {
		return s
	}
	return fmt.Sprintf("condition(%d)", int(c))
}

// ParseCondition maps a configuration name to a Condition.
func ParseCondition(s string) (Condition, error) {
	for c, name := range conditionNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("ns: unknown boundary condition %q", s)
}

// DefaultSides is the sessile drop setup: substrate on the left, open on
// the right, axis at the bottom.
var DefaultSides = [4]Condition{
	mesh.Left:   Wall,
	mesh.Right:  Outflow,
	mesh.Bottom: Axis,
	mesh.Top:    Symmetry,
}

// velocity returns the condition on the velocity component normal (or
// tangential) to the side.
func (c Condition) velocity(normal bool) mesh.Boundary {
	switch c {
	case Wall:
		return mesh.Dirichlet{}
	case Outflow:
		return mesh.Neumann{}
	default:
		if normal {
			return mesh.Dirichlet{}
		}
		return mesh.Neumann{}
	}
}

func (c Condition) pressure() mesh.Boundary {
	if c == Outflow {
		return mesh.Dirichlet{}
	}
	return mesh.Neumann{}
}

// velocityBC builds the boundary set of velocity component d.
func velocityBC(sides [4]Condition, d mesh.Dim) [4]mesh.Boundary {
	var bc [4]mesh.Boundary
	for s, c := range sides {
		side := mesh.Side(s)
		normal := (side == mesh.Left || side == mesh.Right) == (d == mesh.X)
		bc[s] = c.velocity(normal)
	}
	return bc
}

func pressureBC(sides [4]Condition) [4]mesh.Boundary {
	var bc [4]mesh.Boundary
	for s, c := range sides {
		bc[s] = c.pressure()
	}
	return bc
}
