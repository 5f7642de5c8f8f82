package matrix

import (
	"math"

	pkgerrors "priomatrix-backend/pkg/errors"
)

// Position is a value object representing card coordinates on the matrix
// canvas. Committed positions always lie inside [0, max] on both axes; a
// position produced by Translate during an active drag may overshoot and is
// brought back in range by exactly one Clamp at commit time.
type Position struct {
	x float64
	y float64
}

// NewPosition creates a position with validation
func NewPosition(x, y float64) (Position, error) {
	if !isValidCoordinate(x) || !isValidCoordinate(y) {
		return Position{}, pkgerrors.NewValidationError("invalid coordinates: must be finite numbers")
	}
	return Position{x: x, y: y}, nil
}

// X returns the feasibility-axis coordinate
func (p Position) X() float64 {
	return p.x
}

// Y returns the value-axis coordinate
func (p Position) Y() float64 {
	return p.y
}

// Clamp returns the position with both axes clamped into [0, max].
// Clamping is idempotent: clamping an already-clamped position is a no-op.
func (p Position) Clamp(max float64) Position {
	return Position{
		x: clampAxis(p.x, max),
		y: clampAxis(p.y, max),
	}
}

// InBounds reports whether the position lies inside [0, max] on both axes
func (p Position) InBounds(max float64) bool {
	return p.x >= 0 && p.x <= max && p.y >= 0 && p.y <= max
}

// Translate returns the position moved by the given offsets. The result is
// not clamped so an in-flight drag can overshoot the canvas.
func (p Position) Translate(dx, dy float64) (Position, error) {
	return NewPosition(p.x+dx, p.y+dy)
}

// Equals checks if two positions are equal
func (p Position) Equals(other Position) bool {
	const epsilon = 1e-9
	return math.Abs(p.x-other.x) < epsilon && math.Abs(p.y-other.y) < epsilon
}

// Midpoint returns the center of the [0, max] canvas, the point the four
// quadrants meet at.
func Midpoint(max float64) Position {
	return Position{x: max / 2, y: max / 2}
}

func clampAxis(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// isValidCoordinate checks if a coordinate is a valid finite number
func isValidCoordinate(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
