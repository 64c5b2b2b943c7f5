package core

import (
	"errors"
	"fmt"
	"math"

	"github.com/sky-map-team/skyorient/model"
)

// ErrZeroLength is returned when a direction is requested from a vector that
// has no length (or is not finite).
var ErrZeroLength = errors.New("zero-length vector")

// Vector3 is a free 3-vector. When normalised it doubles as a direction on the
// unit sphere.
type Vector3 struct {
	X, Y, Z float64
}

// Axis constants in sky coordinates. ZAxis is the Earth's rotation axis.
var (
	XAxis = Vector3{X: 1}
	YAxis = Vector3{Y: 1}
	ZAxis = Vector3{Z: 1}
)

// NewVector3 is shorthand for Vector3{x, y, z}.
func NewVector3(x, y, z float64) Vector3 { return Vector3{X: x, Y: y, Z: z} }

// FromModel converts a model.Vector.
func FromModel(v model.Vector) Vector3 { return Vector3{X: v.X, Y: v.Y, Z: v.Z} }

// Model converts v to its data-model representation.
func (v Vector3) Model() model.Vector { return model.Vector{X: v.X, Y: v.Y, Z: v.Z} }

// Add returns v + o.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v * f.
func (v Vector3) Scale(f float64) Vector3 {
	return Vector3{X: v.X * f, Y: v.Y * f, Z: v.Z * f}
}

// Negate returns -v.
func (v Vector3) Negate() Vector3 { return Vector3{X: -v.X, Y: -v.Y, Z: -v.Z} }

// Dot returns the dot product of two vectors.
func (v Vector3) Dot(o Vector3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns v × o.
func (v Vector3) Cross(o Vector3) Vector3 {
	return Vector3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean norm of the vector.
func (v Vector3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// IsFinite reports whether no component is NaN or infinite.
// IsFinite reports whether every component is finite.
func (v Vector3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

// Unit returns the unit vector colinear to v. A zero-length or non-finite
// vector yields ErrZeroLength rather than NaN components.
func (v Vector3) Unit() (Vector3, error) {
	if !v.IsFinite() {
		return Vector3{}, ErrZeroLength
	}
	n := v.Norm()
	if n < minNorm {
		return Vector3{}, ErrZeroLength
	}
	return v.Scale(1 / n), nil
}

// RejectFrom returns the component of v perpendicular to the unit vector n,
// i.e. v - n(v·n).
func (v Vector3) RejectFrom(n Vector3) Vector3 {
	return v.Sub(n.Scale(v.Dot(n)))
}

// AngleTo returns the angle between v and o in radians.
func (v Vector3) AngleTo(o Vector3) float64 {
	nv, no := v.Norm(), o.Norm()
	if nv == 0 || no == 0 {
		return 0
	}
	c := v.Dot(o) / (nv * no)
	if c > 1 {
		c = 1
	} else if c < -1 {
		c = -1
	}
	return math.Acos(c)
}

// ApproxEqual reports whether each component of v is within tol of o.
func (v Vector3) ApproxEqual(o Vector3, tol float64) bool {
	return math.Abs(v.X-o.X) <= tol && math.Abs(v.Y-o.Y) <= tol && math.Abs(v.Z-o.Z) <= tol
}

func (v Vector3) String() string { return fmt.Sprintf("(%.6f, %.6f, %.6f)", v.X, v.Y, v.Z) }

// minNorm is the shortest vector we are willing to normalise.
const minNorm = 1e-12

func isFinite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
