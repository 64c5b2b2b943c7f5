package core

import (
	"fmt"
	"math"
)

// Matrix33 is a row-major 3×3 matrix.
type Matrix33 struct {
	XX, XY, XZ float64
	YX, YY, YZ float64
	ZX, ZY, ZZ float64
}

// Identity returns the 3×3 identity matrix.
func Identity() Matrix33 {
	return Matrix33{XX: 1, YY: 1, ZZ: 1}
}

// NewMatrix33FromColumns builds a matrix whose columns are a, b and c.
// For an orthonormal frame this maps frame coordinates into the outer frame.
func NewMatrix33FromColumns(a, b, c Vector3) Matrix33 {
	return Matrix33{
		XX: a.X, XY: b.X, XZ: c.X,
		YX: a.Y, YY: b.Y, YZ: c.Y,
		ZX: a.Z, ZY: b.Z, ZZ: c.Z,
	}
}

// NewMatrix33FromRows builds a matrix whose rows are a, b and c. For an
// orthonormal frame this is the inverse of NewMatrix33FromColumns(a, b, c).
func NewMatrix33FromRows(a, b, c Vector3) Matrix33 {
	return Matrix33{
		XX: a.X, XY: a.Y, XZ: a.Z,
		YX: b.X, YY: b.Y, YZ: b.Z,
		ZX: c.X, ZY: c.Y, ZZ: c.Z,
	}
}

// Row returns row i (0-based).
func (m Matrix33) Row(i int) Vector3 {
	switch i {
	case 0:
		return Vector3{X: m.XX, Y: m.XY, Z: m.XZ}
	case 1:
		return Vector3{X: m.YX, Y: m.YY, Z: m.YZ}
	case 2:
		return Vector3{X: m.ZX, Y: m.ZY, Z: m.ZZ}
	}
	panic(fmt.Sprintf("core: row index %d out of range", i))
}

// Col returns column j (0-based).
func (m Matrix33) Col(j int) Vector3 {
	switch j {
	case 0:
		return Vector3{X: m.XX, Y: m.YX, Z: m.ZX}
	case 1:
		return Vector3{X: m.XY, Y: m.YY, Z: m.ZY}
	case 2:
		return Vector3{X: m.XZ, Y: m.YZ, Z: m.ZZ}
	}
	panic(fmt.Sprintf("core: column index %d out of range", j))
}

// MulVec returns m·v.
func (m Matrix33) MulVec(v Vector3) Vector3 {
	return Vector3{
		X: m.XX*v.X + m.XY*v.Y + m.XZ*v.Z,
		Y: m.YX*v.X + m.YY*v.Y + m.YZ*v.Z,
		Z: m.ZX*v.X + m.ZY*v.Y + m.ZZ*v.Z,
	}
}

// Mul returns m·o.
func (m Matrix33) Mul(o Matrix33) Matrix33 {
	return NewMatrix33FromRows(
		o.Transpose().MulVec(m.Row(0)),
		o.Transpose().MulVec(m.Row(1)),
		o.Transpose().MulVec(m.Row(2)),
	)
}

// Transpose returns mᵀ.
func (m Matrix33) Transpose() Matrix33 {
	return Matrix33{
		XX: m.XX, XY: m.YX, XZ: m.ZX,
		YX: m.XY, YY: m.YY, YZ: m.ZY,
		ZX: m.XZ, ZY: m.YZ, ZZ: m.ZZ,
	}
}

// Inverse returns the inverse of an orthogonal matrix, which is its transpose.
// The result is meaningless for matrices that are not orthogonal.
func (m Matrix33) Inverse() Matrix33 { return m.Transpose() }

// Det returns the determinant. Orthonormal right-handed frames have Det 1.
func (m Matrix33) Det() float64 {
	return m.XX*(m.YY*m.ZZ-m.YZ*m.ZY) -
		m.XY*(m.YX*m.ZZ-m.YZ*m.ZX) +
		m.XZ*(m.YX*m.ZY-m.YY*m.ZX)
}

// ApproxEqual reports whether every element of m is within tol of o.
func (m Matrix33) ApproxEqual(o Matrix33, tol float64) bool {
	for i := 0; i < 3; i++ {
		if !m.Row(i).ApproxEqual(o.Row(i), tol) {
			return false
		}
	}
	return true
}

// IsOrthonormal reports whether m·mᵀ is the identity within tol.
func (m Matrix33) IsOrthonormal(tol float64) bool {
	return m.Mul(m.Transpose()).ApproxEqual(Identity(), tol) && math.Abs(math.Abs(m.Det())-1) <= tol
}
