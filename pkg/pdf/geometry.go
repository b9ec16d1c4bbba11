package pdf

import "math"

// Point represents a 2D point
type Point struct {
	X, Y float64
}

// Matrix represents a 2D transformation matrix [a b c d e f], applied to
// row vectors: x' = a*x + c*y + e, y' = b*x + d*y + f.
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix returns the identity matrix
func IdentityMatrix() Matrix {
	return Matrix{1, 0, 0, 1, 0, 0}
}

// TranslateMatrix returns a translation.
func TranslateMatrix(tx, ty float64) Matrix {
	return Matrix{1, 0, 0, 1, tx, ty}
}

// ScaleMatrix returns a scaling.
func ScaleMatrix(sx, sy float64) Matrix {
	return Matrix{sx, 0, 0, sy, 0, 0}
}

// MatrixFromArray reads a six-number array. Anything else yields the identity
// and false.
func MatrixFromArray(vals []float64) (Matrix, bool) {
	if len(vals) != 6 {
		return IdentityMatrix(), false
	}
	return Matrix{vals[0], vals[1], vals[2], vals[3], vals[4], vals[5]}, true
}

// Multiply returns m followed by n: points are mapped by m first.
func (m Matrix) Multiply(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.B*n.C,
		B: m.A*n.B + m.B*n.D,
		C: m.C*n.A + m.D*n.C,
		D: m.C*n.B + m.D*n.D,
		E: m.E*n.A + m.F*n.C + n.E,
		F: m.E*n.B + m.F*n.D + n.F,
	}
}

// Transform applies the matrix to a point (returns x, y coordinates)
func (m Matrix) Transform(x, y float64) (float64, float64) {
	return m.A*x + m.C*y + m.E, m.B*x + m.D*y + m.F
}

// TransformPoint applies the matrix to a Point and returns a new Point
func (m Matrix) TransformPoint(p Point) Point {
	x, y := m.Transform(p.X, p.Y)
	return Point{X: x, Y: y}
}

// TransformVector applies the linear part only.
func (m Matrix) TransformVector(x, y float64) (float64, float64) {
	return m.A*x + m.C*y, m.B*x + m.D*y
}

// Determinant of the linear part.
func (m Matrix) Determinant() float64 {
	return m.A*m.D - m.B*m.C
}

// Invert returns the inverse matrix, or false when m is singular.
func (m Matrix) Invert() (Matrix, bool) {
	det := m.Determinant()
	if det == 0 || math.IsNaN(det) || math.IsInf(det, 0) {
		return Matrix{}, false
	}
	return Matrix{
		A: m.D / det,
		B: -m.B / det,
		C: -m.C / det,
		D: m.A / det,
		E: (m.C*m.F - m.D*m.E) / det,
		F: (m.B*m.E - m.A*m.F) / det,
	}, true
}

// TransformRect maps the corners of r and returns their bounding box.
func (m Matrix) TransformRect(r Rectangle) Rectangle {
	x0, y0 := m.Transform(r.LLX, r.LLY)
	x1, y1 := m.Transform(r.URX, r.LLY)
	x2, y2 := m.Transform(r.URX, r.URY)
	x3, y3 := m.Transform(r.LLX, r.URY)
	return Rectangle{
		LLX: min(x0, x1, x2, x3),
		LLY: min(y0, y1, y2, y3),
		URX: max(x0, x1, x2, x3),
		URY: max(y0, y1, y2, y3),
	}
}

// Path is a sequence of path commands in some user space.
type Path struct {
	Commands []PathCommand
}

// PathCommand represents a path drawing command: M and L carry one point,
// C three, H none.
type PathCommand struct {
	Type   string
	Points []float64
}

// MoveTo starts a new subpath.
func (p *Path) MoveTo(x, y float64) {
	p.Commands = append(p.Commands, PathCommand{Type: "M", Points: []float64{x, y}})
}

// LineTo appends a straight segment.
func (p *Path) LineTo(x, y float64) {
	p.Commands = append(p.Commands, PathCommand{Type: "L", Points: []float64{x, y}})
}

// CurveTo appends a cubic Bézier segment.
func (p *Path) CurveTo(x1, y1, x2, y2, x3, y3 float64) {
	p.Commands = append(p.Commands, PathCommand{Type: "C", Points: []float64{x1, y1, x2, y2, x3, y3}})
}

// Close closes the current subpath.
func (p *Path) Close() {
	p.Commands = append(p.Commands, PathCommand{Type: "H"})
}

// Empty reports whether the path draws nothing.
func (p *Path) Empty() bool {
	return p == nil || len(p.Commands) == 0
}
