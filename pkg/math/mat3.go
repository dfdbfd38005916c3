package math

// Mat3 is a 3x3 matrix in column-major order, used as a 2D affine transform
// on texture coordinates.
type Mat3 [9]float32

// Mat3Identity returns an identity matrix.
func Mat3Identity() Mat3 {
	return Mat3{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	}
}

// Mat3FromRows builds a matrix from row-major arguments, the way the matrix
// reads on paper.
func Mat3FromRows(
	n11, n12, n13,
	n21, n22, n23,
	n31, n32, n33 float32,
) Mat3 {
	return Mat3{
		n11, n21, n31,
		n12, n22, n32,
		n13, n23, n33,
	}
}

// Apply transforms the point (v.X, v.Y, 1) and returns its X/Y components.
func (m Mat3) Apply(v Vec2) Vec2 {
	return Vec2{
		X: m[0]*v.X + m[3]*v.Y + m[6],
		Y: m[1]*v.X + m[4]*v.Y + m[7],
	}
}

// ApplyLinear transforms (v.X, v.Y, 0), ignoring the translation column.
func (m Mat3) ApplyLinear(v Vec2) Vec2 {
	return Vec2{
		X: m[0]*v.X + m[3]*v.Y,
		Y: m[1]*v.X + m[4]*v.Y,
	}
}

// Ptr returns a pointer to the first element (for OpenGL uniform calls).
func (m *Mat3) Ptr() *float32 {
	return &m[0]
}
