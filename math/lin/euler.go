// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package lin

import "math"

// euler.go adds intrinsic Euler angle conversions on top of the quaternion
// and matrix types. PMX/VMD adjacent formats mix Euler conventions: rigid
// body placement uses YXZ, joint and IK axis limits use XYZ. Both are kept
// as named conversions rather than a single generic one so call sites read
// the convention they need instead of threading an axis-order enum around.

// SetEulerXYZ updates q to be the rotation formed by applying, in order,
// a rotation of rx radians about X, then ry about Y, then rz about Z, each
// in the frame left by the previous rotation (intrinsic XYZ). The updated
// quaternion q is returned.
func (q *Q) SetEulerXYZ(rx, ry, rz float64) *Q {
	qx := NewQ().SetAa(1, 0, 0, rx)
	qy := NewQ().SetAa(0, 1, 0, ry)
	qz := NewQ().SetAa(0, 0, 1, rz)
	q.Mult(qx, qy)
	q.Mult(q, qz)
	return q
}

// EulerXYZ extracts the intrinsic XYZ Euler angles (rx, ry, rz) in radians
// that reproduce the rotation of q when passed to SetEulerXYZ. Near the
// gimbal lock singularity (ry == ±PI/2) rz is pinned to 0 and rx absorbs
// the remaining rotation, matching the usual convention.
func (q *Q) EulerXYZ() (rx, ry, rz float64) {
	m := NewM3().SetQ(q)
	return m.EulerXYZ()
}

// SetEulerYXZ updates q to be the rotation formed by applying, in order,
// a rotation of ry radians about Y, then rx about X, then rz about Z, each
// in the frame left by the previous rotation (intrinsic YXZ). The updated
// quaternion q is returned.
func (q *Q) SetEulerYXZ(rx, ry, rz float64) *Q {
	qx := NewQ().SetAa(1, 0, 0, rx)
	qy := NewQ().SetAa(0, 1, 0, ry)
	qz := NewQ().SetAa(0, 0, 1, rz)
	q.Mult(qy, qx)
	q.Mult(q, qz)
	return q
}

// EulerYXZ extracts the intrinsic YXZ Euler angles (rx, ry, rz) in radians
// that reproduce the rotation of q when passed to SetEulerYXZ.
func (q *Q) EulerYXZ() (rx, ry, rz float64) {
	m := NewM3().SetQ(q)
	return m.EulerYXZ()
}

// EulerXYZ extracts the intrinsic XYZ Euler angles from rotation matrix m,
// treating m as row vectors X, Y, Z per the package's row-major convention.
func (m *M3) EulerXYZ() (rx, ry, rz float64) {
	// m = Rx*Ry*Rz applied as row-vector-on-left, consistent with SetEulerXYZ.
	sy := Clamp(m.Zx, -1, 1)
	ry = math.Asin(-sy)
	if math.Abs(sy) < 0.9999999 {
		rx = math.Atan2(m.Zy, m.Zz)
		rz = math.Atan2(m.Yx, m.Xx)
	} else {
		rx = math.Atan2(-m.Yz, m.Yy)
		rz = 0
	}
	return rx, ry, rz
}

// EulerYXZ extracts the intrinsic YXZ Euler angles from rotation matrix m.
func (m *M3) EulerYXZ() (rx, ry, rz float64) {
	sx := Clamp(m.Zy, -1, 1)
	rx = math.Asin(sx)
	if math.Abs(sx) < 0.9999999 {
		ry = math.Atan2(-m.Zx, m.Zz)
		rz = math.Atan2(-m.Xy, m.Yy)
	} else {
		ry = math.Atan2(m.Xz, m.Xx)
		rz = 0
	}
	return rx, ry, rz
}
