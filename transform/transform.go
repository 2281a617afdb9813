// Package transform maps points, vectors, normals, and rays between a
// surface's local frame and world space.
package transform

import (
	"github.com/go-gl/mathgl/mgl64"

	"row-major/whitted/ray"
)

// T is an affine transform stored as a homogeneous matrix together with its
// inverse.  The inverse is computed once, when the transform is built; a T must
// not be modified afterwards.
type T struct {
	Forward mgl64.Mat4
	Inv     mgl64.Mat4
}

func Identity() T {
	return T{
		Forward: mgl64.Ident4(),
		Inv:     mgl64.Ident4(),
	}
}

// FromMatrix builds a transform from its forward matrix.
func FromMatrix(m mgl64.Mat4) T {
	return T{
		Forward: m,
		Inv:     m.Inv(),
	}
}

func Translate(x mgl64.Vec3) T {
	return T{
		Forward: mgl64.Translate3D(x[0], x[1], x[2]),
		Inv:     mgl64.Translate3D(-x[0], -x[1], -x[2]),
	}
}

// Rotate rotates by radians around axis.  A zero-length axis yields the
// identity.
func Rotate(axis mgl64.Vec3, radians float64) T {
	if axis.Len() == 0 {
		return Identity()
	}
	axis = axis.Normalize()
	return T{
		Forward: mgl64.HomogRotate3D(radians, axis),
		Inv:     mgl64.HomogRotate3D(-radians, axis),
	}
}

// Compose returns the transform that applies b and then a.
func Compose(a, b T) T {
	return T{
		Forward: a.Forward.Mul4(b.Forward),
		Inv:     b.Inv.Mul4(a.Inv),
	}
}

// Inverse swaps the forward and inverse matrices.
func (t T) Inverse() T {
	return T{
		Forward: t.Inv,
		Inv:     t.Forward,
	}
}

// Point applies the full affine map to p.
func (t T) Point(p mgl64.Vec3) mgl64.Vec3 {
	return t.Forward.Mul4x1(p.Vec4(1)).Vec3()
}

// Vector applies only the linear part of the map to v.
func (t T) Vector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Forward.Mul4x1(v.Vec4(0)).Vec3()
}

// Normal maps a surface normal with the inverse transpose of the linear part
// and renormalizes the result.
func (t T) Normal(n mgl64.Vec3) mgl64.Vec3 {
	return t.Inv.Transpose().Mul4x1(n.Vec4(0)).Vec3().Normalize()
}

// Ray maps the origin as a point and the direction as a vector.  The parameter
// window carries over unchanged, since the direction is not renormalized.
func (t T) Ray(r *ray.Ray) ray.Ray {
	return ray.Ray{
		Origin:    t.Point(r.Origin),
		Direction: t.Vector(r.Direction),
		MinT:      r.MinT,
		MaxT:      r.MaxT,
	}
}
