package contact

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"row-major/whitted/transform"
)

// NoMaterial is the material handle of a HitInfo that no surface has filled
// in yet.
const NoMaterial = -1

// HitInfo records where a ray met a surface.
type HitInfo struct {
	// Ray parameter of the hit.
	T float64

	// World-space hit point.
	P mgl64.Vec3

	// World-space shading normal.
	N mgl64.Vec3

	// Handle of the surface's material in the scene's material store.
	Material int
}

// New returns an empty hit record.
func New() HitInfo {
	return HitInfo{
		T:        math.Inf(1),
		Material: NoMaterial,
	}
}

// Transform maps a hit computed in a surface's local frame to the frame of
// xf.  Points go through the affine map and normals through the inverse
// transpose.  T is unchanged, since rays are transformed without
// renormalizing their direction.
func (h HitInfo) Transform(xf transform.T) HitInfo {
	result := h
	result.P = xf.Point(h.P)
	result.N = xf.Normal(h.N)
	return result
}
