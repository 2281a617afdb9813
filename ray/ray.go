package ray

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Epsilon is the default lower bound of a ray's parameter window.  It keeps
// secondary rays from re-hitting the surface they leave.
const Epsilon = 0.001

// Ray is a parametric segment Origin + t*Direction, valid for t in
// [MinT, MaxT].  Direction need not be unit length.
type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	MinT      float64
	MaxT      float64
}

// New returns a ray with the default window [Epsilon, +Inf).
func New(origin, direction mgl64.Vec3) Ray {
	return Ray{
		Origin:    origin,
		Direction: direction,
		MinT:      Epsilon,
		MaxT:      math.Inf(1),
	}
}

func (r *Ray) Eval(t float64) mgl64.Vec3 {
	return mgl64.Vec3{
		r.Origin[0] + t*r.Direction[0],
		r.Origin[1] + t*r.Direction[1],
		r.Origin[2] + t*r.Direction[2],
	}
}

// Contains reports whether t lies in the ray's current window.
func (r *Ray) Contains(t float64) bool {
	return r.MinT <= t && t <= r.MaxT
}
