// Package surface implements ray intersection against the scene's geometry.
package surface

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"row-major/whitted/contact"
	"row-major/whitted/ray"
	"row-major/whitted/transform"
)

// Surface is anything a ray can hit.
//
// Intersect reports whether r hits the surface within [r.MinT, r.MaxT].  On a
// hit it overwrites hit with the world-space intersection.  On a miss neither r
// nor hit is modified.
type Surface interface {
	Intersect(r *ray.Ray, hit *contact.HitInfo) bool
}

// Sphere is a sphere of the given radius centered on the origin of its local
// frame.  The sign of Radius is ignored.
type Sphere struct {
	Radius float64

	// Local to world.
	Xform transform.T

	Material int
}

func (s *Sphere) Intersect(r *ray.Ray, hit *contact.HitInfo) bool {
	local := s.Xform.Inverse().Ray(r)

	o, d := local.Origin, local.Direction
	a := d.Dot(d)
	b := 2.0 * d.Dot(o)
	radius := math.Abs(s.Radius)
	c := o.Dot(o) - radius*radius

	if a == 0 {
		return false
	}

	disc := b*b - 4.0*a*c
	if disc < 0 {
		return false
	}

	// Compute q with the sign of b so the two roots never come from subtracting
	// nearly equal quantities.
	rootDisc := math.Sqrt(disc)
	var q float64
	if b < 0 {
		q = -0.5 * (b - rootDisc)
	} else {
		q = -0.5 * (b + rootDisc)
	}

	var t0, t1 float64
	if q == 0 {
		// b and disc are both zero, so c is too: the ray grazes the sphere at
		// its origin.
		t0, t1 = 0, 0
	} else {
		t0, t1 = q/a, c/q
	}
	if t1 < t0 {
		t0, t1 = t1, t0
	}

	t := t0
	if t < local.MinT {
		t = t1
	}
	if !local.Contains(t) {
		return false
	}

	// Push the point back onto the surface to shed rounding error.
	p := local.Eval(t)
	if l := p.Len(); l > 0 {
		p = p.Mul(radius / l)
	}

	*hit = contact.HitInfo{
		T:        t,
		P:        p,
		N:        p.Mul(1 / radius),
		Material: s.Material,
	}.Transform(s.Xform)
	return true
}

// Quad is a square in the XY plane of its local frame, spanning
// [-HalfSize, HalfSize] on both axes and facing -Z.
type Quad struct {
	HalfSize float64

	// Local to world.
	Xform transform.T

	Material int
}

var quadNormal = mgl64.Vec3{0, 0, -1}

func (q *Quad) Intersect(r *ray.Ray, hit *contact.HitInfo) bool {
	local := q.Xform.Inverse().Ray(r)

	if local.Direction[2] == 0 {
		return false
	}

	t := -local.Origin[2] / local.Direction[2]
	p := local.Eval(t)
	if math.Abs(p[0]) > q.HalfSize || math.Abs(p[1]) > q.HalfSize {
		return false
	}
	if !local.Contains(t) {
		return false
	}

	// The plane is z = 0; pin it to avoid drift.
	p[2] = 0

	*hit = contact.HitInfo{
		T:        t,
		P:        p,
		N:        quadNormal,
		Material: q.Material,
	}.Transform(q.Xform)
	return true
}

// Group is an ordered collection of surfaces.  It is itself a Surface, so
// groups nest.
type Group struct {
	Surfaces []Surface
}

func (g *Group) Add(s Surface) {
	g.Surfaces = append(g.Surfaces, s)
}

// Intersect finds the closest hit among the group's children.  After each
// child hit, r.MaxT shrinks to that hit so later children can only report
// closer ones.
func (g *Group) Intersect(r *ray.Ray, hit *contact.HitInfo) bool {
	hitSomething := false
	for _, s := range g.Surfaces {
		if s.Intersect(r, hit) {
			hitSomething = true
			r.MaxT = hit.T
		}
	}
	return hitSomething
}
