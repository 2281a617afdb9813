// Package material implements how surfaces emit and scatter light.
package material

import (
	"math/rand"

	"row-major/whitted/contact"
	"row-major/whitted/ray"
	"row-major/whitted/rgb"
	"row-major/whitted/texture"
	"row-major/whitted/vmath/vec3"
)

type Material interface {
	// Emitted is the light leaving the surface at hit toward the incoming ray.
	Emitted(in *ray.Ray, hit *contact.HitInfo) rgb.T

	// Scatter fills scattered with the ray to follow next and returns the
	// attenuation to apply to whatever it brings back.  It returns false if the
	// surface absorbs the ray.
	Scatter(in *ray.Ray, hit *contact.HitInfo, rng *rand.Rand, scattered *ray.Ray) (rgb.T, bool)
}

// Lambertian is an ideal diffuse reflector.
type Lambertian struct {
	Albedo texture.Texture
}

func (l *Lambertian) Emitted(in *ray.Ray, hit *contact.HitInfo) rgb.T {
	return rgb.Black
}

// Scatter sends the ray out along the normal plus a uniform point on the unit
// sphere, which is cosine distributed about the normal.
func (l *Lambertian) Scatter(in *ray.Ray, hit *contact.HitInfo, rng *rand.Rand, scattered *ray.Ray) (rgb.T, bool) {
	dir := hit.N.Add(vec3.UniformUnitDistribution(rng))
	if vec3.NearZero(dir) {
		dir = hit.N
	}

	*scattered = ray.New(hit.P, dir)
	return l.Albedo(hit), true
}

// Empty absorbs everything.  It stands in for a hit without a material.
type Empty struct{}

func (Empty) Emitted(in *ray.Ray, hit *contact.HitInfo) rgb.T {
	return rgb.Black
}

func (Empty) Scatter(in *ray.Ray, hit *contact.HitInfo, rng *rand.Rand, scattered *ray.Ray) (rgb.T, bool) {
	return rgb.Black, false
}

// Store owns the materials of a scene.  Surfaces and hits refer to entries by
// handle, so every surface using a material shares the one value.
type Store struct {
	materials []Material
}

// Add registers m and returns its handle.
func (s *Store) Add(m Material) int {
	s.materials = append(s.materials, m)
	return len(s.materials) - 1
}

// Get resolves a handle.  contact.NoMaterial and unknown handles resolve to
// Empty.
func (s *Store) Get(handle int) Material {
	if handle < 0 || handle >= len(s.materials) {
		return Empty{}
	}
	return s.materials[handle]
}

func (s *Store) Len() int {
	return len(s.materials)
}
