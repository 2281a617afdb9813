// Package vec3 collects the vector helpers the renderer needs on top of
// mgl64.Vec3.
package vec3

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

// Zero is the zero vector.
var Zero = mgl64.Vec3{0, 0, 0}

// OnUnitSphere maps two uniform variates in [0, 1) to a uniformly distributed
// point on the unit sphere.
func OnUnitSphere(u1, u2 float64) mgl64.Vec3 {
	z := 1.0 - 2.0*u1
	r := math.Sqrt(math.Max(0.0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	return mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
}

// UniformUnitDistribution draws a uniformly distributed unit vector from rng.
func UniformUnitDistribution(rng *rand.Rand) mgl64.Vec3 {
	return OnUnitSphere(rng.Float64(), rng.Float64())
}

// NearZero reports whether every component of v is within 1e-8 of zero.
func NearZero(v mgl64.Vec3) bool {
	const s = 1e-8
	return math.Abs(v[0]) < s && math.Abs(v[1]) < s && math.Abs(v[2]) < s
}

// FromSlice builds a vector from the first three entries of xs, using def for
// any entry that is missing.
func FromSlice(xs []float64, def mgl64.Vec3) mgl64.Vec3 {
	result := def
	for i := 0; i < 3 && i < len(xs); i++ {
		result[i] = xs[i]
	}
	return result
}
