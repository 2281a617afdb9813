// Package texture provides the color lookups that feed materials.
package texture

import (
	"math"

	"row-major/whitted/contact"
	"row-major/whitted/rgb"
)

// Texture gives the surface color at a hit.
type Texture func(hit *contact.HitInfo) rgb.T

func Constant(c rgb.T) Texture {
	return func(hit *contact.HitInfo) rgb.T {
		return c
	}
}

// Checkerboard alternates between even and odd in world-space cubes of side
// period.  A period that is not positive and finite is treated as 1.
func Checkerboard(period float64, even, odd Texture) Texture {
	if !(period > 0) || math.IsInf(period, 1) {
		period = 1
	}
	return func(hit *contact.HitInfo) rgb.T {
		parity := 0
		for i := 0; i < 3; i++ {
			if int64(math.Floor(hit.P[i]/period))&1 == 1 {
				parity ^= 1
			}
		}

		if parity == 1 {
			return odd(hit)
		}
		return even(hit)
	}
}
