// Package rgb holds the 8-bit-per-channel color type that flows through the
// renderer.
package rgb

import "image/color"

// T is an RGB triple.  When used as an attenuation, each channel is read as a
// fraction of 255.
type T [3]uint8

var (
	Black = T{0, 0, 0}
	White = T{255, 255, 255}
)

// Add adds two colors channel-wise, saturating at 255.
func Add(a, b T) T {
	result := T{}
	for i := 0; i < 3; i++ {
		sum := uint16(a[i]) + uint16(b[i])
		if sum > 255 {
			sum = 255
		}
		result[i] = uint8(sum)
	}
	return result
}

// Attenuate scales c by att, treating each channel of att as att[i]/255.
func Attenuate(att, c T) T {
	return T{
		uint8(uint16(att[0]) * uint16(c[0]) / 255),
		uint8(uint16(att[1]) * uint16(c[1]) / 255),
		uint8(uint16(att[2]) * uint16(c[2]) / 255),
	}
}

// Clamp converts integer channel values to a color, clamping each to [0, 255].
func Clamp(r, g, b int64) T {
	return T{clampChannel(r), clampChannel(g), clampChannel(b)}
}

func clampChannel(v int64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// RGBA returns c as an opaque color.RGBA.
func (c T) RGBA() color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: 255}
}
