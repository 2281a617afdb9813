package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"row-major/whitted/ray"
	"row-major/whitted/transform"
)

// Camera is a pinhole camera looking down its local -Z axis.
type Camera struct {
	// Camera to world.
	Xform transform.T

	// Physical width and height of the image plane.
	Size [2]float64

	// Distance from the pinhole to the image plane.
	FocalDistance float64

	// Image width and height in pixels.
	Resolution [2]int

	// ApertureRadius is carried for depth of field, which GenerateRay does not
	// model yet.
	ApertureRadius float64
}

// New builds a camera, sizing the image plane from the vertical field of view
// (in degrees) and the aspect ratio of resolution.
func New(xform transform.T, vfov, focalDistance float64, resolution [2]int, aperture float64) *Camera {
	sizeY := 2.0 * math.Tan(mgl64.DegToRad(vfov)/2.0) * focalDistance
	sizeX := float64(resolution[0]) / float64(resolution[1]) * sizeY

	return &Camera{
		Xform:          xform,
		Size:           [2]float64{sizeX, sizeY},
		FocalDistance:  focalDistance,
		Resolution:     resolution,
		ApertureRadius: aperture,
	}
}

// GenerateRay returns the world-space ray through pixel coordinates (u, v),
// with u running right and v running down from the top-left corner.
func (c *Camera) GenerateRay(u, v float64) ray.Ray {
	uPhys := u / float64(c.Resolution[0])
	vPhys := v / float64(c.Resolution[1])

	local := ray.New(
		mgl64.Vec3{0, 0, 0},
		mgl64.Vec3{
			(uPhys - 0.5) * c.Size[0],
			(0.5 - vPhys) * c.Size[1],
			-c.FocalDistance,
		},
	)

	return c.Xform.Ray(&local)
}

func (c *Camera) Width() int {
	return c.Resolution[0]
}

func (c *Camera) Height() int {
	return c.Resolution[1]
}
