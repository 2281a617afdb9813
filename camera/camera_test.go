package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major/whitted/transform"
)

var approx = cmpopts.EquateApprox(0, 1e-12)

func TestImagePlaneSize(t *testing.T) {
	c := New(transform.Identity(), 90, 1, [2]int{200, 100}, 0.5)

	if diff := cmp.Diff(c.Size, [2]float64{4, 2}, approx); diff != "" {
		t.Errorf("Bad image plane size; diff (-got +want)\n%s", diff)
	}
	if c.ApertureRadius != 0.5 {
		t.Errorf("Bad aperture; got %v, want 0.5", c.ApertureRadius)
	}
}

func TestCenterRay(t *testing.T) {
	c := New(transform.Identity(), 60, 2.5, [2]int{64, 48}, 0)
	r := c.GenerateRay(32, 24)

	if diff := cmp.Diff(r.Origin, mgl64.Vec3{0, 0, 0}, approx); diff != "" {
		t.Errorf("Bad origin; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(r.Direction, mgl64.Vec3{0, 0, -2.5}, approx); diff != "" {
		t.Errorf("Bad direction; diff (-got +want)\n%s", diff)
	}
}

func TestCornerRays(t *testing.T) {
	c := New(transform.Identity(), 90, 1, [2]int{100, 100}, 0)

	testCases := []struct {
		u, v float64
		want mgl64.Vec3
	}{
		{0, 0, mgl64.Vec3{-1, 1, -1}},
		{100, 0, mgl64.Vec3{1, 1, -1}},
		{0, 100, mgl64.Vec3{-1, -1, -1}},
		{100, 100, mgl64.Vec3{1, -1, -1}},
	}
	for _, tc := range testCases {
		r := c.GenerateRay(tc.u, tc.v)
		if diff := cmp.Diff(r.Direction, tc.want, approx); diff != "" {
			t.Errorf("Bad direction at (%v, %v); diff (-got +want)\n%s", tc.u, tc.v, diff)
		}
	}
}

func TestPlacementTransform(t *testing.T) {
	xf := transform.Compose(
		transform.Translate(mgl64.Vec3{1, 2, 3}),
		transform.Rotate(mgl64.Vec3{0, 1, 0}, math.Pi/2),
	)
	c := New(xf, 90, 1, [2]int{10, 10}, 0)
	r := c.GenerateRay(5, 5)

	if diff := cmp.Diff(r.Origin, mgl64.Vec3{1, 2, 3}, approx); diff != "" {
		t.Errorf("Bad origin; diff (-got +want)\n%s", diff)
	}
	// A quarter turn about +Y takes -Z to -X.
	if diff := cmp.Diff(r.Direction, mgl64.Vec3{-1, 0, 0}, approx); diff != "" {
		t.Errorf("Bad direction; diff (-got +want)\n%s", diff)
	}
}
