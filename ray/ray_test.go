package ray

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func TestNewDefaults(t *testing.T) {
	r := New(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, -2})
	if r.MinT != Epsilon {
		t.Errorf("Bad MinT; got %v, want %v", r.MinT, Epsilon)
	}
	if !math.IsInf(r.MaxT, 1) {
		t.Errorf("Bad MaxT; got %v, want +Inf", r.MaxT)
	}
}

func TestEval(t *testing.T) {
	r := New(mgl64.Vec3{1, 2, 3}, mgl64.Vec3{0, 0, -2})
	if diff := cmp.Diff(r.Eval(1.5), mgl64.Vec3{1, 2, 0}); diff != "" {
		t.Errorf("Bad point; diff (-got +want)\n%s", diff)
	}
}

func TestContains(t *testing.T) {
	r := Ray{MinT: 1, MaxT: 2}
	for _, tc := range []struct {
		t    float64
		want bool
	}{{0.5, false}, {1, true}, {1.5, true}, {2, true}, {2.5, false}} {
		if got := r.Contains(tc.t); got != tc.want {
			t.Errorf("Contains(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
}
