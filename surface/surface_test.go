package surface

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"row-major/whitted/contact"
	"row-major/whitted/ray"
	"row-major/whitted/transform"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestSphereNearDistance(t *testing.T) {
	testCases := []struct {
		desc   string
		radius float64
		dist   float64
		dirLen float64
	}{
		{"unit", 1, 5, 1},
		{"big radius", 3, 10, 1},
		{"long direction", 2, 7, 4},
		{"short direction", 0.5, 2, 0.25},
	}
	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			s := &Sphere{Radius: tc.radius, Xform: transform.Identity(), Material: 4}
			r := ray.New(mgl64.Vec3{0, 0, tc.dist}, mgl64.Vec3{0, 0, -tc.dirLen})
			hit := contact.New()

			if !s.Intersect(&r, &hit) {
				t.Fatalf("Expected hit, but got miss")
			}

			want := contact.HitInfo{
				T:        (tc.dist - tc.radius) / tc.dirLen,
				P:        mgl64.Vec3{0, 0, tc.radius},
				N:        mgl64.Vec3{0, 0, 1},
				Material: 4,
			}
			if diff := cmp.Diff(hit, want, approx); diff != "" {
				t.Errorf("Bad hit; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestSphereNegativeRadius(t *testing.T) {
	s := &Sphere{Radius: -1, Xform: transform.Identity(), Material: 1}
	r := ray.New(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()

	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}

	want := contact.HitInfo{
		T:        4,
		P:        r.Eval(4),
		N:        mgl64.Vec3{0, 0, 1},
		Material: 1,
	}
	if diff := cmp.Diff(hit, want, approx); diff != "" {
		t.Errorf("Bad hit; diff (-got +want)\n%s", diff)
	}
}

func TestSphereAlongArbitraryDirection(t *testing.T) {
	s := &Sphere{Radius: 1.5, Xform: transform.Identity()}
	dir := mgl64.Vec3{1, -2, 0.5}.Normalize()
	const dist = 6.0

	r := ray.New(dir.Mul(dist), dir.Mul(-1))
	hit := contact.New()
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}
	if math.Abs(hit.T-(dist-1.5)) > 1e-9 {
		t.Errorf("Bad distance; got %v, want %v", hit.T, dist-1.5)
	}
	if diff := cmp.Diff(hit.N, dir, approx); diff != "" {
		t.Errorf("Bad normal; diff (-got +want)\n%s", diff)
	}
}

func TestSphereFromInsideTakesFarRoot(t *testing.T) {
	s := &Sphere{Radius: 2, Xform: transform.Identity()}
	r := ray.New(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0})
	hit := contact.New()
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}
	if math.Abs(hit.T-2) > 1e-9 {
		t.Errorf("Bad distance; got %v, want 2", hit.T)
	}
}

func TestSphereDistantOrigin(t *testing.T) {
	s := &Sphere{Radius: 1, Xform: transform.Identity()}
	r := ray.New(mgl64.Vec3{0, 0, 1e4}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}
	if math.Abs(hit.T-(1e4-1)) > 1e-9 {
		t.Errorf("Bad distance; got %v, want %v", hit.T, 1e4-1)
	}
}

func TestSphereTangentRay(t *testing.T) {
	s := &Sphere{Radius: 1, Xform: transform.Identity()}
	r := ray.New(mgl64.Vec3{1, 0, 5}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected grazing hit, but got miss")
	}
	if math.Abs(hit.T-5) > 1e-9 {
		t.Errorf("Bad distance; got %v, want 5", hit.T)
	}
}

func TestSphereTranslated(t *testing.T) {
	s := &Sphere{Radius: 1, Xform: transform.Translate(mgl64.Vec3{3, 0, 0})}
	r := ray.New(mgl64.Vec3{3, 0, 10}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}

	want := contact.HitInfo{T: 9, P: mgl64.Vec3{3, 0, 1}, N: mgl64.Vec3{0, 0, 1}}
	if diff := cmp.Diff(hit, want, approx); diff != "" {
		t.Errorf("Bad hit; diff (-got +want)\n%s", diff)
	}
}

func TestSphereRespectsWindow(t *testing.T) {
	s := &Sphere{Radius: 1, Xform: transform.Identity()}

	r := ray.New(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	r.MaxT = 3.5
	hit := contact.New()
	if s.Intersect(&r, &hit) {
		t.Errorf("Hit beyond MaxT")
	}

	r = ray.New(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})
	r.MinT = 5
	if !s.Intersect(&r, &hit) {
		t.Fatalf("Expected far hit, but got miss")
	}
	if math.Abs(hit.T-6) > 1e-9 {
		t.Errorf("Bad distance; got %v, want 6", hit.T)
	}
}

func TestQuadBounds(t *testing.T) {
	q := &Quad{HalfSize: 0.5, Xform: transform.Identity(), Material: 2}

	r := ray.New(mgl64.Vec3{0.6, 0, 1}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if q.Intersect(&r, &hit) {
		t.Errorf("Ray from x=0.6 hit a quad of half-size 0.5")
	}

	r = ray.New(mgl64.Vec3{0.4, 0, 1}, mgl64.Vec3{0, 0, -1})
	if !q.Intersect(&r, &hit) {
		t.Fatalf("Ray from x=0.4 missed a quad of half-size 0.5")
	}
	want := contact.HitInfo{
		T:        1,
		P:        mgl64.Vec3{0.4, 0, 0},
		N:        mgl64.Vec3{0, 0, -1},
		Material: 2,
	}
	if diff := cmp.Diff(hit, want, approx); diff != "" {
		t.Errorf("Bad hit; diff (-got +want)\n%s", diff)
	}
}

func TestQuadParallelMisses(t *testing.T) {
	q := &Quad{HalfSize: 1, Xform: transform.Identity()}
	r := ray.New(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	hit := contact.New()
	if q.Intersect(&r, &hit) {
		t.Errorf("Ray parallel to the quad reported a hit")
	}
}

func TestQuadRotated(t *testing.T) {
	// Rotate the quad a quarter turn about X so it lies in the XZ plane.
	q := &Quad{
		HalfSize: 1,
		Xform: transform.Compose(
			transform.Translate(mgl64.Vec3{0, -1, 0}),
			transform.Rotate(mgl64.Vec3{1, 0, 0}, math.Pi/2),
		),
	}
	r := ray.New(mgl64.Vec3{0.5, 3, 0.5}, mgl64.Vec3{0, -1, 0})
	hit := contact.New()
	if !q.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}

	want := contact.HitInfo{T: 4, P: mgl64.Vec3{0.5, -1, 0.5}, N: mgl64.Vec3{0, 1, 0}}
	if diff := cmp.Diff(hit, want, approx); diff != "" {
		t.Errorf("Bad hit; diff (-got +want)\n%s", diff)
	}
}

func TestMissPreservesState(t *testing.T) {
	surfaces := map[string]Surface{
		"sphere": &Sphere{Radius: 1, Xform: transform.Identity()},
		"quad":   &Quad{HalfSize: 0.5, Xform: transform.Identity()},
		"group": &Group{Surfaces: []Surface{
			&Sphere{Radius: 1, Xform: transform.Identity()},
			&Quad{HalfSize: 0.5, Xform: transform.Identity()},
		}},
	}

	for name, s := range surfaces {
		t.Run(name, func(t *testing.T) {
			r := ray.New(mgl64.Vec3{5, 5, 5}, mgl64.Vec3{0, 0, -1})
			r.MaxT = 42
			hit := contact.HitInfo{T: 7, P: mgl64.Vec3{1, 2, 3}, N: mgl64.Vec3{0, 1, 0}, Material: 9}

			wantRay, wantHit := r, hit
			if s.Intersect(&r, &hit) {
				t.Fatalf("Expected miss, but got hit")
			}
			if diff := cmp.Diff(r, wantRay); diff != "" {
				t.Errorf("Miss modified the ray; diff (-got +want)\n%s", diff)
			}
			if diff := cmp.Diff(hit, wantHit); diff != "" {
				t.Errorf("Miss modified the hit; diff (-got +want)\n%s", diff)
			}
		})
	}
}

func TestGroupClosestHitIgnoresOrder(t *testing.T) {
	near := &Sphere{Radius: 1, Xform: transform.Translate(mgl64.Vec3{0, 0, 2}), Material: 1}
	far := &Sphere{Radius: 1, Xform: transform.Translate(mgl64.Vec3{0, 0, 1}), Material: 2}

	for _, order := range [][]Surface{{near, far}, {far, near}} {
		g := &Group{Surfaces: order}
		r := ray.New(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, -1})
		hit := contact.New()

		if !g.Intersect(&r, &hit) {
			t.Fatalf("Expected hit, but got miss")
		}
		if hit.Material != 1 {
			t.Errorf("Group returned material %d, want the nearer sphere's 1", hit.Material)
		}
		if math.Abs(hit.T-7) > 1e-9 {
			t.Errorf("Bad distance; got %v, want 7", hit.T)
		}
		if r.MaxT != hit.T {
			t.Errorf("Ray MaxT %v does not match closest hit %v", r.MaxT, hit.T)
		}
	}
}

func TestNestedGroups(t *testing.T) {
	inner := &Group{}
	inner.Add(&Quad{HalfSize: 5, Xform: transform.Identity(), Material: 1})
	outer := &Group{}
	outer.Add(&Sphere{Radius: 1, Xform: transform.Translate(mgl64.Vec3{0, 0, -5}), Material: 2})
	outer.Add(inner)

	r := ray.New(mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if !outer.Intersect(&r, &hit) {
		t.Fatalf("Expected hit, but got miss")
	}
	if hit.Material != 1 {
		t.Errorf("Nested group returned material %d, want the quad's 1", hit.Material)
	}
}

func TestEmptyGroupMisses(t *testing.T) {
	g := &Group{}
	r := ray.New(mgl64.Vec3{}, mgl64.Vec3{0, 0, -1})
	hit := contact.New()
	if g.Intersect(&r, &hit) {
		t.Errorf("Empty group reported a hit")
	}
}
