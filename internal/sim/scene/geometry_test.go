package scene

import (
	"math"
	"testing"
)

func TestSegmentIntersect(t *testing.T) {
	cases := []struct {
		name string
		a, b Segment
		want bool
	}{
		{"crossing", Segment{Vec2{0, 0}, Vec2{10, 10}}, Segment{Vec2{0, 10}, Vec2{10, 0}}, true},
		{"parallel", Segment{Vec2{0, 0}, Vec2{10, 0}}, Segment{Vec2{0, 1}, Vec2{10, 1}}, false},
		{"touching endpoint", Segment{Vec2{0, 0}, Vec2{5, 5}}, Segment{Vec2{5, 5}, Vec2{10, 0}}, true},
		{"disjoint", Segment{Vec2{0, 0}, Vec2{1, 1}}, Segment{Vec2{5, 5}, Vec2{6, 6}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Intersect(tc.b); got != tc.want {
				t.Fatalf("Intersect = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestSegmentIntersectT(t *testing.T) {
	ray := Segment{Vec2{0, 0}, Vec2{10, 0}}
	wall := Segment{Vec2{4, -5}, Vec2{4, 5}}
	tt, ok := ray.IntersectT(wall)
	if !ok {
		t.Fatalf("expected crossing")
	}
	if math.Abs(tt-0.4) > 1e-9 {
		t.Fatalf("t = %v, want 0.4", tt)
	}
	if _, ok := ray.IntersectT(Segment{Vec2{20, -5}, Vec2{20, 5}}); ok {
		t.Fatalf("expected no crossing past the ray end")
	}
}

func TestPolygonContains(t *testing.T) {
	sq := SquareFootprint(Vec2{5, 5}, 10)
	if !sq.Contains(Vec2{5, 5}) {
		t.Fatalf("center should be inside")
	}
	if sq.Contains(Vec2{20, 20}) {
		t.Fatalf("far point should be outside")
	}
}

func TestPolygonIntersectsCircle(t *testing.T) {
	sq := SquareFootprint(Vec2{0, 0}, 10)
	if !sq.IntersectsCircle(Vec2{0, 0}, 1) {
		t.Fatalf("circle inside polygon should intersect")
	}
	if !sq.IntersectsCircle(Vec2{8, 0}, 4) {
		t.Fatalf("circle overlapping edge should intersect")
	}
	if sq.IntersectsCircle(Vec2{20, 0}, 4) {
		t.Fatalf("distant circle should not intersect")
	}
	if sq.IntersectsCircle(Vec2{0, 0}, 0) {
		t.Fatalf("zero radius never intersects")
	}
}
