package scene

import "math"

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }

func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

func Dist(a, b Vec2) float64 { return a.Sub(b).Len() }

type Segment struct {
	A Vec2
	B Vec2
}

// Intersect reports whether segments s and o properly intersect or touch.
func (s Segment) Intersect(o Segment) bool {
	d1 := cross(o.B.Sub(o.A), s.A.Sub(o.A))
	d2 := cross(o.B.Sub(o.A), s.B.Sub(o.A))
	d3 := cross(s.B.Sub(s.A), o.A.Sub(s.A))
	d4 := cross(s.B.Sub(s.A), o.B.Sub(s.A))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(o, s.A) {
		return true
	}
	if d2 == 0 && onSegment(o, s.B) {
		return true
	}
	if d3 == 0 && onSegment(s, o.A) {
		return true
	}
	if d4 == 0 && onSegment(s, o.B) {
		return true
	}
	return false
}

// IntersectT returns the parameter t in [0,1] along s where s crosses o.
// ok is false when the segments do not cross or are collinear.
func (s Segment) IntersectT(o Segment) (t float64, ok bool) {
	r := s.B.Sub(s.A)
	d := o.B.Sub(o.A)
	denom := cross(r, d)
	if denom == 0 {
		return 0, false
	}
	qp := o.A.Sub(s.A)
	t = cross(qp, d) / denom
	u := cross(qp, r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

func cross(a, b Vec2) float64 { return a.X*b.Y - a.Y*b.X }

func onSegment(s Segment, p Vec2) bool {
	return math.Min(s.A.X, s.B.X) <= p.X && p.X <= math.Max(s.A.X, s.B.X) &&
		math.Min(s.A.Y, s.B.Y) <= p.Y && p.Y <= math.Max(s.A.Y, s.B.Y)
}

// Polygon is a closed horizontal footprint, vertices in order.
type Polygon []Vec2

// Contains uses the even-odd ray rule.
func (p Polygon) Contains(pt Vec2) bool {
	if len(p) < 3 {
		return false
	}
	in := false
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		pi, pj := p[i], p[j]
		if (pi.Y > pt.Y) != (pj.Y > pt.Y) &&
			pt.X < (pj.X-pi.X)*(pt.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			in = !in
		}
		j = i
	}
	return in
}

// IntersectsCircle reports whether any part of the footprint lies within the
// disc at center c with radius r. A degenerate polygon falls back to a point
// test so entities without an explicit footprint still work.
func (p Polygon) IntersectsCircle(c Vec2, r float64) bool {
	if r <= 0 {
		return false
	}
	if len(p) < 3 {
		if len(p) == 0 {
			return false
		}
		return Dist(p[0], c) <= r
	}
	if p.Contains(c) {
		return true
	}
	for _, v := range p {
		if Dist(v, c) <= r {
			return true
		}
	}
	j := len(p) - 1
	for i := 0; i < len(p); i++ {
		if distPointSegment(c, Segment{p[j], p[i]}) <= r {
			return true
		}
		j = i
	}
	return false
}

// Center returns the vertex centroid.
func (p Polygon) Center() Vec2 {
	if len(p) == 0 {
		return Vec2{}
	}
	var s Vec2
	for _, v := range p {
		s = s.Add(v)
	}
	return Vec2{s.X / float64(len(p)), s.Y / float64(len(p))}
}

func distPointSegment(p Vec2, s Segment) float64 {
	d := s.B.Sub(s.A)
	l2 := d.X*d.X + d.Y*d.Y
	if l2 == 0 {
		return Dist(p, s.A)
	}
	t := ((p.X-s.A.X)*d.X + (p.Y-s.A.Y)*d.Y) / l2
	t = math.Max(0, math.Min(1, t))
	proj := Vec2{s.A.X + t*d.X, s.A.Y + t*d.Y}
	return Dist(p, proj)
}

// SquareFootprint builds an axis-aligned footprint of the given edge length
// centered on pos. Used when the host supplies no explicit polygon.
func SquareFootprint(pos Vec2, edge float64) Polygon {
	h := edge / 2
	return Polygon{
		{pos.X - h, pos.Y - h},
		{pos.X + h, pos.Y - h},
		{pos.X + h, pos.Y + h},
		{pos.X - h, pos.Y + h},
	}
}
