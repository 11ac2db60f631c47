package vision

import "gridsight.dev/internal/sim/scene"

// HeightProvider supplies vertical bounds for occluders that carry none of
// their own. Hosts with 3D map data register one at startup; the default
// treats unbounded occluders as full-height.
type HeightProvider interface {
	OccluderBounds(occluderID string) (bottom, top float64, ok bool)
}

type fullHeight struct{}

func (fullHeight) OccluderBounds(string) (float64, float64, bool) { return 0, 0, false }

// LineOfSight tests geometric visibility between two entities against the
// scene's sight-blocking occluders, honoring vertical bounds so flying or
// tall entities can see over partial-height walls.
type LineOfSight struct {
	sc      *scene.Scene
	heights HeightProvider
}

func NewLineOfSight(sc *scene.Scene) *LineOfSight {
	return &LineOfSight{sc: sc, heights: fullHeight{}}
}

// SetHeightProvider installs the host's occluder-height capability. Call
// before the engine starts; the provider is read from the engine goroutine.
func (l *LineOfSight) SetHeightProvider(hp HeightProvider) {
	if hp == nil {
		hp = fullHeight{}
	}
	l.heights = hp
}

// HasLineOfSight casts a center-to-center ray first; when that is blocked it
// samples the corners of both footprints for partial-occlusion fidelity. Any
// clear ray grants line of sight.
func (l *LineOfSight) HasLineOfSight(observer, subject *scene.Entity) bool {
	if observer == nil || subject == nil {
		return false
	}
	oLow, oHigh := observer.VerticalSpan()
	sLow, sHigh := subject.VerticalSpan()

	if l.rayClear(observer.Center(), subject.Center(), oLow, oHigh, sLow, sHigh) {
		return true
	}
	for _, from := range samplePoints(observer) {
		if l.rayClear(from, subject.Center(), oLow, oHigh, sLow, sHigh) {
			return true
		}
	}
	for _, to := range samplePoints(subject) {
		if l.rayClear(observer.Center(), to, oLow, oHigh, sLow, sHigh) {
			return true
		}
	}
	return false
}

func samplePoints(e *scene.Entity) []scene.Vec2 {
	fp := e.EffectiveFootprint()
	if len(fp) < 3 {
		return nil
	}
	// Pull corners slightly toward the center so rays don't graze shared
	// occluder endpoints.
	c := fp.Center()
	out := make([]scene.Vec2, 0, len(fp))
	for _, v := range fp {
		out = append(out, scene.Vec2{
			X: v.X + (c.X-v.X)*0.1,
			Y: v.Y + (c.Y-v.Y)*0.1,
		})
	}
	return out
}

func (l *LineOfSight) rayClear(a, b scene.Vec2, aLow, aHigh, bLow, bHigh float64) bool {
	ray := scene.Segment{A: a, B: b}
	for _, o := range l.sc.Occluders() {
		if !o.BlocksSight || o.Open {
			continue
		}
		t, crossed := ray.IntersectT(o.Seg)
		if !crossed {
			if !ray.Intersect(o.Seg) {
				continue
			}
			// Collinear or endpoint touch: test at the midpoint span.
			t = 0.5
		}
		low := lerp(aLow, bLow, t)
		high := lerp(aHigh, bHigh, t)
		oc := o
		if !oc.HasBounds {
			if bottom, top, ok := l.heights.OccluderBounds(oc.ID); ok {
				bounded := *oc
				bounded.HasBounds = true
				bounded.Bottom = bottom
				bounded.Top = top
				oc = &bounded
			}
		}
		if oc.BlocksSightRay(low, high) {
			return false
		}
	}
	return true
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// ElevationUndetected applies the elevation rule: a subject elevated above the
// observer is undetected when none of the observer's senses can register
// elevation differences (e.g. only tremor-like senses).
func ElevationUndetected(caps Capabilities, observer, subject *scene.Entity) bool {
	if observer == nil || subject == nil {
		return false
	}
	if subject.Elevation <= observer.Elevation {
		return false
	}
	return !caps.DetectsElevation()
}
