package vision

import "gridsight.dev/internal/sim/scene"

// Level is the illumination bracket at a point.
type Level int

const (
	Bright Level = iota
	Dim
	Darkness
)

func (l Level) String() string {
	switch l {
	case Bright:
		return "bright"
	case Dim:
		return "dim"
	default:
		return "darkness"
	}
}

// Illumination is the result of a lighting query.
type Illumination struct {
	Level          Level
	DarknessSource bool
	Heightened     bool // rank >= 4
	Rank           int
}

const heightenedRank = 4

// LightingEvaluator answers illumination queries against the scene's light
// roster and ambient level.
type LightingEvaluator struct {
	sc              *scene.Scene
	brightThreshold float64
}

func NewLightingEvaluator(sc *scene.Scene, brightThreshold float64) *LightingEvaluator {
	if brightThreshold <= 0 || brightThreshold > 1 {
		brightThreshold = 0.75
	}
	return &LightingEvaluator{sc: sc, brightThreshold: brightThreshold}
}

// IlluminationAt resolves the bracket at point p for an entity with the given
// footprint. Darkness sources override everything; the highest rank wins.
func (l *LightingEvaluator) IlluminationAt(p scene.Vec2, fp scene.Polygon) Illumination {
	bestRank := -1
	for _, src := range l.sc.Lights() {
		if !src.Active || !src.Darkness {
			continue
		}
		radius := src.BrightRadius
		if src.DimRadius > radius {
			radius = src.DimRadius
		}
		if radius <= 0 {
			continue
		}
		if scene.Dist(p, src.Pos) <= radius && src.Rank > bestRank {
			bestRank = src.Rank
		}
	}
	if bestRank >= 0 {
		return Illumination{
			Level:          Darkness,
			DarknessSource: true,
			Heightened:     bestRank >= heightenedRank,
			Rank:           bestRank,
		}
	}

	if l.sc.AmbientDarkness() < l.brightThreshold {
		return Illumination{Level: Bright}
	}

	dim := false
	for _, src := range l.sc.Lights() {
		if !src.Active || src.Darkness {
			continue
		}
		if fp.IntersectsCircle(src.Pos, src.BrightRadius) {
			return Illumination{Level: Bright}
		}
		if fp.IntersectsCircle(src.Pos, src.DimRadius) {
			dim = true
		}
	}
	if dim {
		return Illumination{Level: Dim}
	}

	rank := l.sc.AmbientRank()
	return Illumination{
		Level:      Darkness,
		Heightened: rank >= heightenedRank,
		Rank:       rank,
	}
}

// DarknessRankAt is the magical darkness rank governing point p, or -1 when
// the point is not inside any darkness zone (source or magical ambient).
func (l *LightingEvaluator) DarknessRankAt(p scene.Vec2) int {
	best := -1
	for _, src := range l.sc.Lights() {
		if !src.Active || !src.Darkness {
			continue
		}
		radius := src.BrightRadius
		if src.DimRadius > radius {
			radius = src.DimRadius
		}
		if radius <= 0 {
			continue
		}
		if scene.Dist(p, src.Pos) <= radius && src.Rank > best {
			best = src.Rank
		}
	}
	if best >= 0 {
		return best
	}
	if l.sc.AmbientDarkness() >= l.brightThreshold && l.sc.AmbientRank() > 0 {
		return l.sc.AmbientRank()
	}
	return -1
}
