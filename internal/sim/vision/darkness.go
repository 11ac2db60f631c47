package vision

import "gridsight.dev/internal/sim/scene"

// ResolveDarkness applies the darkvision tier table to a darkness rank.
// handled is false when the observer has no darkvision at all; the caller
// then falls back to non-visual senses starting from Hidden.
func ResolveDarkness(tier DarkvisionTier, rank int) (st State, handled bool) {
	switch tier {
	case TierGreater:
		return Observed, true
	case TierRegular:
		if rank >= heightenedRank {
			return Concealed, true
		}
		return Observed, true
	default:
		return Hidden, false
	}
}

// CrossBoundaryResolver determines concealment when the sightline traverses
// darkness zones of different rank than its endpoints.
type CrossBoundaryResolver struct {
	lighting *LightingEvaluator
}

func NewCrossBoundaryResolver(lighting *LightingEvaluator) *CrossBoundaryResolver {
	return &CrossBoundaryResolver{lighting: lighting}
}

const pathSamples = 5

// PathDarknessRank samples the sightline and returns the highest darkness
// rank crossed, and whether any sampled point (endpoints included) sits in a
// darkness zone at all.
func (r *CrossBoundaryResolver) PathDarknessRank(observer, subject *scene.Entity) (rank int, inDarkness bool) {
	rank = -1
	a := observer.Center()
	b := subject.Center()
	for i := 0; i <= pathSamples; i++ {
		t := float64(i) / float64(pathSamples)
		p := scene.Vec2{X: lerp(a.X, b.X, t), Y: lerp(a.Y, b.Y, t)}
		if dr := r.lighting.DarknessRankAt(p); dr > rank {
			rank = dr
		}
	}
	return rank, rank >= 0
}

// Crosses reports whether the pair needs cross-boundary resolution: the
// endpoints disagree about darkness, or the path passes through a darkness
// zone ranked above both endpoints.
func (r *CrossBoundaryResolver) Crosses(observer, subject *scene.Entity) (rank int, crosses bool) {
	obsRank := r.lighting.DarknessRankAt(observer.Center())
	subRank := r.lighting.DarknessRankAt(subject.Center())
	pathRank, any := r.PathDarknessRank(observer, subject)
	if !any {
		return -1, false
	}
	if (obsRank >= 0) != (subRank >= 0) {
		return pathRank, true
	}
	endMax := obsRank
	if subRank > endMax {
		endMax = subRank
	}
	if pathRank > endMax {
		return pathRank, true
	}
	return pathRank, false
}
