package vision

import (
	"gridsight.dev/internal/sim/scene"
)

// Calculator orchestrates lighting, senses, line of sight, cross-boundary
// darkness and conditions into one final state per observer->subject pair.
//
// "State machine" here means the decision path taken for one query; nothing
// is persisted except invisibility stickiness and overrides.
type Calculator struct {
	sc        *scene.Scene
	senses    *SenseResolver
	lighting  *LightingEvaluator
	los       *LineOfSight
	cross     *CrossBoundaryResolver
	conds     *ConditionEvaluator
	overrides *OverrideService
	caches    *CacheManager

	debugf func(format string, args ...any)
}

func NewCalculator(
	sc *scene.Scene,
	senses *SenseResolver,
	lighting *LightingEvaluator,
	los *LineOfSight,
	cross *CrossBoundaryResolver,
	conds *ConditionEvaluator,
	overrides *OverrideService,
	caches *CacheManager,
	debugf func(format string, args ...any),
) *Calculator {
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	return &Calculator{
		sc:        sc,
		senses:    senses,
		lighting:  lighting,
		los:       los,
		cross:     cross,
		conds:     conds,
		overrides: overrides,
		caches:    caches,
		debugf:    debugf,
	}
}

// Visibility computes the raw state for the pair, without override
// precedence. It always returns one of the four states; internal failures
// fall back to the documented default for the branch rather than surfacing.
func (c *Calculator) Visibility(observerID, targetID string) (st State) {
	defer func() {
		if r := recover(); r != nil {
			c.debugf("visibility %s->%s: recovered: %v", observerID, targetID, r)
			st = Observed
		}
	}()

	observer := c.sc.Entity(observerID)
	subject := c.sc.Entity(targetID)
	if observer == nil || subject == nil {
		// Missing actor data: bright-light safe default.
		return Observed
	}
	if observerID == targetID {
		return Observed
	}

	if cached, ok := c.caches.Visibility(observer, subject); ok {
		return cached
	}

	base := c.baseState(observer, subject)
	// Invisibility is applied last: it shifts whatever state would
	// otherwise apply.
	final := c.conds.ApplyInvisibility(observer, subject, base)

	c.caches.PutVisibility(observer, subject, final)
	return final
}

// VisibilityWithOverrides checks override precedence first; an active
// override governing the pair is terminal. The override-resolved result is
// held in the short-lived validation cache so override-consistency checks
// during one burst do not re-resolve the pair.
func (c *Calculator) VisibilityWithOverrides(observerID, targetID string) State {
	observer := c.sc.Entity(observerID)
	subject := c.sc.Entity(targetID)
	if observer != nil && subject != nil {
		if st, ok := c.caches.Validation(observer, subject); ok {
			return st
		}
	}
	st, governed := c.overrides.Resolve(observerID, targetID)
	if !governed {
		st = c.Visibility(observerID, targetID)
	}
	if observer != nil && subject != nil {
		c.caches.PutValidation(observer, subject, st)
	}
	return st
}

func (c *Calculator) baseState(observer, subject *scene.Entity) State {
	caps := c.senses.Resolve(observer)
	dist := scene.Dist(observer.Pos, subject.Pos)

	// Elevation gate: applies regardless of every other rule, including the
	// non-visual fallback paths.
	if ElevationUndetected(caps, observer, subject) {
		return Undetected
	}

	// Vision gate: a blinded observer, or one with no visual sense, works
	// entirely from non-visual senses.
	if c.conds.IsBlinded(observer) || !caps.HasVision() {
		return c.nonVisualFallback(caps, dist)
	}

	// Line-of-sight gate.
	losClear, ok := c.caches.LOS(observer, subject)
	if !ok {
		losClear = c.los.HasLineOfSight(observer, subject)
		c.caches.PutLOS(observer, subject, losClear)
	}
	if !losClear {
		return c.nonVisualFallback(caps, dist)
	}

	ill := c.lighting.IlluminationAt(subject.Center(), subject.EffectiveFootprint())

	var st State
	if pathRank, crosses := c.cross.Crosses(observer, subject); crosses {
		// Cross-boundary darkness gate: resolve against the worst rank
		// on the sightline.
		resolved, handled := ResolveDarkness(caps.DarkvisionTier(), pathRank)
		if !handled {
			// No darkvision across a darkness boundary pins the pair at
			// hidden; only a precise non-visual sense does better.
			if caps.PreciseNonVisualWithin(dist) {
				return Observed
			}
			return Hidden
		}
		st = resolved
	} else {
		switch ill.Level {
		case Bright:
			st = Observed
		case Dim:
			if caps.HasLowLight() {
				st = Observed
			} else {
				st = Concealed
			}
		default: // Darkness
			resolved, handled := ResolveDarkness(caps.DarkvisionTier(), ill.Rank)
			if !handled {
				return c.nonVisualFallback(caps, dist)
			}
			st = resolved
		}
	}

	// Dazzlement only worsens observed to concealed, and a precise
	// non-visual sense in range ignores it for this target.
	if st == Observed && c.conds.IsDazzled(observer) && !caps.PreciseNonVisualWithin(dist) {
		st = Concealed
	}
	return st
}

// nonVisualFallback resolves a pair from non-visual senses alone: a precise
// sense in range observes, an imprecise sense in range places at hidden,
// nothing in range is undetected.
func (c *Calculator) nonVisualFallback(caps Capabilities, dist float64) State {
	if caps.PreciseNonVisualWithin(dist) {
		return Observed
	}
	if caps.ImpreciseNonVisualWithin(dist) {
		return Hidden
	}
	return Undetected
}
