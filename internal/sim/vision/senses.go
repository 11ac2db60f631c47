package vision

import (
	"math"

	"gridsight.dev/internal/sim/catalogs"
	"gridsight.dev/internal/sim/scene"
)

// Capabilities is an entity's resolved sense set: canonical sense type to
// range, split by acuity. Unbounded ranges are +Inf.
type Capabilities struct {
	Precise   map[string]float64
	Imprecise map[string]float64

	visual map[string]bool
	ground map[string]bool
}

// SenseResolver normalizes raw sense declarations through the catalog alias
// table. Resolution is pure; results may be cached by the caller.
type SenseResolver struct {
	cats *catalogs.Catalogs
}

func NewSenseResolver(cats *catalogs.Catalogs) *SenseResolver {
	return &SenseResolver{cats: cats}
}

// Resolve merges the list form, the keyed-map form and the detection modes.
// A sense present more than once takes the more precise acuity and the larger
// range. Missing or malformed declarations resolve to no special senses.
func (r *SenseResolver) Resolve(e *scene.Entity) Capabilities {
	caps := Capabilities{
		Precise:   map[string]float64{},
		Imprecise: map[string]float64{},
		visual:    map[string]bool{},
		ground:    map[string]bool{},
	}
	if e == nil {
		return caps
	}
	for _, d := range e.Senses {
		r.merge(&caps, d)
	}
	for _, d := range e.SenseMap {
		r.merge(&caps, d)
	}
	for _, d := range e.Modes {
		r.merge(&caps, d)
	}
	return caps
}

func (r *SenseResolver) merge(caps *Capabilities, d scene.SenseDecl) {
	id := r.cats.Senses.CanonicalSense(d.Type)
	if id == "" {
		return
	}

	precise := false
	switch d.Acuity {
	case "precise":
		precise = true
	case "imprecise":
	default:
		if def, ok := r.cats.Senses.Defs[id]; ok {
			precise = def.DefaultAcuity == "precise"
		}
	}

	rng := d.Range
	if rng <= 0 {
		rng = math.Inf(1)
	}

	if def, ok := r.cats.Senses.Defs[id]; ok {
		caps.visual[id] = def.Visual
		caps.ground[id] = def.GroundOnly
	}

	if precise {
		// Precise beats imprecise for the same normalized type.
		if prev, ok := caps.Imprecise[id]; ok {
			delete(caps.Imprecise, id)
			if prev > rng {
				rng = prev
			}
		}
		if prev, ok := caps.Precise[id]; ok && prev > rng {
			rng = prev
		}
		caps.Precise[id] = rng
		return
	}
	if _, ok := caps.Precise[id]; ok {
		if caps.Precise[id] < rng {
			caps.Precise[id] = rng
		}
		return
	}
	if prev, ok := caps.Imprecise[id]; ok && prev > rng {
		rng = prev
	}
	caps.Imprecise[id] = rng
}

// DarkvisionTier classifies the observer's best visual darkness capability.
type DarkvisionTier int

const (
	TierNone DarkvisionTier = iota
	TierRegular
	TierGreater
)

func (c Capabilities) DarkvisionTier() DarkvisionTier {
	if _, ok := c.Precise["greaterdarkvision"]; ok {
		return TierGreater
	}
	if _, ok := c.Precise["darkvision"]; ok {
		return TierRegular
	}
	return TierNone
}

// HasVision reports any precise visual sense.
func (c Capabilities) HasVision() bool {
	for id := range c.Precise {
		if c.visual[id] {
			return true
		}
	}
	return false
}

func (c Capabilities) HasLowLight() bool {
	if _, ok := c.Precise["lowlightvision"]; ok {
		return true
	}
	// Darkvision subsumes low-light vision.
	return c.DarkvisionTier() != TierNone
}

// PreciseNonVisualWithin reports a precise non-visual sense reaching dist.
func (c Capabilities) PreciseNonVisualWithin(dist float64) bool {
	for id, rng := range c.Precise {
		if !c.visual[id] && rng >= dist {
			return true
		}
	}
	return false
}

// ImpreciseNonVisualWithin reports an imprecise non-visual sense reaching dist.
func (c Capabilities) ImpreciseNonVisualWithin(dist float64) bool {
	for id, rng := range c.Imprecise {
		if !c.visual[id] && rng >= dist {
			return true
		}
	}
	return false
}

// DetectsElevation reports whether any sense can register a subject above
// ground level. Ground-coupled senses (tremorsense) cannot.
func (c Capabilities) DetectsElevation() bool {
	for id := range c.Precise {
		if !c.ground[id] {
			return true
		}
	}
	for id := range c.Imprecise {
		if !c.ground[id] {
			return true
		}
	}
	return false
}

// Empty reports no senses at all.
func (c Capabilities) Empty() bool {
	return len(c.Precise) == 0 && len(c.Imprecise) == 0
}
