package vision

import (
	"time"

	"gridsight.dev/internal/sim/scene"
)

// ConditionEvaluator answers condition queries and computes invisibility
// transitions. The only state it writes is the established-state record,
// which is idempotent for unchanged inputs.
type ConditionEvaluator struct {
	resolver *SenseResolver
	flags    FlagStore
	now      func() time.Time
}

func NewConditionEvaluator(resolver *SenseResolver, flags FlagStore) *ConditionEvaluator {
	return &ConditionEvaluator{resolver: resolver, flags: flags, now: time.Now}
}

func (c *ConditionEvaluator) IsBlinded(e *scene.Entity) bool  { return hasCondition(e, "blinded") }
func (c *ConditionEvaluator) IsDazzled(e *scene.Entity) bool  { return hasCondition(e, "dazzled") }
func (c *ConditionEvaluator) IsDeafened(e *scene.Entity) bool { return hasCondition(e, "deafened") }

func hasCondition(e *scene.Entity, id string) bool {
	return e != nil && e.Conditions[id]
}

// IsInvisibleTo reports whether subject is invisible for this observer. A
// precise non-visual sense within range completely negates invisibility.
func (c *ConditionEvaluator) IsInvisibleTo(observer, subject *scene.Entity) bool {
	if !hasCondition(subject, "invisible") {
		return false
	}
	caps := c.resolver.Resolve(observer)
	dist := scene.Dist(observer.Pos, subject.Pos)
	return !caps.PreciseNonVisualWithin(dist)
}

// ApplyInvisibility shifts the already-computed base state through the
// invisibility ladder. It must run last in the calculation: invisibility
// shifts whatever state would otherwise apply.
func (c *ConditionEvaluator) ApplyInvisibility(observer, subject *scene.Entity, base State) State {
	if observer == nil || subject == nil {
		return base
	}
	if !hasCondition(subject, "invisible") {
		return base
	}

	caps := c.resolver.Resolve(observer)
	dist := scene.Dist(observer.Pos, subject.Pos)
	if caps.PreciseNonVisualWithin(dist) {
		// Invisibility fully negated.
		return base
	}
	if caps.ImpreciseNonVisualWithin(dist) {
		// Imprecise non-visual senses bypass the ladder entirely: the
		// subject's location stays known.
		return Hidden
	}

	if rec, ok := c.flags.Invisibility(observer.ID, subject.ID); ok && rec.Established {
		return rec.EstablishedState
	}

	var out State
	switch base {
	case Observed, Concealed:
		out = Hidden
	case Hidden:
		out = Undetected
	default:
		out = Undetected
	}
	// Full normal sight of the location clamps the result to at least
	// hidden, never better. The ladder already guarantees that; the clamp
	// matters only if the ladder ever changes shape.
	if caps.HasVision() && out < Hidden {
		out = Hidden
	}

	c.flags.PutInvisibility(observer.ID, subject.ID, InvisibilityRecord{
		WasVisible:       base <= Concealed,
		PreviousState:    base,
		EstablishedState: out,
		Established:      true,
		EstablishedAt:    c.now(),
	})
	return out
}

// SubjectActed clears every established state pinned against the subject.
// Called when the subject moves or otherwise takes an action.
func (c *ConditionEvaluator) SubjectActed(subjectID string) {
	c.flags.ClearInvisibilityForSubject(subjectID)
}
