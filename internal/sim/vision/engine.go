package vision

import (
	"fmt"
	"time"

	"gridsight.dev/internal/protocol"
	"gridsight.dev/internal/sim/catalogs"
	"gridsight.dev/internal/sim/scene"
	"gridsight.dev/internal/sim/tuning"
)

// Pair is one ordered observer->target relation.
type Pair struct {
	Observer string
	Target   string
}

// RecalcEntry is one audit record per processed batch.
type RecalcEntry struct {
	At       time.Time `json:"at"`
	Tick     uint64    `json:"tick"`
	Reason   string    `json:"reason"`
	Entities int       `json:"entities"`
	Pairs    int       `json:"pairs"`
	Changed  int       `json:"changed"`
	TookMs   float64   `json:"took_ms"`
}

// AuditLog receives one entry per recalculation batch.
type AuditLog interface {
	LogRecalc(e RecalcEntry)
}

// Engine owns the scene, the calculation pipeline and the dirty set. All
// methods must be called from a single goroutine; Run serializes external
// traffic onto it.
type Engine struct {
	cfg   tuning.Tuning
	cats  *catalogs.Catalogs
	sc    *scene.Scene
	flags FlagStore

	senses    *SenseResolver
	lighting  *LightingEvaluator
	los       *LineOfSight
	cross     *CrossBoundaryResolver
	conds     *ConditionEvaluator
	overrides *OverrideService
	caches    *CacheManager
	impact    *SpatialImpactAnalyzer
	calc      *Calculator

	audit  AuditLog
	debugf func(format string, args ...any)

	enabled       bool
	encounterOnly bool
	inEncounter   bool

	tick uint64

	// dirty is the set of entities whose pairs need recomputation.
	dirty map[string]struct{}
	// debounceLeft counts ticks until the dirty set is processed; every new
	// event resets it so bursts coalesce into one batch.
	debounceLeft int
	// applying guards against re-entrant batch processing. A trigger that
	// fires while a batch is running only marks entities dirty; the next
	// batch picks them up.
	applying bool

	// states is the last published state per pair, used to diff batches.
	states map[Pair]State

	events    chan protocol.EventMsg
	scenes    chan protocol.SceneMsg
	queries   chan queryRequest
	ovrReqs   chan overrideRequest
	statesOut chan protocol.StatesMsg
}

func NewEngine(cfg tuning.Tuning, cats *catalogs.Catalogs, flags FlagStore, audit AuditLog, debugf func(format string, args ...any)) *Engine {
	cfg.ApplyDefaults()
	if cats == nil {
		cats = catalogs.Default()
	}
	if flags == nil {
		flags = NewMemoryFlagStore()
	}
	if debugf == nil {
		debugf = func(string, ...any) {}
	}
	sc := scene.New(cats)
	senses := NewSenseResolver(cats)
	lighting := NewLightingEvaluator(sc, cfg.BrightThreshold)
	los := NewLineOfSight(sc)
	cross := NewCrossBoundaryResolver(lighting)
	conds := NewConditionEvaluator(senses, flags)
	ovr := NewOverrideService(flags)
	caches := NewCacheManager(cfg.Caches, cfg.QuantizeStep)
	impact := NewSpatialImpactAnalyzer(sc, cfg.MaxVisibility)

	e := &Engine{
		cfg:       cfg,
		cats:      cats,
		sc:        sc,
		flags:     flags,
		senses:    senses,
		lighting:  lighting,
		los:       los,
		cross:     cross,
		conds:     conds,
		overrides: ovr,
		caches:    caches,
		impact:    impact,

		audit:  audit,
		debugf: debugf,

		enabled:       cfg.Enabled,
		encounterOnly: cfg.EncounterOnly,

		dirty:  map[string]struct{}{},
		states: map[Pair]State{},

		events:    make(chan protocol.EventMsg, 256),
		scenes:    make(chan protocol.SceneMsg, 4),
		queries:   make(chan queryRequest, 64),
		ovrReqs:   make(chan overrideRequest, 64),
		statesOut: make(chan protocol.StatesMsg, 64),
	}
	e.calc = NewCalculator(sc, senses, lighting, los, cross, conds, ovr, caches, debugf)
	return e
}

func (e *Engine) Scene() *scene.Scene { return e.sc }
func (e *Engine) Tick() uint64        { return e.tick }

// SetHeightProvider registers the host's occluder-height capability for
// occluders without inline vertical bounds. Call before Run.
func (e *Engine) SetHeightProvider(hp HeightProvider) {
	e.los.SetHeightProvider(hp)
}

// Active reports whether states are being computed at all: the master toggle
// plus the encounter-only gate.
func (e *Engine) Active() bool {
	if !e.enabled {
		return false
	}
	if e.encounterOnly && !e.inEncounter {
		return false
	}
	return true
}

// CalculateVisibility answers a raw pair query. Disabled engines answer
// Observed for everything.
func (e *Engine) CalculateVisibility(observerID, targetID string) State {
	if !e.Active() {
		return Observed
	}
	return e.calc.Visibility(observerID, targetID)
}

func (e *Engine) CalculateVisibilityWithOverrides(observerID, targetID string) State {
	if !e.Active() {
		return Observed
	}
	return e.calc.VisibilityWithOverrides(observerID, targetID)
}

// LoadScene replaces all world state and recomputes from scratch.
func (e *Engine) LoadScene(doc protocol.SceneMsg) {
	e.sc.Load(doc)
	e.caches.InvalidateAll()
	e.states = map[Pair]State{}
	e.markAllDirty()
	e.processDirty("scene_load")
}

// SetEnabled flips the master toggle. Disabling discards pending work;
// re-enabling recomputes everything.
func (e *Engine) SetEnabled(on bool) {
	if e.enabled == on {
		return
	}
	e.enabled = on
	e.dirty = map[string]struct{}{}
	e.debounceLeft = 0
	if on {
		e.caches.InvalidateAll()
		e.markAllDirty()
		e.processDirty("enabled")
	} else {
		e.states = map[Pair]State{}
	}
}

func (e *Engine) SetEncounterOnly(on bool) {
	if e.encounterOnly == on {
		return
	}
	e.encounterOnly = on
	e.refreshGate("encounter_only")
}

func (e *Engine) SetEncounterActive(on bool) {
	if e.inEncounter == on {
		return
	}
	e.inEncounter = on
	e.refreshGate("encounter_state")
}

func (e *Engine) refreshGate(reason string) {
	e.dirty = map[string]struct{}{}
	e.debounceLeft = 0
	if e.Active() {
		e.caches.InvalidateAll()
		e.markAllDirty()
		e.processDirty(reason)
	} else {
		e.states = map[Pair]State{}
	}
}

// HandleEvent applies one world change: mutate the scene, invalidate what the
// change can affect, and mark the affected entities dirty. Immediate events
// are processed synchronously instead of waiting out the debounce window.
func (e *Engine) HandleEvent(ev protocol.EventMsg) error {
	if !protocol.IsKnownEventKind(ev.Kind) {
		return fmt.Errorf("%s: unknown event kind %q", protocol.ErrUnknownKind, ev.Kind)
	}

	switch ev.Kind {
	case protocol.EventEntityUpserted:
		if ev.Entity == nil {
			return fmt.Errorf("%s: %s without entity", protocol.ErrBadRequest, ev.Kind)
		}
		e.sc.UpsertEntity(e.sc.EntityFromDoc(*ev.Entity))
		e.caches.InvalidateEntity(ev.Entity.ID)
		e.markDirty(ev.Entity.ID)

	case protocol.EventEntityRemoved:
		if ev.EntityID == "" {
			return fmt.Errorf("%s: %s without entity_id", protocol.ErrBadRequest, ev.Kind)
		}
		e.sc.RemoveEntity(ev.EntityID)
		e.caches.InvalidateEntity(ev.EntityID)
		e.flags.ClearInvisibilityForSubject(ev.EntityID)
		e.dropPairsFor(ev.EntityID)
		e.markAllDirty()

	case protocol.EventEntityMoved:
		if ev.EntityID == "" || ev.Pos == nil {
			return fmt.Errorf("%s: %s needs entity_id and pos", protocol.ErrBadRequest, ev.Kind)
		}
		oldPos, ok := e.sc.MoveEntity(ev.EntityID, scene.Vec2{X: ev.Pos[0], Y: ev.Pos[1]}, ev.Elevation)
		if !ok {
			return fmt.Errorf("%s: %s", protocol.ErrUnknownEntity, ev.EntityID)
		}
		// Movement is an action: established invisibility states against
		// the mover reset.
		e.conds.SubjectActed(ev.EntityID)
		e.caches.InvalidateEntity(ev.EntityID)
		for _, id := range e.impact.AffectedByMove(ev.EntityID, oldPos, e.sc.Entity(ev.EntityID).Pos) {
			e.markDirty(id)
		}

	case protocol.EventLightUpserted:
		if ev.Light == nil {
			return fmt.Errorf("%s: %s without light", protocol.ErrBadRequest, ev.Kind)
		}
		before := e.sc.Light(ev.Light.ID)
		after := scene.LightFromDoc(*ev.Light)
		e.sc.UpsertLight(after)
		affected := e.impact.AffectedByLightEdit(before, after)
		if len(affected) > 0 {
			e.caches.InvalidateAll()
			for _, id := range affected {
				e.markDirty(id)
			}
		}

	case protocol.EventLightRemoved:
		if ev.EntityID == "" {
			return fmt.Errorf("%s: %s without entity_id", protocol.ErrBadRequest, ev.Kind)
		}
		before := e.sc.Light(ev.EntityID)
		e.sc.RemoveLight(ev.EntityID)
		if !before.Cosmetic() {
			e.caches.InvalidateAll()
			e.markAllDirty()
		}

	case protocol.EventOccluderUpserted:
		if ev.Occluder == nil {
			return fmt.Errorf("%s: %s without occluder", protocol.ErrBadRequest, ev.Kind)
		}
		e.sc.UpsertOccluder(scene.OccluderFromDoc(*ev.Occluder))
		e.caches.InvalidateAll()
		e.markAllDirty()

	case protocol.EventOccluderRemoved:
		if ev.EntityID == "" {
			return fmt.Errorf("%s: %s without entity_id", protocol.ErrBadRequest, ev.Kind)
		}
		e.sc.RemoveOccluder(ev.EntityID)
		e.caches.InvalidateAll()
		e.markAllDirty()

	case protocol.EventAmbientSet:
		e.sc.SetAmbientDarkness(ev.Ambient)
		e.sc.SetAmbientRank(ev.Rank)
		e.caches.InvalidateAll()
		e.markAllDirty()

	case protocol.EventConditionSet, protocol.EventConditionCleared:
		if ev.EntityID == "" || ev.Condition == "" {
			return fmt.Errorf("%s: %s needs entity_id and condition", protocol.ErrBadRequest, ev.Kind)
		}
		present := ev.Kind == protocol.EventConditionSet
		if !e.sc.SetCondition(ev.EntityID, ev.Condition, present) {
			return fmt.Errorf("%s: %s", protocol.ErrUnknownEntity, ev.EntityID)
		}
		if !present && e.cats.Conditions.CanonicalCondition(ev.Condition) == "invisible" {
			// Dropping invisibility also drops the established states it
			// produced.
			e.flags.ClearInvisibilityForSubject(ev.EntityID)
		}
		e.caches.InvalidateEntity(ev.EntityID)
		e.markDirty(ev.EntityID)

	case protocol.EventActionTaken:
		if ev.EntityID == "" {
			return fmt.Errorf("%s: %s without entity_id", protocol.ErrBadRequest, ev.Kind)
		}
		e.conds.SubjectActed(ev.EntityID)
		e.caches.InvalidateEntity(ev.EntityID)
		e.markDirty(ev.EntityID)

	case protocol.EventEncounterState:
		e.SetEncounterActive(ev.Active)
		return nil

	case protocol.EventEngineState:
		e.SetEnabled(ev.Active)
		return nil
	}

	if ev.Immediate {
		e.processDirty("immediate:" + ev.Kind)
	}
	return nil
}

func (e *Engine) markDirty(id string) {
	if !e.Active() {
		return
	}
	e.dirty[id] = struct{}{}
	e.debounceLeft = e.cfg.DebounceTicks
}

func (e *Engine) markAllDirty() {
	if !e.Active() {
		return
	}
	for _, id := range e.sc.EntityIDs() {
		e.dirty[id] = struct{}{}
	}
	e.debounceLeft = e.cfg.DebounceTicks
}

func (e *Engine) dropPairsFor(id string) {
	for p := range e.states {
		if p.Observer == id || p.Target == id {
			delete(e.states, p)
		}
	}
}

// RecalculateAll forces a full recomputation regardless of the dirty set.
func (e *Engine) RecalculateAll() []protocol.PairState {
	e.markAllDirty()
	return e.processDirty("full")
}

// RecalculateForEntities recomputes pairs involving the given entities and
// returns the changed states.
func (e *Engine) RecalculateForEntities(ids []string, reason string) []protocol.PairState {
	for _, id := range ids {
		e.markDirty(id)
	}
	return e.processDirty(reason)
}

// processDirty recomputes every pair touching a dirty entity and publishes a
// diff. A re-entrant call is a no-op: the entities stay dirty and the
// in-flight batch's caller picks them up next round.
func (e *Engine) processDirty(reason string) []protocol.PairState {
	if !e.Active() || len(e.dirty) == 0 {
		e.dirty = map[string]struct{}{}
		e.debounceLeft = 0
		return nil
	}
	if e.applying {
		e.debugf("recalc re-entered (%s), deferring %d dirty", reason, len(e.dirty))
		return nil
	}
	e.applying = true
	defer func() { e.applying = false }()

	start := time.Now()
	batch := e.dirty
	e.dirty = map[string]struct{}{}
	e.debounceLeft = 0

	all := e.sc.EntityIDs()
	var changed []protocol.PairState
	pairs := 0
	seen := map[Pair]struct{}{}

	eval := func(obs, tgt string) {
		if obs == tgt {
			return
		}
		p := Pair{Observer: obs, Target: tgt}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		pairs++
		st := e.calc.VisibilityWithOverrides(obs, tgt)
		if prev, ok := e.states[p]; !ok || prev != st {
			e.states[p] = st
			changed = append(changed, protocol.PairState{
				ObserverID: p.Observer,
				TargetID:   p.Target,
				State:      st.String(),
			})
		}
	}

	for id := range batch {
		if e.sc.Entity(id) == nil {
			continue
		}
		for _, other := range all {
			eval(id, other)
			eval(other, id)
		}
	}

	if e.audit != nil {
		e.audit.LogRecalc(RecalcEntry{
			At:       start,
			Tick:     e.tick,
			Reason:   reason,
			Entities: len(batch),
			Pairs:    pairs,
			Changed:  len(changed),
			TookMs:   float64(time.Since(start).Microseconds()) / 1000.0,
		})
	}
	if len(changed) > 0 {
		e.publish(changed)
	}
	return changed
}

func (e *Engine) publish(changed []protocol.PairState) {
	msg := protocol.StatesMsg{
		Type:            protocol.TypeStates,
		ProtocolVersion: protocol.Version,
		Tick:            e.tick,
		Changed:         changed,
	}
	select {
	case e.statesOut <- msg:
	default:
		e.debugf("states channel full, dropping batch of %d", len(changed))
	}
}

// HandleOverride serves the OVERRIDE ops. The returned overrides slice is
// populated for GET.
func (e *Engine) HandleOverride(msg protocol.OverrideMsg) ([]Override, error) {
	switch msg.Op {
	case protocol.OverrideOpSet:
		st, ok := ParseState(msg.State)
		if !ok {
			return nil, fmt.Errorf("%s: bad state %q", protocol.ErrInvalidState, msg.State)
		}
		dir, ok := ParseDirection(msg.Direction)
		if !ok {
			return nil, fmt.Errorf("%s: bad direction %q", protocol.ErrBadRequest, msg.Direction)
		}
		o := Override{
			ID:         msg.ID,
			ObserverID: msg.ObserverID,
			TargetID:   msg.TargetID,
			State:      st,
			Direction:  dir,
			Active:     true,
		}
		if dir == DirectionFrom && o.TargetID == "" {
			return nil, fmt.Errorf("%s: from-override needs target_id", protocol.ErrBadRequest)
		}
		if dir == DirectionTo && o.ObserverID == "" {
			return nil, fmt.Errorf("%s: to-override needs observer_id", protocol.ErrBadRequest)
		}
		o = e.overrides.Set(o)
		e.markOverrideDirty(o)
		e.processDirty("override_set")
		return []Override{o}, nil

	case protocol.OverrideOpRemove:
		dir, ok := ParseDirection(msg.Direction)
		if !ok {
			return nil, fmt.Errorf("%s: bad direction %q", protocol.ErrBadRequest, msg.Direction)
		}
		anchor := msg.TargetID
		if dir == DirectionTo {
			anchor = msg.ObserverID
		}
		if anchor == "" {
			return nil, fmt.Errorf("%s: remove needs the anchored entity id", protocol.ErrBadRequest)
		}
		if o, found := e.overrides.Get(anchor, dir); found {
			e.overrides.Remove(anchor, dir)
			e.markOverrideDirty(o)
			e.processDirty("override_remove")
		}
		return nil, nil

	case protocol.OverrideOpGet:
		return e.overrides.All(), nil

	case protocol.OverrideOpClearAll:
		for _, o := range e.overrides.All() {
			e.markOverrideDirty(o)
		}
		e.overrides.ClearAll()
		e.processDirty("override_clear")
		return nil, nil

	default:
		return nil, fmt.Errorf("%s: unknown override op %q", protocol.ErrBadRequest, msg.Op)
	}
}

func (e *Engine) markOverrideDirty(o Override) {
	if o.ObserverID != "" {
		e.markDirty(o.ObserverID)
		e.caches.InvalidateEntity(o.ObserverID)
	}
	if o.TargetID != "" {
		e.markDirty(o.TargetID)
		e.caches.InvalidateEntity(o.TargetID)
	}
	if o.ObserverID == "" || o.TargetID == "" {
		// Wildcard side: every entity can be on the open end.
		e.markAllDirty()
		e.caches.InvalidateAll()
	}
}
