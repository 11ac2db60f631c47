package vision

import (
	"math"
	"time"

	"gridsight.dev/internal/sim/scene"
	"gridsight.dev/internal/sim/tuning"
)

// CacheManager memoizes line-of-sight results, full visibility results and
// short-lived pair validations. Keys quantize positions to a coarse grid so
// sub-pixel jitter does not defeat caching. Single-goroutine; no locking.
type CacheManager struct {
	step       float64
	losTTL     time.Duration
	visTTL     time.Duration
	valTTL     time.Duration
	pruneEvery time.Duration
	now        func() time.Time

	los map[pairKey]losEntry
	vis map[pairKey]visEntry
	val map[pairKey]valEntry

	lastPrune time.Time
}

type pairKey struct {
	observer, target   string
	oqx, oqy, tqx, tqy int
}

type losEntry struct {
	clear    bool
	expireAt time.Time
}

type visEntry struct {
	state    State
	expireAt time.Time
}

type valEntry struct {
	state    State
	expireAt time.Time
}

func NewCacheManager(ct tuning.CacheTuning, quantizeStep float64) *CacheManager {
	if quantizeStep <= 0 {
		quantizeStep = 2.5
	}
	return &CacheManager{
		step:       quantizeStep,
		losTTL:     time.Duration(ct.LOSTTLMs) * time.Millisecond,
		visTTL:     time.Duration(ct.VisibilityTTLMs) * time.Millisecond,
		valTTL:     time.Duration(ct.ValidationTTLMs) * time.Millisecond,
		pruneEvery: time.Duration(ct.PruneEveryMs) * time.Millisecond,
		now:        time.Now,
		los:        map[pairKey]losEntry{},
		vis:        map[pairKey]visEntry{},
		val:        map[pairKey]valEntry{},
	}
}

func (c *CacheManager) key(observer, subject *scene.Entity) pairKey {
	oqx, oqy := c.quantize(observer.Pos)
	tqx, tqy := c.quantize(subject.Pos)
	return pairKey{observer.ID, subject.ID, oqx, oqy, tqx, tqy}
}

func (c *CacheManager) quantize(p scene.Vec2) (int, int) {
	return int(math.Floor(p.X / c.step)), int(math.Floor(p.Y / c.step))
}

func (c *CacheManager) LOS(observer, subject *scene.Entity) (clear bool, ok bool) {
	e, found := c.los[c.key(observer, subject)]
	if !found || c.now().After(e.expireAt) {
		return false, false
	}
	return e.clear, true
}

func (c *CacheManager) PutLOS(observer, subject *scene.Entity, clear bool) {
	c.los[c.key(observer, subject)] = losEntry{clear: clear, expireAt: c.now().Add(c.losTTL)}
	c.maybePrune()
}

func (c *CacheManager) Visibility(observer, subject *scene.Entity) (State, bool) {
	e, found := c.vis[c.key(observer, subject)]
	if !found || c.now().After(e.expireAt) {
		return Observed, false
	}
	return e.state, true
}

func (c *CacheManager) PutVisibility(observer, subject *scene.Entity, st State) {
	c.vis[c.key(observer, subject)] = visEntry{state: st, expireAt: c.now().Add(c.visTTL)}
	c.maybePrune()
}

func (c *CacheManager) Validation(observer, subject *scene.Entity) (State, bool) {
	e, found := c.val[c.key(observer, subject)]
	if !found || c.now().After(e.expireAt) {
		return Observed, false
	}
	return e.state, true
}

func (c *CacheManager) PutValidation(observer, subject *scene.Entity, st State) {
	c.val[c.key(observer, subject)] = valEntry{state: st, expireAt: c.now().Add(c.valTTL)}
	c.maybePrune()
}

// InvalidateEntity drops every cached result involving the entity. Used when
// a pair goes dirty for reasons quantization cannot see (conditions, lights).
func (c *CacheManager) InvalidateEntity(id string) {
	for k := range c.los {
		if k.observer == id || k.target == id {
			delete(c.los, k)
		}
	}
	for k := range c.vis {
		if k.observer == id || k.target == id {
			delete(c.vis, k)
		}
	}
	for k := range c.val {
		if k.observer == id || k.target == id {
			delete(c.val, k)
		}
	}
}

// InvalidateAll empties the caches (lighting/occluder edits).
func (c *CacheManager) InvalidateAll() {
	c.los = map[pairKey]losEntry{}
	c.vis = map[pairKey]visEntry{}
	c.val = map[pairKey]valEntry{}
}

// maybePrune sweeps expired entries on an interval rather than per access.
func (c *CacheManager) maybePrune() {
	now := c.now()
	if now.Sub(c.lastPrune) < c.pruneEvery {
		return
	}
	c.lastPrune = now
	for k, e := range c.los {
		if now.After(e.expireAt) {
			delete(c.los, k)
		}
	}
	for k, e := range c.vis {
		if now.After(e.expireAt) {
			delete(c.vis, k)
		}
	}
	for k, e := range c.val {
		if now.After(e.expireAt) {
			delete(c.val, k)
		}
	}
}
