package vision

import (
	"gridsight.dev/internal/sim/catalogs"
	"gridsight.dev/internal/sim/scene"
	"gridsight.dev/internal/sim/tuning"
)

// fixture assembles the full calculation pipeline over one scene.
type fixture struct {
	cats   *catalogs.Catalogs
	sc     *scene.Scene
	flags  *MemoryFlagStore
	senses *SenseResolver
	light  *LightingEvaluator
	los    *LineOfSight
	cross  *CrossBoundaryResolver
	conds  *ConditionEvaluator
	ovr    *OverrideService
	caches *CacheManager
	calc   *Calculator
}

func newFixture() *fixture {
	var cfg tuning.Tuning
	cfg.ApplyDefaults()
	cats := catalogs.Default()
	sc := scene.New(cats)
	flags := NewMemoryFlagStore()
	senses := NewSenseResolver(cats)
	light := NewLightingEvaluator(sc, cfg.BrightThreshold)
	los := NewLineOfSight(sc)
	cross := NewCrossBoundaryResolver(light)
	conds := NewConditionEvaluator(senses, flags)
	ovr := NewOverrideService(flags)
	caches := NewCacheManager(cfg.Caches, cfg.QuantizeStep)
	calc := NewCalculator(sc, senses, light, los, cross, conds, ovr, caches, nil)
	return &fixture{
		cats: cats, sc: sc, flags: flags, senses: senses, light: light,
		los: los, cross: cross, conds: conds, ovr: ovr, caches: caches, calc: calc,
	}
}

// visibility recomputes without cache interference from earlier mutations.
func (f *fixture) visibility(observerID, targetID string) State {
	f.caches.InvalidateAll()
	return f.calc.Visibility(observerID, targetID)
}

func ent(id string, x, y float64, senses ...scene.SenseDecl) *scene.Entity {
	return &scene.Entity{
		ID:     id,
		Pos:    scene.Vec2{X: x, Y: y},
		Size:   scene.SizeMedium,
		Senses: senses,
	}
}

func sense(typ string, rng float64) scene.SenseDecl {
	return scene.SenseDecl{Type: typ, Range: rng}
}

func wall(id string, ax, ay, bx, by float64) *scene.Occluder {
	return &scene.Occluder{
		ID:          id,
		Seg:         scene.Segment{A: scene.Vec2{X: ax, Y: ay}, B: scene.Vec2{X: bx, Y: by}},
		BlocksSight: true,
	}
}

func torch(id string, x, y, bright, dim float64) *scene.LightSource {
	return &scene.LightSource{
		ID:           id,
		Pos:          scene.Vec2{X: x, Y: y},
		BrightRadius: bright,
		DimRadius:    dim,
		Active:       true,
	}
}

func darknessZone(id string, x, y, radius float64, rank int) *scene.LightSource {
	return &scene.LightSource{
		ID:        id,
		Pos:       scene.Vec2{X: x, Y: y},
		DimRadius: radius,
		Active:    true,
		Darkness:  true,
		Rank:      rank,
	}
}
