package vision

import (
	"testing"

	"gridsight.dev/internal/sim/scene"
)

func TestVisibilityBrightLightObserved(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))

	if got := f.visibility("obs", "tgt"); got != Observed {
		t.Fatalf("bright light: %v, want observed", got)
	}
}

func TestVisibilityDimLightConcealed(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.UpsertLight(torch("t", 30, 0, 5, 40))
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))

	if got := f.visibility("obs", "tgt"); got != Concealed {
		t.Fatalf("dim light: %v, want concealed", got)
	}
}

func TestVisibilityDimLightLowLightObserved(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.UpsertLight(torch("t", 30, 0, 5, 40))
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("low-light vision", 0)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))

	if got := f.visibility("obs", "tgt"); got != Observed {
		t.Fatalf("low-light vision in dim: %v, want observed", got)
	}
}

func TestVisibilityDarknessTierTable(t *testing.T) {
	cases := []struct {
		name   string
		senses []scene.SenseDecl
		rank   int
		want   State
	}{
		{"no darkvision no fallback rank 2", []scene.SenseDecl{sense("vision", 0)}, 2, Undetected},
		{"no darkvision no fallback rank 4", []scene.SenseDecl{sense("vision", 0)}, 4, Undetected},
		{"no darkvision hearing rank 4", []scene.SenseDecl{sense("vision", 0), sense("hearing", 60)}, 4, Hidden},
		{"darkvision rank 2", []scene.SenseDecl{sense("darkvision", 0)}, 2, Observed},
		{"darkvision rank 4", []scene.SenseDecl{sense("darkvision", 0)}, 4, Concealed},
		{"greater darkvision rank 2", []scene.SenseDecl{sense("greaterdarkvision", 0)}, 2, Observed},
		{"greater darkvision rank 4", []scene.SenseDecl{sense("greaterdarkvision", 0)}, 4, Observed},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture()
			f.sc.SetAmbientDarkness(1)
			f.sc.SetAmbientRank(c.rank)
			f.sc.UpsertEntity(ent("obs", 0, 0, c.senses...))
			f.sc.UpsertEntity(ent("tgt", 10, 0))

			if got := f.visibility("obs", "tgt"); got != c.want {
				t.Fatalf("%s: %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestVisibilityBlindedUsesNonVisualSenses(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0), sense("hearing", 30)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))
	f.sc.SetCondition("obs", "blinded", true)

	if got := f.visibility("obs", "tgt"); got != Hidden {
		t.Fatalf("blinded with hearing: %v, want hidden", got)
	}

	f.sc.UpsertEntity(ent("obs2", 0, 0, sense("vision", 0), sense("echolocation", 30)))
	f.sc.SetCondition("obs2", "blinded", true)
	if got := f.visibility("obs2", "tgt"); got != Observed {
		t.Fatalf("blinded with echolocation: %v, want observed", got)
	}

	f.sc.UpsertEntity(ent("obs3", 0, 0, sense("vision", 0)))
	f.sc.SetCondition("obs3", "blinded", true)
	if got := f.visibility("obs3", "tgt"); got != Undetected {
		t.Fatalf("blinded with nothing else: %v, want undetected", got)
	}
}

func TestVisibilityDazzledWorsensObserved(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))
	f.sc.SetCondition("obs", "dazzled", true)

	if got := f.visibility("obs", "tgt"); got != Concealed {
		t.Fatalf("dazzled in bright light: %v, want concealed", got)
	}
}

func TestVisibilityDazzledIgnoredWithPreciseNonVisual(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0), sense("echolocation", 30)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))
	f.sc.SetCondition("obs", "dazzled", true)

	if got := f.visibility("obs", "tgt"); got != Observed {
		t.Fatalf("dazzled with echolocation in range: %v, want observed", got)
	}
}

func TestVisibilityWallBlocksThenSensesFallBack(t *testing.T) {
	f := newFixture()
	f.sc.UpsertOccluder(wall("w", 5, -50, 5, 50))
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0), sense("hearing", 30)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))

	if got := f.visibility("obs", "tgt"); got != Hidden {
		t.Fatalf("behind wall with hearing: %v, want hidden", got)
	}

	f.sc.UpsertEntity(ent("deaf", 0, 0, sense("vision", 0)))
	if got := f.visibility("deaf", "tgt"); got != Undetected {
		t.Fatalf("behind wall, vision only: %v, want undetected", got)
	}
}

func TestVisibilityElevationGate(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	obs := ent("obs", 0, 0, sense("tremorsense", 60))
	flyer := ent("fly", 10, 0)
	flyer.Elevation = 15
	f.sc.UpsertEntity(obs)
	f.sc.UpsertEntity(flyer)

	if got := f.visibility("obs", "fly"); got != Undetected {
		t.Fatalf("tremorsense vs flyer: %v, want undetected", got)
	}

	grounded := ent("ground", 10, 0)
	f.sc.UpsertEntity(grounded)
	// Tremorsense is imprecise: a grounded subject is placed, not seen.
	if got := f.visibility("obs", "ground"); got != Hidden {
		t.Fatalf("tremorsense vs grounded: %v, want hidden", got)
	}
}

func TestVisibilityCrossBoundaryDarkness(t *testing.T) {
	// Subject stands inside a rank-4 darkness zone; observer outside.
	cases := []struct {
		name  string
		sense string
		want  State
	}{
		{"regular darkvision", "darkvision", Concealed},
		{"greater darkvision", "greaterdarkvision", Observed},
		{"no darkvision", "vision", Hidden},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture()
			f.sc.UpsertLight(darknessZone("dz", 40, 0, 10, 4))
			f.sc.UpsertEntity(ent("obs", 0, 0, sense(c.sense, 0), sense("hearing", 60)))
			f.sc.UpsertEntity(ent("tgt", 40, 0))

			if got := f.visibility("obs", "tgt"); got != c.want {
				t.Fatalf("%s: %v, want %v", c.name, got, c.want)
			}
		})
	}
}

func TestVisibilityRankTwoZoneWithDarkvision(t *testing.T) {
	f := newFixture()
	f.sc.UpsertLight(darknessZone("dz", 40, 0, 10, 2))
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("darkvision", 0)))
	f.sc.UpsertEntity(ent("tgt", 40, 0))

	if got := f.visibility("obs", "tgt"); got != Observed {
		t.Fatalf("darkvision into a rank-2 zone: %v, want observed", got)
	}
}

func TestVisibilityMissingEntityDefaultsObserved(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0)))
	if got := f.visibility("obs", "ghost"); got != Observed {
		t.Fatalf("missing target: %v, want observed", got)
	}
	if got := f.visibility("ghost", "obs"); got != Observed {
		t.Fatalf("missing observer: %v, want observed", got)
	}
}

func TestVisibilitySelfIsObserved(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("a", 0, 0, sense("vision", 0)))
	if got := f.visibility("a", "a"); got != Observed {
		t.Fatalf("self-query: %v", got)
	}
}

func TestVisibilityTotalityAndIdempotence(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.UpsertLight(torch("t", 0, 0, 15, 30))
	f.sc.UpsertLight(darknessZone("dz", 60, 0, 10, 4))
	f.sc.UpsertOccluder(wall("w", 25, -20, 25, 20))
	f.sc.UpsertEntity(ent("a", 0, 0, sense("vision", 0)))
	f.sc.UpsertEntity(ent("b", 30, 0, sense("darkvision", 0), sense("hearing", 60)))
	f.sc.UpsertEntity(ent("c", 60, 0, sense("tremorsense", 30)))
	f.sc.SetCondition("b", "invisible", true)

	ids := f.sc.EntityIDs()
	for _, o := range ids {
		for _, s := range ids {
			first := f.calc.Visibility(o, s)
			if first < Observed || first > Undetected {
				t.Fatalf("%s->%s: state out of range: %v", o, s, first)
			}
			// Unchanged inputs give the same answer.
			if again := f.calc.Visibility(o, s); again != first {
				t.Fatalf("%s->%s: not idempotent: %v then %v", o, s, first, again)
			}
		}
	}
}

func TestVisibilityWithOverridesShortCircuits(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("obs", 0, 0, sense("vision", 0)))
	f.sc.UpsertEntity(ent("tgt", 10, 0))
	f.ovr.Set(Override{TargetID: "tgt", State: Undetected, Direction: DirectionFrom, Active: true})

	if got := f.calc.VisibilityWithOverrides("obs", "tgt"); got != Undetected {
		t.Fatalf("override: %v, want undetected", got)
	}
	// The raw calculation is unaffected.
	if got := f.visibility("obs", "tgt"); got != Observed {
		t.Fatalf("raw: %v, want observed", got)
	}
}

func TestVisibilityUsesCache(t *testing.T) {
	f := newFixture()
	a := ent("obs", 0, 0, sense("vision", 0))
	b := ent("tgt", 10, 0)
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)

	if got := f.calc.Visibility("obs", "tgt"); got != Observed {
		t.Fatalf("first: %v", got)
	}
	// Plant a different state under the same key to prove the cache answers.
	f.caches.PutVisibility(a, b, Hidden)
	if got := f.calc.Visibility("obs", "tgt"); got != Hidden {
		t.Fatalf("cached: %v, want hidden", got)
	}
}
