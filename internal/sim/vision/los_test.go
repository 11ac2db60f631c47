package vision

import (
	"testing"
)

func TestLineOfSightWallBlocks(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0, sense("vision", 0))
	b := ent("b", 20, 0, sense("vision", 0))
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	f.sc.UpsertOccluder(wall("w", 10, -50, 10, 50))

	if f.los.HasLineOfSight(a, b) {
		t.Fatalf("wall should block line of sight")
	}
}

func TestLineOfSightOpenDoorPasses(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0)
	b := ent("b", 20, 0)
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	door := wall("d", 10, -50, 10, 50)
	door.Open = true
	f.sc.UpsertOccluder(door)

	if !f.los.HasLineOfSight(a, b) {
		t.Fatalf("open door should not block line of sight")
	}
}

func TestLineOfSightNonSightOccluderIgnored(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0)
	b := ent("b", 20, 0)
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	fence := wall("f", 10, -50, 10, 50)
	fence.BlocksSight = false
	fence.BlocksMove = true
	f.sc.UpsertOccluder(fence)

	if !f.los.HasLineOfSight(a, b) {
		t.Fatalf("move-only occluder should not block sight")
	}
}

func TestLineOfSightCornerSamplingPeeksAroundPartialWall(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0)
	b := ent("b", 20, 0)
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	// Short wall covering only the center-to-center ray; the footprint
	// corners (medium = 5ft square) see past its ends.
	f.sc.UpsertOccluder(wall("w", 10, -1, 10, 1))

	if !f.los.HasLineOfSight(a, b) {
		t.Fatalf("corner samples should find a clear ray past a short wall")
	}
}

func TestLineOfSightBoundedWallSeenOverWhenElevated(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0)
	a.Elevation = 20
	b := ent("b", 20, 0)
	b.Elevation = 20
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	low := wall("w", 10, -50, 10, 50)
	low.HasBounds = true
	low.Bottom = 0
	low.Top = 10
	f.sc.UpsertOccluder(low)

	if !f.los.HasLineOfSight(a, b) {
		t.Fatalf("flyers above a 10ft wall should see each other")
	}

	a.Elevation = 0
	b.Elevation = 0
	if f.los.HasLineOfSight(a, b) {
		t.Fatalf("grounded entities should be blocked by the 10ft wall")
	}
}

type fixedHeights struct{ bottom, top float64 }

func (h fixedHeights) OccluderBounds(string) (float64, float64, bool) {
	return h.bottom, h.top, true
}

func TestLineOfSightHeightProviderSuppliesBounds(t *testing.T) {
	f := newFixture()
	a := ent("a", 0, 0)
	a.Elevation = 20
	b := ent("b", 20, 0)
	b.Elevation = 20
	f.sc.UpsertEntity(a)
	f.sc.UpsertEntity(b)
	// No inline bounds: blocked at every height by default.
	f.sc.UpsertOccluder(wall("w", 10, -50, 10, 50))

	if f.los.HasLineOfSight(a, b) {
		t.Fatalf("unbounded occluder should block regardless of elevation")
	}
	f.los.SetHeightProvider(fixedHeights{bottom: 0, top: 10})
	if !f.los.HasLineOfSight(a, b) {
		t.Fatalf("provider-supplied 10ft bounds should let flyers see over")
	}
}

func TestElevationUndetected(t *testing.T) {
	f := newFixture()
	obs := ent("obs", 0, 0, sense("tremorsense", 60))
	flyer := ent("fly", 10, 0)
	flyer.Elevation = 15

	caps := f.senses.Resolve(obs)
	if !ElevationUndetected(caps, obs, flyer) {
		t.Fatalf("tremorsense-only observer should lose an elevated subject")
	}

	hearer := ent("h", 0, 0, sense("hearing", 60))
	if ElevationUndetected(f.senses.Resolve(hearer), hearer, flyer) {
		t.Fatalf("hearing registers elevation")
	}

	grounded := ent("g", 10, 0)
	if ElevationUndetected(caps, obs, grounded) {
		t.Fatalf("subject at the same elevation is never elevation-gated")
	}
}
