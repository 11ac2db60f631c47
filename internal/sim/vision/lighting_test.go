package vision

import (
	"testing"

	"gridsight.dev/internal/sim/scene"
)

func fpAt(x, y float64) scene.Polygon {
	return scene.SquareFootprint(scene.Vec2{X: x, Y: y}, 5)
}

func TestIlluminationAmbientBrightBelowThreshold(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(0.5)
	ill := f.light.IlluminationAt(scene.Vec2{X: 0, Y: 0}, fpAt(0, 0))
	if ill.Level != Bright {
		t.Fatalf("ambient 0.5 should be bright, got %v", ill.Level)
	}
}

func TestIlluminationLightBrackets(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.UpsertLight(torch("t", 0, 0, 20, 40))

	cases := []struct {
		x    float64
		want Level
	}{
		{10, Bright},
		{30, Dim},
		{60, Darkness},
	}
	for _, c := range cases {
		ill := f.light.IlluminationAt(scene.Vec2{X: c.x, Y: 0}, fpAt(c.x, 0))
		if ill.Level != c.want {
			t.Fatalf("at x=%v: level = %v, want %v", c.x, ill.Level, c.want)
		}
	}
}

func TestIlluminationFootprintTouchingBrightCountsBright(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.UpsertLight(torch("t", 0, 0, 20, 40))
	// Center sits past the bright radius but the footprint edge reaches in.
	ill := f.light.IlluminationAt(scene.Vec2{X: 22, Y: 0}, fpAt(22, 0))
	if ill.Level != Bright {
		t.Fatalf("footprint overlapping bright radius should be bright, got %v", ill.Level)
	}
}

func TestIlluminationInactiveLightIgnored(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	l := torch("t", 0, 0, 20, 40)
	l.Active = false
	f.sc.UpsertLight(l)
	ill := f.light.IlluminationAt(scene.Vec2{X: 5, Y: 0}, fpAt(5, 0))
	if ill.Level != Darkness {
		t.Fatalf("inactive light should not illuminate, got %v", ill.Level)
	}
}

func TestDarknessSourceOverridesLight(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(0)
	f.sc.UpsertLight(torch("t", 0, 0, 20, 40))
	f.sc.UpsertLight(darknessZone("dz", 0, 0, 15, 4))

	ill := f.light.IlluminationAt(scene.Vec2{X: 5, Y: 0}, fpAt(5, 0))
	if ill.Level != Darkness || !ill.DarknessSource {
		t.Fatalf("darkness source should win inside its radius: %+v", ill)
	}
	if !ill.Heightened || ill.Rank != 4 {
		t.Fatalf("rank 4 should read heightened: %+v", ill)
	}
}

func TestDarknessSourceHighestRankWins(t *testing.T) {
	f := newFixture()
	f.sc.UpsertLight(darknessZone("a", 0, 0, 20, 2))
	f.sc.UpsertLight(darknessZone("b", 0, 0, 20, 5))
	ill := f.light.IlluminationAt(scene.Vec2{X: 0, Y: 0}, fpAt(0, 0))
	if ill.Rank != 5 {
		t.Fatalf("rank = %d, want 5", ill.Rank)
	}
}

func TestDarknessRankAt(t *testing.T) {
	f := newFixture()
	f.sc.UpsertLight(darknessZone("dz", 0, 0, 10, 3))
	if r := f.light.DarknessRankAt(scene.Vec2{X: 5, Y: 0}); r != 3 {
		t.Fatalf("inside zone: rank = %d, want 3", r)
	}
	if r := f.light.DarknessRankAt(scene.Vec2{X: 50, Y: 0}); r != -1 {
		t.Fatalf("outside zone: rank = %d, want -1", r)
	}
}

func TestAmbientRankReportedInDarkness(t *testing.T) {
	f := newFixture()
	f.sc.SetAmbientDarkness(1)
	f.sc.SetAmbientRank(4)
	ill := f.light.IlluminationAt(scene.Vec2{X: 0, Y: 0}, fpAt(0, 0))
	if ill.Level != Darkness || ill.Rank != 4 || !ill.Heightened {
		t.Fatalf("ambient rank 4 darkness: %+v", ill)
	}
}
