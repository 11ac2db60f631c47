package vision

import (
	"reflect"
	"testing"

	"gridsight.dev/internal/sim/scene"
)

func TestAffectedByMoveRadiusFilter(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("mover", 0, 0))
	f.sc.UpsertEntity(ent("near", 50, 0))
	f.sc.UpsertEntity(ent("far", 500, 0))
	f.sc.UpsertEntity(ent("near-dest", 250, 0))

	a := NewSpatialImpactAnalyzer(f.sc, 120)
	got := a.AffectedByMove("mover", scene.Vec2{X: 0, Y: 0}, scene.Vec2{X: 200, Y: 0})
	want := []string{"mover", "near", "near-dest"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("affected = %v, want %v", got, want)
	}
}

func TestAffectedByMoveIncludesMoverAlways(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("mover", 0, 0))
	a := NewSpatialImpactAnalyzer(f.sc, 120)
	got := a.AffectedByMove("mover", scene.Vec2{}, scene.Vec2{X: 10})
	if len(got) != 1 || got[0] != "mover" {
		t.Fatalf("affected = %v", got)
	}
}

func TestAffectedByLightEditCosmetic(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("a", 0, 0))

	a := NewSpatialImpactAnalyzer(f.sc, 120)
	inactive := torch("t", 0, 0, 20, 40)
	inactive.Active = false
	moved := torch("t", 5, 0, 20, 40)
	moved.Active = false

	if got := a.AffectedByLightEdit(inactive, moved); got != nil {
		t.Fatalf("moving an inactive light is cosmetic, got %v", got)
	}
	if got := a.AffectedByLightEdit(inactive, torch("t", 5, 0, 20, 40)); len(got) == 0 {
		t.Fatalf("activating a light must dirty everyone")
	}
	if got := a.AffectedByLightEdit(nil, torch("t", 0, 0, 20, 40)); len(got) == 0 {
		t.Fatalf("a brand new active light must dirty everyone")
	}
}

func TestAffectedByOccluderEditIsEveryone(t *testing.T) {
	f := newFixture()
	f.sc.UpsertEntity(ent("a", 0, 0))
	f.sc.UpsertEntity(ent("b", 10, 0))
	a := NewSpatialImpactAnalyzer(f.sc, 120)
	if got := a.AffectedByOccluderEdit(); len(got) != 2 {
		t.Fatalf("occluder edits dirty all entities, got %v", got)
	}
}
