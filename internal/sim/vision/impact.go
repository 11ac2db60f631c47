package vision

import (
	"sort"

	"gridsight.dev/internal/sim/scene"
)

// SpatialImpactAnalyzer determines the minimal set of entities whose
// visibility to or from a changed entity may have shifted.
type SpatialImpactAnalyzer struct {
	sc            *scene.Scene
	maxVisibility float64
}

func NewSpatialImpactAnalyzer(sc *scene.Scene, maxVisibility float64) *SpatialImpactAnalyzer {
	if maxVisibility <= 0 {
		maxVisibility = 120
	}
	return &SpatialImpactAnalyzer{sc: sc, maxVisibility: maxVisibility}
}

// AffectedByMove returns the moved entity plus every other entity within the
// maximum visibility distance of the old or new position. Both directions
// matter: visibility relations are not symmetric.
func (a *SpatialImpactAnalyzer) AffectedByMove(movedID string, oldPos, newPos scene.Vec2) []string {
	out := []string{movedID}
	for _, id := range a.sc.EntityIDs() {
		if id == movedID {
			continue
		}
		e := a.sc.Entity(id)
		if e == nil {
			continue
		}
		if scene.Dist(e.Pos, oldPos) <= a.maxVisibility || scene.Dist(e.Pos, newPos) <= a.maxVisibility {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// AffectedByLightEdit returns nil when the edit is provably cosmetic (the
// source can affect nothing before and after); otherwise every entity.
func (a *SpatialImpactAnalyzer) AffectedByLightEdit(before, after *scene.LightSource) []string {
	if before.Cosmetic() && after.Cosmetic() {
		return nil
	}
	return a.sc.EntityIDs()
}

// AffectedByOccluderEdit: occluder geometry can reroute any sightline, so the
// affected set is every entity.
func (a *SpatialImpactAnalyzer) AffectedByOccluderEdit() []string {
	return a.sc.EntityIDs()
}
