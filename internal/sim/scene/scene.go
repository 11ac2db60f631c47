package scene

import (
	"sort"

	"gridsight.dev/internal/protocol"
	"gridsight.dev/internal/sim/catalogs"
)

// Scene is the engine's read-only view of the host map: entity, light and
// occluder rosters plus the ambient darkness level. The engine never invents
// rows here; mutation happens only when the host reports a change, and only
// from the engine goroutine.
type Scene struct {
	cats *catalogs.Catalogs

	entities  map[string]*Entity
	lights    map[string]*LightSource
	occluders map[string]*Occluder

	// 0 = fully lit environment, 1 = maximally dark.
	ambientDarkness float64
	// Rank of the ambient darkness when it is magical (0 = mundane).
	ambientRank int
}

func New(cats *catalogs.Catalogs) *Scene {
	return &Scene{
		cats:      cats,
		entities:  map[string]*Entity{},
		lights:    map[string]*LightSource{},
		occluders: map[string]*Occluder{},
	}
}

func (s *Scene) Entity(id string) *Entity           { return s.entities[id] }
func (s *Scene) Light(id string) *LightSource       { return s.lights[id] }
func (s *Scene) OccluderByID(id string) *Occluder   { return s.occluders[id] }
func (s *Scene) AmbientDarkness() float64           { return s.ambientDarkness }
func (s *Scene) AmbientRank() int                   { return s.ambientRank }
func (s *Scene) SetAmbientRank(r int) {
	if r < 0 {
		r = 0
	}
	s.ambientRank = r
}
func (s *Scene) SetAmbientDarkness(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	s.ambientDarkness = v
}

// EntityIDs returns ids in sorted order so batch processing is deterministic.
func (s *Scene) EntityIDs() []string {
	out := make([]string, 0, len(s.entities))
	for id := range s.entities {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *Scene) Lights() []*LightSource {
	ids := make([]string, 0, len(s.lights))
	for id := range s.lights {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*LightSource, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.lights[id])
	}
	return out
}

func (s *Scene) Occluders() []*Occluder {
	ids := make([]string, 0, len(s.occluders))
	for id := range s.occluders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Occluder, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.occluders[id])
	}
	return out
}

func (s *Scene) UpsertEntity(e *Entity) {
	if e == nil || e.ID == "" {
		return
	}
	s.entities[e.ID] = e
}

func (s *Scene) RemoveEntity(id string)   { delete(s.entities, id) }
func (s *Scene) UpsertLight(l *LightSource) {
	if l == nil || l.ID == "" {
		return
	}
	s.lights[l.ID] = l
}
func (s *Scene) RemoveLight(id string)    { delete(s.lights, id) }
func (s *Scene) UpsertOccluder(o *Occluder) {
	if o == nil || o.ID == "" {
		return
	}
	s.occluders[o.ID] = o
}
func (s *Scene) RemoveOccluder(id string) { delete(s.occluders, id) }

// MoveEntity applies a position/elevation delta, returning the old position.
func (s *Scene) MoveEntity(id string, pos Vec2, elevation float64) (old Vec2, ok bool) {
	e := s.entities[id]
	if e == nil {
		return Vec2{}, false
	}
	old = e.Pos
	e.Pos = pos
	e.Elevation = elevation
	if len(e.Footprint) >= 3 {
		// Explicit footprints travel with the entity.
		d := pos.Sub(old)
		moved := make(Polygon, len(e.Footprint))
		for i, v := range e.Footprint {
			moved[i] = v.Add(d)
		}
		e.Footprint = moved
	}
	return old, true
}

// SetCondition flips one condition flag, normalized through the catalog.
func (s *Scene) SetCondition(entityID, condition string, present bool) bool {
	e := s.entities[entityID]
	if e == nil {
		return false
	}
	id := s.cats.Conditions.CanonicalCondition(condition)
	if id == "" {
		return false
	}
	if e.Conditions == nil {
		e.Conditions = map[string]bool{}
	}
	if present {
		e.Conditions[id] = true
	} else {
		delete(e.Conditions, id)
	}
	return true
}

// Load replaces the whole scene from a host document.
func (s *Scene) Load(doc protocol.SceneMsg) {
	s.entities = map[string]*Entity{}
	s.lights = map[string]*LightSource{}
	s.occluders = map[string]*Occluder{}
	s.SetAmbientDarkness(doc.Ambient)
	s.SetAmbientRank(doc.AmbientRank)
	for i := range doc.Entities {
		s.UpsertEntity(s.EntityFromDoc(doc.Entities[i]))
	}
	for i := range doc.Lights {
		s.UpsertLight(LightFromDoc(doc.Lights[i]))
	}
	for i := range doc.Occluders {
		s.UpsertOccluder(OccluderFromDoc(doc.Occluders[i]))
	}
}

func (s *Scene) EntityFromDoc(d protocol.EntityDoc) *Entity {
	e := &Entity{
		ID:        d.ID,
		Pos:       Vec2{d.Pos[0], d.Pos[1]},
		Elevation: d.Elevation,
		Size:      ParseSize(d.Size),
	}
	for _, p := range d.Footprint {
		e.Footprint = append(e.Footprint, Vec2{p[0], p[1]})
	}
	for _, sd := range d.Senses {
		e.Senses = append(e.Senses, SenseDecl{Type: sd.Type, Acuity: sd.Acuity, Range: sd.Range})
	}
	if len(d.SenseMap) > 0 {
		e.SenseMap = map[string]SenseDecl{}
		for k, sd := range d.SenseMap {
			e.SenseMap[k] = SenseDecl{Type: k, Acuity: sd.Acuity, Range: sd.Range}
		}
	}
	for _, sd := range d.Modes {
		e.Modes = append(e.Modes, SenseDecl{Type: sd.Type, Acuity: sd.Acuity, Range: sd.Range})
	}
	if len(d.Conditions) > 0 {
		e.Conditions = map[string]bool{}
		for _, c := range d.Conditions {
			if id := s.cats.Conditions.CanonicalCondition(c); id != "" {
				e.Conditions[id] = true
			}
		}
	}
	return e
}

func LightFromDoc(d protocol.LightDoc) *LightSource {
	return &LightSource{
		ID:           d.ID,
		Pos:          Vec2{d.Pos[0], d.Pos[1]},
		BrightRadius: d.BrightRadius,
		DimRadius:    d.DimRadius,
		Active:       d.Active,
		Darkness:     d.Darkness,
		Rank:         d.Rank,
	}
}

func OccluderFromDoc(d protocol.OccluderDoc) *Occluder {
	o := &Occluder{
		ID:          d.ID,
		Seg:         Segment{A: Vec2{d.A[0], d.A[1]}, B: Vec2{d.B[0], d.B[1]}},
		BlocksSight: d.BlocksSight,
		BlocksSound: d.BlocksSound,
		BlocksMove:  d.BlocksMove,
		Open:        d.Open,
	}
	if d.Bounds != nil {
		o.HasBounds = true
		o.Bottom = d.Bounds[0]
		o.Top = d.Bounds[1]
	}
	return o
}
