package scene

// SizeCategory determines footprint edge and vertical extent when the host
// does not supply them explicitly.
type SizeCategory string

const (
	SizeTiny       SizeCategory = "tiny"
	SizeSmall      SizeCategory = "small"
	SizeMedium     SizeCategory = "medium"
	SizeLarge      SizeCategory = "large"
	SizeHuge       SizeCategory = "huge"
	SizeGargantuan SizeCategory = "gargantuan"
)

// Height is the vertical extent in map units.
func (s SizeCategory) Height() float64 {
	switch s {
	case SizeTiny:
		return 1
	case SizeSmall, SizeMedium:
		return 5
	case SizeLarge:
		return 10
	case SizeHuge:
		return 15
	case SizeGargantuan:
		return 20
	default:
		return 5
	}
}

// FootprintEdge is the default square footprint edge in map units.
func (s SizeCategory) FootprintEdge() float64 {
	switch s {
	case SizeTiny:
		return 2.5
	case SizeSmall, SizeMedium:
		return 5
	case SizeLarge:
		return 10
	case SizeHuge:
		return 15
	case SizeGargantuan:
		return 20
	default:
		return 5
	}
}

func ParseSize(raw string) SizeCategory {
	switch SizeCategory(raw) {
	case SizeTiny, SizeSmall, SizeMedium, SizeLarge, SizeHuge, SizeGargantuan:
		return SizeCategory(raw)
	default:
		return SizeMedium
	}
}

// SenseDecl is one raw sense declaration as supplied by the host. Range <= 0
// means unbounded.
type SenseDecl struct {
	Type   string
	Acuity string // "precise", "imprecise", or "" (catalog default applies)
	Range  float64
}

type Entity struct {
	ID        string
	Pos       Vec2
	Elevation float64
	Size      SizeCategory
	Footprint Polygon // optional; derived from Size when empty

	Senses     []SenseDecl
	SenseMap   map[string]SenseDecl
	Modes      []SenseDecl
	Conditions map[string]bool // canonical condition id -> present
}

// EffectiveFootprint returns the explicit footprint or a size-derived square.
func (e *Entity) EffectiveFootprint() Polygon {
	if len(e.Footprint) >= 3 {
		return e.Footprint
	}
	return SquareFootprint(e.Pos, e.Size.FootprintEdge())
}

// Center is the point rays are cast from and to.
func (e *Entity) Center() Vec2 { return e.Pos }

// VerticalSpan is [bottom, top] of the entity body.
func (e *Entity) VerticalSpan() (bottom, top float64) {
	return e.Elevation, e.Elevation + e.Size.Height()
}

type LightSource struct {
	ID           string
	Pos          Vec2
	BrightRadius float64
	DimRadius    float64
	Active       bool
	Darkness     bool // true: emits magical darkness instead of light
	Rank         int  // 0 non-magical; >=4 heightened
}

// Cosmetic reports whether the source can have no effect on any visibility
// result: inactive, or all radii zero.
func (l *LightSource) Cosmetic() bool {
	if l == nil {
		return true
	}
	if !l.Active {
		return true
	}
	return l.BrightRadius <= 0 && l.DimRadius <= 0
}

type Occluder struct {
	ID          string
	Seg         Segment
	BlocksSight bool
	BlocksSound bool
	BlocksMove  bool
	Open        bool // open doors never block

	HasBounds bool
	Bottom    float64
	Top       float64
}

// BlocksSightRay reports whether the occluder blocks a sight ray whose
// vertical span at the crossing point is [low, high].
func (o *Occluder) BlocksSightRay(low, high float64) bool {
	if o == nil || !o.BlocksSight || o.Open {
		return false
	}
	if !o.HasBounds {
		return true
	}
	return high >= o.Bottom && low <= o.Top
}
