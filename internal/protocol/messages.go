package protocol

// HELLO (host -> engine)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	HostName        string `json:"host_name"`
	SceneID         string `json:"scene_id,omitempty"`
}

// WELCOME (engine -> host)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	EngineParams    EngineParams   `json:"engine_params"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type EngineParams struct {
	TickRateHz     int     `json:"tick_rate_hz"`
	DebounceTicks  int     `json:"debounce_ticks"`
	MaxVisibility  float64 `json:"max_visibility"`
	QuantizeStep   float64 `json:"quantize_step"`
	Enabled        bool    `json:"enabled"`
	EncounterOnly  bool    `json:"encounter_only"`
}

type CatalogDigests struct {
	SensesDigest     string `json:"senses_digest"`
	ConditionsDigest string `json:"conditions_digest"`
}

// SCENE (host -> engine): full roster load, replacing current scene state.
type SceneMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	SceneID         string        `json:"scene_id"`
	Ambient         float64       `json:"ambient_darkness"`
	AmbientRank     int           `json:"ambient_rank,omitempty"`
	Entities        []EntityDoc   `json:"entities,omitempty"`
	Lights          []LightDoc    `json:"lights,omitempty"`
	Occluders       []OccluderDoc `json:"occluders,omitempty"`
}

// EVENT (host -> engine): one world change.
type EventMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Kind            string `json:"kind"`
	// Immediate asks for synchronous recalculation inside this event
	// instead of the debounced batch.
	Immediate bool `json:"immediate,omitempty"`

	Entity   *EntityDoc   `json:"entity,omitempty"`
	Light    *LightDoc    `json:"light,omitempty"`
	Occluder *OccluderDoc `json:"occluder,omitempty"`

	EntityID  string      `json:"entity_id,omitempty"`
	Pos       *[2]float64 `json:"pos,omitempty"`
	Elevation float64     `json:"elevation,omitempty"`
	Condition string      `json:"condition,omitempty"`
	Ambient   float64     `json:"ambient_darkness,omitempty"`
	Rank      int         `json:"rank,omitempty"`
	Active    bool        `json:"active,omitempty"`
}

// QUERY (host -> engine)
type QueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	ObserverID      string `json:"observer_id"`
	TargetID        string `json:"target_id"`
	WithOverrides   bool   `json:"with_overrides,omitempty"`
}

// RESULT (engine -> host)
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	ObserverID      string `json:"observer_id"`
	TargetID        string `json:"target_id"`
	State           string `json:"state"`
}

// STATES (engine -> host): pair states that changed in one batch.
type StatesMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Tick            uint64      `json:"tick"`
	Changed         []PairState `json:"changed,omitempty"`
}

type PairState struct {
	ObserverID string `json:"observer_id"`
	TargetID   string `json:"target_id"`
	State      string `json:"state"`
}

// Override operations.
const (
	OverrideOpSet      = "SET"
	OverrideOpRemove   = "REMOVE"
	OverrideOpGet      = "GET"
	OverrideOpClearAll = "CLEAR_ALL"
)

// OVERRIDE (host -> engine): override CRUD.
type OverrideMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"` // "SET","REMOVE","GET","CLEAR_ALL"
	ObserverID      string `json:"observer_id,omitempty"`
	TargetID        string `json:"target_id,omitempty"`
	State           string `json:"state,omitempty"`
	Direction       string `json:"direction,omitempty"` // "to","from"
}

// ERROR (engine -> host)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RefID           string `json:"ref_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// Scene documents. These are the wire shapes; internal/sim/scene converts them
// into runtime types at the boundary.

type EntityDoc struct {
	ID        string       `json:"id"`
	Pos       [2]float64   `json:"pos"`
	Elevation float64      `json:"elevation,omitempty"`
	Size      string       `json:"size,omitempty"`
	Footprint [][2]float64 `json:"footprint,omitempty"`
	Senses    []SenseDoc   `json:"senses,omitempty"`
	// SenseMap is the keyed-map form some hosts emit instead of a list.
	SenseMap   map[string]SenseDoc `json:"sense_map,omitempty"`
	Modes      []SenseDoc          `json:"detection_modes,omitempty"`
	Conditions []string            `json:"conditions,omitempty"`
}

type SenseDoc struct {
	Type   string  `json:"type"`
	Acuity string  `json:"acuity,omitempty"`
	Range  float64 `json:"range,omitempty"` // <=0 means unbounded
}

type LightDoc struct {
	ID           string     `json:"id"`
	Pos          [2]float64 `json:"pos"`
	BrightRadius float64    `json:"bright_radius"`
	DimRadius    float64    `json:"dim_radius"`
	Active       bool       `json:"active"`
	Darkness     bool       `json:"is_darkness_source,omitempty"`
	Rank         int        `json:"rank,omitempty"`
}

type OccluderDoc struct {
	ID          string     `json:"id"`
	A           [2]float64 `json:"a"`
	B           [2]float64 `json:"b"`
	BlocksSight bool       `json:"blocks_sight"`
	BlocksSound bool       `json:"blocks_sound,omitempty"`
	BlocksMove  bool       `json:"blocks_move,omitempty"`
	Open        bool       `json:"open,omitempty"`
	Bounds      *[2]float64 `json:"bounds,omitempty"` // [bottom, top]
}
