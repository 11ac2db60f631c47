package vision

import (
	"sort"
	"time"
)

// InvisibilityRecord pins the ladder result for one observer->subject pair so
// unrelated world churn cannot flicker the state. It is cleared when the
// subject takes an action.
type InvisibilityRecord struct {
	WasVisible       bool      `json:"was_visible"`
	PreviousState    State     `json:"previous_state"`
	EstablishedState State     `json:"established_state"`
	Established      bool      `json:"established"`
	EstablishedAt    time.Time `json:"established_at"`
}

// Direction of an override. "from" means the target is seen as State by all
// observers; "to" means the observer sees all targets as State.
type Direction string

const (
	DirectionTo   Direction = "to"
	DirectionFrom Direction = "from"
)

func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case DirectionTo, DirectionFrom:
		return Direction(raw), true
	default:
		return "", false
	}
}

// Override forces a state for pairs governed by it. At most one active
// override governs a given ordered pair at a time.
type Override struct {
	ID         string    `json:"id"`
	ObserverID string    `json:"observer_id,omitempty"`
	TargetID   string    `json:"target_id,omitempty"`
	State      State     `json:"state"`
	Direction  Direction `json:"direction"`
	Active     bool      `json:"active"`
}

// anchor is the entity the override is flagged on.
func (o Override) anchor() string {
	if o.Direction == DirectionFrom {
		return o.TargetID
	}
	return o.ObserverID
}

// FlagStore owns the engine-persisted records: invisibility records and
// overrides. Implementations must be safe for use from the engine goroutine
// only; persistence happens behind the interface.
type FlagStore interface {
	Invisibility(observerID, subjectID string) (InvisibilityRecord, bool)
	PutInvisibility(observerID, subjectID string, rec InvisibilityRecord)
	ClearInvisibilityForSubject(subjectID string)

	Override(anchorID string, dir Direction) (Override, bool)
	Overrides() []Override
	PutOverride(o Override)
	RemoveOverride(anchorID string, dir Direction)
	ClearOverrides()
}

type invKey struct{ observer, subject string }
type ovrKey struct {
	anchor string
	dir    Direction
}

// MemoryFlagStore is the non-persistent FlagStore used in tests and as the
// fallback when no database is configured.
type MemoryFlagStore struct {
	inv map[invKey]InvisibilityRecord
	ovr map[ovrKey]Override
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{
		inv: map[invKey]InvisibilityRecord{},
		ovr: map[ovrKey]Override{},
	}
}

func (m *MemoryFlagStore) Invisibility(observerID, subjectID string) (InvisibilityRecord, bool) {
	rec, ok := m.inv[invKey{observerID, subjectID}]
	return rec, ok
}

func (m *MemoryFlagStore) PutInvisibility(observerID, subjectID string, rec InvisibilityRecord) {
	m.inv[invKey{observerID, subjectID}] = rec
}

func (m *MemoryFlagStore) ClearInvisibilityForSubject(subjectID string) {
	for k := range m.inv {
		if k.subject == subjectID {
			delete(m.inv, k)
		}
	}
}

func (m *MemoryFlagStore) Override(anchorID string, dir Direction) (Override, bool) {
	o, ok := m.ovr[ovrKey{anchorID, dir}]
	return o, ok
}

func (m *MemoryFlagStore) Overrides() []Override {
	out := make([]Override, 0, len(m.ovr))
	for _, o := range m.ovr {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].anchor() != out[j].anchor() {
			return out[i].anchor() < out[j].anchor()
		}
		return out[i].Direction < out[j].Direction
	})
	return out
}

func (m *MemoryFlagStore) PutOverride(o Override) {
	if o.anchor() == "" {
		return
	}
	m.ovr[ovrKey{o.anchor(), o.Direction}] = o
}

func (m *MemoryFlagStore) RemoveOverride(anchorID string, dir Direction) {
	delete(m.ovr, ovrKey{anchorID, dir})
}

func (m *MemoryFlagStore) ClearOverrides() {
	m.ovr = map[ovrKey]Override{}
}
