package vision

import "github.com/google/uuid"

// OverrideService resolves forced visibility overrides. Lookup order: a
// "from" override flagged on the subject wins, then a "to" override flagged
// on the observer, then none.
type OverrideService struct {
	flags FlagStore
}

func NewOverrideService(flags FlagStore) *OverrideService {
	return &OverrideService{flags: flags}
}

// Resolve returns the governing state for the ordered pair, if any. An
// override must be active and carry a concrete state to be honored.
func (s *OverrideService) Resolve(observerID, targetID string) (State, bool) {
	if o, ok := s.flags.Override(targetID, DirectionFrom); ok && s.governs(o, observerID, targetID) {
		return o.State, true
	}
	if o, ok := s.flags.Override(observerID, DirectionTo); ok && s.governs(o, observerID, targetID) {
		return o.State, true
	}
	return Observed, false
}

func (s *OverrideService) governs(o Override, observerID, targetID string) bool {
	if !o.Active {
		return false
	}
	switch o.Direction {
	case DirectionFrom:
		return o.ObserverID == "" || o.ObserverID == observerID
	case DirectionTo:
		return o.TargetID == "" || o.TargetID == targetID
	default:
		return false
	}
}

// Get returns the override anchored on the given entity and direction.
func (s *OverrideService) Get(anchorID string, dir Direction) (Override, bool) {
	return s.flags.Override(anchorID, dir)
}

// Set installs an override, replacing any previous one on the same anchor and
// direction so at most one governs a given ordered pair.
func (s *OverrideService) Set(o Override) Override {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.flags.PutOverride(o)
	return o
}

func (s *OverrideService) Remove(anchorID string, dir Direction) {
	s.flags.RemoveOverride(anchorID, dir)
}

func (s *OverrideService) ClearAll() {
	s.flags.ClearOverrides()
}

func (s *OverrideService) All() []Override {
	return s.flags.Overrides()
}
