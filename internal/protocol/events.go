package protocol

// World-change event kinds accepted on the EVENT message.
const (
	EventEntityUpserted   = "ENTITY_UPSERT"
	EventEntityRemoved    = "ENTITY_REMOVED"
	EventEntityMoved      = "ENTITY_MOVED"
	EventLightUpserted    = "LIGHT_UPSERT"
	EventLightRemoved     = "LIGHT_REMOVED"
	EventOccluderUpserted = "OCCLUDER_UPSERT"
	EventOccluderRemoved  = "OCCLUDER_REMOVED"
	EventAmbientSet       = "AMBIENT_SET"
	EventConditionSet     = "CONDITION_SET"
	EventConditionCleared = "CONDITION_CLEARED"
	EventActionTaken      = "ACTION_TAKEN"
	EventEncounterState   = "ENCOUNTER_STATE"
	EventEngineState      = "ENGINE_STATE"
)

var knownEventKinds = map[string]struct{}{
	EventEntityUpserted:   {},
	EventEntityRemoved:    {},
	EventEntityMoved:      {},
	EventLightUpserted:    {},
	EventLightRemoved:     {},
	EventOccluderUpserted: {},
	EventOccluderRemoved:  {},
	EventAmbientSet:       {},
	EventConditionSet:     {},
	EventConditionCleared: {},
	EventActionTaken:      {},
	EventEncounterState:   {},
	EventEngineState:      {},
}

func IsKnownEventKind(kind string) bool {
	_, ok := knownEventKinds[kind]
	return ok
}
