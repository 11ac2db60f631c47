package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrDisabled,
		ErrBadRequest,
		ErrUnknownEntity,
		ErrUnknownKind,
		ErrInvalidState,
		ErrConflict,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestIsKnownEventKind(t *testing.T) {
	for _, k := range []string{
		EventEntityUpserted, EventEntityRemoved, EventEntityMoved,
		EventLightUpserted, EventLightRemoved,
		EventOccluderUpserted, EventOccluderRemoved,
		EventAmbientSet, EventConditionSet, EventConditionCleared,
		EventActionTaken, EventEncounterState, EventEngineState,
	} {
		if !IsKnownEventKind(k) {
			t.Fatalf("expected known event kind: %q", k)
		}
	}
	if IsKnownEventKind("TELEPORT") {
		t.Fatalf("expected unknown kind rejected")
	}
}
