package vision

import (
	"encoding/json"
	"fmt"
)

// State is the discrete visibility of a subject to one observer. The ordering
// is by "more hidden"; it is not an outcome ladder for checks.
type State int

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, ok := ParseState(raw)
	if !ok {
		return fmt.Errorf("unknown visibility state %q", raw)
	}
	*s = st
	return nil
}

const (
	Observed State = iota
	Concealed
	Hidden
	Undetected
)

func (s State) String() string {
	switch s {
	case Observed:
		return "observed"
	case Concealed:
		return "concealed"
	case Hidden:
		return "hidden"
	case Undetected:
		return "undetected"
	default:
		return "observed"
	}
}

func ParseState(raw string) (State, bool) {
	switch raw {
	case "observed":
		return Observed, true
	case "concealed":
		return Concealed, true
	case "hidden":
		return Hidden, true
	case "undetected":
		return Undetected, true
	default:
		return Observed, false
	}
}

// Worse returns the more hidden of the two states.
func Worse(a, b State) State {
	if a > b {
		return a
	}
	return b
}
