package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Engine state.
	ErrDisabled = "E_DISABLED"

	// Request layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnknownEntity = "E_UNKNOWN_ENTITY"
	ErrUnknownKind   = "E_UNKNOWN_KIND"
	ErrInvalidState  = "E_INVALID_STATE"
	ErrConflict      = "E_CONFLICT"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrDisabled:        {},
	ErrBadRequest:      {},
	ErrUnknownEntity:   {},
	ErrUnknownKind:     {},
	ErrInvalidState:    {},
	ErrConflict:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
