package protocol

const (
	// Request validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrBadRequest      = "E_BAD_REQUEST"

	// Upstream lookups.
	ErrPlayerNotFound = "E_PLAYER_NOT_FOUND"
	ErrNoRooms        = "E_NO_ROOMS"
	ErrRoomFetch      = "E_ROOM_FETCH"
	ErrUpstream       = "E_UPSTREAM"

	// Local failures.
	ErrRender   = "E_RENDER"
	ErrCanceled = "E_CANCELED"
	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrPlayerNotFound:  {},
	ErrNoRooms:         {},
	ErrRoomFetch:       {},
	ErrUpstream:        {},
	ErrRender:          {},
	ErrCanceled:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
